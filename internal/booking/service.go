// Package booking is the payment-and-inventory workflow: intake, pricing, payment intents,
// ticket issuance and the administrative ticket operations.
package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ms-booking/internal/analytics"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/payment"
	"ms-booking/internal/pricing"
	"ms-booking/internal/store"
	"ms-booking/internal/tickets/qr"
	"ms-booking/internal/utils"

	"github.com/go-playground/validator/v10"
)

type EventPublisher interface {
	PublishTicketsIssued(ctx context.Context, event models.TicketsIssuedEvent) error
	PublishPaymentStatus(ctx context.Context, event models.PaymentStatusEvent) error
}

type ActivityEmitter interface {
	Emit(activity models.TicketActivity)
}

type QRDecoder interface {
	DecryptQRData(token string) (*qr.Payload, error)
}

// Deps wires a Service. Events, Activity and QR may be nil.
type Deps struct {
	Store    store.Store
	Gateway  payment.Gateway
	Pricing  pricing.Calculator
	Events   EventPublisher
	Activity ActivityEmitter
	QR       QRDecoder
	// Base is reported as the Source when no fallback was used.
	Base   store.Source
	Logger *logger.Logger
}

type Service struct {
	store    store.Store
	gateway  payment.Gateway
	pricing  pricing.Calculator
	events   EventPublisher
	activity ActivityEmitter
	qr       QRDecoder
	base     store.Source
	log      *logger.Logger
	validate *validator.Validate
	now      func() time.Time
}

func NewService(d Deps) *Service {
	if d.Base == "" {
		d.Base = store.SourceDatabase
	}
	if d.Pricing == (pricing.Calculator{}) {
		d.Pricing = pricing.NewCalculator(pricing.DefaultDiscountCode, pricing.DefaultDiscountPercent)
	}
	return &Service{
		store:    d.Store,
		gateway:  d.Gateway,
		pricing:  d.Pricing,
		events:   d.Events,
		activity: d.Activity,
		qr:       d.QR,
		base:     d.Base,
		log:      d.Logger,
		validate: newValidator(),
		now:      time.Now,
	}
}

type SlotsResult struct {
	Slots  []models.TimeSlot `json:"slots"`
	Source store.Source      `json:"source"`
}

type InitiateResult struct {
	PaymentURL string        `json:"payment_url"`
	Reference  string        `json:"reference"`
	Amount     int64         `json:"amount"`
	Slots      int           `json:"slots"`
	Quote      pricing.Quote `json:"quote"`
	Source     store.Source  `json:"source"`
}

type TicketResult struct {
	Ticket *models.Ticket `json:"ticket"`
	// Changed is false when the ticket already had the requested status.
	Changed bool         `json:"changed"`
	Source  store.Source `json:"source"`
}

type TicketsResult struct {
	Tickets []models.Ticket `json:"tickets"`
	Source  store.Source    `json:"source"`
}

type SummaryResult struct {
	Summary *analytics.Report `json:"summary"`
	Source  store.Source      `json:"source"`
}

// traced reuses the request's Trace when the caller attached one.
func traced(ctx context.Context) (context.Context, *store.Trace) {
	if t := store.TraceFrom(ctx); t != nil {
		return ctx, t
	}
	return store.WithTrace(ctx)
}

func unavailable(op string, err error) error {
	return newError(ErrUnavailable, msgStoreUnavailable, fmt.Errorf("%s: %w", op, err))
}

// ---------------- SLOTS ----------------

// ListAvailableSlots returns slots dated today or later that still have spots.
func (s *Service) ListAvailableSlots(ctx context.Context) (*SlotsResult, error) {
	ctx, trace := traced(ctx)
	slots, err := s.store.ListAvailableSlots(ctx, s.now())
	if err != nil {
		return nil, unavailable("list slots", err)
	}
	return &SlotsResult{Slots: slots, Source: trace.Source(s.base)}, nil
}

// ReseedSlots replaces the inventory with the default six slots for today.
func (s *Service) ReseedSlots(ctx context.Context) (*SlotsResult, error) {
	ctx, trace := traced(ctx)
	slots := store.DefaultSlots(s.now())
	if err := s.store.ReplaceSlots(ctx, slots); err != nil {
		return nil, unavailable("reseed slots", err)
	}
	s.log.LogBooking("RESEED", "time_slots", fmt.Sprintf("inventory replaced with %d default slots", len(slots)))
	return &SlotsResult{Slots: slots, Source: trace.Source(s.base)}, nil
}

// ---------------- INTAKE ----------------

// InitiatePayment validates the form, prices it, stores a pending intent and starts the
// gateway round trip.
func (s *Service) InitiatePayment(ctx context.Context, req BookingRequest) (*InitiateResult, error) {
	req.Normalize()
	if err := validateRequest(s.validate, req); err != nil {
		return nil, err
	}

	ctx, trace := traced(ctx)
	slotIDs := req.SelectedSlots()

	prices := make([]int64, 0, len(slotIDs))
	for _, id := range slotIDs {
		slot, err := s.store.GetSlot(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return nil, newError(ErrSlotNotFound, fmt.Sprintf(msgSlotNotFoundFmt, id), err)
		}
		if err != nil {
			return nil, newError(ErrInitiate, msgInitiateFailed, err)
		}
		if !slot.HasCapacity(req.NumberOfPeople) {
			return nil, newError(ErrInsufficientCapacity, fmt.Sprintf(msgNotEnoughSpotsFmt, slot.Time), nil)
		}
		prices = append(prices, slot.Price)
	}

	quote := s.pricing.Calculate(prices, req.NumberOfPeople, req.DiscountCode)
	reference := utils.GeneratePaymentReference()
	intent := &models.PaymentIntent{
		Reference: reference,
		Status:    models.IntentPending,
		Metadata: models.BookingMetadata{
			UserName:        req.UserName,
			Email:           req.Email,
			Phone:           req.Phone,
			TimeSlotIDs:     slotIDs,
			NumberOfPeople:  req.NumberOfPeople,
			BookingType:     req.BookingType,
			Subtotal:        quote.Subtotal,
			DiscountApplied: quote.Discount,
			FinalAmount:     quote.Total,
		},
		CreatedAt: s.now(),
	}
	if err := intent.Metadata.Validate(); err != nil {
		return nil, newError(ErrInitiate, msgInitiateFailed, err)
	}
	if err := s.store.CreateIntent(ctx, intent); err != nil {
		return nil, newError(ErrInitiate, msgInitiateFailed, err)
	}
	s.log.LogBooking("INITIATE", reference, fmt.Sprintf("%d slot(s) x %d people, total %s", len(slotIDs), req.NumberOfPeople, utils.FormatNaira(quote.Total)))
	s.publishStatus(ctx, reference, models.IntentPending, quote.Total, "")

	resp, err := s.gateway.Initialize(ctx, payment.InitRequest{
		Email:      req.Email,
		AmountKobo: utils.ToKobo(quote.Total),
		Reference:  reference,
	})
	if err == nil && !resp.Success {
		err = errors.New("gateway declined initialization")
	}
	if err != nil {
		s.log.Error("PAYMENT", fmt.Sprintf("Initialize %s failed: %v", reference, err))
		s.failIntent(context.WithoutCancel(ctx), reference, quote.Total, err.Error())
		return nil, newError(ErrPaymentInit, msgInitFailed, err)
	}

	return &InitiateResult{
		PaymentURL: resp.AuthorizationURL,
		Reference:  reference,
		Amount:     quote.Total,
		Slots:      len(slotIDs),
		Quote:      quote,
		Source:     trace.Source(s.base),
	}, nil
}

// ---------------- TICKETS ----------------

func (s *Service) GetTicket(ctx context.Context, id string) (*TicketResult, error) {
	ctx, trace := traced(ctx)
	ticket, err := s.loadTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	return &TicketResult{Ticket: ticket, Source: trace.Source(s.base)}, nil
}

// ListTickets returns tickets newest first. A non-empty query keeps those whose user name or
// ticket number contains it, ignoring case.
func (s *Service) ListTickets(ctx context.Context, query string) (*TicketsResult, error) {
	ctx, trace := traced(ctx)
	all, err := s.store.ListTickets(ctx)
	if err != nil {
		return nil, unavailable("list tickets", err)
	}
	return &TicketsResult{Tickets: FilterTickets(all, query), Source: trace.Source(s.base)}, nil
}

// Summary aggregates every ticket into the dashboard figures.
func (s *Service) Summary(ctx context.Context) (*SummaryResult, error) {
	ctx, trace := traced(ctx)
	report, err := analytics.NewService(s.store).Summary(ctx)
	if err != nil {
		return nil, unavailable("summary", err)
	}
	return &SummaryResult{Summary: report, Source: trace.Source(s.base)}, nil
}

func FilterTickets(tickets []models.Ticket, query string) []models.Ticket {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return tickets
	}
	out := make([]models.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if strings.Contains(strings.ToLower(t.UserName), q) || strings.Contains(strings.ToLower(t.TicketNumber), q) {
			out = append(out, t)
		}
	}
	return out
}

// MarkTicketUsed sets the ticket to used. A ticket that is already used is returned unchanged.
func (s *Service) MarkTicketUsed(ctx context.Context, id string) (*TicketResult, error) {
	return s.setStatus(ctx, id, models.TicketUsed)
}

// UpdateTicketStatus sets status to active or used; used tickets may be reactivated.
func (s *Service) UpdateTicketStatus(ctx context.Context, id string, status string) (*TicketResult, error) {
	st := models.TicketStatus(strings.ToLower(strings.TrimSpace(status)))
	if !st.Valid() {
		return nil, newError(ErrValidation, msgInvalidStatus, fmt.Errorf("status %q", status))
	}
	return s.setStatus(ctx, id, st)
}

// ScanTicket marks the ticket named by a scanned code as used. The code may be the encrypted
// QR token, the plain JSON payload, or a bare ticket id.
func (s *Service) ScanTicket(ctx context.Context, code string) (*TicketResult, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, newError(ErrValidation, msgMissingScan, nil)
	}
	id := s.ticketIDFromCode(code)
	s.log.LogSecurity("SCAN", fmt.Sprintf("ticket %s scanned", id))
	return s.setStatus(ctx, id, models.TicketUsed)
}

func (s *Service) ticketIDFromCode(code string) string {
	if s.qr != nil {
		if p, err := s.qr.DecryptQRData(code); err == nil {
			return p.ID
		}
	}
	var p qr.Payload
	if strings.HasPrefix(code, "{") && json.Unmarshal([]byte(code), &p) == nil && p.ID != "" {
		return p.ID
	}
	return code
}

func (s *Service) setStatus(ctx context.Context, id string, status models.TicketStatus) (*TicketResult, error) {
	ctx, trace := traced(ctx)
	ticket, err := s.loadTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	if ticket.Status == status {
		return &TicketResult{Ticket: ticket, Changed: false, Source: trace.Source(s.base)}, nil
	}

	if err := s.store.SetTicketStatus(ctx, id, status); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, newError(ErrTicketNotFound, msgTicketNotFound, err)
		}
		return nil, unavailable("set ticket status", err)
	}
	previous := ticket.Status
	ticket.Status = status
	s.log.LogBooking("STATUS", ticket.ID, fmt.Sprintf("%s -> %s", previous, status))
	s.emit("status", *ticket)

	return &TicketResult{Ticket: ticket, Changed: true, Source: trace.Source(s.base)}, nil
}

func (s *Service) loadTicket(ctx context.Context, id string) (*models.Ticket, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, newError(ErrTicketNotFound, msgTicketNotFound, nil)
	}
	ticket, err := s.store.GetTicket(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, newError(ErrTicketNotFound, msgTicketNotFound, err)
	}
	if err != nil {
		return nil, unavailable("get ticket", err)
	}
	return ticket, nil
}

// ---------------- NOTIFICATIONS ----------------

func (s *Service) publishStatus(ctx context.Context, reference string, status models.IntentStatus, amount int64, reason string) {
	if s.events == nil {
		return
	}
	err := s.events.PublishPaymentStatus(ctx, models.PaymentStatusEvent{
		Reference: reference,
		Status:    status,
		Amount:    amount,
		Reason:    reason,
		Timestamp: s.now(),
	})
	if err != nil {
		s.log.Error("KAFKA", fmt.Sprintf("Kafka publish error (payment status %s): %v", reference, err))
	}
}

func (s *Service) emit(kind string, ticket models.Ticket) {
	if s.activity == nil {
		return
	}
	s.activity.Emit(models.TicketActivity{Kind: kind, Ticket: ticket, Timestamp: s.now()})
}

// failIntent moves a pending intent to failed. Missing or already-final intents are only logged.
func (s *Service) failIntent(ctx context.Context, reference string, amount int64, reason string) {
	err := s.store.SetIntentStatus(ctx, reference, models.IntentFailed)
	switch {
	case err == nil:
		s.log.LogPayment("FAILED", reference, reason)
		s.publishStatus(ctx, reference, models.IntentFailed, amount, reason)
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrIntentFinalized):
		s.log.Debug("PAYMENT", fmt.Sprintf("Not marking %s failed: %v", reference, err))
	default:
		s.log.Error("PAYMENT", fmt.Sprintf("Failed to mark %s failed: %v", reference, err))
	}
}
