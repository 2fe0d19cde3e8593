package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ms-booking/internal/lock"
	"ms-booking/internal/models"
	"ms-booking/internal/store"
	"ms-booking/internal/utils"

	"github.com/google/uuid"
)

type Locker interface {
	Acquire(ctx context.Context, key, owner string) error
	Release(ctx context.Context, key, owner string) error
}

// Issuer turns a verified payment into tickets.
type Issuer struct {
	svc    *Service
	locker Locker
}

// NewIssuer uses an in-process lock when locker is nil.
func NewIssuer(svc *Service, locker Locker) *Issuer {
	if locker == nil {
		locker = lock.NewLocal(lock.DefaultTTL)
	}
	return &Issuer{svc: svc, locker: locker}
}

type IssueResult struct {
	// Ticket is the first ticket of the booking.
	Ticket  *models.Ticket  `json:"ticket"`
	Tickets []models.Ticket `json:"tickets"`
	// SkippedSlots lists slot ids from the intent that no longer exist.
	SkippedSlots []string `json:"skipped_slots,omitempty"`
	// Replayed is set when the reference was already completed and no tickets were created.
	Replayed bool         `json:"replayed"`
	Source   store.Source `json:"source"`
}

// VerifyAndIssue verifies reference with the gateway and issues one ticket per slot in the
// stored intent, decrementing each slot's capacity. Tickets created before a failure are kept.
func (i *Issuer) VerifyAndIssue(ctx context.Context, reference string) (*IssueResult, error) {
	s := i.svc
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, newError(ErrValidation, msgMissingReference, nil)
	}
	ctx, trace := traced(ctx)

	owner := uuid.NewString()
	if err := i.locker.Acquire(ctx, reference, owner); err != nil {
		if errors.Is(err, lock.ErrHeld) {
			return nil, newError(ErrVerificationInProgress, msgVerifyInProgress, err)
		}
		if ctx.Err() != nil {
			return nil, newError(ErrPaymentVerification, msgVerifyFailed, err)
		}
		s.log.Warn("BOOKING", fmt.Sprintf("Verification lock unavailable for %s, continuing unlocked: %v", reference, err))
	} else {
		defer func() {
			if err := i.locker.Release(context.WithoutCancel(ctx), reference, owner); err != nil {
				s.log.Warn("BOOKING", fmt.Sprintf("Failed to release verification lock for %s: %v", reference, err))
			}
		}()
	}

	verification, err := s.gateway.Verify(ctx, reference)
	if err == nil && !verification.Success {
		err = fmt.Errorf("gateway reported %q", verification.Status)
	}
	if err != nil {
		s.log.Error("PAYMENT", fmt.Sprintf("Verify %s failed: %v", reference, err))
		s.failIntent(context.WithoutCancel(ctx), reference, 0, err.Error())
		return nil, newError(ErrPaymentVerification, msgVerifyFailed, err)
	}

	intent, err := s.store.GetIntent(ctx, reference)
	if errors.Is(err, store.ErrNotFound) {
		s.log.Error("BOOKING", fmt.Sprintf("Metadata not found for reference %s: %v", reference, err))
		return nil, newError(ErrMetadataNotFound, msgMetadataNotFound, err)
	}
	if err != nil {
		return nil, unavailable("get intent", err)
	}

	switch intent.Status {
	case models.IntentCompleted:
		return i.replay(ctx, trace, reference)
	case models.IntentFailed:
		return nil, newError(ErrIntentFinalized, msgIntentFinalized, fmt.Errorf("intent %s is failed", reference))
	}

	meta := intent.Metadata
	if err := meta.Validate(); err != nil {
		return nil, i.fail(ctx, reference, meta.FinalAmount, err)
	}

	var (
		created []models.Ticket
		skipped []string
	)
	for _, slotID := range meta.TimeSlotIDs {
		if _, err := s.store.GetSlot(ctx, slotID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				s.log.Warn("BOOKING", fmt.Sprintf("Skipping missing time slot %s for %s", slotID, reference))
				skipped = append(skipped, slotID)
				continue
			}
			return nil, i.fail(ctx, reference, meta.FinalAmount, err)
		}

		ticket, err := i.issueOne(ctx, reference, slotID, meta)
		if err != nil {
			return nil, i.fail(ctx, reference, meta.FinalAmount, err)
		}
		created = append(created, *ticket)
	}

	if len(created) == 0 {
		return nil, i.fail(ctx, reference, meta.FinalAmount, errors.New("no tickets created"))
	}

	if len(created) > 1 {
		ids := make([]string, len(created))
		for n, t := range created {
			ids[n] = t.ID
		}
		for n := range created {
			related := siblings(ids, created[n].ID)
			if err := s.store.SetRelatedTickets(ctx, created[n].ID, related); err != nil {
				return nil, i.fail(ctx, reference, meta.FinalAmount, err)
			}
			created[n].RelatedTickets = related
		}
	}

	if err := s.store.SetIntentStatus(ctx, reference, models.IntentCompleted); err != nil {
		return nil, i.fail(ctx, reference, meta.FinalAmount, err)
	}
	s.log.LogPayment("COMPLETED", reference, fmt.Sprintf("%d ticket(s) issued, %d slot(s) skipped", len(created), len(skipped)))
	s.publishStatus(ctx, reference, models.IntentCompleted, meta.FinalAmount, "")
	i.announce(ctx, reference, meta, created, skipped)

	return &IssueResult{
		Ticket:       &created[0],
		Tickets:      created,
		SkippedSlots: skipped,
		Source:       trace.Source(s.base),
	}, nil
}

// issueOne reserves capacity and inserts one ticket; the reservation is undone if the insert fails.
func (i *Issuer) issueOne(ctx context.Context, reference, slotID string, meta models.BookingMetadata) (*models.Ticket, error) {
	s := i.svc
	slot, err := s.store.ReserveSpots(ctx, slotID, meta.NumberOfPeople)
	if err != nil {
		return nil, fmt.Errorf("reserve %d spots on slot %s: %w", meta.NumberOfPeople, slotID, err)
	}

	ticket := &models.Ticket{
		ID:               utils.GenerateTicketID(),
		UserName:         meta.UserName,
		TimeSlotID:       slotID,
		TicketNumber:     utils.GenerateTicketNumber(),
		Status:           models.TicketActive,
		PaymentStatus:    models.PaymentPaid,
		PaymentReference: reference,
		BookingType:      meta.BookingType,
		NumberOfPeople:   meta.NumberOfPeople,
		DiscountApplied:  meta.DiscountApplied,
		CreatedAt:        s.now(),
	}
	if err := s.store.CreateTicket(ctx, ticket); err != nil {
		if rerr := s.store.ReleaseSpots(context.WithoutCancel(ctx), slotID, meta.NumberOfPeople); rerr != nil {
			s.log.Error("BOOKING", fmt.Sprintf("Failed to release %d spots on slot %s: %v", meta.NumberOfPeople, slotID, rerr))
		}
		return nil, fmt.Errorf("insert ticket for slot %s: %w", slotID, err)
	}
	ticket.TimeSlot = slot
	s.log.LogBooking("TICKET", reference, fmt.Sprintf("ticket %s (%s) on slot %s", ticket.ID, ticket.TicketNumber, slotID))
	return ticket, nil
}

func (i *Issuer) replay(ctx context.Context, trace *store.Trace, reference string) (*IssueResult, error) {
	s := i.svc
	tickets, err := s.store.ListTicketsByReference(ctx, reference)
	if err != nil {
		return nil, unavailable("list tickets by reference", err)
	}
	if len(tickets) == 0 {
		return nil, newError(ErrIntentFinalized, msgIntentFinalized, fmt.Errorf("intent %s completed without tickets", reference))
	}
	s.log.LogPayment("REPLAY", reference, fmt.Sprintf("already completed, returning %d ticket(s)", len(tickets)))
	return &IssueResult{
		Ticket:   &tickets[0],
		Tickets:  tickets,
		Replayed: true,
		Source:   trace.Source(s.base),
	}, nil
}

func (i *Issuer) fail(ctx context.Context, reference string, amount int64, cause error) error {
	s := i.svc
	s.log.Error("BOOKING", fmt.Sprintf("Error creating ticket for %s: %v", reference, cause))
	s.failIntent(context.WithoutCancel(ctx), reference, amount, cause.Error())
	return newError(ErrIssuance, msgIssuanceFailed, cause)
}

func (i *Issuer) announce(ctx context.Context, reference string, meta models.BookingMetadata, tickets []models.Ticket, skipped []string) {
	s := i.svc
	for _, t := range tickets {
		s.emit("issued", t)
	}
	if s.events == nil {
		return
	}
	err := s.events.PublishTicketsIssued(ctx, models.TicketsIssuedEvent{
		Reference:   reference,
		UserName:    meta.UserName,
		BookingType: string(meta.BookingType),
		FinalAmount: meta.FinalAmount,
		Tickets:     tickets,
		Skipped:     skipped,
		Timestamp:   s.now(),
	})
	if err != nil {
		s.log.Error("KAFKA", fmt.Sprintf("Kafka publish error (tickets issued %s): %v", reference, err))
	}
}

func siblings(ids []string, self string) []string {
	out := make([]string, 0, len(ids)-1)
	for _, id := range ids {
		if id != self {
			out = append(out, id)
		}
	}
	return out
}
