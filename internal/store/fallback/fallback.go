// Package fallback serves from an in-memory Store when the primary database is unreachable,
// and records every such degradation on the request's store.Trace.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/store"
)

type Store struct {
	Primary   store.Store
	Secondary store.Store
	Logger    *logger.Logger
}

var _ store.Store = (*Store)(nil)

func New(primary, secondary store.Store, log *logger.Logger) *Store {
	return &Store{Primary: primary, Secondary: secondary, Logger: log}
}

// degrade reports whether err is an outage that should be retried on the secondary.
func (f *Store) degrade(ctx context.Context, op string, err error) bool {
	if err == nil || store.IsDomainError(err) || errors.Is(err, context.Canceled) {
		return false
	}
	f.Logger.Warn("FALLBACK", fmt.Sprintf("%s: primary store failed, using in-memory fallback: %v", op, err))
	store.TraceFrom(ctx).MarkFallback(op, err)
	return true
}

// servedBySecondary records a lookup the primary could not answer but the secondary could.
func (f *Store) servedBySecondary(ctx context.Context, op string) {
	f.Logger.Info("FALLBACK", fmt.Sprintf("%s: record found only in in-memory fallback", op))
	store.TraceFrom(ctx).MarkFallback(op, nil)
}

func (f *Store) Ping(ctx context.Context) error {
	return f.Primary.Ping(ctx)
}

func (f *Store) Close() error {
	err := f.Primary.Close()
	if serr := f.Secondary.Close(); err == nil {
		err = serr
	}
	return err
}

// ---------------- SLOTS ----------------

func (f *Store) ListAvailableSlots(ctx context.Context, from time.Time) ([]models.TimeSlot, error) {
	slots, err := f.Primary.ListAvailableSlots(ctx, from)
	if f.degrade(ctx, "ListAvailableSlots", err) {
		return f.Secondary.ListAvailableSlots(ctx, from)
	}
	return slots, err
}

func (f *Store) GetSlot(ctx context.Context, id string) (*models.TimeSlot, error) {
	slot, err := f.Primary.GetSlot(ctx, id)
	if f.degrade(ctx, "GetSlot", err) {
		return f.Secondary.GetSlot(ctx, id)
	}
	return slot, err
}

func (f *Store) ReserveSpots(ctx context.Context, id string, n int) (*models.TimeSlot, error) {
	slot, err := f.Primary.ReserveSpots(ctx, id, n)
	if f.degrade(ctx, "ReserveSpots", err) {
		return f.Secondary.ReserveSpots(ctx, id, n)
	}
	return slot, err
}

func (f *Store) ReleaseSpots(ctx context.Context, id string, n int) error {
	err := f.Primary.ReleaseSpots(ctx, id, n)
	if f.degrade(ctx, "ReleaseSpots", err) {
		return f.Secondary.ReleaseSpots(ctx, id, n)
	}
	return err
}

func (f *Store) ReplaceSlots(ctx context.Context, slots []models.TimeSlot) error {
	err := f.Primary.ReplaceSlots(ctx, slots)
	if f.degrade(ctx, "ReplaceSlots", err) {
		return f.Secondary.ReplaceSlots(ctx, slots)
	}
	return err
}

// ---------------- TICKETS ----------------

func (f *Store) CreateTicket(ctx context.Context, ticket *models.Ticket) error {
	err := f.Primary.CreateTicket(ctx, ticket)
	if f.degrade(ctx, "CreateTicket", err) {
		return f.Secondary.CreateTicket(ctx, ticket)
	}
	return err
}

func (f *Store) GetTicket(ctx context.Context, id string) (*models.Ticket, error) {
	ticket, err := f.Primary.GetTicket(ctx, id)
	switch {
	case err == nil:
		return ticket, nil
	case errors.Is(err, store.ErrNotFound):
		ticket, serr := f.Secondary.GetTicket(ctx, id)
		if serr != nil {
			return nil, err
		}
		f.servedBySecondary(ctx, "GetTicket")
		return ticket, nil
	case f.degrade(ctx, "GetTicket", err):
		return f.Secondary.GetTicket(ctx, id)
	default:
		return nil, err
	}
}

func (f *Store) ListTickets(ctx context.Context) ([]models.Ticket, error) {
	tickets, err := f.Primary.ListTickets(ctx)
	if f.degrade(ctx, "ListTickets", err) {
		return f.Secondary.ListTickets(ctx)
	}
	if err != nil {
		return nil, err
	}
	extra, serr := f.Secondary.ListTickets(ctx)
	if serr != nil || len(extra) == 0 {
		return tickets, nil
	}
	merged := mergeTickets(tickets, extra)
	if len(merged) > len(tickets) {
		f.servedBySecondary(ctx, "ListTickets")
	}
	return merged, nil
}

func (f *Store) ListTicketsByReference(ctx context.Context, reference string) ([]models.Ticket, error) {
	tickets, err := f.Primary.ListTicketsByReference(ctx, reference)
	if f.degrade(ctx, "ListTicketsByReference", err) {
		return f.Secondary.ListTicketsByReference(ctx, reference)
	}
	if err != nil {
		return nil, err
	}
	extra, serr := f.Secondary.ListTicketsByReference(ctx, reference)
	if serr != nil || len(extra) == 0 {
		return tickets, nil
	}
	f.servedBySecondary(ctx, "ListTicketsByReference")
	return mergeTickets(tickets, extra), nil
}

func (f *Store) SetRelatedTickets(ctx context.Context, id string, related []string) error {
	err := f.Primary.SetRelatedTickets(ctx, id, related)
	if errors.Is(err, store.ErrNotFound) || f.degrade(ctx, "SetRelatedTickets", err) {
		return f.Secondary.SetRelatedTickets(ctx, id, related)
	}
	return err
}

func (f *Store) SetTicketStatus(ctx context.Context, id string, status models.TicketStatus) error {
	err := f.Primary.SetTicketStatus(ctx, id, status)
	if errors.Is(err, store.ErrNotFound) {
		if serr := f.Secondary.SetTicketStatus(ctx, id, status); serr != nil {
			return err
		}
		f.servedBySecondary(ctx, "SetTicketStatus")
		return nil
	}
	if f.degrade(ctx, "SetTicketStatus", err) {
		return f.Secondary.SetTicketStatus(ctx, id, status)
	}
	return err
}

// ---------------- PAYMENT INTENTS ----------------

func (f *Store) CreateIntent(ctx context.Context, intent *models.PaymentIntent) error {
	err := f.Primary.CreateIntent(ctx, intent)
	if f.degrade(ctx, "CreateIntent", err) {
		return f.Secondary.CreateIntent(ctx, intent)
	}
	return err
}

// GetIntent looks in the primary first and then in the fallback, where an intent
// lands if it was created during an outage.
func (f *Store) GetIntent(ctx context.Context, reference string) (*models.PaymentIntent, error) {
	intent, err := f.Primary.GetIntent(ctx, reference)
	switch {
	case err == nil:
		return intent, nil
	case errors.Is(err, store.ErrNotFound):
		intent, serr := f.Secondary.GetIntent(ctx, reference)
		if serr != nil {
			return nil, err
		}
		f.servedBySecondary(ctx, "GetIntent")
		return intent, nil
	case f.degrade(ctx, "GetIntent", err):
		return f.Secondary.GetIntent(ctx, reference)
	default:
		return nil, err
	}
}

func (f *Store) SetIntentStatus(ctx context.Context, reference string, status models.IntentStatus) error {
	err := f.Primary.SetIntentStatus(ctx, reference, status)
	if errors.Is(err, store.ErrNotFound) {
		if serr := f.Secondary.SetIntentStatus(ctx, reference, status); serr != nil {
			if errors.Is(serr, store.ErrNotFound) {
				return err
			}
			return serr
		}
		f.servedBySecondary(ctx, "SetIntentStatus")
		return nil
	}
	if f.degrade(ctx, "SetIntentStatus", err) {
		return f.Secondary.SetIntentStatus(ctx, reference, status)
	}
	return err
}

func mergeTickets(primary, secondary []models.Ticket) []models.Ticket {
	seen := make(map[string]struct{}, len(primary))
	out := make([]models.Ticket, 0, len(primary)+len(secondary))
	for _, t := range primary {
		seen[t.ID] = struct{}{}
		out = append(out, t)
	}
	for _, t := range secondary {
		if _, ok := seen[t.ID]; !ok {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
