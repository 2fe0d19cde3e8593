// Package memory is an in-process Store used in demo mode and as the fallback behind a database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"ms-booking/internal/models"
	"ms-booking/internal/store"
)

type Store struct {
	mu      sync.RWMutex
	slots   map[string]*models.TimeSlot
	tickets []*models.Ticket // insertion order
	byID    map[string]*models.Ticket
	intents map[string]*models.PaymentIntent
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		slots:   make(map[string]*models.TimeSlot),
		byID:    make(map[string]*models.Ticket),
		intents: make(map[string]*models.PaymentIntent),
	}
}

// NewSeeded returns a store holding slots and tickets.
func NewSeeded(slots []models.TimeSlot, tickets []models.Ticket) *Store {
	s := New()
	for i := range slots {
		slot := slots[i]
		s.slots[slot.ID] = &slot
	}
	for i := range tickets {
		t := tickets[i]
		t.TimeSlot = nil
		s.tickets = append(s.tickets, &t)
		s.byID[t.ID] = &t
	}
	return s
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() error { return nil }

// ---------------- SLOTS ----------------

func (s *Store) ListAvailableSlots(ctx context.Context, from time.Time) ([]models.TimeSlot, error) {
	day := from.Format(models.SlotDateLayout)

	s.mu.RLock()
	out := make([]models.TimeSlot, 0, len(s.slots))
	for _, slot := range s.slots {
		if slot.Date >= day && slot.AvailableSpots > 0 {
			out = append(out, *slot)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Time < out[j].Time
	})
	return out, nil
}

func (s *Store) GetSlot(ctx context.Context, id string) (*models.TimeSlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slot, ok := s.slots[id]
	if !ok {
		return nil, fmt.Errorf("time slot %s: %w", id, store.ErrNotFound)
	}
	cp := *slot
	return &cp, nil
}

func (s *Store) ReserveSpots(ctx context.Context, id string, n int) (*models.TimeSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.slots[id]
	if !ok {
		return nil, fmt.Errorf("time slot %s: %w", id, store.ErrNotFound)
	}
	if n < 1 || slot.AvailableSpots < n {
		return nil, fmt.Errorf("time slot %s has %d spots, %d requested: %w", id, slot.AvailableSpots, n, store.ErrInsufficientCapacity)
	}
	slot.AvailableSpots -= n
	cp := *slot
	return &cp, nil
}

func (s *Store) ReleaseSpots(ctx context.Context, id string, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.slots[id]
	if !ok {
		return fmt.Errorf("time slot %s: %w", id, store.ErrNotFound)
	}
	slot.AvailableSpots += n
	return nil
}

func (s *Store) ReplaceSlots(ctx context.Context, slots []models.TimeSlot) error {
	fresh := make(map[string]*models.TimeSlot, len(slots))
	for i := range slots {
		slot := slots[i]
		fresh[slot.ID] = &slot
	}

	s.mu.Lock()
	s.slots = fresh
	s.mu.Unlock()
	return nil
}

// ---------------- TICKETS ----------------

// withSlot copies t and attaches the current slot. Caller holds the lock.
func (s *Store) withSlot(t *models.Ticket) models.Ticket {
	cp := *t
	cp.RelatedTickets = append(models.TicketIDs(nil), t.RelatedTickets...)
	if slot, ok := s.slots[t.TimeSlotID]; ok {
		sc := *slot
		cp.TimeSlot = &sc
	}
	return cp
}

func (s *Store) CreateTicket(ctx context.Context, ticket *models.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[ticket.ID]; exists {
		return fmt.Errorf("ticket %s: %w", ticket.ID, store.ErrDuplicate)
	}
	cp := *ticket
	cp.TimeSlot = nil
	s.tickets = append(s.tickets, &cp)
	s.byID[cp.ID] = &cp
	return nil
}

func (s *Store) GetTicket(ctx context.Context, id string) (*models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("ticket %s: %w", id, store.ErrNotFound)
	}
	cp := s.withSlot(t)
	return &cp, nil
}

func (s *Store) ListTickets(ctx context.Context) ([]models.Ticket, error) {
	s.mu.RLock()
	out := make([]models.Ticket, 0, len(s.tickets))
	for i := len(s.tickets) - 1; i >= 0; i-- {
		out = append(out, s.withSlot(s.tickets[i]))
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) ListTicketsByReference(ctx context.Context, reference string) ([]models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Ticket
	for _, t := range s.tickets {
		if t.PaymentReference == reference {
			out = append(out, s.withSlot(t))
		}
	}
	return out, nil
}

func (s *Store) SetRelatedTickets(ctx context.Context, id string, related []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("ticket %s: %w", id, store.ErrNotFound)
	}
	t.RelatedTickets = append(models.TicketIDs(nil), related...)
	return nil
}

func (s *Store) SetTicketStatus(ctx context.Context, id string, status models.TicketStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("ticket %s: %w", id, store.ErrNotFound)
	}
	t.Status = status
	return nil
}

// ---------------- PAYMENT INTENTS ----------------

func (s *Store) CreateIntent(ctx context.Context, intent *models.PaymentIntent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.intents[intent.Reference]; exists {
		return fmt.Errorf("payment intent %s: %w", intent.Reference, store.ErrDuplicate)
	}
	cp := *intent
	cp.Metadata.TimeSlotIDs = append([]string(nil), intent.Metadata.TimeSlotIDs...)
	s.intents[cp.Reference] = &cp
	return nil
}

func (s *Store) GetIntent(ctx context.Context, reference string) (*models.PaymentIntent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	intent, ok := s.intents[reference]
	if !ok {
		return nil, fmt.Errorf("payment intent %s: %w", reference, store.ErrNotFound)
	}
	cp := *intent
	cp.Metadata.TimeSlotIDs = append([]string(nil), intent.Metadata.TimeSlotIDs...)
	return &cp, nil
}

func (s *Store) SetIntentStatus(ctx context.Context, reference string, status models.IntentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	intent, ok := s.intents[reference]
	if !ok {
		return fmt.Errorf("payment intent %s: %w", reference, store.ErrNotFound)
	}
	if intent.Status.Terminal() {
		return fmt.Errorf("payment intent %s is %s: %w", reference, intent.Status, store.ErrIntentFinalized)
	}
	intent.Status = status
	intent.UpdatedAt = time.Now()
	return nil
}
