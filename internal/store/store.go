// Package store defines the persistence contracts for slots, tickets and payment intents.
package store

import (
	"context"
	"errors"
	"time"

	"ms-booking/internal/models"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrInsufficientCapacity = errors.New("insufficient capacity")
	// ErrIntentFinalized is returned when a completed or failed intent is asked to move again.
	ErrIntentFinalized = errors.New("payment intent already finalized")
	ErrDuplicate       = errors.New("already exists")
)

// IsDomainError reports whether err is an answer from the store rather than a failure of it.
func IsDomainError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInsufficientCapacity) ||
		errors.Is(err, ErrIntentFinalized) ||
		errors.Is(err, ErrDuplicate)
}

type SlotStore interface {
	// ListAvailableSlots returns slots dated on or after from with spots left, by date then time.
	ListAvailableSlots(ctx context.Context, from time.Time) ([]models.TimeSlot, error)
	GetSlot(ctx context.Context, id string) (*models.TimeSlot, error)
	// ReserveSpots decrements available_spots by n only if at least n remain.
	ReserveSpots(ctx context.Context, id string, n int) (*models.TimeSlot, error)
	ReleaseSpots(ctx context.Context, id string, n int) error
	// ReplaceSlots swaps the whole inventory for slots.
	ReplaceSlots(ctx context.Context, slots []models.TimeSlot) error
}

type TicketStore interface {
	CreateTicket(ctx context.Context, ticket *models.Ticket) error
	GetTicket(ctx context.Context, id string) (*models.Ticket, error)
	// ListTickets returns every ticket, newest first, with its slot attached.
	ListTickets(ctx context.Context) ([]models.Ticket, error)
	ListTicketsByReference(ctx context.Context, reference string) ([]models.Ticket, error)
	SetRelatedTickets(ctx context.Context, id string, related []string) error
	SetTicketStatus(ctx context.Context, id string, status models.TicketStatus) error
}

type IntentStore interface {
	CreateIntent(ctx context.Context, intent *models.PaymentIntent) error
	GetIntent(ctx context.Context, reference string) (*models.PaymentIntent, error)
	// SetIntentStatus moves a pending intent to status; terminal intents yield ErrIntentFinalized.
	SetIntentStatus(ctx context.Context, reference string, status models.IntentStatus) error
}

// Store is everything the booking workflow persists.
type Store interface {
	SlotStore
	TicketStore
	IntentStore
	Ping(ctx context.Context) error
	Close() error
}
