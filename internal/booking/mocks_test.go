package booking_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ms-booking/internal/lock"
	"ms-booking/internal/models"
	"ms-booking/internal/payment"
	"ms-booking/internal/store"
	"ms-booking/internal/store/memory"

	"github.com/stretchr/testify/mock"
)

// Mock implementations
type MockStore struct {
	mock.Mock
}

func (m *MockStore) ListAvailableSlots(ctx context.Context, from time.Time) ([]models.TimeSlot, error) {
	args := m.Called(ctx, from)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TimeSlot), args.Error(1)
}

func (m *MockStore) GetSlot(ctx context.Context, id string) (*models.TimeSlot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TimeSlot), args.Error(1)
}

func (m *MockStore) ReserveSpots(ctx context.Context, id string, n int) (*models.TimeSlot, error) {
	args := m.Called(ctx, id, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TimeSlot), args.Error(1)
}

func (m *MockStore) ReleaseSpots(ctx context.Context, id string, n int) error {
	args := m.Called(ctx, id, n)
	return args.Error(0)
}

func (m *MockStore) ReplaceSlots(ctx context.Context, slots []models.TimeSlot) error {
	args := m.Called(ctx, slots)
	return args.Error(0)
}

func (m *MockStore) CreateTicket(ctx context.Context, ticket *models.Ticket) error {
	args := m.Called(ctx, ticket)
	return args.Error(0)
}

func (m *MockStore) GetTicket(ctx context.Context, id string) (*models.Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ticket), args.Error(1)
}

func (m *MockStore) ListTickets(ctx context.Context) ([]models.Ticket, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Ticket), args.Error(1)
}

func (m *MockStore) ListTicketsByReference(ctx context.Context, reference string) ([]models.Ticket, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Ticket), args.Error(1)
}

func (m *MockStore) SetRelatedTickets(ctx context.Context, id string, related []string) error {
	args := m.Called(ctx, id, related)
	return args.Error(0)
}

func (m *MockStore) SetTicketStatus(ctx context.Context, id string, status models.TicketStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockStore) CreateIntent(ctx context.Context, intent *models.PaymentIntent) error {
	args := m.Called(ctx, intent)
	return args.Error(0)
}

func (m *MockStore) GetIntent(ctx context.Context, reference string) (*models.PaymentIntent, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PaymentIntent), args.Error(1)
}

func (m *MockStore) SetIntentStatus(ctx context.Context, reference string, status models.IntentStatus) error {
	args := m.Called(ctx, reference, status)
	return args.Error(0)
}

func (m *MockStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Initialize(ctx context.Context, req payment.InitRequest) (*payment.InitResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.InitResponse), args.Error(1)
}

func (m *MockGateway) Verify(ctx context.Context, reference string) (*payment.VerifyResponse, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.VerifyResponse), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishTicketsIssued(ctx context.Context, event models.TicketsIssuedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockPublisher) PublishPaymentStatus(ctx context.Context, event models.PaymentStatusEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type recordingEmitter struct {
	mu       sync.Mutex
	activity []models.TicketActivity
}

func (r *recordingEmitter) Emit(a models.TicketActivity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activity = append(r.activity, a)
}

func (r *recordingEmitter) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.activity))
	for i, a := range r.activity {
		out[i] = a.Kind
	}
	return out
}

// heldLocker reports every key as held by someone else.
type heldLocker struct{}

func (heldLocker) Acquire(context.Context, string, string) error {
	return fmt.Errorf("verify_lock:PAY: %w", lock.ErrHeld)
}

func (heldLocker) Release(context.Context, string, string) error { return nil }

// brokenTicketStore fails every ticket insert.
type brokenTicketStore struct {
	*memory.Store
}

func (b *brokenTicketStore) CreateTicket(context.Context, *models.Ticket) error {
	return errors.New("insert into tickets: disk full")
}

// intentOutageStore cannot read payment intents.
type intentOutageStore struct {
	*memory.Store
}

func (o *intentOutageStore) GetIntent(context.Context, string) (*models.PaymentIntent, error) {
	return nil, errors.New("dial tcp 10.0.0.5:5432: connection refused")
}

var _ store.Store = (*MockStore)(nil)
