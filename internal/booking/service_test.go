package booking_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"ms-booking/internal/booking"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/payment"
	"ms-booking/internal/store"
	"ms-booking/internal/store/fallback"
	"ms-booking/internal/store/memory"
	"ms-booking/internal/tickets/qr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store    *memory.Store
	events   *MockPublisher
	activity *recordingEmitter
	qr       *qr.QRGenerator
	svc      *booking.Service
	issuer   *booking.Issuer
}

func newFixture(t *testing.T, tickets ...models.Ticket) *fixture {
	t.Helper()
	st := memory.NewSeeded(store.DefaultSlots(time.Now()), tickets)
	return newFixtureWith(t, st, st, nil)
}

func newFixtureWith(t *testing.T, mem *memory.Store, st store.Store, locker booking.Locker) *fixture {
	t.Helper()
	events := &MockPublisher{}
	events.On("PublishPaymentStatus", mock.Anything, mock.Anything).Return(nil).Maybe()
	events.On("PublishTicketsIssued", mock.Anything, mock.Anything).Return(nil).Maybe()

	f := &fixture{
		store:    mem,
		events:   events,
		activity: &recordingEmitter{},
		qr:       qr.NewQRGenerator("test-secret"),
	}
	f.svc = booking.NewService(booking.Deps{
		Store:    st,
		Gateway:  payment.NewSimulatedGateway(payment.Options{}, logger.Discard()),
		Events:   events,
		Activity: f.activity,
		QR:       f.qr,
		Base:     store.SourceMemory,
		Logger:   logger.Discard(),
	})
	f.issuer = booking.NewIssuer(f.svc, locker)
	return f
}

func singleRequest(slot string, people int) booking.BookingRequest {
	return booking.BookingRequest{
		UserName:       "Ada Obi",
		Email:          "ada@example.com",
		Phone:          "08012345678",
		BookingType:    models.BookingSingle,
		TimeSlotID:     slot,
		NumberOfPeople: people,
	}
}

func spots(t *testing.T, st store.Store, id string) int {
	t.Helper()
	slot, err := st.GetSlot(context.Background(), id)
	require.NoError(t, err)
	return slot.AvailableSpots
}

// ---------------- INTAKE ----------------

func TestInitiatePayment_PricesWithoutDiscount(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.InitiatePayment(context.Background(), singleRequest("1", 2))
	require.NoError(t, err)

	assert.Equal(t, int64(8000), res.Quote.Subtotal)
	assert.Equal(t, int64(0), res.Quote.Discount)
	assert.Equal(t, int64(8000), res.Amount)
	assert.Equal(t, 1, res.Slots)
	assert.Contains(t, res.PaymentURL, "reference="+res.Reference)
	assert.Equal(t, store.SourceMemory, res.Source)

	intent, err := f.store.GetIntent(context.Background(), res.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.IntentPending, intent.Status)
	assert.Equal(t, []string{"1"}, intent.Metadata.TimeSlotIDs)
	assert.Equal(t, int64(8000), intent.Metadata.FinalAmount)

	// Capacity is only reserved at issuance.
	assert.Equal(t, 8, spots(t, f.store, "1"))
}

func TestInitiatePayment_AppliesDiscountCode(t *testing.T) {
	f := newFixture(t)
	req := singleRequest("1", 2)
	req.DiscountCode = "save10"

	res, err := f.svc.InitiatePayment(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(800), res.Quote.Discount)
	assert.Equal(t, int64(7200), res.Amount)
	assert.True(t, res.Quote.DiscountApplied)
}

func TestInitiatePayment_SendsKoboToGateway(t *testing.T) {
	st := memory.NewSeeded(store.DefaultSlots(time.Now()), nil)
	gw := &MockGateway{}
	gw.On("Initialize", mock.Anything, mock.MatchedBy(func(r payment.InitRequest) bool {
		return r.AmountKobo == 720000 && r.Email == "ada@example.com" && r.Reference != ""
	})).Return(&payment.InitResponse{Success: true, AuthorizationURL: "https://pay.test/checkout"}, nil)

	svc := booking.NewService(booking.Deps{Store: st, Gateway: gw, Logger: logger.Discard()})
	req := singleRequest("1", 2)
	req.DiscountCode = "SAVE10"

	res, err := svc.InitiatePayment(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "https://pay.test/checkout", res.PaymentURL)
	assert.Equal(t, store.SourceDatabase, res.Source)
	gw.AssertExpectations(t)
}

func TestInitiatePayment_MultipleSlotsSumPrices(t *testing.T) {
	f := newFixture(t)
	req := singleRequest("", 3)
	req.BookingType = models.BookingMultiple
	req.TimeSlotIDs = []string{"1,2", " 4 "}

	res, err := f.svc.InitiatePayment(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Slots)
	assert.Equal(t, int64(36000), res.Amount)

	intent, err := f.store.GetIntent(context.Background(), res.Reference)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "4"}, intent.Metadata.TimeSlotIDs)
	assert.Equal(t, models.BookingMultiple, intent.Metadata.BookingType)
}

func TestInitiatePayment_RepeatedSlotCountsOnce(t *testing.T) {
	f := newFixture(t)
	req := singleRequest("", 3)
	req.BookingType = models.BookingMultiple
	req.TimeSlotIDs = []string{"3", "3,3"}

	res, err := f.svc.InitiatePayment(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Slots)
	assert.Equal(t, int64(12000), res.Amount)

	intent, err := f.store.GetIntent(context.Background(), res.Reference)
	require.NoError(t, err)
	assert.Equal(t, []string{"3"}, intent.Metadata.TimeSlotIDs)

	issued, err := f.issuer.VerifyAndIssue(context.Background(), res.Reference)
	require.NoError(t, err)
	require.Len(t, issued.Tickets, 1)
	assert.Equal(t, 2, spots(t, f.store, "3"))
}

func TestInitiatePayment_MultipleFallsBackToSingleID(t *testing.T) {
	f := newFixture(t)
	req := singleRequest("2", 1)
	req.BookingType = models.BookingMultiple

	res, err := f.svc.InitiatePayment(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Slots)

	intent, err := f.store.GetIntent(context.Background(), res.Reference)
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, intent.Metadata.TimeSlotIDs)
	assert.Equal(t, models.BookingMultiple, intent.Metadata.BookingType)
}

func TestInitiatePayment_UnknownBookingTypeIsSingle(t *testing.T) {
	f := newFixture(t)
	req := singleRequest("2", 1)
	req.BookingType = "group"
	req.TimeSlotIDs = []string{"3", "4"}

	res, err := f.svc.InitiatePayment(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Slots)
}

func TestInitiatePayment_ValidationTouchesNoStore(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *booking.BookingRequest)
		message string
	}{
		{"missing name", func(r *booking.BookingRequest) { r.UserName = "  " }, "Missing required fields or invalid number of people"},
		{"missing email", func(r *booking.BookingRequest) { r.Email = "" }, "Missing required fields or invalid number of people"},
		{"zero people", func(r *booking.BookingRequest) { r.NumberOfPeople = 0 }, "Missing required fields or invalid number of people"},
		{"no slot", func(r *booking.BookingRequest) { r.TimeSlotID = "" }, "Missing required fields or invalid number of people"},
		{"multiple without ids", func(r *booking.BookingRequest) {
			r.BookingType = models.BookingMultiple
			r.TimeSlotID = ""
			r.TimeSlotIDs = []string{" , "}
		}, "Missing required fields or invalid number of people"},
		{"bad email", func(r *booking.BookingRequest) { r.Email = "ada@example" }, "Please enter a valid email address"},
		{"missing name beats bad email", func(r *booking.BookingRequest) {
			r.UserName = ""
			r.Email = "nope"
		}, "Missing required fields or invalid number of people"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &MockStore{}
			st.Test(t)
			gw := &MockGateway{}
			gw.Test(t)
			svc := booking.NewService(booking.Deps{Store: st, Gateway: gw, Logger: logger.Discard()})

			req := singleRequest("1", 1)
			tt.mutate(&req)
			_, err := svc.InitiatePayment(context.Background(), req)

			require.Error(t, err)
			assert.True(t, errors.Is(err, booking.ErrValidation))
			assert.Equal(t, tt.message, booking.PublicMessage(err))
			st.AssertExpectations(t)
			gw.AssertExpectations(t)
		})
	}
}

func TestInitiatePayment_SlotErrors(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.InitiatePayment(context.Background(), singleRequest("3", 6))
	require.Error(t, err)
	assert.True(t, errors.Is(err, booking.ErrInsufficientCapacity))
	assert.Equal(t, "Not enough spots available for 13:00:00", booking.PublicMessage(err))

	_, err = f.svc.InitiatePayment(context.Background(), singleRequest("99", 1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, booking.ErrSlotNotFound))
	assert.Equal(t, "Time slot 99 not found", booking.PublicMessage(err))

	// Exactly the remaining capacity is allowed.
	_, err = f.svc.InitiatePayment(context.Background(), singleRequest("3", 5))
	assert.NoError(t, err)
}

func TestInitiatePayment_GatewayFailureMarksIntentFailed(t *testing.T) {
	st := memory.NewSeeded(store.DefaultSlots(time.Now()), nil)
	gw := &MockGateway{}
	var reference string
	gw.On("Initialize", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { reference = args.Get(1).(payment.InitRequest).Reference }).
		Return(nil, errors.New("gateway timeout"))
	events := &MockPublisher{}
	events.On("PublishPaymentStatus", mock.Anything, mock.MatchedBy(func(e models.PaymentStatusEvent) bool {
		return e.Status == models.IntentPending
	})).Return(nil).Once()
	events.On("PublishPaymentStatus", mock.Anything, mock.MatchedBy(func(e models.PaymentStatusEvent) bool {
		return e.Status == models.IntentFailed && e.Reason == "gateway timeout"
	})).Return(nil).Once()

	svc := booking.NewService(booking.Deps{Store: st, Gateway: gw, Events: events, Logger: logger.Discard()})
	_, err := svc.InitiatePayment(context.Background(), singleRequest("1", 1))

	require.Error(t, err)
	assert.True(t, errors.Is(err, booking.ErrPaymentInit))
	assert.Equal(t, "Failed to initialize payment", booking.PublicMessage(err))

	intent, err := st.GetIntent(context.Background(), reference)
	require.NoError(t, err)
	assert.Equal(t, models.IntentFailed, intent.Status)
	events.AssertExpectations(t)
}

// ---------------- SLOTS ----------------

func TestListAvailableSlots_HidesFullSlots(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.ReserveSpots(context.Background(), "3", 5)
	require.NoError(t, err)

	res, err := f.svc.ListAvailableSlots(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Slots, 5)
	for _, s := range res.Slots {
		assert.NotEqual(t, "3", s.ID)
	}
	assert.Equal(t, store.SourceMemory, res.Source)
}

func TestReseedSlots_RestoresDefaults(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.ReserveSpots(context.Background(), "1", 8)
	require.NoError(t, err)

	res, err := f.svc.ReseedSlots(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Slots, 6)
	assert.Equal(t, 8, spots(t, f.store, "1"))
}

func TestService_ReportsFallbackSource(t *testing.T) {
	primary := &MockStore{}
	primary.On("ListAvailableSlots", mock.Anything, mock.Anything).Return(nil, errors.New("dial tcp: connection refused"))
	secondary := memory.NewSeeded(store.DefaultSlots(time.Now()), nil)

	svc := booking.NewService(booking.Deps{
		Store:  fallback.New(primary, secondary, logger.Discard()),
		Logger: logger.Discard(),
	})
	res, err := svc.ListAvailableSlots(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Slots, 6)
	assert.Equal(t, store.SourceFallback, res.Source)
}

// ---------------- TICKETS ----------------

func demo(t *testing.T) *fixture {
	t.Helper()
	slots := store.DefaultSlots(time.Now())
	return newFixture(t, store.DemoTickets(slots, time.Now())...)
}

func TestMarkTicketUsed_IsScopedAndIdempotent(t *testing.T) {
	f := demo(t)
	ctx := context.Background()

	res, err := f.svc.MarkTicketUsed(ctx, "ticket-1")
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, models.TicketUsed, res.Ticket.Status)

	again, err := f.svc.MarkTicketUsed(ctx, "ticket-1")
	require.NoError(t, err)
	assert.False(t, again.Changed)
	assert.Equal(t, models.TicketUsed, again.Ticket.Status)

	other, err := f.store.GetTicket(ctx, "ticket-2")
	require.NoError(t, err)
	assert.Equal(t, models.TicketUsed, other.Status)
	assert.Equal(t, 2, other.NumberOfPeople)

	assert.Equal(t, []string{"status"}, f.activity.kinds())

	_, err = f.svc.MarkTicketUsed(ctx, "ticket-404")
	assert.True(t, errors.Is(err, booking.ErrTicketNotFound))
	assert.Equal(t, "Ticket not found", booking.PublicMessage(err))
}

func TestUpdateTicketStatus(t *testing.T) {
	f := demo(t)
	ctx := context.Background()

	_, err := f.svc.UpdateTicketStatus(ctx, "ticket-2", "cancelled")
	require.Error(t, err)
	assert.True(t, errors.Is(err, booking.ErrValidation))
	assert.Equal(t, "Invalid ticket status", booking.PublicMessage(err))

	res, err := f.svc.UpdateTicketStatus(ctx, "ticket-2", " ACTIVE ")
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, models.TicketActive, res.Ticket.Status)

	stored, err := f.store.GetTicket(ctx, "ticket-2")
	require.NoError(t, err)
	assert.Equal(t, models.TicketActive, stored.Status)
}

func TestGetTicket(t *testing.T) {
	f := demo(t)

	res, err := f.svc.GetTicket(context.Background(), "ticket-1")
	require.NoError(t, err)
	assert.Equal(t, "FC123456", res.Ticket.TicketNumber)

	_, err = f.svc.GetTicket(context.Background(), "")
	assert.True(t, errors.Is(err, booking.ErrTicketNotFound))
}

func TestListTickets_FiltersByNameOrNumber(t *testing.T) {
	f := demo(t)
	ctx := context.Background()

	all, err := f.svc.ListTickets(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all.Tickets, 2)

	byName, err := f.svc.ListTickets(ctx, "amina")
	require.NoError(t, err)
	require.Len(t, byName.Tickets, 1)
	assert.Equal(t, "ticket-2", byName.Tickets[0].ID)

	byNumber, err := f.svc.ListTickets(ctx, "fc1234")
	require.NoError(t, err)
	require.Len(t, byNumber.Tickets, 1)
	assert.Equal(t, "ticket-1", byNumber.Tickets[0].ID)

	none, err := f.svc.ListTickets(ctx, "zzz")
	require.NoError(t, err)
	assert.Empty(t, none.Tickets)
}

func TestScanTicket_AcceptsEveryCodeForm(t *testing.T) {
	f := demo(t)
	ctx := context.Background()
	ticket, err := f.store.GetTicket(ctx, "ticket-1")
	require.NoError(t, err)

	token, err := f.qr.Token(*ticket)
	require.NoError(t, err)
	payload, err := json.Marshal(qr.PayloadFor(*ticket))
	require.NoError(t, err)

	codes := map[string]string{
		"token":  token,
		"json":   string(payload),
		"raw id": "ticket-1",
	}
	for name, code := range codes {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.UpdateTicketStatus(ctx, "ticket-1", "active")
			require.NoError(t, err)

			res, err := f.svc.ScanTicket(ctx, code)
			require.NoError(t, err)
			assert.Equal(t, "ticket-1", res.Ticket.ID)
			assert.Equal(t, models.TicketUsed, res.Ticket.Status)
			assert.True(t, res.Changed)
		})
	}

	_, err = f.svc.ScanTicket(ctx, "   ")
	assert.Equal(t, "Missing ticket code", booking.PublicMessage(err))

	_, err = f.svc.ScanTicket(ctx, `{"id":"ticket-404"}`)
	assert.True(t, errors.Is(err, booking.ErrTicketNotFound))
}

func TestPublicMessage_HidesInternalErrors(t *testing.T) {
	assert.Equal(t, "Internal server error", booking.PublicMessage(errors.New("pq: syntax error")))
}

func TestSummary(t *testing.T) {
	f := demo(t)

	res, err := f.svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Summary.TotalTickets)
	assert.Equal(t, int64(11200), res.Summary.Revenue)
	assert.Equal(t, "₦11,200", res.Summary.RevenueLabel)
	assert.Equal(t, store.SourceMemory, res.Source)
}
