//go:build integration

package db_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"ms-booking/internal/booking"
	"ms-booking/internal/database/migrations"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/payment"
	"ms-booking/internal/store"
	"ms-booking/internal/store/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupPostgres starts a Postgres container and applies every migration, seed included.
func setupPostgres(t *testing.T) *db.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping Postgres integration test in short mode")
	}

	ctx := context.Background()
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "booking",
				"POSTGRES_PASSWORD": "booking",
				"POSTGRES_DB":       "booking",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start Postgres container: %v", err)
	}
	t.Cleanup(func() { pgContainer.Terminate(ctx) })

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://booking:booking@%s:%s/booking?sslmode=disable", host, port.Port())
	log := logger.Discard()
	d, err := db.Open(ctx, dsn, db.PoolOptions{MaxOpenConns: 10, MaxRetries: 10, RetryDelay: time.Second}, log)
	require.NoError(t, err)

	runner := migrations.NewRunner(d.Bun, migrations.MigrateOptions{AutoMigrate: true, SeedData: true}, log)
	require.NoError(t, runner.Initialize())
	require.NoError(t, runner.RunMigrations())
	version, dirty, err := runner.Version()
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(4), version)

	// Closing the runner closes d as well.
	t.Cleanup(func() { runner.Close() })
	return d
}

func TestPostgresSeededSlots(t *testing.T) {
	d := setupPostgres(t)
	ctx := context.Background()

	slots, err := d.ListAvailableSlots(ctx, time.Now().UTC().AddDate(0, 0, -1))
	require.NoError(t, err)
	require.Len(t, slots, 6)
	assert.Equal(t, "09:00:00", slots[0].Time)
	assert.Equal(t, int64(4000), slots[0].Price)
}

func TestPostgresConcurrentReservationsNeverOversell(t *testing.T) {
	d := setupPostgres(t)
	ctx := context.Background()

	// Slot 3 has 5 spots; 12 single-spot reservations race for them.
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		won     int
		refused int
	)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := d.ReserveSpots(ctx, "3", 1)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				won++
			case errors.Is(err, store.ErrInsufficientCapacity):
				refused++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, won)
	assert.Equal(t, 7, refused)
	slot, err := d.GetSlot(ctx, "3")
	require.NoError(t, err)
	assert.Equal(t, 0, slot.AvailableSpots)
}

func TestPostgresBookingRoundTrip(t *testing.T) {
	d := setupPostgres(t)
	ctx := context.Background()
	log := logger.Discard()

	svc := booking.NewService(booking.Deps{
		Store:   d,
		Gateway: payment.NewSimulatedGateway(payment.Options{}, log),
		Logger:  log,
	})
	issuer := booking.NewIssuer(svc, nil)

	initiated, err := svc.InitiatePayment(ctx, booking.BookingRequest{
		UserName:       "Ada Obi",
		Email:          "ada@example.com",
		BookingType:    models.BookingMultiple,
		TimeSlotIDs:    []string{"1", "2"},
		NumberOfPeople: 2,
		DiscountCode:   "SAVE10",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(14400), initiated.Amount)

	intent, err := d.GetIntent(ctx, initiated.Reference)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, intent.Metadata.TimeSlotIDs)

	issued, err := issuer.VerifyAndIssue(ctx, initiated.Reference)
	require.NoError(t, err)
	require.Len(t, issued.Tickets, 2)
	assert.Equal(t, store.SourceDatabase, issued.Source)

	first, err := d.GetTicket(ctx, issued.Tickets[0].ID)
	require.NoError(t, err)
	assert.Equal(t, []string{issued.Tickets[1].ID}, []string(first.RelatedTickets))
	require.NotNil(t, first.TimeSlot)
	assert.Equal(t, 6, first.TimeSlot.AvailableSpots)

	replay, err := issuer.VerifyAndIssue(ctx, initiated.Reference)
	require.NoError(t, err)
	assert.True(t, replay.Replayed)

	err = d.SetIntentStatus(ctx, initiated.Reference, models.IntentFailed)
	assert.True(t, errors.Is(err, store.ErrIntentFinalized))
}
