package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ms-booking/internal/api"
	"ms-booking/internal/booking"
	"ms-booking/internal/config"
	"ms-booking/internal/database/migrations"
	"ms-booking/internal/kafka"
	"ms-booking/internal/lock"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/payment"
	"ms-booking/internal/pricing"
	"ms-booking/internal/sse"
	"ms-booking/internal/store"
	"ms-booking/internal/store/db"
	"ms-booking/internal/store/fallback"
	"ms-booking/internal/store/memory"
	"ms-booking/internal/tickets/qr"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// openStore picks the ticket store: Postgres (optionally behind the in-memory fallback)
// when a DSN is configured, the seeded memory store otherwise.
func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (store.Store, store.Source) {
	now := time.Now()
	if cfg.Database.DSN == "" {
		log.Warn("DATABASE", "DATABASE_DSN not set, using seeded in-memory store")
		slots := store.DefaultSlots(now)
		return memory.NewSeeded(slots, store.DemoTickets(slots, now)), store.SourceMemory
	}

	pg, err := db.Open(ctx, cfg.Database.DSN, db.PoolOptions{
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
		MaxLifetime:  cfg.Database.MaxLifetime,
		MaxRetries:   5,
		RetryDelay:   2 * time.Second,
	}, log)
	if err != nil {
		if !cfg.Database.FallbackEnabled {
			log.Fatal("DATABASE", err.Error())
		}
		log.Error("DATABASE", fmt.Sprintf("%v; serving from in-memory store", err))
		return memory.NewSeeded(store.DefaultSlots(now), nil), store.SourceMemory
	}

	if cfg.Database.AutoMigrate {
		// The runner shares pg's *sql.DB, so it is never closed on its own.
		runner := migrations.NewRunner(pg.Bun, migrations.MigrateOptions{
			AutoMigrate: true,
			SeedData:    cfg.Database.SeedData,
		}, log)
		if err := runner.Initialize(); err != nil {
			log.Fatal("MIGRATION", err.Error())
		}
		if err := runner.RunMigrations(); err != nil {
			log.Fatal("MIGRATION", err.Error())
		}
	}

	if !cfg.Database.FallbackEnabled {
		return pg, store.SourceDatabase
	}
	log.Info("DATABASE", "In-memory fallback enabled behind PostgreSQL")
	return fallback.New(pg, memory.NewSeeded(store.DefaultSlots(now), nil), log), store.SourceDatabase
}

// openLocker uses Redis when REDIS_ADDR is set, the in-process lock otherwise.
func openLocker(ctx context.Context, cfg *config.Config, log *logger.Logger) (booking.Locker, func()) {
	if cfg.Redis.Addr == "" {
		log.Info("REDIS", "REDIS_ADDR not set, using in-process verification lock")
		return lock.NewLocal(cfg.Redis.VerifyLockTTL), func() {}
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("REDIS", fmt.Sprintf("Redis connection error: %v; lock calls will continue unlocked until it recovers", err))
	} else {
		log.Info("REDIS", fmt.Sprintf("Redis connection successful to %s (DB: %d)", cfg.Redis.Addr, client.Options().DB))
	}
	return lock.NewRedis(client, cfg.Redis.VerifyLockTTL, log), func() { client.Close() }
}

// openEvents starts the Kafka producer and a consumer that relays other instances'
// issuance events to this instance's dashboard stream.
func openEvents(ctx context.Context, cfg *config.Config, emitter *sse.TicketEventEmitter, log *logger.Logger) kafka.Publisher {
	if !cfg.Kafka.Enabled {
		log.Info("KAFKA", "Kafka disabled, events are logged only")
		return kafka.NewNoop(log)
	}

	origin, err := os.Hostname()
	if err != nil || origin == "" {
		origin = uuid.NewString()
	}
	topics := kafka.Topics{
		TicketsIssued: cfg.Kafka.Topics.TicketsIssued,
		PaymentStatus: cfg.Kafka.Topics.PaymentStatus,
	}
	if err := kafka.EnsureTopicsExist(ctx, cfg.Kafka.Brokers, []string{topics.TicketsIssued, topics.PaymentStatus}, log); err != nil {
		log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
	}
	producer := kafka.NewProducer(cfg.Kafka.Brokers, topics, origin, log)
	log.Info("KAFKA", fmt.Sprintf("Kafka producer initialized (brokers=%v, origin=%s)", cfg.Kafka.Brokers, origin))

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, topics.TicketsIssued, "booking-dashboard-"+origin, origin, log)
	go func() {
		defer consumer.Close()
		consumer.Start(ctx, func(event models.TicketsIssuedEvent) {
			for _, t := range event.Tickets {
				emitter.Emit(models.TicketActivity{Kind: "issued", Ticket: t, Timestamp: event.Timestamp})
			}
		})
	}()
	return producer
}

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}
	cfg := config.Load()

	log, err := logger.New(logger.Options{Dir: cfg.Log.Dir, Level: cfg.Log.Level})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()
	log.Info("APP", "Starting booking service initialization")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, base := openStore(ctx, cfg, log)
	defer st.Close()

	locker, closeLocker := openLocker(ctx, cfg, log)
	defer closeLocker()

	emitter := sse.NewTicketEventEmitter()
	events := openEvents(ctx, cfg, emitter, log)
	defer events.Close()

	qrGen := qr.NewQRGenerator(cfg.Booking.QRSecretKey)
	svc := booking.NewService(booking.Deps{
		Store: st,
		Gateway: payment.NewSimulatedGateway(payment.Options{
			CallbackURL: cfg.Payment.CallbackURL,
			InitDelay:   cfg.Payment.InitDelay,
			VerifyDelay: cfg.Payment.VerifyDelay,
		}, log),
		Pricing:  pricing.NewCalculator(cfg.Booking.DiscountCode, cfg.Booking.DiscountPercent),
		Events:   events,
		Activity: emitter,
		QR:       qrGen,
		Base:     base,
		Logger:   log,
	})
	issuer := booking.NewIssuer(svc, locker)

	handler := api.NewHandler(svc, issuer, qrGen, st, log)
	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      api.NewRouter(handler, api.NewSSEHandler(log, emitter), cfg.Server.CORSAllowedOrigins, log),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("Booking service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-ctx.Done()

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "Booking service shutdown complete")
	}
}
