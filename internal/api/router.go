package api

import (
	"net/http"
	"strconv"
	"time"

	"ms-booking/internal/logger"
	"ms-booking/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter registers every route on a chi router.
func NewRouter(h *Handler, stream *SSEHandler, allowedOrigins []string, log *logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(withTrace)

	r.Get("/healthz", h.Healthz)
	r.Get("/payment/verify", h.VerifyPayment)

	r.Route("/api", func(r chi.Router) {
		r.Get("/slots", h.ListSlots)
		r.Post("/bookings", h.CreateBooking)
		r.Post("/payments/{reference}/verify", h.VerifyPayment)

		r.Route("/tickets/{ticketId}", func(r chi.Router) {
			r.Get("/", h.GetTicket)
			r.Get("/qr", h.TicketQR)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Get("/summary", h.Summary)
			r.Post("/slots/seed", h.SeedSlots)

			r.Route("/tickets", func(r chi.Router) {
				r.Get("/", h.ListTickets)
				r.Get("/stream", stream.HandleTicketStream)
				r.Post("/scan", h.ScanTicket)
				r.Put("/{ticketId}/used", h.MarkTicketUsed)
				r.Put("/{ticketId}/status", h.UpdateTicketStatus)
			})
		})
	})
	log.Info("ROUTER", "Booking, payment, ticket and admin routes registered")

	return r
}

// requestLogger writes one API log line per request.
func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			log.LogAPI(r.Method, r.URL.Path, strconv.Itoa(status), time.Since(start).String())
		})
	}
}

// withTrace attaches a store.Trace so services report which store answered.
func withTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, _ := store.WithTrace(r.Context())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
