// Package api exposes the booking service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"ms-booking/internal/booking"
	"ms-booking/internal/logger"
	"ms-booking/internal/tickets/qr"
	"ms-booking/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	Service *booking.Service
	Issuer  *booking.Issuer
	QR      *qr.QRGenerator
	Store   Pinger
	Logger  *logger.Logger
}

func NewHandler(service *booking.Service, issuer *booking.Issuer, qrGen *qr.QRGenerator, store Pinger, log *logger.Logger) *Handler {
	return &Handler{
		Service: service,
		Issuer:  issuer,
		QR:      qrGen,
		Store:   store,
		Logger:  log,
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.Logger.Warn("API", fmt.Sprintf("%s %s: invalid JSON body: %v", r.Method, r.URL.Path, err))
		h.writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return false
	}
	return true
}

// ---------------- PUBLIC ----------------

func (h *Handler) ListSlots(w http.ResponseWriter, r *http.Request) {
	res, err := h.Service.ListAvailableSlots(r.Context())
	if err != nil {
		h.writeError(w, r, "list slots", err)
		return
	}
	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("Available time slots", res.Slots).WithSource(string(res.Source)))
}

// CreateBooking validates the form and starts a payment.
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req booking.BookingRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.Service.InitiatePayment(r.Context(), req)
	if err != nil {
		h.writeError(w, r, "initiate payment", err)
		return
	}
	h.Logger.Info("API", fmt.Sprintf("CreateBooking: reference=%s amount=%s", res.Reference, utils.FormatNaira(res.Amount)))
	h.writeJSON(w, http.StatusCreated, utils.SuccessResponse("Payment initialized", res).WithSource(string(res.Source)))
}

// VerifyPayment serves both the gateway callback (?reference=) and the API form (/{reference}/verify).
func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")
	if reference == "" {
		reference = r.URL.Query().Get("reference")
	}
	res, err := h.Issuer.VerifyAndIssue(r.Context(), reference)
	if err != nil {
		h.writeError(w, r, "verify payment", err)
		return
	}
	msg := "Payment verified, tickets issued"
	if res.Replayed {
		msg = "Payment already verified"
	}
	h.writeJSON(w, http.StatusOK, utils.SuccessResponse(msg, res).WithSource(string(res.Source)))
}

func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	res, err := h.Service.GetTicket(r.Context(), chi.URLParam(r, "ticketId"))
	if err != nil {
		h.writeError(w, r, "get ticket", err)
		return
	}
	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("Ticket found", res.Ticket).WithSource(string(res.Source)))
}

// TicketQR renders the ticket's encrypted payload as a PNG.
func (h *Handler) TicketQR(w http.ResponseWriter, r *http.Request) {
	res, err := h.Service.GetTicket(r.Context(), chi.URLParam(r, "ticketId"))
	if err != nil {
		h.writeError(w, r, "ticket qr", err)
		return
	}
	png, err := h.QR.GenerateEncryptedQR(*res.Ticket)
	if err != nil {
		h.writeError(w, r, "ticket qr", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		h.Logger.Error("API", fmt.Sprintf("TicketQR: failed to write image: %v", err))
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		h.Logger.Warn("HEALTH", fmt.Sprintf("store ping failed: %v", err))
		h.writeJSON(w, http.StatusServiceUnavailable, utils.ErrorResponse("Store unreachable", err.Error()))
		return
	}
	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("ok", nil))
}

// ---------------- ADMIN ----------------

func (h *Handler) ListTickets(w http.ResponseWriter, r *http.Request) {
	res, err := h.Service.ListTickets(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, r, "list tickets", err)
		return
	}
	h.writeJSON(w, http.StatusOK, utils.SuccessResponse(fmt.Sprintf("%d ticket(s)", len(res.Tickets)), res.Tickets).WithSource(string(res.Source)))
}

func (h *Handler) MarkTicketUsed(w http.ResponseWriter, r *http.Request) {
	res, err := h.Service.MarkTicketUsed(r.Context(), chi.URLParam(r, "ticketId"))
	if err != nil {
		h.writeError(w, r, "mark ticket used", err)
		return
	}
	h.writeJSON(w, http.StatusOK, utils.SuccessResponse(statusMessage(res), res.Ticket).WithSource(string(res.Source)))
}

func (h *Handler) UpdateTicketStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	res, err := h.Service.UpdateTicketStatus(r.Context(), chi.URLParam(r, "ticketId"), body.Status)
	if err != nil {
		h.writeError(w, r, "update ticket status", err)
		return
	}
	h.writeJSON(w, http.StatusOK, utils.SuccessResponse(statusMessage(res), res.Ticket).WithSource(string(res.Source)))
}

// ScanTicket accepts {"code": ...}; "encrypted_qr" is read when code is empty.
func (h *Handler) ScanTicket(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Code        string `json:"code"`
		EncryptedQR string `json:"encrypted_qr"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	code := strings.TrimSpace(body.Code)
	if code == "" {
		code = body.EncryptedQR
	}
	res, err := h.Service.ScanTicket(r.Context(), code)
	if err != nil {
		h.writeError(w, r, "scan ticket", err)
		return
	}
	h.writeJSON(w, http.StatusOK, utils.SuccessResponse(statusMessage(res), res.Ticket).WithSource(string(res.Source)))
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	res, err := h.Service.Summary(r.Context())
	if err != nil {
		h.writeError(w, r, "summary", err)
		return
	}
	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("Dashboard summary", res.Summary).WithSource(string(res.Source)))
}

func (h *Handler) SeedSlots(w http.ResponseWriter, r *http.Request) {
	res, err := h.Service.ReseedSlots(r.Context())
	if err != nil {
		h.writeError(w, r, "seed slots", err)
		return
	}
	h.writeJSON(w, http.StatusOK, utils.SuccessResponse(fmt.Sprintf("Seeded %d time slots", len(res.Slots)), res.Slots).WithSource(string(res.Source)))
}

func statusMessage(res *booking.TicketResult) string {
	if !res.Changed {
		return fmt.Sprintf("Ticket already %s", res.Ticket.Status)
	}
	return fmt.Sprintf("Ticket marked %s", res.Ticket.Status)
}
