package api

import (
	"errors"
	"fmt"
	"net/http"

	"ms-booking/internal/booking"
	"ms-booking/internal/utils"
)

// statusFor maps booking error kinds onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, booking.ErrValidation),
		errors.Is(err, booking.ErrInsufficientCapacity):
		return http.StatusBadRequest
	case errors.Is(err, booking.ErrSlotNotFound),
		errors.Is(err, booking.ErrTicketNotFound),
		errors.Is(err, booking.ErrMetadataNotFound):
		return http.StatusNotFound
	case errors.Is(err, booking.ErrVerificationInProgress),
		errors.Is(err, booking.ErrIntentFinalized):
		return http.StatusConflict
	case errors.Is(err, booking.ErrPaymentInit),
		errors.Is(err, booking.ErrPaymentVerification):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.Logger.Error("API", fmt.Sprintf("%s %s: %s: %v", r.Method, r.URL.Path, op, err))
	} else {
		h.Logger.Warn("API", fmt.Sprintf("%s %s: %s: %v", r.Method, r.URL.Path, op, err))
	}
	msg := booking.PublicMessage(err)
	h.writeJSON(w, status, utils.ErrorResponse(msg, msg))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, resp utils.APIResponse) {
	if err := utils.WriteJSON(w, status, resp); err != nil {
		h.Logger.Error("API", fmt.Sprintf("failed to encode response: %v", err))
	}
}
