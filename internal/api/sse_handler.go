package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/sse"
)

// SSEHandler streams ticket activity to admin dashboards
type SSEHandler struct {
	Logger       *logger.Logger
	EventEmitter *sse.TicketEventEmitter
}

func NewSSEHandler(log *logger.Logger, emitter *sse.TicketEventEmitter) *SSEHandler {
	return &SSEHandler{Logger: log, EventEmitter: emitter}
}

// HandleTicketStream streams every ticket activity, or only one slot's when ?slot= is set.
func (h *SSEHandler) HandleTicketStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	// The server's write timeout would cut long-lived streams
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		h.Logger.Debug("SSE", fmt.Sprintf("Could not clear write deadline, stream is bound by the server write timeout: %v", err))
	}
	h.setupSSEHeaders(w)

	// Cancels when the client disconnects
	ctx := r.Context()

	slotID := r.URL.Query().Get("slot")
	var eventChan <-chan models.TicketActivity
	if slotID != "" {
		eventChan = h.EventEmitter.SubscribeToSlot(ctx, slotID)
	} else {
		eventChan = h.EventEmitter.Subscribe(ctx)
	}

	connected, _ := json.Marshal(map[string]string{"status": "connected", "slot": slotID})
	fmt.Fprintf(w, "event: connected\ndata: %s\n\n", connected)
	flusher.Flush()

	h.Logger.Info("SSE", fmt.Sprintf("Client connected to ticket activity stream (slot=%q)", slotID))

	for {
		select {
		case activity, ok := <-eventChan:
			if !ok {
				h.Logger.Debug("SSE", "Ticket activity channel closed")
				return
			}

			jsonData, err := json.Marshal(activity)
			if err != nil {
				h.Logger.Error("SSE", fmt.Sprintf("Failed to serialize ticket activity: %v", err))
				continue
			}

			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", activity.Kind, jsonData)
			flusher.Flush()

		case <-ctx.Done():
			h.Logger.Debug("SSE", fmt.Sprintf("Client disconnected from ticket activity stream (slot=%q)", slotID))
			return
		}
	}
}

func (h *SSEHandler) setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Accel-Buffering", "no")
}
