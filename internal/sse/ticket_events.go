package sse

import (
	"context"
	"sync"

	"ms-booking/internal/models"
)

const allTickets = ""

// TicketEventEmitter fans ticket activity out to connected admin dashboards
type TicketEventEmitter struct {
	// key: slot id, or allTickets for unfiltered subscribers
	clients map[string][]chan models.TicketActivity
	mu      sync.RWMutex
}

func NewTicketEventEmitter() *TicketEventEmitter {
	return &TicketEventEmitter{
		clients: make(map[string][]chan models.TicketActivity),
	}
}

// Subscribe receives every ticket activity until ctx is done
func (e *TicketEventEmitter) Subscribe(ctx context.Context) <-chan models.TicketActivity {
	return e.subscribe(ctx, allTickets)
}

// SubscribeToSlot receives activity for tickets on one time slot
func (e *TicketEventEmitter) SubscribeToSlot(ctx context.Context, slotID string) <-chan models.TicketActivity {
	return e.subscribe(ctx, slotID)
}

func (e *TicketEventEmitter) subscribe(ctx context.Context, key string) <-chan models.TicketActivity {
	clientChan := make(chan models.TicketActivity, 10)

	e.mu.Lock()
	e.clients[key] = append(e.clients[key], clientChan)
	e.mu.Unlock()

	// Remove client when context is done
	go func() {
		<-ctx.Done()
		e.removeClient(key, clientChan)
	}()

	return clientChan
}

// Emit broadcasts activity to unfiltered subscribers and to those watching the ticket's slot
func (e *TicketEventEmitter) Emit(activity models.TicketActivity) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	send(e.clients[allTickets], activity)
	if slotID := activity.Ticket.TimeSlotID; slotID != allTickets {
		send(e.clients[slotID], activity)
	}
}

func send(clients []chan models.TicketActivity, activity models.TicketActivity) {
	for _, clientChan := range clients {
		// Non-blocking send; a full buffer drops the event for that client
		select {
		case clientChan <- activity:
		default:
		}
	}
}

func (e *TicketEventEmitter) removeClient(key string, clientChan chan models.TicketActivity) {
	e.mu.Lock()
	defer e.mu.Unlock()

	clients := e.clients[key]
	for i, ch := range clients {
		if ch == clientChan {
			e.clients[key] = append(clients[:i], clients[i+1:]...)
			close(clientChan)
			break
		}
	}

	if len(e.clients[key]) == 0 {
		delete(e.clients, key)
	}
}

// ClientCount returns the number of subscribers; an empty slotID counts unfiltered ones
func (e *TicketEventEmitter) ClientCount(slotID string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.clients[slotID])
}
