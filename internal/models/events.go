package models

import "time"

// TicketsIssuedEvent is published once a verified payment has been turned into tickets.
type TicketsIssuedEvent struct {
	Reference   string    `json:"reference"`
	UserName    string    `json:"user_name"`
	BookingType string    `json:"booking_type"`
	FinalAmount int64     `json:"final_amount"`
	Tickets     []Ticket  `json:"tickets"`
	Skipped     []string  `json:"skipped_slots,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// PaymentStatusEvent is published on every payment intent transition.
type PaymentStatusEvent struct {
	Reference string       `json:"reference"`
	Status    IntentStatus `json:"status"`
	Amount    int64        `json:"amount"`
	Reason    string       `json:"reason,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// TicketActivity is pushed to admin dashboards over SSE.
type TicketActivity struct {
	Kind      string    `json:"kind"` // issued | status
	Ticket    Ticket    `json:"ticket"`
	Timestamp time.Time `json:"timestamp"`
}
