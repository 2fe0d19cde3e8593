package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

type TicketStatus string

const (
	TicketActive TicketStatus = "active"
	TicketUsed   TicketStatus = "used"
)

// Valid reports whether s is one of the defined ticket states.
func (s TicketStatus) Valid() bool {
	return s == TicketActive || s == TicketUsed
}

type BookingType string

const (
	BookingSingle   BookingType = "single"
	BookingMultiple BookingType = "multiple"
)

// TicketIDs is stored as a JSON array so the column works on both Postgres and SQLite.
type TicketIDs []string

func (ids TicketIDs) Value() (driver.Value, error) {
	if ids == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(ids))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (ids *TicketIDs) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*ids = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("related_tickets: unsupported type %T", src)
	}
	if len(raw) == 0 {
		*ids = nil
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("related_tickets: %w", err)
	}
	*ids = out
	return nil
}

type Ticket struct {
	bun.BaseModel `bun:"table:tickets"`

	ID               string        `bun:"id,pk" json:"id"`
	UserName         string        `bun:"user_name,notnull" json:"user_name"`
	TimeSlotID       string        `bun:"time_slot_id,notnull" json:"time_slot_id"`
	TicketNumber     string        `bun:"ticket_number,notnull" json:"ticket_number"`
	Status           TicketStatus  `bun:"status,notnull" json:"status"`
	PaymentStatus    PaymentStatus `bun:"payment_status,notnull" json:"payment_status"`
	PaymentReference string        `bun:"payment_reference" json:"payment_reference,omitempty"`
	BookingType      BookingType   `bun:"booking_type" json:"booking_type,omitempty"`
	NumberOfPeople   int           `bun:"number_of_people,notnull" json:"number_of_people"`
	DiscountApplied  int64         `bun:"discount_applied,notnull" json:"discount_applied"`
	RelatedTickets   TicketIDs     `bun:"related_tickets,type:text" json:"related_tickets,omitempty"`
	CreatedAt        time.Time     `bun:"created_at,notnull" json:"created_at"`

	TimeSlot *TimeSlot `bun:"rel:belongs-to,join:time_slot_id=id" json:"time_slot,omitempty"`
}

// Amount is what the ticket's holder paid for this slot after discount.
func (t Ticket) Amount() int64 {
	if t.TimeSlot == nil {
		return 0
	}
	return t.TimeSlot.Price*int64(t.NumberOfPeople) - t.DiscountApplied
}
