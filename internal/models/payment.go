package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

type IntentStatus string

const (
	IntentPending   IntentStatus = "pending"
	IntentCompleted IntentStatus = "completed"
	IntentFailed    IntentStatus = "failed"
)

// Terminal reports whether no further transition is allowed from s.
func (s IntentStatus) Terminal() bool {
	return s == IntentCompleted || s == IntentFailed
}

// BookingMetadata is the booking context carried across the payment redirect.
type BookingMetadata struct {
	UserName        string      `json:"userName"`
	Email           string      `json:"email"`
	Phone           string      `json:"phone,omitempty"`
	TimeSlotIDs     []string    `json:"timeSlotIds"`
	NumberOfPeople  int         `json:"numberOfPeople"`
	BookingType     BookingType `json:"bookingType"`
	Subtotal        int64       `json:"subtotal"`
	DiscountApplied int64       `json:"discountApplied"`
	FinalAmount     int64       `json:"finalAmount"`
}

// Validate checks the invariants the issuer relies on.
func (m BookingMetadata) Validate() error {
	var problems []string
	if strings.TrimSpace(m.UserName) == "" {
		problems = append(problems, "user name is empty")
	}
	if len(m.TimeSlotIDs) == 0 {
		problems = append(problems, "no time slots")
	}
	if m.NumberOfPeople < 1 {
		problems = append(problems, "number of people must be at least 1")
	}
	if m.BookingType != BookingSingle && m.BookingType != BookingMultiple {
		problems = append(problems, fmt.Sprintf("unknown booking type %q", m.BookingType))
	}
	if m.DiscountApplied < 0 || m.FinalAmount < 0 || m.DiscountApplied > m.Subtotal {
		problems = append(problems, "inconsistent amounts")
	}
	if len(problems) > 0 {
		return errors.New("invalid booking metadata: " + strings.Join(problems, "; "))
	}
	return nil
}

func (m BookingMetadata) Value() (driver.Value, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *BookingMetadata) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return json.Unmarshal([]byte(v), m)
	case []byte:
		return json.Unmarshal(v, m)
	case nil:
		*m = BookingMetadata{}
		return nil
	default:
		return fmt.Errorf("metadata: unsupported type %T", src)
	}
}

// PaymentIntent is a pending/completed/failed payment attempt keyed by its reference.
type PaymentIntent struct {
	bun.BaseModel `bun:"table:pending_payments"`

	Reference string          `bun:"reference,pk" json:"reference"`
	Metadata  BookingMetadata `bun:"metadata,type:text,notnull" json:"metadata"`
	Status    IntentStatus    `bun:"status,notnull" json:"status"`
	CreatedAt time.Time       `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt time.Time       `bun:"updated_at,nullzero" json:"updated_at,omitempty"`
}
