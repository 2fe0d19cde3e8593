package models

import (
	"github.com/uptrace/bun"
)

// SlotDateLayout and SlotTimeLayout are the text formats stored in time_slots.
const (
	SlotDateLayout = "2006-01-02"
	SlotTimeLayout = "15:04:05"
)

// TimeSlot is a bookable window with a remaining-capacity counter and a per-person price.
type TimeSlot struct {
	bun.BaseModel `bun:"table:time_slots"`

	ID             string `bun:"id,pk" json:"id"`
	Date           string `bun:"date,notnull" json:"date"`
	Time           string `bun:"time,notnull" json:"time"`
	AvailableSpots int    `bun:"available_spots,notnull" json:"available_spots"`
	Price          int64  `bun:"price,notnull" json:"price"` // whole Naira per person
}

// HasCapacity reports whether the slot can take n more people.
func (s TimeSlot) HasCapacity(n int) bool {
	return n > 0 && s.AvailableSpots >= n
}
