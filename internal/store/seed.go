package store

import (
	"time"

	"ms-booking/internal/models"
)

// DefaultSlotPrice is ₦4,000 per person per slot.
const DefaultSlotPrice int64 = 4000

// DefaultSlots is the six-slot day used when no database is configured.
func DefaultSlots(day time.Time) []models.TimeSlot {
	date := day.Format(models.SlotDateLayout)
	times := []struct {
		id    string
		at    string
		spots int
	}{
		{"1", "09:00:00", 8},
		{"2", "11:00:00", 10},
		{"3", "13:00:00", 5},
		{"4", "15:00:00", 7},
		{"5", "17:00:00", 9},
		{"6", "19:00:00", 6},
	}

	slots := make([]models.TimeSlot, 0, len(times))
	for _, t := range times {
		slots = append(slots, models.TimeSlot{
			ID:             t.id,
			Date:           date,
			Time:           t.at,
			AvailableSpots: t.spots,
			Price:          DefaultSlotPrice,
		})
	}
	return slots
}

// DemoTickets returns two sample tickets referencing the first two default slots.
func DemoTickets(slots []models.TimeSlot, at time.Time) []models.Ticket {
	if len(slots) < 2 {
		return nil
	}
	first, second := slots[0], slots[1]
	return []models.Ticket{
		{
			ID:               "ticket-1",
			UserName:         "Chukwudi Okafor",
			TimeSlotID:       first.ID,
			TicketNumber:     "FC123456",
			Status:           models.TicketActive,
			PaymentStatus:    models.PaymentPaid,
			PaymentReference: "PAY_123456789",
			BookingType:      models.BookingSingle,
			NumberOfPeople:   1,
			CreatedAt:        at,
			TimeSlot:         &first,
		},
		{
			ID:               "ticket-2",
			UserName:         "Amina Hassan",
			TimeSlotID:       second.ID,
			TicketNumber:     "FC789012",
			Status:           models.TicketUsed,
			PaymentStatus:    models.PaymentPaid,
			PaymentReference: "PAY_987654321",
			BookingType:      models.BookingSingle,
			NumberOfPeople:   2,
			DiscountApplied:  800,
			CreatedAt:        at,
			TimeSlot:         &second,
		},
	}
}
