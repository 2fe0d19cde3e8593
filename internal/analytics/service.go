// Package analytics aggregates issued tickets into the admin dashboard figures.
package analytics

import (
	"context"
	"fmt"
	"sort"

	"ms-booking/internal/models"
	"ms-booking/internal/utils"
)

// TicketLister is the read side of the ticket store.
type TicketLister interface {
	ListTickets(ctx context.Context) ([]models.Ticket, error)
}

// Service computes dashboard analytics from the ticket store.
type Service struct {
	tickets TicketLister
}

func NewService(tickets TicketLister) *Service {
	return &Service{tickets: tickets}
}

// SlotSalesMetrics is the revenue of one time slot.
type SlotSalesMetrics struct {
	TimeSlotID  string `json:"time_slot_id"`
	Date        string `json:"date,omitempty"`
	Time        string `json:"time,omitempty"`
	TicketsSold int    `json:"tickets_sold"`
	People      int    `json:"people"`
	Revenue     int64  `json:"revenue"`
}

// DailySalesMetrics contains metrics for the tickets created on a single day
type DailySalesMetrics struct {
	Date        string `json:"date"`
	Revenue     int64  `json:"revenue"`
	TicketsSold int    `json:"tickets_sold"`
}

// Report is the dashboard summary plus its breakdowns.
type Report struct {
	models.DashboardSummary
	TotalDiscount int64               `json:"total_discount"`
	DailySales    []DailySalesMetrics `json:"daily_sales"`
	SalesBySlot   []SlotSalesMetrics  `json:"sales_by_slot"`
}

// Summary loads every ticket and aggregates it.
func (s *Service) Summary(ctx context.Context) (*Report, error) {
	tickets, err := s.tickets.ListTickets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	r := Summarize(tickets)
	return &r, nil
}

// Summarize counts tickets by status and sums revenue as price × people − discount per ticket.
// Tickets whose slot no longer exists contribute nothing to revenue.
func Summarize(tickets []models.Ticket) Report {
	var r Report
	days := map[string]*DailySalesMetrics{}
	slots := map[string]*SlotSalesMetrics{}

	for _, t := range tickets {
		r.TotalTickets++
		r.TotalPeople += t.NumberOfPeople
		r.TotalDiscount += t.DiscountApplied
		switch t.Status {
		case models.TicketActive:
			r.ActiveTickets++
		case models.TicketUsed:
			r.UsedTickets++
		}

		amount := t.Amount()
		r.Revenue += amount

		day := t.CreatedAt.Format(models.SlotDateLayout)
		d, ok := days[day]
		if !ok {
			d = &DailySalesMetrics{Date: day}
			days[day] = d
		}
		d.Revenue += amount
		d.TicketsSold++

		sm, ok := slots[t.TimeSlotID]
		if !ok {
			sm = &SlotSalesMetrics{TimeSlotID: t.TimeSlotID}
			if t.TimeSlot != nil {
				sm.Date, sm.Time = t.TimeSlot.Date, t.TimeSlot.Time
			}
			slots[t.TimeSlotID] = sm
		}
		sm.TicketsSold++
		sm.People += t.NumberOfPeople
		sm.Revenue += amount
	}
	r.RevenueLabel = utils.FormatNaira(r.Revenue)

	r.DailySales = make([]DailySalesMetrics, 0, len(days))
	for _, d := range days {
		r.DailySales = append(r.DailySales, *d)
	}
	sort.Slice(r.DailySales, func(i, j int) bool { return r.DailySales[i].Date < r.DailySales[j].Date })

	r.SalesBySlot = make([]SlotSalesMetrics, 0, len(slots))
	for _, sm := range slots {
		r.SalesBySlot = append(r.SalesBySlot, *sm)
	}
	sort.Slice(r.SalesBySlot, func(i, j int) bool {
		a, b := r.SalesBySlot[i], r.SalesBySlot[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		return a.TimeSlotID < b.TimeSlotID
	})
	return r
}
