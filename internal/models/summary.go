package models

// DashboardSummary is the aggregate shown at the top of the admin ticket table.
type DashboardSummary struct {
	TotalTickets  int    `json:"total_tickets"`
	ActiveTickets int    `json:"active_tickets"`
	UsedTickets   int    `json:"used_tickets"`
	TotalPeople   int    `json:"total_people"`
	Revenue       int64  `json:"revenue"`
	RevenueLabel  string `json:"revenue_label"`
}
