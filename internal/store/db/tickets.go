package db

import (
	"context"
	"fmt"

	"ms-booking/internal/models"
	"ms-booking/internal/store"
)

// ---------------- TICKETS ----------------

func (d *DB) CreateTicket(ctx context.Context, ticket *models.Ticket) error {
	if _, err := d.Bun.NewInsert().Model(ticket).Exec(ctx); err != nil {
		return fmt.Errorf("insert ticket %s: %w", ticket.ID, err)
	}
	return nil
}

func (d *DB) GetTicket(ctx context.Context, id string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := d.Bun.NewSelect().
		Model(&ticket).
		Relation("TimeSlot").
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err, "ticket", id)
	}
	return &ticket, nil
}

func (d *DB) ListTickets(ctx context.Context) ([]models.Ticket, error) {
	tickets := make([]models.Ticket, 0)
	err := d.Bun.NewSelect().
		Model(&tickets).
		Relation("TimeSlot").
		Order("ticket.created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	return tickets, nil
}

func (d *DB) ListTicketsByReference(ctx context.Context, reference string) ([]models.Ticket, error) {
	tickets := make([]models.Ticket, 0)
	err := d.Bun.NewSelect().
		Model(&tickets).
		Relation("TimeSlot").
		Where("?TableAlias.payment_reference = ?", reference).
		Order("ticket.created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tickets for %s: %w", reference, err)
	}
	return tickets, nil
}

func (d *DB) SetRelatedTickets(ctx context.Context, id string, related []string) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.Ticket)(nil)).
		Set("related_tickets = ?", models.TicketIDs(related)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("set related tickets on %s: %w", id, err)
	}
	return d.expectRow(res, "ticket", id)
}

func (d *DB) SetTicketStatus(ctx context.Context, id string, status models.TicketStatus) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.Ticket)(nil)).
		Set("status = ?", status).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("set status on ticket %s: %w", id, err)
	}
	return d.expectRow(res, "ticket", id)
}

func (d *DB) expectRow(res interface{ RowsAffected() (int64, error) }, what, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, id, store.ErrNotFound)
	}
	return nil
}
