package db

import (
	"context"
	"fmt"
	"time"

	"ms-booking/internal/models"
	"ms-booking/internal/store"

	"github.com/uptrace/bun"
)

// ---------------- SLOTS ----------------

func (d *DB) ListAvailableSlots(ctx context.Context, from time.Time) ([]models.TimeSlot, error) {
	slots := make([]models.TimeSlot, 0)
	err := d.Bun.NewSelect().
		Model(&slots).
		Where("? >= ?", bun.Ident("date"), from.Format(models.SlotDateLayout)).
		Where("available_spots > 0").
		OrderExpr("? ASC, ? ASC", bun.Ident("date"), bun.Ident("time")).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list time slots: %w", err)
	}
	return slots, nil
}

func (d *DB) GetSlot(ctx context.Context, id string) (*models.TimeSlot, error) {
	var slot models.TimeSlot
	err := d.Bun.NewSelect().
		Model(&slot).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err, "time slot", id)
	}
	return &slot, nil
}

// ReserveSpots is a single conditional UPDATE so two bookings cannot both take the last spots.
func (d *DB) ReserveSpots(ctx context.Context, id string, n int) (*models.TimeSlot, error) {
	if n < 1 {
		return nil, fmt.Errorf("reserve %d spots on %s: %w", n, id, store.ErrInsufficientCapacity)
	}

	res, err := d.Bun.NewUpdate().
		Model((*models.TimeSlot)(nil)).
		Set("available_spots = available_spots - ?", n).
		Where("id = ?", id).
		Where("available_spots >= ?", n).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("reserve spots on %s: %w", id, err)
	}
	rows, err := affected(res)
	if err != nil {
		return nil, err
	}

	slot, err := d.GetSlot(ctx, id)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, fmt.Errorf("time slot %s has %d spots, %d requested: %w", id, slot.AvailableSpots, n, store.ErrInsufficientCapacity)
	}
	return slot, nil
}

func (d *DB) ReleaseSpots(ctx context.Context, id string, n int) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.TimeSlot)(nil)).
		Set("available_spots = available_spots + ?", n).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("release spots on %s: %w", id, err)
	}
	rows, err := affected(res)
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("time slot %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func (d *DB) ReplaceSlots(ctx context.Context, slots []models.TimeSlot) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*models.TimeSlot)(nil)).Where("1 = 1").Exec(ctx); err != nil {
			return fmt.Errorf("clear time slots: %w", err)
		}
		if len(slots) == 0 {
			return nil
		}
		if _, err := tx.NewInsert().Model(&slots).Exec(ctx); err != nil {
			return fmt.Errorf("insert time slots: %w", err)
		}
		return nil
	})
}
