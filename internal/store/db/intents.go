package db

import (
	"context"
	"fmt"
	"time"

	"ms-booking/internal/models"
	"ms-booking/internal/store"
)

// ---------------- PAYMENT INTENTS ----------------

func (d *DB) CreateIntent(ctx context.Context, intent *models.PaymentIntent) error {
	if _, err := d.Bun.NewInsert().Model(intent).Exec(ctx); err != nil {
		return fmt.Errorf("insert payment intent %s: %w", intent.Reference, err)
	}
	return nil
}

func (d *DB) GetIntent(ctx context.Context, reference string) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	err := d.Bun.NewSelect().
		Model(&intent).
		Where("reference = ?", reference).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err, "payment intent", reference)
	}
	return &intent, nil
}

// SetIntentStatus only touches pending rows; a terminal intent is reported, not overwritten.
func (d *DB) SetIntentStatus(ctx context.Context, reference string, status models.IntentStatus) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.PaymentIntent)(nil)).
		Set("status = ?", status).
		Set("updated_at = ?", time.Now()).
		Where("reference = ?", reference).
		Where("status = ?", models.IntentPending).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("set status on payment intent %s: %w", reference, err)
	}
	rows, err := affected(res)
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}

	current, err := d.GetIntent(ctx, reference)
	if err != nil {
		return err
	}
	return fmt.Errorf("payment intent %s is %s: %w", reference, current.Status, store.ErrIntentFinalized)
}
