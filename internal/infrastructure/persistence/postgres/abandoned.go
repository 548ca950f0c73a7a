package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nmonteiro/checkout-engine/internal/application"
)

// AbandonedSessionRepository persists partially entered checkout data keyed
// by (product, buyer email). A returning buyer overwrites their earlier
// record instead of creating a new one.
type AbandonedSessionRepository struct {
	db *pgxpool.Pool
}

func NewAbandonedSessionRepository(db *DB) *AbandonedSessionRepository {
	return &AbandonedSessionRepository{db: db.Pool}
}

// Upsert writes the current snapshot and returns the record id, whether the
// row was inserted or updated.
func (r *AbandonedSessionRepository) Upsert(ctx context.Context, rec application.AbandonedSession) (string, error) {
	query := `
		INSERT INTO abandoned_checkouts (
			product_id, buyer_name, buyer_email, buyer_phone, amount_cents, tracking
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (product_id, buyer_email) DO UPDATE SET
			buyer_name   = EXCLUDED.buyer_name,
			buyer_phone  = EXCLUDED.buyer_phone,
			amount_cents = EXCLUDED.amount_cents,
			tracking     = EXCLUDED.tracking,
			updated_at   = now()
		RETURNING id
	`

	tracking := rec.Tracking
	if tracking == nil {
		tracking = map[string]string{}
	}

	var id string
	err := r.db.QueryRow(ctx, query,
		rec.ProductID,
		rec.BuyerName,
		rec.BuyerEmail,
		rec.BuyerPhone,
		rec.AmountCents,
		tracking,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("upsert abandoned checkout: %w", err)
	}
	return id, nil
}
