package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nmonteiro/checkout-engine/internal/domain"
)

// OrderHistoryRepository reads and writes the completed-orders ledger. The
// coupon reuse check and the post-payment order record both live here so a
// coupon burned by one purchase is visible to the next.
type OrderHistoryRepository struct {
	db *pgxpool.Pool
}

func NewOrderHistoryRepository(db *DB) *OrderHistoryRepository {
	return &OrderHistoryRepository{db: db.Pool}
}

// CouponUsed reports whether a completed order already consumed the code for
// this product and buyer email. Codes compare case-insensitively.
func (r *OrderHistoryRepository) CouponUsed(ctx context.Context, productID, buyerEmail, code string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM orders
			WHERE product_id = $1
			  AND lower(buyer_email) = lower($2)
			  AND upper(coupon_code) = upper($3)
			  AND status = 'PAID'
		)
	`

	var used bool
	if err := r.db.QueryRow(ctx, query, productID, buyerEmail, code).Scan(&used); err != nil {
		return false, fmt.Errorf("query coupon usage: %w", err)
	}
	return used, nil
}

// CouponRedemptions counts the completed orders that consumed the code for
// this product, across all buyers. Backs the coupon's redemption cap.
func (r *OrderHistoryRepository) CouponRedemptions(ctx context.Context, productID, code string) (int, error) {
	query := `
		SELECT count(*) FROM orders
		WHERE product_id = $1
		  AND upper(coupon_code) = upper($2)
		  AND status = 'PAID'
	`

	var redemptions int
	if err := r.db.QueryRow(ctx, query, productID, code).Scan(&redemptions); err != nil {
		return 0, fmt.Errorf("count coupon redemptions: %w", err)
	}
	return redemptions, nil
}

// PaymentConfirmed records the paid transaction as a completed order. The
// insert is idempotent on the transaction id: a duplicate confirmation for
// the same transaction is a no-op.
func (r *OrderHistoryRepository) PaymentConfirmed(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO orders (
			transaction_id, session_id, product_id, buyer_email,
			amount_cents, coupon_code, status
		) VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7)
	`

	_, err := r.db.Exec(ctx, query,
		tx.ID,
		tx.SessionID,
		tx.ProductID,
		tx.BuyerEmail,
		tx.Price.FinalCents,
		tx.CouponCode,
		string(tx.Status),
	)
	if err != nil {
		if IsUniqueViolation(err) {
			// Already recorded by an earlier confirmation.
			return nil
		}
		return fmt.Errorf("record paid order: %w", err)
	}
	return nil
}
