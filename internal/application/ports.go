package application

import (
	"context"

	"github.com/nmonteiro/checkout-engine/internal/domain"
)

// LineItem is one attributable piece of a charge: the base product, a
// selected add-on, or an accepted upsell. Each carries its own price so
// partial refunds and analytics stay attributable downstream.
type LineItem struct {
	Name       string `json:"name"`
	Kind       string `json:"kind"` // "product", "add_on", "upsell"
	PriceCents int64  `json:"price_cents"`
}

type CreateInstructionRequest struct {
	AmountCents      int64             `json:"amount_cents"`
	PreDiscountCents int64             `json:"pre_discount_cents"`
	Currency         string            `json:"currency"`
	BuyerName        string            `json:"buyer_name"`
	BuyerEmail       string            `json:"buyer_email"`
	BuyerPhone       string            `json:"buyer_phone"`
	LineItems        []LineItem        `json:"line_items"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

type CreateInstructionResponse struct {
	TransactionID string `json:"transaction_id"`
	QRImage       string `json:"qr_image"`
	QRCode        string `json:"qr_code"`
}

type StatusResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
}

// GatewayClient is the port for the external instant-payment gateway.
type GatewayClient interface {
	CreateInstruction(ctx context.Context, req CreateInstructionRequest, idempotencyKey string) (*CreateInstructionResponse, error)
	LookupStatus(ctx context.Context, transactionID string) (*StatusResponse, error)
}

// ProductCatalog is the port for product lookups. The engine treats products
// as read-only configuration owned by the seller.
type ProductCatalog interface {
	Product(id string) (*domain.Product, error)
}

// OrderHistory is the port for the coupon usage checks: whether a completed
// prior order by the same buyer email used the exact code, and how many
// completed orders consumed the code overall.
type OrderHistory interface {
	CouponUsed(ctx context.Context, productID, buyerEmail, code string) (bool, error)
	CouponRedemptions(ctx context.Context, productID, code string) (int, error)
}

// AbandonedSession is the record upserted by the telemetry writer,
// keyed by (product, buyer email).
type AbandonedSession struct {
	ProductID   string
	BuyerName   string
	BuyerEmail  string
	BuyerPhone  string
	AmountCents int64
	Tracking    map[string]string
}

// AbandonedSessionStore is the port for abandoned-session persistence.
// Upsert is idempotent per (product, email) key and returns the record id.
type AbandonedSessionStore interface {
	Upsert(ctx context.Context, rec AbandonedSession) (string, error)
}

// HandoffPublisher is the port for the post-purchase handoff. It is invoked
// exactly once per transaction that reaches Paid; fulfillment beyond that
// is external.
type HandoffPublisher interface {
	PaymentConfirmed(ctx context.Context, tx *domain.Transaction) error
}
