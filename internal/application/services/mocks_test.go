package services_test

import (
	"context"
	"sync"
	"time"

	"github.com/nmonteiro/checkout-engine/internal/application"
	"github.com/nmonteiro/checkout-engine/internal/config"
	"github.com/nmonteiro/checkout-engine/internal/domain"
)

// MockGatewayClient is a func-field test double for the gateway port.
type MockGatewayClient struct {
	mu          sync.Mutex
	createCalls int
	statusCalls int

	CreateInstructionFn func(ctx context.Context, req application.CreateInstructionRequest, idempotencyKey string) (*application.CreateInstructionResponse, error)
	LookupStatusFn      func(ctx context.Context, transactionID string) (*application.StatusResponse, error)
}

func (m *MockGatewayClient) CreateInstruction(ctx context.Context, req application.CreateInstructionRequest, idempotencyKey string) (*application.CreateInstructionResponse, error) {
	m.mu.Lock()
	m.createCalls++
	m.mu.Unlock()

	if m.CreateInstructionFn != nil {
		return m.CreateInstructionFn(ctx, req, idempotencyKey)
	}
	return &application.CreateInstructionResponse{
		TransactionID: "tx-1",
		QRImage:       "iVBORw0KGgo=",
		QRCode:        "00020126580014br.gov.bcb.pix",
	}, nil
}

func (m *MockGatewayClient) LookupStatus(ctx context.Context, transactionID string) (*application.StatusResponse, error) {
	m.mu.Lock()
	m.statusCalls++
	m.mu.Unlock()

	if m.LookupStatusFn != nil {
		return m.LookupStatusFn(ctx, transactionID)
	}
	return &application.StatusResponse{TransactionID: transactionID, Status: "pending"}, nil
}

func (m *MockGatewayClient) CreateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createCalls
}

func (m *MockGatewayClient) StatusCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusCalls
}

// MockOrderHistory answers the coupon usage checks.
type MockOrderHistory struct {
	CouponUsedFn        func(ctx context.Context, productID, buyerEmail, code string) (bool, error)
	CouponRedemptionsFn func(ctx context.Context, productID, code string) (int, error)
}

func (m *MockOrderHistory) CouponUsed(ctx context.Context, productID, buyerEmail, code string) (bool, error) {
	if m.CouponUsedFn != nil {
		return m.CouponUsedFn(ctx, productID, buyerEmail, code)
	}
	return false, nil
}

func (m *MockOrderHistory) CouponRedemptions(ctx context.Context, productID, code string) (int, error) {
	if m.CouponRedemptionsFn != nil {
		return m.CouponRedemptionsFn(ctx, productID, code)
	}
	return 0, nil
}

// MockAbandonedStore records upserts.
type MockAbandonedStore struct {
	mu      sync.Mutex
	records []application.AbandonedSession

	UpsertFn func(ctx context.Context, rec application.AbandonedSession) (string, error)
}

func (m *MockAbandonedStore) Upsert(ctx context.Context, rec application.AbandonedSession) (string, error) {
	m.mu.Lock()
	m.records = append(m.records, rec)
	m.mu.Unlock()

	if m.UpsertFn != nil {
		return m.UpsertFn(ctx, rec)
	}
	return "rec-1", nil
}

func (m *MockAbandonedStore) Records() []application.AbandonedSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]application.AbandonedSession, len(m.records))
	copy(out, m.records)
	return out
}

// MockHandoff records confirmed transactions.
type MockHandoff struct {
	mu        sync.Mutex
	confirmed []string

	PaymentConfirmedFn func(ctx context.Context, tx *domain.Transaction) error
}

func (m *MockHandoff) PaymentConfirmed(ctx context.Context, tx *domain.Transaction) error {
	m.mu.Lock()
	m.confirmed = append(m.confirmed, tx.ID)
	m.mu.Unlock()

	if m.PaymentConfirmedFn != nil {
		return m.PaymentConfirmedFn(ctx, tx)
	}
	return nil
}

func (m *MockHandoff) Confirmed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.confirmed))
	copy(out, m.confirmed)
	return out
}

// fastPollingConfig keeps poller tests quick.
func fastPollingConfig() config.PollingConfig {
	return config.PollingConfig{
		InitialInterval: 2 * time.Millisecond,
		MaxInterval:     10 * time.Millisecond,
		Factor:          1.5,
		TotalBudget:     250 * time.Millisecond,
		ManualCooldown:  50 * time.Millisecond,
		HandoffDelay:    0,
	}
}

func upsellProduct() *domain.Product {
	return &domain.Product{
		ID:          "prod-1",
		Name:        "Course",
		PriceCents:  10000,
		Currency:    "BRL",
		RedirectURL: "https://example.com/course/thanks",
		AddOns: []domain.AddOnOffer{
			{ID: "addon-1", Name: "Workbook", PriceCents: 2000},
		},
		Upsell: &domain.UpsellOffer{Name: "Mentoring", PriceCents: 5000},
	}
}

func plainProduct() *domain.Product {
	return &domain.Product{
		ID:          "prod-2",
		Name:        "Ebook",
		PriceCents:  5000,
		Currency:    "BRL",
		RedirectURL: "https://example.com/ebook/thanks",
	}
}
