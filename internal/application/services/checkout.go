package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nmonteiro/checkout-engine/internal/domain"
)

// CheckoutService owns the live checkout sessions and routes buyer input
// events to them. Sessions live for one buyer visit; closing a session
// tears down its poller and any pending telemetry timer.
type CheckoutService struct {
	coupons   *CouponService
	payments  *PaymentService
	telemetry *AbandonmentWriter
	logger    *slog.Logger
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[string]*domain.CheckoutSession
}

func NewCheckoutService(
	coupons *CouponService,
	payments *PaymentService,
	telemetry *AbandonmentWriter,
	logger *slog.Logger,
) *CheckoutService {
	return &CheckoutService{
		coupons:   coupons,
		payments:  payments,
		telemetry: telemetry,
		logger:    logger,
		now:       time.Now,
		sessions:  make(map[string]*domain.CheckoutSession),
	}
}

// CreateSession opens a checkout session for a product. An automatic,
// currently valid coupon is applied right away if the product has one.
func (s *CheckoutService) CreateSession(product *domain.Product, tracking map[string]string) *domain.CheckoutSession {
	session := domain.NewCheckoutSession(uuid.New().String(), product, tracking, s.now())

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	s.logger.Info("checkout session opened", "session_id", session.ID, "product_id", product.ID)
	return session
}

// Session returns the live session with the given id.
func (s *CheckoutService) Session(id string) (*domain.CheckoutSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, domain.NewSessionNotFoundError(id)
	}
	return session, nil
}

// UpdateBuyer applies buyer-entered identity fields and schedules a
// telemetry write.
func (s *CheckoutService) UpdateBuyer(id string, buyer domain.Buyer) (*domain.CheckoutSession, error) {
	session, err := s.Session(id)
	if err != nil {
		return nil, err
	}

	session.Buyer = buyer
	s.telemetry.OnSessionChange(session)
	return session, nil
}

// ToggleAddOn selects or deselects an add-on and recomputes the price.
func (s *CheckoutService) ToggleAddOn(id, addOnID string, selected bool) (*domain.CheckoutSession, error) {
	session, err := s.Session(id)
	if err != nil {
		return nil, err
	}

	if selected {
		session.SelectAddOn(addOnID)
	} else {
		session.DeselectAddOn(addOnID)
	}
	s.telemetry.OnSessionChange(session)
	return session, nil
}

// ApplyCoupon validates and applies a buyer-entered code. Validation errors
// block the coupon only; the buyer can always proceed without one.
func (s *CheckoutService) ApplyCoupon(ctx context.Context, id, code string) (*domain.Coupon, error) {
	session, err := s.Session(id)
	if err != nil {
		return nil, err
	}

	coupon, err := s.coupons.TryApply(ctx, session, code)
	if err != nil {
		return nil, err
	}

	s.telemetry.OnSessionChange(session)
	return coupon, nil
}

// RemoveCoupon clears the applied coupon, restoring the pre-coupon price.
func (s *CheckoutService) RemoveCoupon(id string) (*domain.CheckoutSession, error) {
	session, err := s.Session(id)
	if err != nil {
		return nil, err
	}

	session.RemoveCoupon()
	s.telemetry.OnSessionChange(session)
	return session, nil
}

// InitiatePayment starts a payment attempt for the session. The result
// either carries the upsell offer to decide or a transaction with its QR
// instruction.
func (s *CheckoutService) InitiatePayment(ctx context.Context, id string) (*InitiateResult, error) {
	session, err := s.Session(id)
	if err != nil {
		return nil, err
	}
	return s.payments.Initiate(ctx, session)
}

// DecideOffer records the buyer's upsell decision and immediately re-enters
// payment initiation with the decision fixed. Dismissing the offer without
// an explicit choice must be reported as accepted=false: close-without-
// choosing counts as declined, never as undecided.
func (s *CheckoutService) DecideOffer(ctx context.Context, id string, accepted bool) (*InitiateResult, error) {
	session, err := s.Session(id)
	if err != nil {
		return nil, err
	}

	if session.OfferState != domain.OfferPending {
		return nil, domain.NewDecisionAlreadySetError()
	}

	if accepted {
		session.OfferState = domain.OfferAccepted
	} else {
		session.OfferState = domain.OfferDeclined
	}

	s.telemetry.OnSessionChange(session)
	return s.payments.Initiate(ctx, session)
}

// ManualCheck forwards a buyer-triggered confirmation check.
func (s *CheckoutService) ManualCheck(ctx context.Context, transactionID string) (domain.Transaction, error) {
	return s.payments.ManualCheck(ctx, transactionID)
}

// Transaction returns a snapshot of the session's active transaction.
func (s *CheckoutService) Transaction(sessionID string) (domain.Transaction, bool) {
	return s.payments.ActiveTransaction(sessionID)
}

// TransactionTimedOut reports whether automatic confirmation polling gave up
// on the transaction. The buyer can still trigger manual checks.
func (s *CheckoutService) TransactionTimedOut(transactionID string) bool {
	return s.payments.TimedOut(transactionID)
}

// CloseSession tears a session down: polling stops, pending debounce timers
// are cancelled, and the session is forgotten. Called when the buyer leaves
// the page or after the post-purchase redirect.
func (s *CheckoutService) CloseSession(id string) {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return
	}

	s.payments.StopSession(id)
	s.telemetry.Cancel(id)
	s.logger.Info("checkout session closed", "session_id", id)
}
