package services

import (
	"context"
	"time"

	"github.com/nmonteiro/checkout-engine/internal/application"
	"github.com/nmonteiro/checkout-engine/internal/domain"
)

// CouponService validates coupon codes against a session's product and the
// buyer's order history.
type CouponService struct {
	orderHistory application.OrderHistory
	now          func() time.Time
}

func NewCouponService(orderHistory application.OrderHistory) *CouponService {
	return &CouponService{
		orderHistory: orderHistory,
		now:          time.Now,
	}
}

// WithClock overrides the time source. Used by tests that need a fixed clock.
func (s *CouponService) WithClock(now func() time.Time) *CouponService {
	s.now = now
	return s
}

// TryApply runs the validation checks in order, short-circuiting on the
// first failure: the coupon must exist for the product and be active, not
// be expired, meet its minimum-purchase threshold against the session's
// pre-discount price, not have been used before by the same buyer email,
// and not have exhausted its redemption cap across all buyers. On success
// the coupon is applied to the session, replacing any coupon already
// applied. Coupon errors never block checkout itself; the buyer can always
// proceed without one.
func (s *CouponService) TryApply(ctx context.Context, session *domain.CheckoutSession, code string) (*domain.Coupon, error) {
	coupon, ok := session.Product.FindCoupon(code)
	if !ok {
		return nil, domain.NewCouponNotFoundError(code)
	}

	if !coupon.Active {
		return nil, domain.NewCouponInactiveError(coupon.Code)
	}

	if coupon.IsExpired(s.now()) {
		return nil, domain.NewCouponExpiredError(coupon.Code)
	}

	// The threshold compares against the price before any discount.
	preDiscount := domain.ComputePrice(session.Product, session.SelectedAddOns, session.OfferState, nil).PreDiscountCents
	if !coupon.MeetsMinimum(preDiscount) {
		return nil, domain.NewCouponBelowMinimumError(coupon.Code, *coupon.MinPurchase)
	}

	used, err := s.orderHistory.CouponUsed(ctx, session.Product.ID, session.Buyer.Email, coupon.Code)
	if err != nil {
		return nil, application.NewInternalError(err)
	}
	if used {
		return nil, domain.NewCouponAlreadyUsedError(coupon.Code)
	}

	if coupon.MaxUses != nil {
		redemptions, err := s.orderHistory.CouponRedemptions(ctx, session.Product.ID, coupon.Code)
		if err != nil {
			return nil, application.NewInternalError(err)
		}
		if redemptions >= *coupon.MaxUses {
			return nil, domain.NewCouponExhaustedError(coupon.Code)
		}
	}

	session.ApplyCoupon(coupon)
	return coupon, nil
}
