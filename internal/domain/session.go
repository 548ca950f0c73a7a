package domain

import (
	"time"
)

// OfferState tracks the post-click upsell sub-flow for a session.
//
// Valid transitions are:
//   - NoUpsellOffer: terminal, the product carries no upsell
//   - OfferUnset → OfferPending (buyer triggered payment, offer not yet decided)
//   - OfferPending → OfferAccepted | OfferDeclined
//
// Accepted and Declined are terminal for the attempt; the decision cannot be
// revisited. Dismissing the offer without an explicit choice counts as Declined.
type OfferState string

const (
	NoUpsellOffer OfferState = "NO_UPSELL_OFFER"
	OfferUnset    OfferState = "UNSET"
	OfferPending  OfferState = "PENDING_DECISION"
	OfferAccepted OfferState = "ACCEPTED"
	OfferDeclined OfferState = "DECLINED"
)

// Decided reports whether the upsell sub-flow has reached a terminal state.
func (s OfferState) Decided() bool {
	return s == NoUpsellOffer || s == OfferAccepted || s == OfferDeclined
}

// Buyer holds the buyer-entered identity fields.
type Buyer struct {
	Name         string
	Email        string
	PhoneCountry string
	Phone        string
}

// PriceBreakdown is the computed price of a session at a point in time.
type PriceBreakdown struct {
	FinalCents       int64
	PreDiscountCents int64
	DiscountCents    int64
}

// CheckoutSession is the ephemeral state of one buyer visit to a product's
// payment page. It is mutated only by buyer input events and the upsell
// decision flow, never by the confirmation poller.
type CheckoutSession struct {
	ID             string
	Product        *Product
	Buyer          Buyer
	SelectedAddOns map[string]struct{}
	OfferState     OfferState
	Coupon         *Coupon
	CouponIsAuto   bool
	Tracking       map[string]string
	CreatedAt      time.Time
}

// NewCheckoutSession builds a session for the given product. If the product
// carries an automatic, currently valid coupon it is applied immediately;
// a manually entered code later replaces it.
func NewCheckoutSession(id string, product *Product, tracking map[string]string, now time.Time) *CheckoutSession {
	offerState := OfferUnset
	if product.Upsell == nil {
		offerState = NoUpsellOffer
	}

	s := &CheckoutSession{
		ID:             id,
		Product:        product,
		SelectedAddOns: make(map[string]struct{}),
		OfferState:     offerState,
		Tracking:       tracking,
		CreatedAt:      now,
	}

	if auto := product.FirstAutomaticCoupon(now); auto != nil {
		s.Coupon = auto
		s.CouponIsAuto = true
	}

	return s
}

// SelectAddOn marks an add-on as selected. Unknown ids are ignored; the
// selection is a set, so repeated selects are idempotent.
func (s *CheckoutSession) SelectAddOn(id string) {
	if _, ok := s.Product.AddOn(id); !ok {
		return
	}
	s.SelectedAddOns[id] = struct{}{}
}

// DeselectAddOn removes an add-on from the selection.
func (s *CheckoutSession) DeselectAddOn(id string) {
	delete(s.SelectedAddOns, id)
}

// ApplyCoupon replaces any applied coupon with the given one. Coupons never
// stack: at most one is applied at a time.
func (s *CheckoutSession) ApplyCoupon(c *Coupon) {
	s.Coupon = c
	s.CouponIsAuto = false
}

// RemoveCoupon clears the applied coupon, restoring the pre-coupon price.
func (s *CheckoutSession) RemoveCoupon() {
	s.Coupon = nil
	s.CouponIsAuto = false
}

// Price recomputes the full breakdown from current session state. It is
// recomputed on every input change rather than patched incrementally.
func (s *CheckoutSession) Price() PriceBreakdown {
	return ComputePrice(s.Product, s.SelectedAddOns, s.OfferState, s.Coupon)
}
