// Package domain defines the domain models for the checkout engine.
package domain

import "time"

// Product is a read-only snapshot of the product being checked out.
// It is owned by the catalog; the engine only reads it.
type Product struct {
	ID          string
	Name        string
	PriceCents  int64
	Currency    string
	AddOns      []AddOnOffer
	Upsell      *UpsellOffer
	Coupons     []Coupon
	RedirectURL string
}

// AddOnOffer is an optional extra line item the buyer can toggle on before paying.
type AddOnOffer struct {
	ID         string
	Name       string
	PriceCents int64
}

// UpsellOffer is the single post-click offer shown after the buyer commits to paying.
type UpsellOffer struct {
	Name        string
	Description string
	PriceCents  int64
}

// AddOn returns the add-on with the given id, if the product carries it.
func (p *Product) AddOn(id string) (AddOnOffer, bool) {
	for _, a := range p.AddOns {
		if a.ID == id {
			return a, true
		}
	}
	return AddOnOffer{}, false
}

// FindCoupon looks up a coupon by code. Codes compare case-insensitively.
func (p *Product) FindCoupon(code string) (*Coupon, bool) {
	for i := range p.Coupons {
		if p.Coupons[i].Matches(code) {
			return &p.Coupons[i], true
		}
	}
	return nil, false
}

// FirstAutomaticCoupon returns the first automatic coupon that is currently
// valid, or nil. Used on session creation to auto-apply a discount without
// the buyer entering a code.
func (p *Product) FirstAutomaticCoupon(now time.Time) *Coupon {
	for i := range p.Coupons {
		c := &p.Coupons[i]
		if c.Automatic && c.Active && !c.IsExpired(now) {
			return c
		}
	}
	return nil
}
