package domain

import (
	"strings"
	"time"
)

// DiscountType distinguishes percentage coupons from fixed-amount coupons.
type DiscountType string

const (
	DiscountPercentage DiscountType = "PERCENTAGE"
	DiscountFixed      DiscountType = "FIXED"
)

// Coupon is a product-scoped discount definition.
type Coupon struct {
	Code        string
	Type        DiscountType
	Value       int64 // percent for PERCENTAGE, minor units for FIXED
	ExpiresAt   *time.Time
	MinPurchase *int64 // minimum pre-discount price in minor units
	MaxUses     *int
	Automatic   bool
	Active      bool
}

// Matches reports whether the candidate code refers to this coupon.
// Comparison is case-insensitive.
func (c *Coupon) Matches(code string) bool {
	return strings.EqualFold(c.Code, code)
}

// IsExpired reports whether the coupon has an expiry in the past.
func (c *Coupon) IsExpired(now time.Time) bool {
	return c.ExpiresAt != nil && c.ExpiresAt.Before(now)
}

// MeetsMinimum reports whether the pre-discount price satisfies the
// coupon's minimum-purchase threshold, if one is set.
func (c *Coupon) MeetsMinimum(preDiscountCents int64) bool {
	return c.MinPurchase == nil || preDiscountCents >= *c.MinPurchase
}

// DiscountFor computes the discount this coupon grants on the given
// pre-discount price. Percentage coupons round to the nearest minor unit;
// fixed coupons clamp to the pre-discount price so the discount never
// exceeds it.
func (c *Coupon) DiscountFor(preDiscountCents int64) int64 {
	switch c.Type {
	case DiscountPercentage:
		return (preDiscountCents*c.Value + 50) / 100
	case DiscountFixed:
		if c.Value > preDiscountCents {
			return preDiscountCents
		}
		return c.Value
	default:
		return 0
	}
}
