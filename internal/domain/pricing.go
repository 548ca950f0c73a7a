package domain

// ComputePrice derives the full price breakdown for a checkout.
//
// Pre-discount price = base + sum of selected add-ons + upsell price when the
// offer was accepted. The coupon discount is clamped so it never exceeds the
// pre-discount price, and the final price is never negative.
//
// Pure and idempotent: callers re-run it on every input change instead of
// patching a previous result.
func ComputePrice(product *Product, selectedAddOns map[string]struct{}, offerState OfferState, coupon *Coupon) PriceBreakdown {
	preDiscount := product.PriceCents

	for id := range selectedAddOns {
		if addOn, ok := product.AddOn(id); ok {
			preDiscount += addOn.PriceCents
		}
	}

	if offerState == OfferAccepted && product.Upsell != nil {
		preDiscount += product.Upsell.PriceCents
	}

	var discount int64
	if coupon != nil {
		discount = coupon.DiscountFor(preDiscount)
	}

	final := preDiscount - discount
	if final < 0 {
		final = 0
	}

	return PriceBreakdown{
		FinalCents:       final,
		PreDiscountCents: preDiscount,
		DiscountCents:    discount,
	}
}
