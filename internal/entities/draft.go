package entities

import "time"

// ShippingQuote is derived state. It is never valid across an address or
// cart change, whoever mutates either must drop the quote.
type ShippingQuote struct {
	Fee        int64
	ComputedAt time.Time

	// Degraded marks a quote that fell back to zero because the rate
	// resolver was unreachable. Checkout proceeds anyway.
	Degraded bool
}

// CheckoutDraft holds the pre-submit state of a checkout: the address the
// customer is assembling and the latest shipping quote for it.
type CheckoutDraft struct {
	CustomerRef string
	FullName    string
	Phone       string
	Address     Address
	Quote       *ShippingQuote
}
