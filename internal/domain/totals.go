package domain

import "math"

// DisplayTotals is the presentational breakdown shown on cart and checkout
// views. Only Subtotal comes from the server; Tax and Total are derived for
// display and are never submitted to the payment provider.
type DisplayTotals struct {
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

// ComputeDisplayTotals derives the view breakdown from the server-reported
// cart total. Every view shares this function so currency math lives in
// exactly one place.
func ComputeDisplayTotals(cart *Cart, taxRate float64) DisplayTotals {
	if cart == nil {
		return DisplayTotals{}
	}
	subtotal := round2(cart.Total)
	tax := round2(subtotal * taxRate)
	return DisplayTotals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    round2(subtotal + tax),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
