package pricing

import "strings"

// Indicative per-kg base rates in KES used for listing quotes. These are
// informational only; they never feed settlement amounts.
var baseRates = map[string]float64{
	"maize":    45,
	"beans":    120,
	"tomatoes": 60,
	"potatoes": 35,
}

const defaultBaseRate = 50

// ListingQuote returns an indicative total for a new listing.
func ListingQuote(crop string, quantity float64) float64 {
	rate, ok := baseRates[strings.ToLower(strings.TrimSpace(crop))]
	if !ok {
		rate = defaultBaseRate
	}
	return rate * quantity
}
