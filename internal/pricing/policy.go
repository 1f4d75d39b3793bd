package pricing

// ReleasePolicy maps a confirmed delivery quantity to the value released
// from escrow. Implementations must be pure functions of their input.
type ReleasePolicy interface {
	ReleaseAmount(quantity float64) float64
}

// UnitRate releases one value unit per quantity unit. It is the demo policy;
// production deployments swap in a market-rate policy behind the same
// interface.
type UnitRate struct{}

func (UnitRate) ReleaseAmount(quantity float64) float64 {
	return quantity
}

// FixedRate releases a constant multiple of the quantity.
type FixedRate struct {
	PerUnit float64
}

func (r FixedRate) ReleaseAmount(quantity float64) float64 {
	return quantity * r.PerUnit
}
