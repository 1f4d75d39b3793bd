package pricing

import "testing"

func TestUnitRateIsOneToOne(t *testing.T) {
	var p ReleasePolicy = UnitRate{}
	if got := p.ReleaseAmount(200); got != 200 {
		t.Fatalf("ReleaseAmount(200) = %v, want 200", got)
	}
	if got := p.ReleaseAmount(0.5); got != 0.5 {
		t.Fatalf("ReleaseAmount(0.5) = %v, want 0.5", got)
	}
}

func TestFixedRateMultiplies(t *testing.T) {
	p := FixedRate{PerUnit: 45}
	if got := p.ReleaseAmount(10); got != 450 {
		t.Fatalf("ReleaseAmount(10) = %v, want 450", got)
	}
}

func TestListingQuoteFallsBackForUnknownCrop(t *testing.T) {
	if got := ListingQuote("Maize", 200); got != 9000 {
		t.Fatalf("ListingQuote(maize, 200) = %v, want 9000", got)
	}
	if got := ListingQuote("durian", 2); got != 100 {
		t.Fatalf("ListingQuote(durian, 2) = %v, want default-rate 100", got)
	}
}
