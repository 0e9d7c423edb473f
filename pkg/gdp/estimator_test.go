package gdp

import (
	"testing"

	"countryrates/pkg/domain"
)

func strPtr(s string) *string     { return &s }
func int64Ptr(v int64) *int64     { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestApplyWithoutCurrency(t *testing.T) {
	got := NewEstimator(FixedSource(1500)).Apply(domain.RawCountry{
		Name:         "Antarctica",
		Population:   int64Ptr(1000),
		ExchangeRate: floatPtr(3),
	})
	if got.EstimatedGDP == nil || *got.EstimatedGDP != 0 {
		t.Fatalf("estimated gdp = %v, want 0", got.EstimatedGDP)
	}
	if got.CurrencyCode != nil || got.ExchangeRate != nil {
		t.Fatalf("currency fields must be cleared, got %+v", got)
	}
}

func TestApplyUnknownRate(t *testing.T) {
	got := NewEstimator(FixedSource(1500)).Apply(domain.RawCountry{
		Name:         "Somewhere",
		Population:   int64Ptr(1000),
		CurrencyCode: strPtr("XYZ"),
	})
	if got.EstimatedGDP != nil {
		t.Fatalf("estimated gdp = %v, want nil", *got.EstimatedGDP)
	}
	if got.CurrencyCode == nil || *got.CurrencyCode != "XYZ" {
		t.Fatalf("currency code must be kept")
	}
}

func TestApplyFormula(t *testing.T) {
	got := NewEstimator(FixedSource(1200)).Apply(domain.RawCountry{
		Name:         "Nigeria",
		Population:   int64Ptr(1000),
		CurrencyCode: strPtr("NGN"),
		ExchangeRate: floatPtr(4),
	})
	if got.EstimatedGDP == nil || *got.EstimatedGDP != 300000 {
		t.Fatalf("estimated gdp = %v, want 300000", got.EstimatedGDP)
	}
}

func TestApplyZeroRateGuard(t *testing.T) {
	got := NewEstimator(FixedSource(1200)).Apply(domain.RawCountry{
		Name:         "Zeroland",
		Population:   int64Ptr(1000),
		CurrencyCode: strPtr("ZZZ"),
		ExchangeRate: floatPtr(0),
	})
	if got.EstimatedGDP == nil || *got.EstimatedGDP != 0 {
		t.Fatalf("estimated gdp = %v, want 0", got.EstimatedGDP)
	}
}

func TestRandomSourceRange(t *testing.T) {
	src := RandomSource{}
	seen := map[float64]struct{}{}
	for i := 0; i < 1000; i++ {
		m := src.Multiplier()
		if m < MinMultiplier || m >= MaxMultiplier {
			t.Fatalf("multiplier %f out of range", m)
		}
		seen[m] = struct{}{}
	}
	if len(seen) < 2 {
		t.Fatalf("expected multipliers to vary between draws")
	}
}

func TestNewEstimatorDefaultsToRandom(t *testing.T) {
	e := NewEstimator(nil)
	got := e.Apply(domain.RawCountry{
		Name:         "Kenya",
		Population:   int64Ptr(10),
		CurrencyCode: strPtr("KES"),
		ExchangeRate: floatPtr(1),
	})
	if got.EstimatedGDP == nil || *got.EstimatedGDP < 10*MinMultiplier || *got.EstimatedGDP >= 10*MaxMultiplier {
		t.Fatalf("estimated gdp %v outside expected range", got.EstimatedGDP)
	}
}
