// Package gdp computes the estimated GDP proxy attached to each country.
package gdp

import (
	"math/rand/v2"

	"countryrates/pkg/domain"
)

const (
	MinMultiplier = 1000.0
	MaxMultiplier = 2000.0
)

// MultiplierSource yields the random factor applied to one record.
type MultiplierSource interface {
	Multiplier() float64
}

// RandomSource draws a fresh multiplier in [MinMultiplier, MaxMultiplier)
// on every call. It is safe for concurrent use.
type RandomSource struct{}

func (RandomSource) Multiplier() float64 {
	return MinMultiplier + rand.Float64()*(MaxMultiplier-MinMultiplier)
}

// FixedSource always returns the same multiplier.
type FixedSource float64

func (f FixedSource) Multiplier() float64 { return float64(f) }

// Estimator applies the GDP rule set to raw records.
type Estimator struct {
	source MultiplierSource
}

// NewEstimator returns an estimator backed by src, or by RandomSource when
// src is nil.
func NewEstimator(src MultiplierSource) *Estimator {
	if src == nil {
		src = RandomSource{}
	}
	return &Estimator{source: src}
}

// Apply fills EstimatedGDP on raw and clears the currency fields the rules
// say are unknown:
//   - no currency code: code and rate cleared, gdp 0
//   - code without a matching rate: rate cleared, gdp unknown
//   - otherwise population * multiplier / rate, or 0 when rate is 0
func (e *Estimator) Apply(raw domain.RawCountry) domain.RawCountry {
	if raw.CurrencyCode == nil || *raw.CurrencyCode == "" {
		zero := 0.0
		raw.CurrencyCode = nil
		raw.ExchangeRate = nil
		raw.EstimatedGDP = &zero
		return raw
	}
	if raw.ExchangeRate == nil {
		raw.EstimatedGDP = nil
		return raw
	}
	rate := *raw.ExchangeRate
	multiplier := e.source.Multiplier()
	var population float64
	if raw.Population != nil {
		population = float64(*raw.Population)
	}
	estimate := 0.0
	if rate != 0 {
		estimate = population * multiplier / rate
	}
	raw.EstimatedGDP = &estimate
	return raw
}
