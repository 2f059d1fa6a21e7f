package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validSample() PriceData {
	return PriceData{
		Price:                   100_000_000,
		Confidence:              50_000,
		Delay:                   2,
		HasSufficientDataPoints: true,
	}
}

func TestClassifyValidity(t *testing.T) {
	rails := DefaultGuardRails()
	twap := int64(100_000_000)

	cases := []struct {
		name   string
		mutate func(*PriceData)
		want   Validity
	}{
		{"valid", func(*PriceData) {}, ValidityValid},
		{"zero price", func(s *PriceData) { s.Price = 0 }, ValidityNonPositive},
		{"negative price", func(s *PriceData) { s.Price = -1 }, ValidityNonPositive},
		{"too volatile", func(s *PriceData) { s.Price = 601_000_000 }, ValidityTooVolatile},
		// 20_000 / 1_000_000 of price is the default confidence rail.
		{"too uncertain", func(s *PriceData) { s.Confidence = 2_100_000 }, ValidityTooUncertain},
		{"stale for margin", func(s *PriceData) { s.Delay = 121 }, ValidityStaleForMargin},
		{"few data points", func(s *PriceData) { s.HasSufficientDataPoints = false }, ValidityInsufficientDataPoints},
		{"stale for amm", func(s *PriceData) { s.Delay = 11 }, ValidityStaleForAMM},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sample := validSample()
			tc.mutate(&sample)
			assert.Equal(t, tc.want, ClassifyValidity(sample, twap, rails, 1))
		})
	}
}

func TestClassifyValidityWorstTagWins(t *testing.T) {
	// A sample that is both stale and uncertain reports the uncertainty.
	sample := validSample()
	sample.Confidence = 2_100_000
	sample.Delay = 200
	assert.Equal(t, ValidityTooUncertain,
		ClassifyValidity(sample, 100_000_000, DefaultGuardRails(), 1))
}

func TestConfidenceMultiplierWidensRail(t *testing.T) {
	rails := DefaultGuardRails()
	sample := validSample()
	sample.Confidence = 2_100_000

	assert.Equal(t, ValidityTooUncertain, ClassifyValidity(sample, 100_000_000, rails, 1))
	assert.Equal(t, ValidityValid, ClassifyValidity(sample, 100_000_000, rails, 2))
	// Multiplier zero falls back to one.
	assert.Equal(t, ValidityTooUncertain, ClassifyValidity(sample, 100_000_000, rails, 0))
}

func TestClassifyValidityZeroTwap(t *testing.T) {
	// A market with no TWAP history references max(|twap|, 1). Any real
	// price deviates by more than 5x from that.
	sample := validSample()
	assert.Equal(t, ValidityTooVolatile,
		ClassifyValidity(sample, 0, DefaultGuardRails(), 1))
}

func TestSatisfiesAction(t *testing.T) {
	marginCalc := ActionMarginCalc
	liquidate := ActionLiquidate
	updateTwap := ActionUpdateTwap

	assert.True(t, SatisfiesAction(ValidityValid, nil))
	assert.False(t, SatisfiesAction(ValidityStaleForAMM, nil))

	assert.True(t, SatisfiesAction(ValidityStaleForAMM, &marginCalc))
	assert.True(t, SatisfiesAction(ValidityInsufficientDataPoints, &marginCalc))
	assert.False(t, SatisfiesAction(ValidityStaleForMargin, &marginCalc))
	assert.False(t, SatisfiesAction(ValidityTooUncertain, &marginCalc))

	assert.True(t, SatisfiesAction(ValidityStaleForMargin, &liquidate))
	assert.False(t, SatisfiesAction(ValidityTooVolatile, &liquidate))

	assert.True(t, SatisfiesAction(ValidityTooVolatile, &updateTwap))
	assert.False(t, SatisfiesAction(ValidityNonPositive, &updateTwap))
}
