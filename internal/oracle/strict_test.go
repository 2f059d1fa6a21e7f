package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"

	fpmath "RiskEngine/internal/math"
)

func TestStrictPriceSides(t *testing.T) {
	// Live above TWAP: strict assets see the TWAP, liabilities the live price.
	p := NewStrictOraclePrice(110_000_000, 100_000_000, true)
	assert.Equal(t, int64(100_000_000), p.AssetPrice())
	assert.Equal(t, int64(110_000_000), p.LiabilityPrice())

	// Live below TWAP: the sides flip.
	p = NewStrictOraclePrice(90_000_000, 100_000_000, true)
	assert.Equal(t, int64(90_000_000), p.AssetPrice())
	assert.Equal(t, int64(100_000_000), p.LiabilityPrice())

	// Non-strict pricing ignores the TWAP on both sides.
	p = NewStrictOraclePrice(110_000_000, 100_000_000, false)
	assert.Equal(t, int64(110_000_000), p.AssetPrice())
	assert.Equal(t, int64(110_000_000), p.LiabilityPrice())
}

func TestStrictPriceFor(t *testing.T) {
	p := NewStrictOraclePrice(110_000_000, 100_000_000, true)
	assert.Equal(t, int64(100_000_000), p.PriceFor(fpmath.BN(5)))
	assert.Equal(t, int64(100_000_000), p.PriceFor(fpmath.Zero))
	assert.Equal(t, int64(110_000_000), p.PriceFor(fpmath.BN(-5)))
}

func TestStrictPriceValidate(t *testing.T) {
	assert.NoError(t, NewStrictOraclePrice(1, 1, true).Validate())
	assert.Error(t, NewStrictOraclePrice(0, 1, true).Validate())
	assert.Error(t, NewStrictOraclePrice(1, 0, true).Validate())
}
