package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fpmath "RiskEngine/internal/math"
)

func TestSizePremiumLiabilityWeight(t *testing.T) {
	weight := fpmath.BN(12_000)

	// Zero imf factor passes the table weight straight through.
	w, err := SizePremiumLiabilityWeight(fpmath.BN(1_000_000_000_000), 0, weight, fpmath.SpotWeightPrecisionBig)
	require.NoError(t, err)
	assert.Equal(t, int64(12_000), w.Int64())

	// A tiny position never drops below the table weight.
	w, err = SizePremiumLiabilityWeight(fpmath.Zero, 10_000, weight, fpmath.SpotWeightPrecisionBig)
	require.NoError(t, err)
	assert.Equal(t, int64(12_000), w.Int64())

	// 10_000 tokens at imf 0.01: 0.96 + sqrt premium lands at 1.96.
	w, err = SizePremiumLiabilityWeight(fpmath.BN(10_000_000_000_000), 10_000, weight, fpmath.SpotWeightPrecisionBig)
	require.NoError(t, err)
	assert.Equal(t, int64(19_600), w.Int64())

	// The premium is sign-blind: short sizes are taken by magnitude.
	w, err = SizePremiumLiabilityWeight(fpmath.BN(-10_000_000_000_000), 10_000, weight, fpmath.SpotWeightPrecisionBig)
	require.NoError(t, err)
	assert.Equal(t, int64(19_600), w.Int64())
}

func TestSizeDiscountAssetWeight(t *testing.T) {
	weight := fpmath.BN(8_000)

	w, err := SizeDiscountAssetWeight(fpmath.BN(1_000_000_000_000), 0, weight)
	require.NoError(t, err)
	assert.Equal(t, int64(8_000), w.Int64())

	// A tiny position keeps the table weight.
	w, err = SizeDiscountAssetWeight(fpmath.Zero, 10_000, weight)
	require.NoError(t, err)
	assert.Equal(t, int64(8_000), w.Int64())

	// 10_000 tokens at imf 0.01: 1.1 / (1 + 1) of full weight is 0.55.
	w, err = SizeDiscountAssetWeight(fpmath.BN(10_000_000_000_000), 10_000, weight)
	require.NoError(t, err)
	assert.Equal(t, int64(5_500), w.Int64())
}
