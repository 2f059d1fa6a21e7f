package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fpmath "RiskEngine/internal/math"
	"RiskEngine/internal/oracle"
)

func solPerp() *PerpMarket {
	mk := NewPerpMarket(0, "SOL-PERP", oracle.Key("oracle:sol"))
	mk.ContractTier = ContractTierB
	return mk
}

func TestMarginRatioCategories(t *testing.T) {
	mk := solPerp()

	r, err := mk.MarginRatio(fpmath.Zero, WeightInitial, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000), r.Int64())

	r, err = mk.MarginRatio(fpmath.Zero, WeightMaintenance, false)
	require.NoError(t, err)
	assert.Equal(t, int64(500), r.Int64())
}

func TestMarginRatioImfPremium(t *testing.T) {
	mk := solPerp()
	mk.ImfFactor = 10_000

	// 10_000 contracts at imf 0.01: 0.08 + sqrt premium lands at 1.08.
	r, err := mk.MarginRatio(fpmath.BN(10_000_000_000_000), WeightInitial, false)
	require.NoError(t, err)
	assert.Equal(t, int64(10_800), r.Int64())

	// Small sizes stay at the table ratio.
	r, err = mk.MarginRatio(fpmath.Zero, WeightInitial, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000), r.Int64())
}

func TestMarginRatioHighLeverage(t *testing.T) {
	mk := solPerp()
	mk.HighLeverageMarginRatioInitial = 500
	mk.HighLeverageMarginRatioMaintenance = 250

	r, err := mk.MarginRatio(fpmath.Zero, WeightInitial, true)
	require.NoError(t, err)
	assert.Equal(t, int64(500), r.Int64())

	r, err = mk.MarginRatio(fpmath.Zero, WeightMaintenance, true)
	require.NoError(t, err)
	assert.Equal(t, int64(250), r.Int64())

	// Markets without a high-leverage table fall back to the standard one.
	plain := solPerp()
	r, err = plain.MarginRatio(fpmath.Zero, WeightInitial, true)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000), r.Int64())
}

func TestUnrealizedPnlWeights(t *testing.T) {
	mk := solPerp()
	mk.UnrealizedPnlInitialAssetWeight = 8_000
	mk.UnrealizedPnlMaintenanceAssetWeight = 10_000

	assert.Equal(t, int64(8_000), mk.UnrealizedPnlAssetWeight(WeightInitial).Int64())
	assert.Equal(t, int64(10_000), mk.UnrealizedPnlAssetWeight(WeightMaintenance).Int64())
}

func TestIsPrediction(t *testing.T) {
	mk := solPerp()
	assert.False(t, mk.IsPrediction())
	mk.ContractType = ContractTypePrediction
	assert.True(t, mk.IsPrediction())
}

func TestPerpMarketValidate(t *testing.T) {
	assert.NoError(t, solPerp().Validate())

	mk := solPerp()
	mk.MarginRatioMaintenance = 0
	assert.Error(t, mk.Validate())

	mk = solPerp()
	mk.MarginRatioInitial = mk.MarginRatioMaintenance
	assert.Error(t, mk.Validate())

	mk = solPerp()
	mk.HighLeverageMarginRatioInitial = 250
	mk.HighLeverageMarginRatioMaintenance = 250
	assert.Error(t, mk.Validate())
}
