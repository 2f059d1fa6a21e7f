package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fpmath "RiskEngine/internal/math"
	"RiskEngine/internal/oracle"
)

func solMarket() *SpotMarket {
	mk := NewSpotMarket(1, "SOL", oracle.Key("oracle:sol"), 9)
	mk.AssetTier = AssetTierCross
	mk.InitialAssetWeight = 8_000
	mk.MaintenanceAssetWeight = 9_000
	mk.InitialLiabilityWeight = 12_000
	mk.MaintenanceLiabilityWeight = 11_000
	return mk
}

func TestTokenAmountRounding(t *testing.T) {
	mk := solMarket()
	mk.CumulativeDepositInterest = 11_000_000_000
	mk.CumulativeBorrowInterest = 11_000_000_000

	// 5 * 1.1 = 5.5: deposits floor to 5, borrows ceil to 6.
	dep, err := mk.TokenAmount(5, BalanceTypeDeposit)
	require.NoError(t, err)
	assert.Equal(t, int64(5), dep.Int64())

	bor, err := mk.TokenAmount(5, BalanceTypeBorrow)
	require.NoError(t, err)
	assert.Equal(t, int64(6), bor.Int64())

	// One whole scaled token picks up the 10% accrued interest exactly.
	dep, err = mk.TokenAmount(1_000_000_000, BalanceTypeDeposit)
	require.NoError(t, err)
	assert.Equal(t, int64(1_100_000_000), dep.Int64())

	_, err = mk.TokenAmount(5, BalanceType(9))
	assert.Error(t, err)
}

func TestSignedTokenAmount(t *testing.T) {
	amt := fpmath.BN(42)
	assert.Equal(t, int64(42), SignedTokenAmount(amt, BalanceTypeDeposit).Int64())
	assert.Equal(t, int64(-42), SignedTokenAmount(amt, BalanceTypeBorrow).Int64())
	// The input is never aliased.
	assert.Equal(t, int64(42), amt.Int64())
}

func TestTokenValueFloors(t *testing.T) {
	mk := solMarket()

	// 1.5 tokens at 100 USD: 150 USD in quote precision.
	v, err := mk.TokenValue(fpmath.BN(1_500_000_000), 100_000_000)
	require.NoError(t, err)
	assert.Equal(t, int64(150_000_000), v.Int64())

	// Negative amounts round away from zero, overstating the liability.
	v, err = mk.TokenValue(fpmath.BN(-1), 100_000_000)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), v.Int64())
}

func TestStrictTokenValueSides(t *testing.T) {
	mk := solMarket()
	strict := oracle.NewStrictOraclePrice(110_000_000, 100_000_000, true)

	v, err := mk.StrictTokenValue(fpmath.BN(1_000_000_000), strict)
	require.NoError(t, err)
	assert.Equal(t, int64(100_000_000), v.Int64())

	v, err = mk.StrictTokenValue(fpmath.BN(-1_000_000_000), strict)
	require.NoError(t, err)
	assert.Equal(t, int64(-110_000_000), v.Int64())
}

func TestSpotWeightCategories(t *testing.T) {
	mk := solMarket()

	w, err := mk.AssetWeight(fpmath.Zero, WeightInitial)
	require.NoError(t, err)
	assert.Equal(t, int64(8_000), w.Int64())

	w, err = mk.AssetWeight(fpmath.Zero, WeightMaintenance)
	require.NoError(t, err)
	assert.Equal(t, int64(9_000), w.Int64())

	w, err = mk.LiabilityWeight(fpmath.Zero, WeightInitial)
	require.NoError(t, err)
	assert.Equal(t, int64(12_000), w.Int64())

	w, err = mk.LiabilityWeight(fpmath.Zero, WeightMaintenance)
	require.NoError(t, err)
	assert.Equal(t, int64(11_000), w.Int64())
}

func TestOpenOrderCharge(t *testing.T) {
	mk := solMarket()
	assert.Equal(t, int64(0), mk.OpenOrderMarginRequirement(0).Int64())
	// 0.01 USD per resting order.
	assert.Equal(t, int64(30_000), mk.OpenOrderMarginRequirement(3).Int64())
}

func TestSpotMarketValidate(t *testing.T) {
	assert.NoError(t, solMarket().Validate())

	cases := []struct {
		name   string
		mutate func(*SpotMarket)
	}{
		{"zero decimals", func(m *SpotMarket) { m.Decimals = 0 }},
		{"decimals too large", func(m *SpotMarket) { m.Decimals = 19 }},
		{"asset weight above one", func(m *SpotMarket) { m.InitialAssetWeight = 10_001 }},
		{"liability weight below one", func(m *SpotMarket) { m.InitialLiabilityWeight = 9_999 }},
		{"maintenance asset below initial", func(m *SpotMarket) { m.MaintenanceAssetWeight = 7_000 }},
		{"maintenance liability above initial", func(m *SpotMarket) { m.MaintenanceLiabilityWeight = 13_000 }},
		{"zero deposit interest", func(m *SpotMarket) { m.CumulativeDepositInterest = 0 }},
		{"zero borrow interest", func(m *SpotMarket) { m.CumulativeBorrowInterest = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mk := solMarket()
			tc.mutate(mk)
			assert.Error(t, mk.Validate())
		})
	}
}

func TestMarketMapLookups(t *testing.T) {
	spots := NewSpotMarketMap(solMarket())
	assert.Equal(t, 1, spots.Len())

	mk, err := spots.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "SOL", mk.Name)

	_, err = spots.Get(7)
	assert.Error(t, err)

	perps := NewPerpMarketMap(NewPerpMarket(0, "SOL-PERP", oracle.Key("oracle:sol")))
	assert.Equal(t, 1, perps.Len())

	pk, err := perps.Get(0)
	require.NoError(t, err)
	assert.Equal(t, "SOL-PERP", pk.Name)

	_, err = perps.Get(3)
	assert.Error(t, err)
}
