package margin

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RiskEngine/internal/account"
	"RiskEngine/internal/market"
	fpmath "RiskEngine/internal/math"
	"RiskEngine/internal/oracle"
)

func valuePerp(t *testing.T, pos *account.PerpPosition, mk *market.PerpMarket, price int64, ctx Context) *PerpValuation {
	t.Helper()
	val, err := ValuePerpPosition(
		pos, mk, flatPrice(price), flatPrice(1_000_000), ctx, 0, false)
	require.NoError(t, err)
	return val
}

func TestPerpLongValuation(t *testing.T) {
	mk := solPerpMarket()
	pos := &account.PerpPosition{
		MarketIndex:      0,
		BaseAssetAmount:  1_000_000_000,
		QuoteAssetAmount: -100_000_000,
	}

	val := valuePerp(t, pos, mk, 120_000_000, StandardContext(Initial))

	assert.Equal(t, int64(120_000_000), val.WorstCaseLiabilityValue.Int64())
	assert.Equal(t, int64(12_000_000), val.MarginRequirement.Int64())
	assert.Equal(t, int64(20_000_000), val.WeightedPnl.Int64())
	assert.Equal(t, int64(0), val.OpenOrderMarginRequirement.Int64())
	assert.Equal(t, int64(120_000_000), val.BaseAssetValue.Int64())
}

func TestPerpUnrealizedLossCountsFully(t *testing.T) {
	mk := solPerpMarket()
	mk.UnrealizedPnlInitialAssetWeight = 5_000

	profit := &account.PerpPosition{
		MarketIndex:      0,
		BaseAssetAmount:  1_000_000_000,
		QuoteAssetAmount: -100_000_000,
	}
	loss := &account.PerpPosition{
		MarketIndex:      0,
		BaseAssetAmount:  1_000_000_000,
		QuoteAssetAmount: -140_000_000,
	}

	// Gains haircut to 50%, losses taken whole.
	gain := valuePerp(t, profit, mk, 120_000_000, StandardContext(Initial))
	assert.Equal(t, int64(10_000_000), gain.WeightedPnl.Int64())

	lost := valuePerp(t, loss, mk, 120_000_000, StandardContext(Initial))
	assert.Equal(t, int64(-20_000_000), lost.WeightedPnl.Int64())
}

func TestFundingPnl(t *testing.T) {
	mk := solPerpMarket()
	mk.Amm.CumulativeFundingRateLong = 500_000_000
	mk.Amm.CumulativeFundingRateShort = 300_000_000

	long := &account.PerpPosition{
		MarketIndex:               0,
		BaseAssetAmount:           1_000_000_000,
		LastCumulativeFundingRate: 0,
	}
	// Long pays a rising long index: 1.0 base x 0.5 quote per base.
	assert.Equal(t, int64(-500_000_000), fundingPnl(long, mk.Amm).Int64())

	short := &account.PerpPosition{
		MarketIndex:               0,
		BaseAssetAmount:           -1_000_000_000,
		LastCumulativeFundingRate: 100_000_000,
	}
	// Short receives a rising short index.
	assert.Equal(t, int64(200_000_000), fundingPnl(short, mk.Amm).Int64())

	flat := &account.PerpPosition{MarketIndex: 0, QuoteAssetAmount: 5}
	assert.Equal(t, int64(0), fundingPnl(flat, mk.Amm).Int64())
}

func TestOpenOrderMarginAttribution(t *testing.T) {
	mk := solPerpMarket()
	pos := &account.PerpPosition{
		MarketIndex:     0,
		BaseAssetAmount: 1_000_000_000,
		OpenBids:        500_000_000,
		OpenOrders:      1,
	}

	val := valuePerp(t, pos, mk, 120_000_000, StandardContext(Initial))

	// Worst case 1.5 long: 180 USD at 0.1 plus one order charge.
	assert.Equal(t, int64(18_010_000), val.MarginRequirement.Int64())
	// Base alone needs 12 USD; the rest belongs to the resting order.
	assert.Equal(t, int64(6_010_000), val.OpenOrderMarginRequirement.Int64())
}

func TestLPSharesSettleIntoBase(t *testing.T) {
	mk := solPerpMarket()
	mk.Amm.BaseAssetAmountPerLP = 200_000_000

	pos := &account.PerpPosition{
		MarketIndex: 0,
		LPShares:    5_000_000_000,
		PerLPBase:   0,
	}

	// 5 shares x 0.2 base per share = 1.0 base.
	val := valuePerp(t, pos, mk, 120_000_000, StandardContext(Initial))
	assert.Equal(t, int64(120_000_000), val.WorstCaseLiabilityValue.Int64())
	assert.Equal(t, int64(12_000_000), val.MarginRequirement.Int64())
}

func TestPredictionBounds(t *testing.T) {
	mk := solPerpMarket()
	mk.ContractType = market.ContractTypePrediction
	mk.Amm.HistoricalOracleTwap5Min = 400_000

	short := &account.PerpPosition{MarketIndex: 0, BaseAssetAmount: -1_000_000_000}
	long := &account.PerpPosition{MarketIndex: 0, BaseAssetAmount: 1_000_000_000}

	// Short liability is the distance to the ceiling, long the price itself.
	sVal := valuePerp(t, short, mk, 400_000, StandardContext(Initial))
	assert.Equal(t, int64(600_000), sVal.WorstCaseLiabilityValue.Int64())

	lVal := valuePerp(t, long, mk, 400_000, StandardContext(Initial))
	assert.Equal(t, int64(400_000), lVal.WorstCaseLiabilityValue.Int64())

	// At the ceiling the short owes nothing more.
	atMax := valuePerp(t, short, mk, 1_000_000, StandardContext(Initial))
	assert.Equal(t, int64(0), atMax.WorstCaseLiabilityValue.Int64())
}

func TestMaintenanceRequirementBelowInitial(t *testing.T) {
	mk := solPerpMarket()
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 100; i++ {
		base := rng.Int63n(50_000_000_000) + 1
		if rng.Intn(2) == 0 {
			base = -base
		}
		pos := &account.PerpPosition{MarketIndex: 0, BaseAssetAmount: base}

		initial := valuePerp(t, pos, mk, 120_000_000, StandardContext(Initial))
		maint := valuePerp(t, pos, mk, 120_000_000, StandardContext(Maintenance))

		assert.True(t, maint.MarginRequirement.Cmp(initial.MarginRequirement) <= 0,
			"base %d: maintenance %s exceeds initial %s",
			base, maint.MarginRequirement, initial.MarginRequirement)
	}
}

func TestRequirementMonotoneInBaseSize(t *testing.T) {
	mk := solPerpMarket()
	mk.ImfFactor = 50_000
	rng := rand.New(rand.NewSource(11))

	for i := 0; i < 100; i++ {
		base := rng.Int63n(100_000_000_000) + 1
		bigger := base + rng.Int63n(1_000_000_000) + 1

		a := valuePerp(t, &account.PerpPosition{MarketIndex: 0, BaseAssetAmount: base},
			mk, 120_000_000, StandardContext(Initial))
		b := valuePerp(t, &account.PerpPosition{MarketIndex: 0, BaseAssetAmount: bigger},
			mk, 120_000_000, StandardContext(Initial))

		assert.True(t, b.MarginRequirement.Cmp(a.MarginRequirement) >= 0,
			"base %d -> %d: requirement %s fell to %s",
			base, bigger, a.MarginRequirement, b.MarginRequirement)
	}
}

func TestStrictPerpPricing(t *testing.T) {
	mk := solPerpMarket()
	pos := &account.PerpPosition{MarketIndex: 0, BaseAssetAmount: -1_000_000_000}

	// Live 120, twap 130: a strict short is valued at the higher price.
	strict := oracle.NewStrictOraclePrice(120_000_000, 130_000_000, true)
	val, err := ValuePerpPosition(
		pos, mk, strict, flatPrice(1_000_000), StandardContext(Initial), 0, false)
	require.NoError(t, err)
	assert.Equal(t, int64(130_000_000), val.WorstCaseLiabilityValue.Int64())

	relaxed, err := ValuePerpPosition(
		pos, mk, oracle.NewStrictOraclePrice(120_000_000, 130_000_000, false),
		flatPrice(1_000_000), StandardContext(Initial), 0, false)
	require.NoError(t, err)
	assert.Equal(t, int64(120_000_000), relaxed.WorstCaseLiabilityValue.Int64())
}

func TestWorstCaseBaseMaxMagnitude(t *testing.T) {
	cases := []struct {
		base, bids, asks, want int64
	}{
		{1_000_000_000, 0, -500_000_000, 1_000_000_000},
		{1_000_000_000, 500_000_000, 0, 1_500_000_000},
		{-1_000_000_000, 0, -500_000_000, -1_500_000_000},
		{0, 300_000_000, -400_000_000, -400_000_000},
		{200_000_000, 0, -400_000_000, -200_000_000},
	}
	for _, tc := range cases {
		got := account.WorstCaseBase(fpmath.BN(tc.base), tc.bids, tc.asks)
		assert.Equal(t, tc.want, got.Int64(),
			"base=%d bids=%d asks=%d", tc.base, tc.bids, tc.asks)
	}
}
