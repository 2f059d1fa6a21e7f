package account

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"RiskEngine/internal/market"
	fpmath "RiskEngine/internal/math"
)

func TestSpotPositionAvailability(t *testing.T) {
	var p SpotPosition
	assert.True(t, p.IsAvailable())
	assert.False(t, p.HasOpenOrders())

	p.ScaledBalance = 1
	assert.False(t, p.IsAvailable())

	// A drained balance with resting orders stays active.
	p = SpotPosition{OpenOrders: 1}
	assert.False(t, p.IsAvailable())
	assert.True(t, p.HasOpenOrders())

	// Residual bid totals count as order exposure even at zero count.
	p = SpotPosition{OpenBids: 10}
	assert.True(t, p.HasOpenOrders())
}

func TestSpotPositionValidate(t *testing.T) {
	p := SpotPosition{OpenBids: 100, OpenAsks: -100, OpenOrders: 2}
	assert.NoError(t, p.Validate())

	p = SpotPosition{OpenBids: -1}
	assert.Error(t, p.Validate())

	p = SpotPosition{OpenAsks: 1}
	assert.Error(t, p.Validate())

	p = SpotPosition{OpenOrders: MaxOpenOrders + 1}
	assert.Error(t, p.Validate())
}

func TestPerpPositionAvailability(t *testing.T) {
	var p PerpPosition
	assert.True(t, p.IsAvailable())
	assert.False(t, p.HasLiability())

	p = PerpPosition{BaseAssetAmount: -1}
	assert.False(t, p.IsAvailable())
	assert.True(t, p.HasLiability())

	p = PerpPosition{QuoteAssetAmount: 50}
	assert.False(t, p.IsAvailable())
	assert.False(t, p.HasLiability())

	p = PerpPosition{QuoteAssetAmount: -50}
	assert.True(t, p.HasLiability())

	p = PerpPosition{LPShares: 1}
	assert.False(t, p.IsAvailable())
	assert.True(t, p.HasLiability())

	p = PerpPosition{OpenAsks: -5}
	assert.False(t, p.IsAvailable())
	assert.True(t, p.HasLiability())
}

func TestSettledBase(t *testing.T) {
	amm := market.AMMState{BaseAssetAmountPerLP: 500_000_000}

	// No LP shares: base plus remainder.
	p := PerpPosition{BaseAssetAmount: 2_000_000_000, RemainderBaseAssetAmount: 7}
	assert.Equal(t, int64(2_000_000_007), p.SettledBase(amm).Int64())

	// 2 shares settle half a contract each against the per-LP delta.
	p = PerpPosition{
		BaseAssetAmount: 1_000_000_000,
		LPShares:        2_000_000_000,
		PerLPBase:       0,
	}
	assert.Equal(t, int64(2_000_000_000), p.SettledBase(amm).Int64())

	// An already-settled index contributes nothing.
	p.PerLPBase = 500_000_000
	assert.Equal(t, int64(1_000_000_000), p.SettledBase(amm).Int64())
}

func TestWorstCaseBase(t *testing.T) {
	// Long 1 with bigger ask side: the short fill dominates.
	base := fpmath.BN(1_000_000_000)
	wc := WorstCaseBase(base, 500_000_000, -3_000_000_000)
	assert.Equal(t, int64(-2_000_000_000), wc.Int64())

	// Bid side dominates.
	wc = WorstCaseBase(base, 4_000_000_000, -1_000_000_000)
	assert.Equal(t, int64(5_000_000_000), wc.Int64())

	// A tie keeps the ask branch.
	wc = WorstCaseBase(fpmath.Zero, 1_000_000_000, -1_000_000_000)
	assert.Equal(t, int64(-1_000_000_000), wc.Int64())
}

func TestActivePositionsOrder(t *testing.T) {
	var u User
	u.SpotPositions[0] = SpotPosition{MarketIndex: 0, ScaledBalance: 1}
	u.SpotPositions[3] = SpotPosition{MarketIndex: 5, OpenOrders: 1}
	u.PerpPositions[2] = PerpPosition{MarketIndex: 1, BaseAssetAmount: 10}

	spots := u.ActiveSpotPositions()
	if assert.Len(t, spots, 2) {
		assert.Equal(t, uint16(0), spots[0].MarketIndex)
		assert.Equal(t, uint16(5), spots[1].MarketIndex)
	}

	perps := u.ActivePerpPositions()
	if assert.Len(t, perps, 1) {
		assert.Equal(t, uint16(1), perps[0].MarketIndex)
	}
}

func TestCustomMarginRatio(t *testing.T) {
	u := User{MaxMarginRatio: 2_500}
	assert.Equal(t, uint32(2_500), u.CustomMarginRatio(true))
	assert.Equal(t, uint32(0), u.CustomMarginRatio(false))
}
