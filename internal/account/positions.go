package account

import (
	"math/big"

	"RiskEngine/internal/errs"
	"RiskEngine/internal/market"
	fpmath "RiskEngine/internal/math"
)

const (
	// MaxSpotPositions and MaxPerpPositions fix the position array sizes.
	// Fixed arrays keep slot identity and iteration order stable.
	MaxSpotPositions = 8
	MaxPerpPositions = 8

	// MaxOpenOrders bounds the per-position resting order count.
	MaxOpenOrders = 32
)

// SpotPosition is one slot of a user's spot balance array.
type SpotPosition struct {
	MarketIndex   uint16
	ScaledBalance uint64
	BalanceType   market.BalanceType

	// Resting order totals in token precision. Bids are non-negative,
	// asks non-positive.
	OpenBids int64
	OpenAsks int64

	OpenOrders uint8

	CumulativeDeposits int64
}

// IsAvailable reports an empty slot: no balance and no resting orders.
// A zero balance with open orders is still active.
func (p *SpotPosition) IsAvailable() bool {
	return p.ScaledBalance == 0 && p.OpenOrders == 0
}

// HasOpenOrders reports any resting order exposure.
func (p *SpotPosition) HasOpenOrders() bool {
	return p.OpenOrders > 0 || p.OpenBids != 0 || p.OpenAsks != 0
}

// Validate enforces the sign and count invariants before valuation.
func (p *SpotPosition) Validate() error {
	if p.OpenBids < 0 {
		return errs.New(errs.CodeInvalidSpotPosition,
			"market %d: open bids %d must be >= 0", p.MarketIndex, p.OpenBids)
	}
	if p.OpenAsks > 0 {
		return errs.New(errs.CodeInvalidSpotPosition,
			"market %d: open asks %d must be <= 0", p.MarketIndex, p.OpenAsks)
	}
	if p.OpenOrders > MaxOpenOrders {
		return errs.New(errs.CodeInvalidSpotPosition,
			"market %d: open orders %d exceeds max %d", p.MarketIndex, p.OpenOrders, MaxOpenOrders)
	}
	return nil
}

// PerpPosition is one slot of a user's perp position array.
type PerpPosition struct {
	MarketIndex uint16

	// BaseAssetAmount in AMM reserve precision, signed.
	BaseAssetAmount int64

	// Quote bookkeeping, quote precision.
	QuoteAssetAmount     int64
	QuoteEntryAmount     int64
	QuoteBreakEvenAmount int64

	OpenBids   int64
	OpenAsks   int64
	OpenOrders uint8

	// LP state: shares held and the per-LP base index at last settle.
	LPShares                 uint64
	PerLPBase                int64
	RemainderBaseAssetAmount int32

	LastCumulativeFundingRate int64
}

// IsAvailable reports an empty slot: no base, no quote, no orders, no LP
// shares.
func (p *PerpPosition) IsAvailable() bool {
	return p.BaseAssetAmount == 0 &&
		p.QuoteAssetAmount == 0 &&
		!p.HasOpenOrders() &&
		p.LPShares == 0
}

// HasOpenOrders reports any resting order exposure.
func (p *PerpPosition) HasOpenOrders() bool {
	return p.OpenOrders > 0 || p.OpenBids != 0 || p.OpenAsks != 0
}

// HasLiability reports whether the slot constrains margin: short or long
// base, negative quote, resting orders, or LP shares.
func (p *PerpPosition) HasLiability() bool {
	return p.BaseAssetAmount != 0 ||
		p.QuoteAssetAmount < 0 ||
		p.HasOpenOrders() ||
		p.LPShares > 0
}

// SettledBase returns the position's base exposure with LP shares settled
// against the market's per-LP index and the remainder folded in.
func (p *PerpPosition) SettledBase(amm market.AMMState) *big.Int {
	base := fpmath.Add(fpmath.BN(p.BaseAssetAmount), fpmath.BN(int64(p.RemainderBaseAssetAmount)))
	if p.LPShares == 0 {
		return base
	}
	delta := new(big.Int).Quo(
		fpmath.Mul(
			fpmath.BNU(p.LPShares),
			fpmath.Sub(fpmath.BN(amm.BaseAssetAmountPerLP), fpmath.BN(p.PerLPBase)),
		),
		fpmath.AMMReservePrecisionBig,
	)
	return fpmath.Add(base, delta)
}

// WorstCaseBase returns the base exposure after the worse of the two
// order-fill extremes: all bids fill or all asks fill. The branch with the
// larger magnitude is the worst.
func WorstCaseBase(settledBase *big.Int, openBids, openAsks int64) *big.Int {
	allBids := fpmath.Add(settledBase, fpmath.BN(openBids))
	allAsks := fpmath.Add(settledBase, fpmath.BN(openAsks))
	if fpmath.Abs(allBids).Cmp(fpmath.Abs(allAsks)) > 0 {
		return allBids
	}
	return allAsks
}
