package oracle

import (
	"math/big"

	"RiskEngine/internal/errs"
	fpmath "RiskEngine/internal/math"
)

// StrictOraclePrice pairs a live price with its 5-minute TWAP. Under strict
// pricing the conservative reducer understates assets and overstates
// liabilities; otherwise the live price is used on both sides.
type StrictOraclePrice struct {
	Current  int64
	Twap5Min int64
	Strict   bool
}

// NewStrictOraclePrice builds the pair from a sample and the market's
// recorded 5-minute TWAP.
func NewStrictOraclePrice(current, twap5min int64, strict bool) StrictOraclePrice {
	return StrictOraclePrice{Current: current, Twap5Min: twap5min, Strict: strict}
}

// AssetPrice is the price applied to positive exposure: min(current, twap)
// when strict.
func (p StrictOraclePrice) AssetPrice() int64 {
	if p.Strict && p.Twap5Min < p.Current {
		return p.Twap5Min
	}
	return p.Current
}

// LiabilityPrice is the price applied to negative exposure: max(current,
// twap) when strict.
func (p StrictOraclePrice) LiabilityPrice() int64 {
	if p.Strict && p.Twap5Min > p.Current {
		return p.Twap5Min
	}
	return p.Current
}

// PriceFor selects the side price for a signed exposure.
func (p StrictOraclePrice) PriceFor(exposure *big.Int) int64 {
	if exposure.Sign() >= 0 {
		return p.AssetPrice()
	}
	return p.LiabilityPrice()
}

// AssetPriceBig and LiabilityPriceBig are big.Int views for valuation code.
func (p StrictOraclePrice) AssetPriceBig() *big.Int { return fpmath.BN(p.AssetPrice()) }

func (p StrictOraclePrice) LiabilityPriceBig() *big.Int { return fpmath.BN(p.LiabilityPrice()) }

// Validate requires both prices to be positive.
func (p StrictOraclePrice) Validate() error {
	if p.Current <= 0 || p.Twap5Min <= 0 {
		return errs.New(errs.CodeInvalidOracle,
			"non-positive strict price: current=%d twap5min=%d", p.Current, p.Twap5Min)
	}
	return nil
}
