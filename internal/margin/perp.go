package margin

import (
	"math/big"

	"RiskEngine/internal/account"
	"RiskEngine/internal/market"
	fpmath "RiskEngine/internal/math"
	"RiskEngine/internal/oracle"
)

// PerpValuation is one perp position's margin-relevant breakdown.
type PerpValuation struct {
	// MarginRequirement on the worst-case base exposure plus the flat
	// per-order charge, quote precision.
	MarginRequirement *big.Int

	// WeightedPnl is the unrealized pnl contribution to total collateral,
	// signed, already converted to the numeraire.
	WeightedPnl *big.Int

	// WorstCaseLiabilityValue backs the margin-buffer pad.
	WorstCaseLiabilityValue *big.Int

	// OpenOrderMarginRequirement is the slice of MarginRequirement owed to
	// resting orders rather than the settled base.
	OpenOrderMarginRequirement *big.Int

	// BaseAssetValue of the settled base at the live price; fuel accrues
	// against it.
	BaseAssetValue *big.Int
}

// perpBaseValue converts a base exposure to quote at the given price,
// truncating toward zero.
func perpBaseValue(base *big.Int, price int64) *big.Int {
	return new(big.Int).Quo(fpmath.Mul(fpmath.Abs(base), fpmath.BN(price)), fpmath.AMMReservePrecisionBig)
}

// perpLiabilityValue values a worst-case base exposure for the margin
// side. Prediction shorts owe the distance to the settlement ceiling
// instead of the price itself.
func perpLiabilityValue(base *big.Int, mk *market.PerpMarket, strictPrice oracle.StrictOraclePrice) (*big.Int, error) {
	if mk.IsPrediction() && base.Sign() < 0 {
		diff := fpmath.MaxPredictionPrice - strictPrice.AssetPrice()
		if diff < 0 {
			diff = 0
		}
		return fpmath.CheckU128(perpBaseValue(base, diff))
	}
	return fpmath.CheckU128(perpBaseValue(base, strictPrice.LiabilityPrice()))
}

// perpMarginRatio resolves the size-adjusted ratio and applies the user's
// custom floor under initial margin.
func perpMarginRatio(
	mk *market.PerpMarket,
	size *big.Int,
	category market.WeightCategory,
	highLeverageMode bool,
	customMarginRatio uint32,
) (*big.Int, error) {
	ratio, err := mk.MarginRatio(size, category, highLeverageMode)
	if err != nil {
		return nil, err
	}
	if category == market.WeightInitial && customMarginRatio > 0 {
		ratio = fpmath.Max(ratio, fpmath.BN(int64(customMarginRatio)))
	}
	return ratio, nil
}

// fundingPnl is the unsettled funding owed to or by the position: the
// drift of the side's cumulative index since the position last settled.
func fundingPnl(pos *account.PerpPosition, amm market.AMMState) *big.Int {
	if pos.BaseAssetAmount == 0 {
		return fpmath.BN(0)
	}
	cumulative := amm.CumulativeFundingRateLong
	if pos.BaseAssetAmount < 0 {
		cumulative = amm.CumulativeFundingRateShort
	}
	delta := fpmath.Sub(fpmath.BN(cumulative), fpmath.BN(pos.LastCumulativeFundingRate))
	payment := new(big.Int).Quo(fpmath.Mul(fpmath.BN(pos.BaseAssetAmount), delta), fpmath.BN(market.FundingRatePrecision))
	return fpmath.Neg(payment)
}

// ValuePerpPosition computes a perp position's margin requirement and
// unrealized pnl under the given pricing regime. quoteStrictPrice converts
// the quote-token pnl to the numeraire.
func ValuePerpPosition(
	pos *account.PerpPosition,
	mk *market.PerpMarket,
	strictPrice oracle.StrictOraclePrice,
	quoteStrictPrice oracle.StrictOraclePrice,
	ctx Context,
	customMarginRatio uint32,
	highLeverageMode bool,
) (*PerpValuation, error) {
	category := ctx.MarginType.WeightCategory()

	settledBase := pos.SettledBase(mk.Amm)
	worstBase := account.WorstCaseBase(settledBase, pos.OpenBids, pos.OpenAsks)

	liabilityValue, err := perpLiabilityValue(worstBase, mk, strictPrice)
	if err != nil {
		return nil, err
	}

	ratio, err := perpMarginRatio(mk, fpmath.Abs(worstBase), category, highLeverageMode, customMarginRatio)
	if err != nil {
		return nil, err
	}

	marginRequirement, err := fpmath.DivFloor(fpmath.Mul(liabilityValue, ratio), fpmath.MarginPrecisionBig)
	if err != nil {
		return nil, err
	}

	if pos.OpenOrders > 0 {
		charge := fpmath.Mul(fpmath.BN(int64(pos.OpenOrders)), fpmath.OpenOrderMarginChargeBig)
		marginRequirement = fpmath.Add(marginRequirement, charge)
	}
	marginRequirement, err = fpmath.CheckU128(marginRequirement)
	if err != nil {
		return nil, err
	}

	openOrderMargin, err := openOrderMarginSlice(pos, mk, strictPrice, settledBase, marginRequirement, category, highLeverageMode, customMarginRatio)
	if err != nil {
		return nil, err
	}

	weightedPnl, err := weightedUnrealizedPnl(pos, mk, strictPrice, quoteStrictPrice, settledBase, category)
	if err != nil {
		return nil, err
	}

	return &PerpValuation{
		MarginRequirement:          marginRequirement,
		WeightedPnl:                weightedPnl,
		WorstCaseLiabilityValue:    liabilityValue,
		OpenOrderMarginRequirement: openOrderMargin,
		BaseAssetValue:             perpBaseValue(settledBase, strictPrice.Current),
	}, nil
}

// openOrderMarginSlice is the full requirement less what the settled base
// alone would require, floored at zero.
func openOrderMarginSlice(
	pos *account.PerpPosition,
	mk *market.PerpMarket,
	strictPrice oracle.StrictOraclePrice,
	settledBase, fullRequirement *big.Int,
	category market.WeightCategory,
	highLeverageMode bool,
	customMarginRatio uint32,
) (*big.Int, error) {
	if !pos.HasOpenOrders() {
		return fpmath.BN(0), nil
	}

	baseLiability, err := perpLiabilityValue(settledBase, mk, strictPrice)
	if err != nil {
		return nil, err
	}
	baseRatio, err := perpMarginRatio(mk, fpmath.Abs(settledBase), category, highLeverageMode, customMarginRatio)
	if err != nil {
		return nil, err
	}
	baseRequirement, err := fpmath.DivFloor(fpmath.Mul(baseLiability, baseRatio), fpmath.MarginPrecisionBig)
	if err != nil {
		return nil, err
	}

	slice := fpmath.Sub(fullRequirement, baseRequirement)
	if slice.Sign() < 0 {
		slice = fpmath.BN(0)
	}
	return slice, nil
}

// weightedUnrealizedPnl folds base value, quote bookkeeping and unsettled
// funding into a signed collateral contribution, discounting gains by the
// market's unrealized-pnl weight and converting through the quote oracle.
func weightedUnrealizedPnl(
	pos *account.PerpPosition,
	mk *market.PerpMarket,
	strictPrice oracle.StrictOraclePrice,
	quoteStrictPrice oracle.StrictOraclePrice,
	settledBase *big.Int,
	category market.WeightCategory,
) (*big.Int, error) {
	basePrice := strictPrice.PriceFor(settledBase)
	baseValueSigned := new(big.Int).Quo(
		fpmath.Mul(settledBase, fpmath.BN(basePrice)),
		fpmath.AMMReservePrecisionBig,
	)

	pnl := fpmath.Add(fpmath.BN(pos.QuoteAssetAmount), fundingPnl(pos, mk.Amm))
	pnl = fpmath.Add(pnl, baseValueSigned)

	// Quote tokens to numeraire.
	quotePrice := quoteStrictPrice.PriceFor(pnl)
	pnl = new(big.Int).Quo(fpmath.Mul(pnl, fpmath.BN(quotePrice)), fpmath.PricePrecisionBig)

	if pnl.Sign() > 0 {
		weight := mk.UnrealizedPnlAssetWeight(category)
		weighted, err := fpmath.DivFloor(fpmath.Mul(pnl, weight), fpmath.SpotWeightPrecisionBig)
		if err != nil {
			return nil, err
		}
		pnl = weighted
	}

	return fpmath.CheckI128(pnl)
}
