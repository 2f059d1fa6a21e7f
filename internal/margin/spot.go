package margin

import (
	"math/big"

	"RiskEngine/internal/account"
	"RiskEngine/internal/errs"
	"RiskEngine/internal/market"
	fpmath "RiskEngine/internal/math"
	"RiskEngine/internal/oracle"
)

// OrderFillSimulation is the outcome of one fill branch: the position
// after the branch's orders fill, its quote-side cash movement, and the
// weighted value that feeds the aggregator.
type OrderFillSimulation struct {
	// TokenAmount after the branch fills, token precision.
	TokenAmount *big.Int

	// OrdersValue is the quote-side cash movement: negative when bids
	// fill (quote spent), positive when asks fill (quote received).
	OrdersValue *big.Int

	// TokenValue of the resulting token amount, quote precision.
	TokenValue *big.Int

	// Weight applied to TokenValue, spot-weight precision.
	Weight *big.Int

	// WeightedTokenValue = TokenValue scaled by Weight.
	WeightedTokenValue *big.Int

	// FreeCollateralContribution = WeightedTokenValue + OrdersValue. The
	// branch minimizing it is the worst case.
	FreeCollateralContribution *big.Int
}

// simulateFillBranch values the position after ordersDelta (bids or asks)
// fills entirely.
func simulateFillBranch(
	tokenAmount *big.Int,
	ordersDelta int64,
	mk *market.SpotMarket,
	strictPrice oracle.StrictOraclePrice,
	category market.WeightCategory,
) (*OrderFillSimulation, error) {
	filledToken := fpmath.Add(tokenAmount, fpmath.BN(ordersDelta))

	// The quote leg moves opposite the token leg.
	ordersValue, err := mk.StrictTokenValue(fpmath.BN(-ordersDelta), strictPrice)
	if err != nil {
		return nil, err
	}

	tokenValue, err := mk.StrictTokenValue(filledToken, strictPrice)
	if err != nil {
		return nil, err
	}

	weighted, weight, err := weightTokenValue(tokenValue, filledToken, mk, category)
	if err != nil {
		return nil, err
	}

	contribution, err := fpmath.CheckI128(fpmath.Add(weighted, ordersValue))
	if err != nil {
		return nil, err
	}

	return &OrderFillSimulation{
		TokenAmount:                filledToken,
		OrdersValue:                ordersValue,
		TokenValue:                 tokenValue,
		Weight:                     weight,
		WeightedTokenValue:         weighted,
		FreeCollateralContribution: contribution,
	}, nil
}

// weightTokenValue applies the asset weight to net assets and the
// liability weight to net liabilities, including the size-sensitive imf
// adjustment.
func weightTokenValue(
	tokenValue, tokenAmount *big.Int,
	mk *market.SpotMarket,
	category market.WeightCategory,
) (weighted, weight *big.Int, err error) {
	if tokenValue.Sign() >= 0 {
		weight, err = mk.AssetWeight(fpmath.Abs(tokenAmount), category)
	} else {
		weight, err = mk.LiabilityWeight(fpmath.Abs(tokenAmount), category)
	}
	if err != nil {
		return nil, nil, err
	}

	weighted, err = fpmath.DivFloor(fpmath.Mul(tokenValue, weight), fpmath.SpotWeightPrecisionBig)
	if err != nil {
		return nil, nil, err
	}
	return weighted, weight, nil
}

// WorstCaseFillSimulation runs both extreme branches — all bids fill, all
// asks fill — and returns the one leaving the account worst off, then
// applies the user's custom margin ratio overlay to the chosen branch.
func WorstCaseFillSimulation(
	pos *account.SpotPosition,
	mk *market.SpotMarket,
	strictPrice oracle.StrictOraclePrice,
	tokenAmount *big.Int,
	category market.WeightCategory,
	customMarginRatio uint32,
) (*OrderFillSimulation, error) {
	bids, err := simulateFillBranch(tokenAmount, pos.OpenBids, mk, strictPrice, category)
	if err != nil {
		return nil, err
	}
	asks, err := simulateFillBranch(tokenAmount, pos.OpenAsks, mk, strictPrice, category)
	if err != nil {
		return nil, err
	}

	worst := bids
	if asks.FreeCollateralContribution.Cmp(bids.FreeCollateralContribution) < 0 {
		worst = asks
	}

	if customMarginRatio > 0 && category == market.WeightInitial && worst.TokenValue.Sign() < 0 {
		if err := applyCustomMarginRatio(worst, customMarginRatio); err != nil {
			return nil, err
		}
	}

	return worst, nil
}

// applyCustomMarginRatio re-weights a liability branch with the larger of
// the market weight and the user's floor. Margin and spot-weight
// precision coincide, so the ratio adds directly onto 1.0.
func applyCustomMarginRatio(sim *OrderFillSimulation, customMarginRatio uint32) error {
	floor := fpmath.Add(fpmath.SpotWeightPrecisionBig, fpmath.BN(int64(customMarginRatio)))
	if sim.Weight.Cmp(floor) >= 0 {
		return nil
	}

	sim.Weight = floor
	weighted, err := fpmath.DivFloor(fpmath.Mul(sim.TokenValue, sim.Weight), fpmath.SpotWeightPrecisionBig)
	if err != nil {
		return err
	}
	sim.WeightedTokenValue = weighted

	contribution, err := fpmath.CheckI128(fpmath.Add(weighted, sim.OrdersValue))
	if err != nil {
		return err
	}
	sim.FreeCollateralContribution = contribution
	return nil
}

// foldSpotPosition applies one non-quote spot position's worst case into
// the accumulator.
func foldSpotPosition(
	calc *Calculation,
	pos *account.SpotPosition,
	mk *market.SpotMarket,
	strictPrice oracle.StrictOraclePrice,
	tokenAmount *big.Int,
	customMarginRatio uint32,
) error {
	category := calc.Context.MarginType.WeightCategory()

	// Flat per-order charge for resting orders.
	if pos.OpenOrders > 0 {
		charge := mk.OpenOrderMarginRequirement(pos.OpenOrders)
		if err := calc.AddMarginRequirement(charge, fpmath.BN(0), SpotMarketID(mk.MarketIndex)); err != nil {
			return err
		}
		if calc.Context.TracksOpenOrdersFraction() {
			if err := calc.AddOpenOrdersMarginRequirement(charge); err != nil {
				return err
			}
		}
	}

	worst, err := WorstCaseFillSimulation(pos, mk, strictPrice, tokenAmount, category, customMarginRatio)
	if err != nil {
		return err
	}

	switch {
	case worst.TokenValue.Sign() > 0:
		if err := calc.AddTotalCollateral(worst.WeightedTokenValue); err != nil {
			return err
		}
		calc.TotalSpotAssetValue = fpmath.Add(calc.TotalSpotAssetValue, worst.WeightedTokenValue)

	case worst.TokenValue.Sign() < 0:
		// A liability weight below 1.0 would understate risk.
		if fpmath.Abs(worst.WeightedTokenValue).Cmp(fpmath.Abs(worst.TokenValue)) < 0 {
			return errs.New(errs.CodeInvalidMarginRatio,
				"market %d: weighted liability %s below face %s",
				mk.MarketIndex, worst.WeightedTokenValue, worst.TokenValue)
		}
		if worst.WeightedTokenValue.Sign() == 0 {
			return errs.New(errs.CodeInvalidOracle,
				"market %d: liability with zero weighted value", mk.MarketIndex)
		}
		if err := calc.AddMarginRequirement(
			fpmath.Abs(worst.WeightedTokenValue),
			fpmath.Abs(worst.TokenValue),
			SpotMarketID(mk.MarketIndex),
		); err != nil {
			return err
		}
		calc.TotalSpotLiabilityValue = fpmath.Add(calc.TotalSpotLiabilityValue, fpmath.Abs(worst.TokenValue))
		calc.AddSpotLiability()
		calc.UpdateWithSpotIsolatedLiability(mk.AssetTier == market.AssetTierIsolated)

	default:
		// Zero worst-case balance with resting orders still counts as a
		// liability so the cross-position invariant guards it.
		if pos.OpenOrders > 0 {
			calc.AddSpotLiability()
			calc.UpdateWithSpotIsolatedLiability(mk.AssetTier == market.AssetTierIsolated)
		}
	}

	// The quote-side cash movement lands on the quote market.
	switch {
	case worst.OrdersValue.Sign() > 0:
		if err := calc.AddTotalCollateral(worst.OrdersValue); err != nil {
			return err
		}
	case worst.OrdersValue.Sign() < 0:
		if err := calc.AddMarginRequirement(
			fpmath.Abs(worst.OrdersValue),
			fpmath.Abs(worst.OrdersValue),
			SpotMarketID(market.QuoteSpotMarketIndex),
		); err != nil {
			return err
		}
		// The simulated quote spend is itself a borrow.
		calc.AddSpotLiability()
	}

	return nil
}

// foldQuoteSpotPosition handles market index 0: no simulation, face-value
// collateral or requirement.
func foldQuoteSpotPosition(
	calc *Calculation,
	pos *account.SpotPosition,
	mk *market.SpotMarket,
	strictPrice oracle.StrictOraclePrice,
	tokenAmount *big.Int,
) error {
	if tokenAmount.Sign() == 0 && pos.ScaledBalance != 0 {
		return errs.New(errs.CodeInvalidMarginRatio,
			"quote market: zero token amount from scaled balance %d", pos.ScaledBalance)
	}

	tokenValue, err := mk.StrictTokenValue(tokenAmount, strictPrice)
	if err != nil {
		return err
	}

	switch pos.BalanceType {
	case market.BalanceTypeDeposit:
		if err := calc.AddTotalCollateral(tokenValue); err != nil {
			return err
		}
		calc.TotalSpotAssetValue = fpmath.Add(calc.TotalSpotAssetValue, tokenValue)
	case market.BalanceTypeBorrow:
		face := fpmath.Abs(tokenValue)
		if face.Sign() == 0 && tokenAmount.Sign() != 0 {
			return errs.New(errs.CodeInvalidMarginRatio,
				"quote market: borrow of %s priced at zero", tokenAmount)
		}
		if err := calc.AddMarginRequirement(face, face, SpotMarketID(mk.MarketIndex)); err != nil {
			return err
		}
		calc.TotalSpotLiabilityValue = fpmath.Add(calc.TotalSpotLiabilityValue, face)
		calc.AddSpotLiability()
		calc.UpdateWithSpotIsolatedLiability(mk.AssetTier == market.AssetTierIsolated)
	}

	if pos.OpenOrders > 0 {
		charge := mk.OpenOrderMarginRequirement(pos.OpenOrders)
		if err := calc.AddMarginRequirement(charge, fpmath.BN(0), SpotMarketID(mk.MarketIndex)); err != nil {
			return err
		}
		if calc.Context.TracksOpenOrdersFraction() {
			if err := calc.AddOpenOrdersMarginRequirement(charge); err != nil {
				return err
			}
		}
	}

	return nil
}
