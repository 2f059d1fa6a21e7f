package margin

import (
	"RiskEngine/internal/account"
	"RiskEngine/internal/errs"
	"RiskEngine/internal/market"
	fpmath "RiskEngine/internal/math"
	"RiskEngine/internal/oracle"
)

// CalculateMarginRequirementAndTotalCollateral runs the full cross-margin
// pass over a user's positions: every spot position's worst-case fill
// simulation, every perp position's worst-case exposure, oracle gating,
// and fuel accrual. The returned Calculation answers solvency queries.
func CalculateMarginRequirementAndTotalCollateral(
	user *account.User,
	perps *market.PerpMarketMap,
	spots *market.SpotMarketMap,
	oracles *oracle.Map,
	ctx Context,
) (*Calculation, error) {
	calc := NewCalculation(ctx)
	action := oracle.ActionMarginCalc

	customRatio := user.CustomMarginRatio(ctx.MarginType == Initial)

	for _, pos := range user.ActiveSpotPositions() {
		if err := pos.Validate(); err != nil {
			return nil, err
		}

		mk, err := spots.Get(pos.MarketIndex)
		if err != nil {
			return nil, errs.New(errs.CodeUnableToLoadSpotMarketAccount,
				"spot market %d: %v", pos.MarketIndex, err)
		}

		priceData, validity, err := oracles.GetPriceDataAndValidity(
			mk.Oracle, mk.HistoricalOracleTwap5Min, mk.MaxConfidenceIntervalMultiplier)
		if err != nil {
			return nil, err
		}
		calc.UpdateAllOraclesValid(oracle.SatisfiesAction(validity, &action))

		strictPrice := oracle.NewStrictOraclePrice(
			priceData.Price, mk.HistoricalOracleTwap5Min, ctx.Strict)
		if err := strictPrice.Validate(); err != nil {
			return nil, err
		}

		tokenAmount, err := mk.TokenAmount(pos.ScaledBalance, pos.BalanceType)
		if err != nil {
			return nil, err
		}
		signedAmount := market.SignedTokenAmount(tokenAmount, pos.BalanceType)

		if err := calc.AccrueSpotFuel(mk, signedAmount, priceData.Price); err != nil {
			return nil, err
		}

		if mk.MarketIndex == market.QuoteSpotMarketIndex {
			err = foldQuoteSpotPosition(calc, pos, mk, strictPrice, signedAmount)
		} else {
			err = foldSpotPosition(calc, pos, mk, strictPrice, signedAmount, customRatio)
		}
		if err != nil {
			return nil, err
		}
	}

	for _, pos := range user.ActivePerpPositions() {
		mk, err := perps.Get(pos.MarketIndex)
		if err != nil {
			return nil, err
		}
		quoteMarket, err := spots.Get(mk.QuoteSpotMarketIndex)
		if err != nil {
			return nil, errs.New(errs.CodeUnableToLoadSpotMarketAccount,
				"quote spot market %d for perp %d: %v", mk.QuoteSpotMarketIndex, mk.MarketIndex, err)
		}

		quoteData, quoteValidity, err := oracles.GetPriceDataAndValidity(
			quoteMarket.Oracle, quoteMarket.HistoricalOracleTwap5Min,
			quoteMarket.MaxConfidenceIntervalMultiplier)
		if err != nil {
			return nil, err
		}
		calc.UpdateAllOraclesValid(oracle.SatisfiesAction(quoteValidity, &action))

		priceData, validity, err := oracles.GetPriceDataAndValidity(
			mk.Oracle, mk.Amm.HistoricalOracleTwap5Min, mk.MaxConfidenceIntervalMultiplier)
		if err != nil {
			return nil, err
		}
		// A flat, order-free position under initial margin cannot be made
		// worse by a bad oracle, so it does not poison the aggregate flag.
		if pos.HasLiability() || ctx.MarginType != Initial {
			calc.UpdateAllOraclesValid(oracle.SatisfiesAction(validity, &action))
		}

		strictPrice := oracle.NewStrictOraclePrice(
			priceData.Price, mk.Amm.HistoricalOracleTwap5Min, ctx.Strict)
		if err := strictPrice.Validate(); err != nil {
			return nil, err
		}
		quoteStrictPrice := oracle.NewStrictOraclePrice(
			quoteData.Price, quoteMarket.HistoricalOracleTwap5Min, ctx.Strict)
		if err := quoteStrictPrice.Validate(); err != nil {
			return nil, err
		}

		calc.AccruePerpFuel(pos, mk, priceData.Price)

		val, err := ValuePerpPosition(
			pos, mk, strictPrice, quoteStrictPrice, ctx, customRatio, user.HighLeverageMode)
		if err != nil {
			return nil, err
		}

		if err := calc.AddTotalCollateral(val.WeightedPnl); err != nil {
			return nil, err
		}
		calc.TotalPerpPnl = fpmath.Add(calc.TotalPerpPnl, val.WeightedPnl)

		// Liability counting follows the position, not the requirement: a
		// negative quote balance constrains margin even at zero worst-case
		// base exposure.
		if pos.HasLiability() {
			calc.AddPerpLiability()
			calc.UpdateWithPerpIsolatedLiability(mk.ContractTier == market.ContractTierIsolated)
		}

		if val.MarginRequirement.Sign() > 0 {
			if err := calc.AddMarginRequirement(
				val.MarginRequirement, val.WorstCaseLiabilityValue, PerpMarketID(mk.MarketIndex),
			); err != nil {
				return nil, err
			}
			calc.TotalPerpLiabilityValue = fpmath.Add(
				calc.TotalPerpLiabilityValue, val.WorstCaseLiabilityValue)

			if ctx.TracksOpenOrdersFraction() {
				if err := calc.AddOpenOrdersMarginRequirement(val.OpenOrderMarginRequirement); err != nil {
					return nil, err
				}
			}
		}
	}

	if err := calc.ValidateNumSpotLiabilities(); err != nil {
		return nil, err
	}

	return calc, nil
}

// MeetsInitialMarginRequirement is the standard pre-trade solvency gate.
func MeetsInitialMarginRequirement(
	user *account.User,
	perps *market.PerpMarketMap,
	spots *market.SpotMarketMap,
	oracles *oracle.Map,
) (bool, error) {
	calc, err := CalculateMarginRequirementAndTotalCollateral(
		user, perps, spots, oracles, StandardContext(Initial).WithStrict())
	if err != nil {
		return false, err
	}
	return calc.MeetsMarginRequirement(), nil
}

// MeetsMaintenanceMarginRequirement is the liquidation-eligibility gate.
func MeetsMaintenanceMarginRequirement(
	user *account.User,
	perps *market.PerpMarketMap,
	spots *market.SpotMarketMap,
	oracles *oracle.Map,
) (bool, error) {
	calc, err := CalculateMarginRequirementAndTotalCollateral(
		user, perps, spots, oracles, StandardContext(Maintenance))
	if err != nil {
		return false, err
	}
	return calc.MeetsMarginRequirement(), nil
}
