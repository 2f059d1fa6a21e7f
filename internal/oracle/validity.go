package oracle

import (
	"math/big"

	fpmath "RiskEngine/internal/math"
)

// Validity classifies one oracle sample against the guard rails. Tags are
// ordered worst-first; classification returns the worst applicable tag.
type Validity int32

const (
	ValidityNonPositive Validity = iota
	ValidityTooVolatile
	ValidityTooUncertain
	ValidityStaleForMargin
	ValidityInsufficientDataPoints
	ValidityStaleForAMM
	ValidityValid
)

func (v Validity) String() string {
	switch v {
	case ValidityNonPositive:
		return "NonPositive"
	case ValidityTooVolatile:
		return "TooVolatile"
	case ValidityTooUncertain:
		return "TooUncertain"
	case ValidityStaleForMargin:
		return "StaleForMargin"
	case ValidityInsufficientDataPoints:
		return "InsufficientDataPoints"
	case ValidityStaleForAMM:
		return "StaleForAMM"
	case ValidityValid:
		return "Valid"
	default:
		return "Unknown"
	}
}

// Action is the consumer a validity tag is checked against. Different
// consumers tolerate different degradations.
type Action int32

const (
	ActionFillOrderAmm Action = iota
	ActionFillOrderMatch
	ActionUpdateFunding
	ActionOracleOrderPrice
	ActionMarginCalc
	ActionTriggerOrder
	ActionSettlePnl
	ActionLiquidate
	ActionUpdateTwap
	ActionUpdateAMMCurve
)

func (a Action) String() string {
	switch a {
	case ActionFillOrderAmm:
		return "FillOrderAmm"
	case ActionFillOrderMatch:
		return "FillOrderMatch"
	case ActionUpdateFunding:
		return "UpdateFunding"
	case ActionOracleOrderPrice:
		return "OracleOrderPrice"
	case ActionMarginCalc:
		return "MarginCalc"
	case ActionTriggerOrder:
		return "TriggerOrder"
	case ActionSettlePnl:
		return "SettlePnl"
	case ActionLiquidate:
		return "Liquidate"
	case ActionUpdateTwap:
		return "UpdateTwap"
	case ActionUpdateAMMCurve:
		return "UpdateAMMCurve"
	default:
		return "Unknown"
	}
}

// GuardRails bounds staleness, volatility, and confidence for oracle
// classification. One instance is fixed per calculation.
type GuardRails struct {
	TooVolatileRatio          int64
	ConfidenceIntervalMaxSize uint64
	SlotsBeforeStaleForAMM    int64
	SlotsBeforeStaleForMargin int64
}

// DefaultGuardRails mirrors the production state configuration.
func DefaultGuardRails() GuardRails {
	return GuardRails{
		TooVolatileRatio:          5,
		ConfidenceIntervalMaxSize: 20_000,
		SlotsBeforeStaleForAMM:    10,
		SlotsBeforeStaleForMargin: 120,
	}
}

// percentagePrecision scales the confidence fraction of price.
const percentagePrecision int64 = 1_000_000

// ClassifyValidity produces the worst applicable tag for a sample.
// twap is the staleness/volatility reference price (5-minute TWAP) and
// maxConfMultiplier the per-market widening of the confidence bound.
func ClassifyValidity(sample PriceData, twap int64, rails GuardRails, maxConfMultiplier uint64) Validity {
	if sample.Price <= 0 {
		return ValidityNonPositive
	}

	if twapDeviationExceeds(sample.Price, twap, rails.TooVolatileRatio) {
		return ValidityTooVolatile
	}

	if confidenceExceeds(sample, rails.ConfidenceIntervalMaxSize, maxConfMultiplier) {
		return ValidityTooUncertain
	}

	if sample.Delay > rails.SlotsBeforeStaleForMargin {
		return ValidityStaleForMargin
	}

	if !sample.HasSufficientDataPoints {
		return ValidityInsufficientDataPoints
	}

	if sample.Delay > rails.SlotsBeforeStaleForAMM {
		return ValidityStaleForAMM
	}

	return ValidityValid
}

// twapDeviationExceeds reports |price - twap| / max(|twap|, 1) > ratio.
func twapDeviationExceeds(price, twap, ratio int64) bool {
	diff := fpmath.Abs(fpmath.Sub(fpmath.BN(price), fpmath.BN(twap)))
	ref := fpmath.Max(fpmath.Abs(fpmath.BN(twap)), fpmath.One)
	// diff > ratio * ref, rearranged to avoid division.
	return diff.Cmp(fpmath.Mul(fpmath.BN(ratio), ref)) > 0
}

// confidenceExceeds reports conf as a fraction of price breaching the
// widened guard rail.
func confidenceExceeds(sample PriceData, maxSize, multiplier uint64) bool {
	if multiplier == 0 {
		multiplier = 1
	}
	confPct := new(big.Int).Div(
		fpmath.Mul(fpmath.BNU(sample.Confidence), fpmath.BN(percentagePrecision)),
		fpmath.BN(sample.Price),
	)
	limit := fpmath.Mul(fpmath.BNU(maxSize), fpmath.BNU(multiplier))
	return confPct.Cmp(limit) > 0
}

// SatisfiesAction reports whether a tag is acceptable to the given
// consumer. A nil action requires full validity.
func SatisfiesAction(v Validity, action *Action) bool {
	if action == nil {
		return v == ValidityValid
	}

	switch *action {
	case ActionFillOrderAmm:
		return v == ValidityValid
	case ActionMarginCalc:
		return v != ValidityNonPositive &&
			v != ValidityTooVolatile &&
			v != ValidityTooUncertain &&
			v != ValidityStaleForMargin
	case ActionFillOrderMatch, ActionOracleOrderPrice:
		return v != ValidityNonPositive &&
			v != ValidityTooVolatile &&
			v != ValidityTooUncertain
	case ActionLiquidate, ActionTriggerOrder:
		return v != ValidityNonPositive && v != ValidityTooVolatile
	case ActionSettlePnl, ActionUpdateFunding:
		return v != ValidityNonPositive &&
			v != ValidityTooVolatile &&
			v != ValidityTooUncertain
	case ActionUpdateTwap, ActionUpdateAMMCurve:
		return v != ValidityNonPositive
	default:
		return v == ValidityValid
	}
}
