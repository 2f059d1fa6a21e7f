package market

import (
	"math/big"

	"RiskEngine/internal/errs"
	fpmath "RiskEngine/internal/math"
	"RiskEngine/internal/oracle"
)

// FundingRatePrecision scales the cumulative funding indices: quote
// precision per whole base unit, times 1e3 headroom.
const FundingRatePrecision int64 = 1_000_000_000

// AMMState is the slice of AMM bookkeeping the risk pass needs: funding
// indices, LP share accounting, and the 5-minute oracle TWAP. Curve and
// reserve state stay with the AMM engine.
type AMMState struct {
	CumulativeFundingRateLong  int64
	CumulativeFundingRateShort int64

	// Per-LP accounting, AMM reserve precision per share.
	BaseAssetAmountPerLP  int64
	QuoteAssetAmountPerLP int64

	HistoricalOracleTwap5Min int64
}

// PerpMarket holds the per-market parameters the risk pass reads.
type PerpMarket struct {
	MarketIndex  uint16
	Name         string
	ContractTier ContractTier
	ContractType ContractType
	Oracle       oracle.Key

	// QuoteSpotMarketIndex names the spot market the contract settles in.
	QuoteSpotMarketIndex uint16

	// Margin ratios, margin precision (10_000 = 100%).
	MarginRatioInitial     uint32
	MarginRatioMaintenance uint32

	// High-leverage variants; zero means the market has none.
	HighLeverageMarginRatioInitial     uint32
	HighLeverageMarginRatioMaintenance uint32

	ImfFactor uint32

	// Unrealized-PnL asset weights, spot-weight precision.
	UnrealizedPnlInitialAssetWeight     uint32
	UnrealizedPnlMaintenanceAssetWeight uint32

	MaxConfidenceIntervalMultiplier uint64

	FuelBoostPosition uint8

	Amm AMMState
}

// NewPerpMarket returns a perp market with conservative default ratios.
func NewPerpMarket(index uint16, name string, oracleKey oracle.Key) *PerpMarket {
	return &PerpMarket{
		MarketIndex:                         index,
		Name:                                name,
		ContractTier:                        ContractTierC,
		ContractType:                        ContractTypePerpetual,
		Oracle:                              oracleKey,
		QuoteSpotMarketIndex:                QuoteSpotMarketIndex,
		MarginRatioInitial:                  1_000,
		MarginRatioMaintenance:              500,
		UnrealizedPnlInitialAssetWeight:     uint32(fpmath.SpotWeightPrecision),
		UnrealizedPnlMaintenanceAssetWeight: uint32(fpmath.SpotWeightPrecision),
		MaxConfidenceIntervalMultiplier:     1,
	}
}

// IsPrediction reports whether the contract settles at the 0/1 bounds.
func (m *PerpMarket) IsPrediction() bool {
	return m.ContractType == ContractTypePrediction
}

// MarginRatio returns the effective margin ratio (margin precision) for a
// worst-case base size. High-leverage variants substitute when the user
// runs in high-leverage mode and the market defines them; the imf premium
// applies on top.
func (m *PerpMarket) MarginRatio(size *big.Int, category WeightCategory, highLeverageMode bool) (*big.Int, error) {
	var base uint32
	switch category {
	case WeightMaintenance:
		base = m.MarginRatioMaintenance
		if highLeverageMode && m.HighLeverageMarginRatioMaintenance > 0 {
			base = m.HighLeverageMarginRatioMaintenance
		}
	default:
		base = m.MarginRatioInitial
		if highLeverageMode && m.HighLeverageMarginRatioInitial > 0 {
			base = m.HighLeverageMarginRatioInitial
		}
	}

	return SizePremiumLiabilityWeight(size, m.ImfFactor, fpmath.BN(int64(base)), fpmath.MarginPrecisionBig)
}

// UnrealizedPnlAssetWeight returns the weight (spot-weight precision)
// applied to positive unrealized PnL before it counts as collateral.
func (m *PerpMarket) UnrealizedPnlAssetWeight(category WeightCategory) *big.Int {
	if category == WeightMaintenance {
		return fpmath.BN(int64(m.UnrealizedPnlMaintenanceAssetWeight))
	}
	return fpmath.BN(int64(m.UnrealizedPnlInitialAssetWeight))
}

// Validate checks parameter sanity on ingest.
func (m *PerpMarket) Validate() error {
	if m.MarginRatioMaintenance == 0 {
		return errs.New(errs.CodePerpMarketNotFound, "market %d: zero maintenance ratio", m.MarketIndex)
	}
	if m.MarginRatioInitial <= m.MarginRatioMaintenance {
		return errs.New(errs.CodePerpMarketNotFound,
			"market %d: initial ratio %d must exceed maintenance %d",
			m.MarketIndex, m.MarginRatioInitial, m.MarginRatioMaintenance)
	}
	if m.HighLeverageMarginRatioInitial > 0 &&
		m.HighLeverageMarginRatioInitial <= m.HighLeverageMarginRatioMaintenance {
		return errs.New(errs.CodePerpMarketNotFound,
			"market %d: high-leverage initial ratio must exceed maintenance", m.MarketIndex)
	}
	return nil
}
