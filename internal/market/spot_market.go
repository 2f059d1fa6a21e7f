package market

import (
	"math/big"

	"RiskEngine/internal/errs"
	fpmath "RiskEngine/internal/math"
	"RiskEngine/internal/oracle"
)

// QuoteSpotMarketIndex is the market index of the numeraire (USD) spot
// market. Quote balances bypass the worst-case order simulation.
const QuoteSpotMarketIndex uint16 = 0

// BalanceType distinguishes deposit and borrow scaled balances.
type BalanceType int32

const (
	BalanceTypeDeposit BalanceType = iota
	BalanceTypeBorrow
)

func (b BalanceType) String() string {
	switch b {
	case BalanceTypeDeposit:
		return "Deposit"
	case BalanceTypeBorrow:
		return "Borrow"
	default:
		return "Unknown"
	}
}

// SpotMarket holds the per-market parameters the risk pass reads. The
// engine never mutates a market.
type SpotMarket struct {
	MarketIndex uint16
	Name        string
	Oracle      oracle.Key
	AssetTier   AssetTier
	Decimals    uint32

	// Weight tables, spot-weight precision (10_000 = 1.0).
	InitialAssetWeight         uint32
	MaintenanceAssetWeight     uint32
	InitialLiabilityWeight     uint32
	MaintenanceLiabilityWeight uint32

	// ImfFactor (imf precision) raises effective liability weight and
	// lowers effective asset weight as position size grows.
	ImfFactor uint32

	// Interest indices, cumulative-interest precision. Scaled balances are
	// multiplied by these to recover token amounts.
	CumulativeDepositInterest uint64
	CumulativeBorrowInterest  uint64

	// HistoricalOracleTwap5Min backs strict pricing and staleness checks.
	HistoricalOracleTwap5Min int64

	MaxConfidenceIntervalMultiplier uint64

	FuelBoostDeposits uint8
	FuelBoostBorrows  uint8
}

// NewSpotMarket returns a market with neutral weights and interest indices
// at their initial value. Callers override the weight tables.
func NewSpotMarket(index uint16, name string, oracleKey oracle.Key, decimals uint32) *SpotMarket {
	return &SpotMarket{
		MarketIndex:                     index,
		Name:                            name,
		Oracle:                          oracleKey,
		AssetTier:                       AssetTierCollateral,
		Decimals:                        decimals,
		InitialAssetWeight:              uint32(fpmath.SpotWeightPrecision),
		MaintenanceAssetWeight:          uint32(fpmath.SpotWeightPrecision),
		InitialLiabilityWeight:          uint32(fpmath.SpotWeightPrecision),
		MaintenanceLiabilityWeight:      uint32(fpmath.SpotWeightPrecision),
		CumulativeDepositInterest:       uint64(fpmath.SpotCumulativeInterestPrecision),
		CumulativeBorrowInterest:        uint64(fpmath.SpotCumulativeInterestPrecision),
		MaxConfidenceIntervalMultiplier: 1,
	}
}

// TokenAmount recovers the token amount (market decimals precision) from a
// scaled balance. Deposits round down, borrows round up, so rounding never
// flatters the account.
func (m *SpotMarket) TokenAmount(scaledBalance uint64, balanceType BalanceType) (*big.Int, error) {
	scaled := fpmath.BNU(scaledBalance)
	switch balanceType {
	case BalanceTypeDeposit:
		return fpmath.DivFloor(
			fpmath.Mul(scaled, fpmath.BNU(m.CumulativeDepositInterest)),
			fpmath.CumulativeInterestBig,
		)
	case BalanceTypeBorrow:
		return fpmath.DivCeil(
			fpmath.Mul(scaled, fpmath.BNU(m.CumulativeBorrowInterest)),
			fpmath.CumulativeInterestBig,
		)
	default:
		return nil, errs.New(errs.CodeInvalidSpotPosition, "unknown balance type %d", balanceType)
	}
}

// SignedTokenAmount applies the balance-type sign: borrows are negative.
func SignedTokenAmount(amount *big.Int, balanceType BalanceType) *big.Int {
	if balanceType == BalanceTypeBorrow {
		return fpmath.Neg(amount)
	}
	return fpmath.Clone(amount)
}

// TokenValue prices a signed token amount in quote precision at the given
// price, rounding toward negative infinity on both sides.
func (m *SpotMarket) TokenValue(tokenAmount *big.Int, price int64) (*big.Int, error) {
	return fpmath.DivFloor(
		fpmath.Mul(tokenAmount, fpmath.BN(price)),
		fpmath.TokenPrecision(m.Decimals),
	)
}

// StrictTokenValue prices a signed token amount with the side-dependent
// conservative price.
func (m *SpotMarket) StrictTokenValue(tokenAmount *big.Int, strictPrice oracle.StrictOraclePrice) (*big.Int, error) {
	return m.TokenValue(tokenAmount, strictPrice.PriceFor(tokenAmount))
}

// AssetWeight returns the effective asset weight (spot-weight precision)
// for a deposit of the given token size. The imf discount applies to the
// initial table only.
func (m *SpotMarket) AssetWeight(size *big.Int, category WeightCategory) (*big.Int, error) {
	switch category {
	case WeightMaintenance:
		return fpmath.BN(int64(m.MaintenanceAssetWeight)), nil
	default:
		return SizeDiscountAssetWeight(size, m.ImfFactor, fpmath.BN(int64(m.InitialAssetWeight)))
	}
}

// LiabilityWeight returns the effective liability weight (spot-weight
// precision) for a borrow of the given token size.
func (m *SpotMarket) LiabilityWeight(size *big.Int, category WeightCategory) (*big.Int, error) {
	switch category {
	case WeightMaintenance:
		return fpmath.BN(int64(m.MaintenanceLiabilityWeight)), nil
	default:
		return SizePremiumLiabilityWeight(
			size, m.ImfFactor,
			fpmath.BN(int64(m.InitialLiabilityWeight)),
			fpmath.SpotWeightPrecisionBig,
		)
	}
}

// OpenOrderMarginRequirement is the flat per-order charge for resting spot
// orders, in quote precision.
func (m *SpotMarket) OpenOrderMarginRequirement(openOrders uint8) *big.Int {
	return fpmath.Mul(fpmath.BN(int64(openOrders)), fpmath.OpenOrderMarginChargeBig)
}

// Validate checks parameter sanity on ingest. Weight tables must bracket
// 1.0 from the correct sides, mirroring risk-parameter validation rules.
func (m *SpotMarket) Validate() error {
	w := uint32(fpmath.SpotWeightPrecision)
	if m.Decimals == 0 || m.Decimals > 18 {
		return errs.New(errs.CodeUnableToLoadSpotMarketAccount, "market %d: decimals %d out of range", m.MarketIndex, m.Decimals)
	}
	if m.InitialAssetWeight > w || m.MaintenanceAssetWeight > w {
		return errs.New(errs.CodeUnableToLoadSpotMarketAccount, "market %d: asset weight above 1.0", m.MarketIndex)
	}
	if m.InitialLiabilityWeight < w || m.MaintenanceLiabilityWeight < w {
		return errs.New(errs.CodeUnableToLoadSpotMarketAccount, "market %d: liability weight below 1.0", m.MarketIndex)
	}
	if m.MaintenanceAssetWeight < m.InitialAssetWeight {
		return errs.New(errs.CodeUnableToLoadSpotMarketAccount, "market %d: maintenance asset weight below initial", m.MarketIndex)
	}
	if m.MaintenanceLiabilityWeight > m.InitialLiabilityWeight {
		return errs.New(errs.CodeUnableToLoadSpotMarketAccount, "market %d: maintenance liability weight above initial", m.MarketIndex)
	}
	if m.CumulativeDepositInterest == 0 || m.CumulativeBorrowInterest == 0 {
		return errs.New(errs.CodeUnableToLoadSpotMarketAccount, "market %d: zero interest index", m.MarketIndex)
	}
	return nil
}
