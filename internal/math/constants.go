package math

import "math/big"

// Precision scale factors. All are powers of ten; no floating point
// appears anywhere in value-affecting code.
const (
	// PricePrecision scales oracle prices: 1_000_000 = 1.0 USD.
	PricePrecision int64 = 1_000_000

	// QuotePrecision scales quote-asset (USD) values.
	QuotePrecision int64 = 1_000_000

	// MarginPrecision scales margin ratios: 10_000 = 100%.
	MarginPrecision int64 = 10_000

	// SpotWeightPrecision scales spot asset/liability weights: 10_000 = 1.0.
	SpotWeightPrecision int64 = 10_000

	// SpotImfPrecision scales imf factors.
	SpotImfPrecision int64 = 1_000_000

	// AMMReservePrecision scales perp base asset amounts: 1e9 = 1 contract.
	AMMReservePrecision int64 = 1_000_000_000

	// SpotBalancePrecision scales spot scaled balances.
	SpotBalancePrecision int64 = 1_000_000_000

	// SpotCumulativeInterestPrecision scales the deposit/borrow interest
	// indices applied to scaled balances.
	SpotCumulativeInterestPrecision int64 = 10_000_000_000

	// MaxPredictionPrice is the upper settlement bound of a prediction
	// market contract, in price precision (resolution is 0 or 1).
	MaxPredictionPrice int64 = PricePrecision

	// OpenOrderMarginRequirement is the fixed per-order margin charge,
	// in quote precision (0.01 USD per open order).
	OpenOrderMarginRequirement int64 = QuotePrecision / 100

	// FuelDenominator normalizes fuel accrual products back to counter units.
	FuelDenominator int64 = 10_000_000_000
)

// Big-number views of the constants above, for call sites already working
// in big.Int space.
var (
	Zero = big.NewInt(0)
	One  = big.NewInt(1)

	PricePrecisionBig        = big.NewInt(PricePrecision)
	QuotePrecisionBig        = big.NewInt(QuotePrecision)
	MarginPrecisionBig       = big.NewInt(MarginPrecision)
	SpotWeightPrecisionBig   = big.NewInt(SpotWeightPrecision)
	SpotImfPrecisionBig      = big.NewInt(SpotImfPrecision)
	AMMReservePrecisionBig   = big.NewInt(AMMReservePrecision)
	SpotBalancePrecisionBig  = big.NewInt(SpotBalancePrecision)
	CumulativeInterestBig    = big.NewInt(SpotCumulativeInterestPrecision)
	MaxPredictionPriceBig    = big.NewInt(MaxPredictionPrice)
	FuelDenominatorBig       = big.NewInt(FuelDenominator)
	OpenOrderMarginChargeBig = big.NewInt(OpenOrderMarginRequirement)
)

// TokenPrecision returns 10^decimals as a big.Int.
func TokenPrecision(decimals uint32) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
}
