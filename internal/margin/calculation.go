package margin

import (
	"math/big"

	"RiskEngine/internal/errs"
	fpmath "RiskEngine/internal/math"
)

// Calculation accumulates per-position contributions into the engine's
// output. All arithmetic is checked: overflow past the logical 128-bit
// field widths aborts the calculation.
type Calculation struct {
	Context Context

	// TotalCollateral is signed (i128): weighted assets plus weighted PnL
	// minus nothing — liabilities accrue on the requirement side.
	TotalCollateral *big.Int

	// MarginRequirement is unsigned (u128).
	MarginRequirement *big.Int

	// MarginRequirementPlusBuffer pads each liability by the context's
	// margin buffer; only maintained when the buffer is non-zero.
	MarginRequirementPlusBuffer *big.Int

	NumSpotLiabilities uint8
	NumPerpLiabilities uint8

	// AllOraclesValid ANDs the margin-calc acceptance of every oracle
	// consulted (with the perp-side exception in the entry point).
	AllOraclesValid bool

	WithSpotIsolatedLiability bool
	WithPerpIsolatedLiability bool

	// Side totals for telemetry consumers; not part of any invariant.
	TotalSpotAssetValue     *big.Int
	TotalSpotLiabilityValue *big.Int
	TotalPerpLiabilityValue *big.Int
	TotalPerpPnl            *big.Int

	OpenOrdersMarginRequirement    *big.Int
	TrackedMarketMarginRequirement *big.Int

	// Fuel counters saturate at the uint32 ceiling.
	FuelDeposits  uint32
	FuelBorrows   uint32
	FuelPositions uint32
}

// NewCalculation returns a zeroed accumulator for the context.
func NewCalculation(ctx Context) *Calculation {
	return &Calculation{
		Context:                        ctx,
		TotalCollateral:                fpmath.BN(0),
		MarginRequirement:              fpmath.BN(0),
		MarginRequirementPlusBuffer:    fpmath.BN(0),
		AllOraclesValid:                true,
		TotalSpotAssetValue:            fpmath.BN(0),
		TotalSpotLiabilityValue:        fpmath.BN(0),
		TotalPerpLiabilityValue:        fpmath.BN(0),
		TotalPerpPnl:                   fpmath.BN(0),
		OpenOrdersMarginRequirement:    fpmath.BN(0),
		TrackedMarketMarginRequirement: fpmath.BN(0),
	}
}

// AddTotalCollateral folds a signed contribution; the sum may cross zero.
func (c *Calculation) AddTotalCollateral(v *big.Int) error {
	sum, err := fpmath.CheckI128(fpmath.Add(c.TotalCollateral, v))
	if err != nil {
		return err
	}
	c.TotalCollateral = sum
	return nil
}

// AddMarginRequirement adds req to the requirement; with a buffer active,
// the buffered figure additionally grows by liabilityValue scaled by the
// buffer; a tracked-market match also accrues to the tracked share.
func (c *Calculation) AddMarginRequirement(req, liabilityValue *big.Int, id MarketIdentifier) error {
	if req.Sign() < 0 || liabilityValue.Sign() < 0 {
		return errs.New(errs.CodeInvalidMarginCalculation,
			"negative requirement contribution: req=%s liability=%s", req, liabilityValue)
	}

	sum, err := fpmath.CheckU128(fpmath.Add(c.MarginRequirement, req))
	if err != nil {
		return err
	}
	c.MarginRequirement = sum

	if c.Context.MarginBuffer > 0 {
		pad := new(big.Int).Div(
			fpmath.Mul(liabilityValue, fpmath.BNU(c.Context.MarginBuffer)),
			fpmath.MarginPrecisionBig,
		)
		buffered, err := fpmath.CheckU128(
			fpmath.Add(c.MarginRequirementPlusBuffer, fpmath.Add(req, pad)),
		)
		if err != nil {
			return err
		}
		c.MarginRequirementPlusBuffer = buffered
	}

	if c.Context.TracksMarket(id) {
		tracked, err := fpmath.CheckU128(fpmath.Add(c.TrackedMarketMarginRequirement, req))
		if err != nil {
			return err
		}
		c.TrackedMarketMarginRequirement = tracked
	}

	return nil
}

// AddOpenOrdersMarginRequirement accrues the open-order share.
func (c *Calculation) AddOpenOrdersMarginRequirement(v *big.Int) error {
	sum, err := fpmath.CheckU128(fpmath.Add(c.OpenOrdersMarginRequirement, v))
	if err != nil {
		return err
	}
	c.OpenOrdersMarginRequirement = sum
	return nil
}

// AddSpotLiability and AddPerpLiability are monotone counters.
func (c *Calculation) AddSpotLiability() { c.NumSpotLiabilities++ }

func (c *Calculation) AddPerpLiability() { c.NumPerpLiabilities++ }

// UpdateAllOraclesValid AND-assigns.
func (c *Calculation) UpdateAllOraclesValid(valid bool) {
	c.AllOraclesValid = c.AllOraclesValid && valid
}

// UpdateWithSpotIsolatedLiability OR-assigns; the flag never un-sets
// within one pass.
func (c *Calculation) UpdateWithSpotIsolatedLiability(isolated bool) {
	c.WithSpotIsolatedLiability = c.WithSpotIsolatedLiability || isolated
}

// UpdateWithPerpIsolatedLiability OR-assigns.
func (c *Calculation) UpdateWithPerpIsolatedLiability(isolated bool) {
	c.WithPerpIsolatedLiability = c.WithPerpIsolatedLiability || isolated
}

// MeetsMarginRequirement reports total collateral covering the requirement.
func (c *Calculation) MeetsMarginRequirement() bool {
	return c.TotalCollateral.Cmp(c.MarginRequirement) >= 0
}

// PositionsMeetMarginRequirement ignores the open-order share: existing
// positions alone must be covered.
func (c *Calculation) PositionsMeetMarginRequirement() bool {
	return c.TotalCollateral.Cmp(fpmath.Sub(c.MarginRequirement, c.OpenOrdersMarginRequirement)) >= 0
}

// CanExitLiquidation compares collateral against the buffered requirement.
// Calling it outside liquidation mode is a usage error.
func (c *Calculation) CanExitLiquidation() (bool, error) {
	if c.Context.Mode != ModeLiquidation {
		return false, errs.New(errs.CodeInvalidMarginCalculation,
			"can_exit_liquidation requires liquidation mode")
	}
	return c.TotalCollateral.Cmp(c.MarginRequirementPlusBuffer) >= 0, nil
}

// MarginShortage is the gap to the buffered requirement, zero when
// covered. Requires an active buffer.
func (c *Calculation) MarginShortage() (*big.Int, error) {
	if c.Context.MarginBuffer == 0 {
		return nil, errs.New(errs.CodeInvalidMarginCalculation,
			"margin_shortage requires a margin buffer")
	}
	if c.TotalCollateral.Cmp(c.MarginRequirementPlusBuffer) >= 0 {
		return fpmath.BN(0), nil
	}
	return fpmath.Abs(fpmath.Sub(c.MarginRequirementPlusBuffer, c.TotalCollateral)), nil
}

// TrackedMarketMarginShortage apportions a total shortage to the tracked
// market by its requirement share. Zero requirement yields zero.
func (c *Calculation) TrackedMarketMarginShortage(totalShortage *big.Int) (*big.Int, error) {
	if c.Context.MarketToTrack == nil {
		return nil, errs.New(errs.CodeInvalidMarginCalculation,
			"tracked_market_margin_shortage requires a tracked market")
	}
	if c.MarginRequirement.Sign() == 0 {
		return fpmath.BN(0), nil
	}
	return fpmath.Div(
		fpmath.Mul(totalShortage, c.TrackedMarketMarginRequirement),
		c.MarginRequirement,
	)
}

// FreeCollateral is max(0, total_collateral - margin_requirement).
func (c *Calculation) FreeCollateral() *big.Int {
	free := fpmath.Sub(c.TotalCollateral, c.MarginRequirement)
	if free.Sign() < 0 {
		return fpmath.BN(0)
	}
	return free
}

// ValidateNumSpotLiabilities enforces the cross-position invariant: a spot
// liability that contributes zero margin is a bug.
func (c *Calculation) ValidateNumSpotLiabilities() error {
	if c.NumSpotLiabilities > 0 && c.MarginRequirement.Sign() <= 0 {
		return errs.New(errs.CodeInvalidMarginRatio,
			"%d spot liabilities with zero margin requirement", c.NumSpotLiabilities)
	}
	return nil
}
