package margin

import (
	"RiskEngine/internal/market"
)

// RequirementType selects the margin regime for one calculation.
type RequirementType int32

const (
	// Initial is the strictest regime, gating new risk.
	Initial RequirementType = iota
	// Fill is checked at trade fill time: initial tables without the
	// user's custom ratio overlay.
	Fill
	// Maintenance is the liquidation threshold.
	Maintenance
)

func (t RequirementType) String() string {
	switch t {
	case Initial:
		return "Initial"
	case Fill:
		return "Fill"
	case Maintenance:
		return "Maintenance"
	default:
		return "Unknown"
	}
}

// WeightCategory maps the regime onto the market weight tables. Fill
// shares the initial tables.
func (t RequirementType) WeightCategory() market.WeightCategory {
	if t == Maintenance {
		return market.WeightMaintenance
	}
	return market.WeightInitial
}

// MarketType distinguishes spot and perp market identifiers.
type MarketType int32

const (
	MarketTypeSpot MarketType = iota
	MarketTypePerp
)

func (t MarketType) String() string {
	if t == MarketTypePerp {
		return "Perp"
	}
	return "Spot"
}

// MarketIdentifier names one market for requirement attribution.
type MarketIdentifier struct {
	Type  MarketType
	Index uint16
}

// SpotMarketID and PerpMarketID are identifier constructors.
func SpotMarketID(index uint16) MarketIdentifier {
	return MarketIdentifier{Type: MarketTypeSpot, Index: index}
}

func PerpMarketID(index uint16) MarketIdentifier {
	return MarketIdentifier{Type: MarketTypePerp, Index: index}
}

// Mode selects between the standard margin check and the liquidation
// variant with shortage attribution.
type Mode int32

const (
	ModeStandard Mode = iota
	ModeLiquidation
)

// PerpFuelDelta is a hypothetical base-amount change applied to one perp
// market during fuel accrual only.
type PerpFuelDelta struct {
	MarketIndex uint16
	Delta       int64
}

// SpotFuelDelta is the spot counterpart (token precision).
type SpotFuelDelta struct {
	MarketIndex uint16
	Delta       int64
}

// Context is the read-only configuration of one calculation.
type Context struct {
	MarginType RequirementType
	Mode       Mode

	// TrackOpenOrders (standard mode) accumulates the open-order share of
	// the requirement separately.
	TrackOpenOrders bool

	// MarketToTrack (liquidation mode) designates the market whose
	// requirement share feeds shortage attribution.
	MarketToTrack *MarketIdentifier

	// Strict switches valuation to conservative two-price reduction.
	Strict bool

	// MarginBuffer (margin precision) pads the requirement for the
	// liquidation-exit check. Zero disables the buffered figure.
	MarginBuffer uint64

	// Fuel scalars. A zero numerator disables accrual entirely.
	FuelBonusNumerator int64
	FuelBonus          uint64

	FuelPerpDelta  *PerpFuelDelta
	FuelSpotDeltas [2]*SpotFuelDelta
}

// StandardContext builds a standard-mode context for a regime.
func StandardContext(marginType RequirementType) Context {
	return Context{MarginType: marginType, Mode: ModeStandard}
}

// LiquidationContext builds a liquidation-mode maintenance check with the
// given buffer.
func LiquidationContext(marginBuffer uint64) Context {
	return Context{
		MarginType:   Maintenance,
		Mode:         ModeLiquidation,
		MarginBuffer: marginBuffer,
	}
}

// WithStrict returns a copy with strict pricing enabled.
func (c Context) WithStrict() Context {
	c.Strict = true
	return c
}

// WithBuffer returns a copy with the margin buffer set.
func (c Context) WithBuffer(buffer uint64) Context {
	c.MarginBuffer = buffer
	return c
}

// TrackingOpenOrders returns a copy accumulating the open-order fraction.
func (c Context) TrackingOpenOrders() Context {
	c.TrackOpenOrders = true
	return c
}

// TrackingMarket returns a copy attributing the given market's share.
func (c Context) TrackingMarket(id MarketIdentifier) Context {
	c.MarketToTrack = &id
	return c
}

// WithFuelBonus returns a copy with fuel accrual enabled.
func (c Context) WithFuelBonus(numerator int64, bonus uint64) Context {
	c.FuelBonusNumerator = numerator
	c.FuelBonus = bonus
	return c
}

// TracksOpenOrdersFraction reports whether the open-order share is
// accumulated: standard mode with tracking enabled.
func (c Context) TracksOpenOrdersFraction() bool {
	return c.Mode == ModeStandard && c.TrackOpenOrders
}

// TracksMarket reports whether id is the designated tracked market.
func (c Context) TracksMarket(id MarketIdentifier) bool {
	return c.MarketToTrack != nil && *c.MarketToTrack == id
}
