package margin

import (
	"math/big"

	"RiskEngine/internal/account"
	"RiskEngine/internal/market"
	fpmath "RiskEngine/internal/math"
)

// WithPerpFuelDelta returns a copy applying a hypothetical base change to
// one perp market during fuel accrual.
func (c Context) WithPerpFuelDelta(marketIndex uint16, delta int64) Context {
	c.FuelPerpDelta = &PerpFuelDelta{MarketIndex: marketIndex, Delta: delta}
	return c
}

// WithSpotFuelDelta returns a copy applying a hypothetical token change to
// one spot market during fuel accrual. At most two markets can carry a
// delta; a third is dropped.
func (c Context) WithSpotFuelDelta(marketIndex uint16, delta int64) Context {
	d := &SpotFuelDelta{MarketIndex: marketIndex, Delta: delta}
	for i := range c.FuelSpotDeltas {
		if c.FuelSpotDeltas[i] == nil {
			c.FuelSpotDeltas[i] = d
			return c
		}
	}
	return c
}

// AccruesFuel reports whether the calculation accrues fuel at all.
func (c Context) AccruesFuel() bool { return c.FuelBonusNumerator > 0 }

// fuelBonus scales a notional value by the market boost and the global
// numerator, floored against the fuel denominator.
func fuelBonus(value *big.Int, boost uint8, numerator int64) *big.Int {
	if boost == 0 || value.Sign() == 0 {
		return fpmath.BN(0)
	}
	scaled := fpmath.Mul(fpmath.Mul(fpmath.Abs(value), fpmath.BN(int64(boost))), fpmath.BN(numerator))
	return new(big.Int).Quo(scaled, fpmath.FuelDenominatorBig)
}

// AccrueSpotFuel credits deposit or borrow fuel for one spot position,
// valuing the signed token amount (plus any configured delta) at the live
// price.
func (c *Calculation) AccrueSpotFuel(mk *market.SpotMarket, signedTokenAmount *big.Int, price int64) error {
	if !c.Context.AccruesFuel() {
		return nil
	}

	amount := fpmath.Clone(signedTokenAmount)
	for _, d := range c.Context.FuelSpotDeltas {
		if d != nil && d.MarketIndex == mk.MarketIndex {
			amount = fpmath.Add(amount, fpmath.BN(d.Delta))
		}
	}
	if amount.Sign() == 0 {
		return nil
	}

	value, err := mk.TokenValue(amount, price)
	if err != nil {
		return err
	}

	if amount.Sign() > 0 {
		bonus := fuelBonus(value, mk.FuelBoostDeposits, c.Context.FuelBonusNumerator)
		c.FuelDeposits = fpmath.SaturatingAddU32(c.FuelDeposits, bonus)
	} else {
		bonus := fuelBonus(value, mk.FuelBoostBorrows, c.Context.FuelBonusNumerator)
		c.FuelBorrows = fpmath.SaturatingAddU32(c.FuelBorrows, bonus)
	}
	return nil
}

// AccruePerpFuel credits position fuel for one perp position, valuing the
// settled base (plus any configured delta) at the live price.
func (c *Calculation) AccruePerpFuel(pos *account.PerpPosition, mk *market.PerpMarket, price int64) {
	if !c.Context.AccruesFuel() {
		return
	}

	base := pos.SettledBase(mk.Amm)
	if d := c.Context.FuelPerpDelta; d != nil && d.MarketIndex == mk.MarketIndex {
		base = fpmath.Add(base, fpmath.BN(d.Delta))
	}
	if base.Sign() == 0 {
		return
	}

	value := perpBaseValue(base, price)
	bonus := fuelBonus(value, mk.FuelBoostPosition, c.Context.FuelBonusNumerator)
	c.FuelPositions = fpmath.SaturatingAddU32(c.FuelPositions, bonus)
}
