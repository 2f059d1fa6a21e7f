package math

import (
	"math/big"

	"RiskEngine/internal/errs"
)

// The accumulated integer state is 128-bit in the wire model. Intermediate
// products are computed in big.Int (which cannot overflow) and results are
// range-checked back into 128-bit bounds, so any overflow of the logical
// type surfaces as a MathError instead of silent wraparound.
var (
	maxU128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	maxI128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	minI128 = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
)

// BN returns a fresh big.Int holding v.
func BN(v int64) *big.Int { return big.NewInt(v) }

// BNU returns a fresh big.Int holding the unsigned v.
func BNU(v uint64) *big.Int { return new(big.Int).SetUint64(v) }

// Clone copies v.
func Clone(v *big.Int) *big.Int { return new(big.Int).Set(v) }

// Add returns a + b in a fresh big.Int.
func Add(a, b *big.Int) *big.Int { return new(big.Int).Add(a, b) }

// Sub returns a - b in a fresh big.Int.
func Sub(a, b *big.Int) *big.Int { return new(big.Int).Sub(a, b) }

// Mul returns a * b in a fresh big.Int.
func Mul(a, b *big.Int) *big.Int { return new(big.Int).Mul(a, b) }

// Neg returns -a in a fresh big.Int.
func Neg(a *big.Int) *big.Int { return new(big.Int).Neg(a) }

// Abs returns |a| in a fresh big.Int.
func Abs(a *big.Int) *big.Int { return new(big.Int).Abs(a) }

// Min returns the smaller of a and b (shared, not copied).
func Min(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

// Max returns the larger of a and b (shared, not copied).
func Max(a, b *big.Int) *big.Int {
	if a.Cmp(b) >= 0 {
		return a
	}
	return b
}

// Div returns a / b truncated toward zero, or MathError on b == 0.
func Div(a, b *big.Int) (*big.Int, error) {
	if b.Sign() == 0 {
		return nil, errs.NewAt(1, errs.CodeMathError, "division by zero")
	}
	return new(big.Int).Quo(a, b), nil
}

// DivFloor returns a / b rounded toward negative infinity.
// Deposit-side token amounts round down so collateral is never overstated.
func DivFloor(a, b *big.Int) (*big.Int, error) {
	if b.Sign() == 0 {
		return nil, errs.NewAt(1, errs.CodeMathError, "division by zero")
	}
	q, m := new(big.Int).QuoRem(a, b, new(big.Int))
	if m.Sign() != 0 && (a.Sign() < 0) != (b.Sign() < 0) {
		q.Sub(q, One)
	}
	return q, nil
}

// DivCeil returns a / b rounded toward positive infinity.
// Borrow-side token amounts round up so liabilities are never understated.
func DivCeil(a, b *big.Int) (*big.Int, error) {
	if b.Sign() == 0 {
		return nil, errs.NewAt(1, errs.CodeMathError, "division by zero")
	}
	q, m := new(big.Int).QuoRem(a, b, new(big.Int))
	if m.Sign() != 0 && (a.Sign() < 0) == (b.Sign() < 0) {
		q.Add(q, One)
	}
	return q, nil
}

// Sqrt returns the integer square root of a, or MathError for negative a.
func Sqrt(a *big.Int) (*big.Int, error) {
	if a.Sign() < 0 {
		return nil, errs.NewAt(1, errs.CodeMathError, "square root of negative value")
	}
	return new(big.Int).Sqrt(a), nil
}

// CheckU128 verifies v fits an unsigned 128-bit value.
func CheckU128(v *big.Int) (*big.Int, error) {
	if v.Sign() < 0 || v.Cmp(maxU128) > 0 {
		return nil, errs.NewAt(1, errs.CodeMathError, "u128 overflow: %s", v.String())
	}
	return v, nil
}

// CheckI128 verifies v fits a signed 128-bit value.
func CheckI128(v *big.Int) (*big.Int, error) {
	if v.Cmp(minI128) < 0 || v.Cmp(maxI128) > 0 {
		return nil, errs.NewAt(1, errs.CodeMathError, "i128 overflow: %s", v.String())
	}
	return v, nil
}
