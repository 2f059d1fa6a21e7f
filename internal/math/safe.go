package math

import (
	stdmath "math"
	"math/big"

	"RiskEngine/internal/errs"
)

// Checked casts out of big.Int space. Any truncation or sign change is a
// MathError raised at the caller's location.

// ToInt64 converts v, failing if it does not fit an int64.
func ToInt64(v *big.Int) (int64, error) {
	if !v.IsInt64() {
		return 0, errs.NewAt(1, errs.CodeMathError, "cast to i64 overflow: %s", v.String())
	}
	return v.Int64(), nil
}

// ToUint64 converts v, failing on negative values or overflow.
func ToUint64(v *big.Int) (uint64, error) {
	if !v.IsUint64() {
		return 0, errs.NewAt(1, errs.CodeMathError, "cast to u64 overflow: %s", v.String())
	}
	return v.Uint64(), nil
}

// ToUint32 converts v, failing on negative values or overflow.
func ToUint32(v *big.Int) (uint32, error) {
	if !v.IsUint64() || v.Uint64() > stdmath.MaxUint32 {
		return 0, errs.NewAt(1, errs.CodeMathError, "cast to u32 overflow: %s", v.String())
	}
	return uint32(v.Uint64()), nil
}

// ToUint16 converts v, failing on negative values or overflow.
func ToUint16(v *big.Int) (uint16, error) {
	if !v.IsUint64() || v.Uint64() > stdmath.MaxUint16 {
		return 0, errs.NewAt(1, errs.CodeMathError, "cast to u16 overflow: %s", v.String())
	}
	return uint16(v.Uint64()), nil
}

// ToInt32 converts v, failing if it does not fit an int32.
func ToInt32(v *big.Int) (int32, error) {
	if !v.IsInt64() || v.Int64() > stdmath.MaxInt32 || v.Int64() < stdmath.MinInt32 {
		return 0, errs.NewAt(1, errs.CodeMathError, "cast to i32 overflow: %s", v.String())
	}
	return int32(v.Int64()), nil
}

// Checked native int64 arithmetic for hot paths that never leave 64 bits.

// SafeAddI64 returns a + b or MathError on overflow.
func SafeAddI64(a, b int64) (int64, error) {
	s := a + b
	if (b > 0 && s < a) || (b < 0 && s > a) {
		return 0, errs.NewAt(1, errs.CodeMathError, "i64 add overflow: %d + %d", a, b)
	}
	return s, nil
}

// SafeSubI64 returns a - b or MathError on overflow.
func SafeSubI64(a, b int64) (int64, error) {
	d := a - b
	if (b < 0 && d < a) || (b > 0 && d > a) {
		return 0, errs.NewAt(1, errs.CodeMathError, "i64 sub overflow: %d - %d", a, b)
	}
	return d, nil
}

// SafeMulI64 returns a * b or MathError on overflow.
func SafeMulI64(a, b int64) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	p := a * b
	if p/b != a || (a == -1 && b == stdmath.MinInt64) || (b == -1 && a == stdmath.MinInt64) {
		return 0, errs.NewAt(1, errs.CodeMathError, "i64 mul overflow: %d * %d", a, b)
	}
	return p, nil
}

// SafeDivI64 returns a / b or MathError on b == 0 or MinInt64 / -1.
func SafeDivI64(a, b int64) (int64, error) {
	if b == 0 {
		return 0, errs.NewAt(1, errs.CodeMathError, "i64 division by zero")
	}
	if a == stdmath.MinInt64 && b == -1 {
		return 0, errs.NewAt(1, errs.CodeMathError, "i64 div overflow: %d / %d", a, b)
	}
	return a / b, nil
}

// SaturatingAddU32 adds delta into counter, clamping at the uint32 ceiling.
// Fuel counters saturate instead of failing.
func SaturatingAddU32(counter uint32, delta *big.Int) uint32 {
	if delta.Sign() <= 0 {
		return counter
	}
	if !delta.IsUint64() {
		return stdmath.MaxUint32
	}
	sum := uint64(counter) + delta.Uint64()
	if sum > stdmath.MaxUint32 || sum < uint64(counter) {
		return stdmath.MaxUint32
	}
	return uint32(sum)
}
