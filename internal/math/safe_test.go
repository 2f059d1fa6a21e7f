package math

import (
	stdmath "math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckedCastBoundaries(t *testing.T) {
	v, err := ToInt64(BN(stdmath.MaxInt64))
	require.NoError(t, err)
	assert.Equal(t, int64(stdmath.MaxInt64), v)

	_, err = ToInt64(Add(BN(stdmath.MaxInt64), One))
	assert.Error(t, err)

	u, err := ToUint64(new(big.Int).SetUint64(stdmath.MaxUint64))
	require.NoError(t, err)
	assert.Equal(t, uint64(stdmath.MaxUint64), u)

	_, err = ToUint64(BN(-1))
	assert.Error(t, err)

	u32, err := ToUint32(BN(stdmath.MaxUint32))
	require.NoError(t, err)
	assert.Equal(t, uint32(stdmath.MaxUint32), u32)

	_, err = ToUint32(BN(stdmath.MaxUint32 + 1))
	assert.Error(t, err)
	_, err = ToUint32(BN(-1))
	assert.Error(t, err)

	u16, err := ToUint16(BN(stdmath.MaxUint16))
	require.NoError(t, err)
	assert.Equal(t, uint16(stdmath.MaxUint16), u16)

	_, err = ToUint16(BN(stdmath.MaxUint16 + 1))
	assert.Error(t, err)

	i32, err := ToInt32(BN(stdmath.MinInt32))
	require.NoError(t, err)
	assert.Equal(t, int32(stdmath.MinInt32), i32)

	_, err = ToInt32(BN(stdmath.MinInt32 - 1))
	assert.Error(t, err)
	_, err = ToInt32(BN(stdmath.MaxInt32 + 1))
	assert.Error(t, err)
}

func TestSafeAddSubI64(t *testing.T) {
	s, err := SafeAddI64(stdmath.MaxInt64-1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(stdmath.MaxInt64), s)

	_, err = SafeAddI64(stdmath.MaxInt64, 1)
	assert.Error(t, err)
	_, err = SafeAddI64(stdmath.MinInt64, -1)
	assert.Error(t, err)

	d, err := SafeSubI64(stdmath.MinInt64+1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(stdmath.MinInt64), d)

	_, err = SafeSubI64(stdmath.MinInt64, 1)
	assert.Error(t, err)
	_, err = SafeSubI64(stdmath.MaxInt64, -1)
	assert.Error(t, err)
}

func TestSafeMulI64(t *testing.T) {
	p, err := SafeMulI64(3_037_000_499, 3_037_000_499)
	require.NoError(t, err)
	assert.Equal(t, int64(9_223_372_030_926_249_001), p)

	_, err = SafeMulI64(3_037_000_500, 3_037_000_500)
	assert.Error(t, err)

	_, err = SafeMulI64(stdmath.MinInt64, -1)
	assert.Error(t, err)
	_, err = SafeMulI64(-1, stdmath.MinInt64)
	assert.Error(t, err)

	p, err = SafeMulI64(0, stdmath.MinInt64)
	require.NoError(t, err)
	assert.Zero(t, p)
}

func TestSafeDivI64(t *testing.T) {
	q, err := SafeDivI64(-7, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(-3), q)

	_, err = SafeDivI64(1, 0)
	assert.Error(t, err)
	_, err = SafeDivI64(stdmath.MinInt64, -1)
	assert.Error(t, err)
}

func TestSaturatingAddU32(t *testing.T) {
	assert.Equal(t, uint32(10), SaturatingAddU32(10, BN(0)))
	assert.Equal(t, uint32(10), SaturatingAddU32(10, BN(-5)))
	assert.Equal(t, uint32(15), SaturatingAddU32(10, BN(5)))
	assert.Equal(t, uint32(stdmath.MaxUint32), SaturatingAddU32(stdmath.MaxUint32-1, BN(2)))
	assert.Equal(t, uint32(stdmath.MaxUint32),
		SaturatingAddU32(0, Mul(BN(stdmath.MaxInt64), BN(4))))
}

func TestDivRounding(t *testing.T) {
	q, err := Div(BN(-7), BN(2))
	require.NoError(t, err)
	assert.Equal(t, int64(-3), q.Int64())

	q, err = DivFloor(BN(-7), BN(2))
	require.NoError(t, err)
	assert.Equal(t, int64(-4), q.Int64())

	q, err = DivCeil(BN(-7), BN(2))
	require.NoError(t, err)
	assert.Equal(t, int64(-3), q.Int64())

	q, err = DivCeil(BN(7), BN(2))
	require.NoError(t, err)
	assert.Equal(t, int64(4), q.Int64())

	// Exact division rounds nowhere.
	q, err = DivCeil(BN(6), BN(2))
	require.NoError(t, err)
	assert.Equal(t, int64(3), q.Int64())

	for _, div := range []func(a, b *big.Int) (*big.Int, error){Div, DivFloor, DivCeil} {
		_, err := div(BN(1), BN(0))
		assert.Error(t, err)
	}
}

func TestSqrtAnd128Checks(t *testing.T) {
	r, err := Sqrt(BN(1_000_000_000_000_000_000))
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000_000), r.Int64())

	_, err = Sqrt(BN(-1))
	assert.Error(t, err)

	maxU128 := Sub(new(big.Int).Lsh(One, 128), One)
	_, err = CheckU128(maxU128)
	require.NoError(t, err)
	_, err = CheckU128(Add(maxU128, One))
	assert.Error(t, err)
	_, err = CheckU128(BN(-1))
	assert.Error(t, err)

	maxI128 := Sub(new(big.Int).Lsh(One, 127), One)
	_, err = CheckI128(maxI128)
	require.NoError(t, err)
	_, err = CheckI128(Add(maxI128, One))
	assert.Error(t, err)
	_, err = CheckI128(Neg(Add(maxI128, BN(2))))
	assert.Error(t, err)
}

func TestTokenPrecision(t *testing.T) {
	assert.Equal(t, int64(1), TokenPrecision(0).Int64())
	assert.Equal(t, int64(1_000_000), TokenPrecision(6).Int64())
	assert.Equal(t, int64(1_000_000_000), TokenPrecision(9).Int64())
}
