package oracle

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RiskEngine/internal/errs"
)

func oracleBytes(t *testing.T, price int64, conf uint64, publishSlot uint64, points uint32) []byte {
	t.Helper()
	b, err := json.Marshal(map[string]any{
		"price":        price,
		"confidence":   conf,
		"publish_slot": publishSlot,
		"num_points":   points,
	})
	require.NoError(t, err)
	return b
}

func TestMapQuoteAssetSentinel(t *testing.T) {
	m := NewMap(1000, DefaultGuardRails(), nil)

	data, validity, err := m.GetPriceDataAndValidity(QuoteAssetKey, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, ValidityValid, validity)
	assert.Equal(t, int64(1_000_000), data.Price)
	assert.Zero(t, data.Confidence)
	assert.Zero(t, data.Delay)
}

func TestMapUnregisteredKey(t *testing.T) {
	m := NewMap(1000, DefaultGuardRails(), nil)

	_, _, err := m.GetPriceDataAndValidity(Key("oracle:sol"), 0, 1)
	require.Error(t, err)
	var e *errs.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errs.CodeOracleNotFound, e.Code)
}

func TestMapMemoizesFirstClassification(t *testing.T) {
	m := NewMap(1000, DefaultGuardRails(), nil)
	key := Key("oracle:sol")
	m.Register(key, SourceJSON, oracleBytes(t, 100_000_000, 50_000, 998, 5))

	data, validity, err := m.GetPriceDataAndValidity(key, 100_000_000, 1)
	require.NoError(t, err)
	assert.Equal(t, ValidityValid, validity)
	assert.Equal(t, int64(2), data.Delay)

	// The second lookup ignores its twap: the first classification stands.
	_, validity, err = m.GetPriceDataAndValidity(key, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, ValidityValid, validity)
}

func TestMapForkResetsCaches(t *testing.T) {
	m := NewMap(1000, DefaultGuardRails(), nil)
	key := Key("oracle:sol")
	m.Register(key, SourceJSON, oracleBytes(t, 100_000_000, 50_000, 998, 5))

	_, validity, err := m.GetPriceDataAndValidity(key, 100_000_000, 1)
	require.NoError(t, err)
	assert.Equal(t, ValidityValid, validity)

	// The fork re-decodes and re-classifies, so the degenerate twap now
	// counts, while registrations carry over.
	next := m.Fork()
	assert.Equal(t, uint64(1000), next.Slot())
	_, validity, err = next.GetPriceDataAndValidity(key, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, ValidityTooVolatile, validity)
}

func TestMapDecodeFailure(t *testing.T) {
	m := NewMap(1000, DefaultGuardRails(), nil)
	key := Key("oracle:bad")
	m.Register(key, SourceJSON, []byte("{not json"))

	_, _, err := m.GetPriceDataAndValidity(key, 0, 1)
	require.Error(t, err)
	var e *errs.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errs.CodeInvalidOracle, e.Code)
}

func TestDecodePriceDataDelayAndPoints(t *testing.T) {
	// Publish slot ahead of the engine slot clamps delay to zero.
	data, err := DecodePriceData(SourceJSON, oracleBytes(t, 50_000_000, 10_000, 1_005, 3), 1_000)
	require.NoError(t, err)
	assert.Zero(t, data.Delay)
	assert.True(t, data.HasSufficientDataPoints)

	data, err = DecodePriceData(SourceJSON, oracleBytes(t, 50_000_000, 10_000, 900, 2), 1_000)
	require.NoError(t, err)
	assert.Equal(t, int64(100), data.Delay)
	assert.False(t, data.HasSufficientDataPoints)

	_, err = DecodePriceData(Source(99), nil, 1_000)
	assert.Error(t, err)
}
