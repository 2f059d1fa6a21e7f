package oracle

import (
	"RiskEngine/internal/errs"
)

// Decoder turns registered account bytes into a PriceData. It must be pure
// on (source, data, slot).
type Decoder func(source Source, data []byte, slot uint64) (PriceData, error)

type registration struct {
	source Source
	data   []byte
}

// Map memoizes oracle reads and validity tags for a single calculation.
// It is constructed per invocation and dropped at its end; the caches make
// every subsequent query for the same key observe the first classification
// verbatim, even if the underlying account mutates mid-pass.
type Map struct {
	slot      uint64
	rails     GuardRails
	decode    Decoder
	quoteData PriceData

	accounts  map[Key]registration
	priceData map[Key]PriceData
	validity  map[Key]Validity
}

// NewMap builds an empty map at a slot. A nil decoder uses DecodePriceData.
func NewMap(slot uint64, rails GuardRails, decode Decoder) *Map {
	if decode == nil {
		decode = DecodePriceData
	}
	return &Map{
		slot:      slot,
		rails:     rails,
		decode:    decode,
		quoteData: QuoteAssetPriceData(),
		accounts:  make(map[Key]registration),
		priceData: make(map[Key]PriceData),
		validity:  make(map[Key]Validity),
	}
}

// Slot returns the slot the map was constructed at.
func (m *Map) Slot() uint64 { return m.slot }

// GuardRails returns the rails config the map classifies with.
func (m *Map) GuardRails() GuardRails { return m.rails }

// Register adds an oracle account that may be consulted during the pass.
// Unregistered keys fail-fast at lookup time.
func (m *Map) Register(key Key, source Source, accountBytes []byte) {
	m.accounts[key] = registration{source: source, data: accountBytes}
}

// Fork returns a map with the same slot, rails and registrations but empty
// caches, for the next calculation over the same accounts.
func (m *Map) Fork() *Map {
	next := NewMap(m.slot, m.rails, m.decode)
	for k, reg := range m.accounts {
		next.accounts[k] = reg
	}
	return next
}

// GetPriceDataAndValidity returns the memoized sample and tag for key.
// twap is the 5-minute reference price and maxConfMultiplier the market's
// confidence widening; both only matter on the first (caching) call.
func (m *Map) GetPriceDataAndValidity(key Key, twap int64, maxConfMultiplier uint64) (PriceData, Validity, error) {
	if key == QuoteAssetKey {
		return m.quoteData, ValidityValid, nil
	}

	if data, ok := m.priceData[key]; ok {
		return data, m.validity[key], nil
	}

	reg, ok := m.accounts[key]
	if !ok {
		return PriceData{}, ValidityNonPositive, errs.New(errs.CodeOracleNotFound, "oracle %s not registered", key)
	}

	data, err := m.decode(reg.source, reg.data, m.slot)
	if err != nil {
		return PriceData{}, ValidityNonPositive, err
	}

	tag := ClassifyValidity(data, twap, m.rails, maxConfMultiplier)
	m.priceData[key] = data
	m.validity[key] = tag
	return data, tag, nil
}
