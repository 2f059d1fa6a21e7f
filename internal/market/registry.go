package market

import (
	"RiskEngine/internal/errs"
)

// SpotMarketMap is a read-only index of spot markets for one calculation.
// Lookup failure for a referenced market is fatal, not a skip.
type SpotMarketMap struct {
	markets map[uint16]*SpotMarket
}

// NewSpotMarketMap indexes the given markets.
func NewSpotMarketMap(markets ...*SpotMarket) *SpotMarketMap {
	m := &SpotMarketMap{markets: make(map[uint16]*SpotMarket, len(markets))}
	for _, mk := range markets {
		m.markets[mk.MarketIndex] = mk
	}
	return m
}

// Get returns the market or SpotMarketNotFound.
func (m *SpotMarketMap) Get(index uint16) (*SpotMarket, error) {
	mk, ok := m.markets[index]
	if !ok {
		return nil, errs.New(errs.CodeSpotMarketNotFound, "spot market %d", index)
	}
	return mk, nil
}

// Len returns the number of indexed markets.
func (m *SpotMarketMap) Len() int { return len(m.markets) }

// PerpMarketMap is the perp counterpart of SpotMarketMap.
type PerpMarketMap struct {
	markets map[uint16]*PerpMarket
}

// NewPerpMarketMap indexes the given markets.
func NewPerpMarketMap(markets ...*PerpMarket) *PerpMarketMap {
	m := &PerpMarketMap{markets: make(map[uint16]*PerpMarket, len(markets))}
	for _, mk := range markets {
		m.markets[mk.MarketIndex] = mk
	}
	return m
}

// Get returns the market or PerpMarketNotFound.
func (m *PerpMarketMap) Get(index uint16) (*PerpMarket, error) {
	mk, ok := m.markets[index]
	if !ok {
		return nil, errs.New(errs.CodePerpMarketNotFound, "perp market %d", index)
	}
	return mk, nil
}

// Len returns the number of indexed markets.
func (m *PerpMarketMap) Len() int { return len(m.markets) }
