package market

import (
	"sort"
	"sync"
)

// Store is the shell's live registry of market parameters, fed by the
// ingestion workers. Each margin check snapshots it into the immutable
// maps the engine reads, so in-flight calculations never observe a
// concurrent parameter update.
type Store struct {
	mu   sync.RWMutex
	spot map[uint16]*SpotMarket
	perp map[uint16]*PerpMarket
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		spot: make(map[uint16]*SpotMarket),
		perp: make(map[uint16]*PerpMarket),
	}
}

// UpsertSpot validates and installs a spot market.
func (s *Store) UpsertSpot(m *SpotMarket) error {
	if err := m.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.spot[m.MarketIndex] = &cp
	return nil
}

// UpsertPerp validates and installs a perp market.
func (s *Store) UpsertPerp(m *PerpMarket) error {
	if err := m.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.perp[m.MarketIndex] = &cp
	return nil
}

// SetSpotTwap records a fresh 5-minute TWAP for a spot market's oracle.
func (s *Store) SetSpotTwap(index uint16, twap int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.spot[index]; ok {
		m.HistoricalOracleTwap5Min = twap
	}
}

// SetPerpTwap records a fresh 5-minute TWAP for a perp market's oracle.
func (s *Store) SetPerpTwap(index uint16, twap int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.perp[index]; ok {
		m.Amm.HistoricalOracleTwap5Min = twap
	}
}

// Snapshot copies the current markets into immutable registries for one
// calculation.
func (s *Store) Snapshot() (*SpotMarketMap, *PerpMarketMap) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	spots := make([]*SpotMarket, 0, len(s.spot))
	for _, m := range s.spot {
		cp := *m
		spots = append(spots, &cp)
	}
	perps := make([]*PerpMarket, 0, len(s.perp))
	for _, m := range s.perp {
		cp := *m
		perps = append(perps, &cp)
	}
	return NewSpotMarketMap(spots...), NewPerpMarketMap(perps...)
}

// ListSpot returns the spot markets ordered by index, for the query API.
func (s *Store) ListSpot() []*SpotMarket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*SpotMarket, 0, len(s.spot))
	for _, m := range s.spot {
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MarketIndex < out[j].MarketIndex })
	return out
}

// ListPerp returns the perp markets ordered by index.
func (s *Store) ListPerp() []*PerpMarket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*PerpMarket, 0, len(s.perp))
	for _, m := range s.perp {
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MarketIndex < out[j].MarketIndex })
	return out
}
