package event

import (
	"fmt"
	"time"

	"RiskEngine/internal/market"
)

// SpotMarketUpdate replaces one spot market's risk parameters.
type SpotMarketUpdate struct {
	Market market.SpotMarket

	Sequence  int64
	Timestamp time.Time
}

func (e *SpotMarketUpdate) IdempotencyKey() string {
	return fmt.Sprintf("spot-market:%d:%d", e.Market.MarketIndex, e.Sequence)
}

func (e *SpotMarketUpdate) EventType() EventType { return EventTypeSpotMarketUpdate }

func (e *SpotMarketUpdate) SourceSequence() int64 { return e.Sequence }

// PerpMarketUpdate replaces one perp market's risk parameters.
type PerpMarketUpdate struct {
	Market market.PerpMarket

	Sequence  int64
	Timestamp time.Time
}

func (e *PerpMarketUpdate) IdempotencyKey() string {
	return fmt.Sprintf("perp-market:%d:%d", e.Market.MarketIndex, e.Sequence)
}

func (e *PerpMarketUpdate) EventType() EventType { return EventTypePerpMarketUpdate }

func (e *PerpMarketUpdate) SourceSequence() int64 { return e.Sequence }
