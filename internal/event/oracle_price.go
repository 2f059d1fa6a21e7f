package event

import (
	"fmt"
	"time"
)

// OraclePriceUpdate carries one oracle account sample. The ingestion shell
// registers it into the next calculation's oracle map.
type OraclePriceUpdate struct {
	OracleKey   string
	Price       int64
	Confidence  uint64
	PublishSlot uint64
	NumPoints   uint32

	// Slot is the engine slot the producer observed at emission.
	Slot int64

	Sequence  int64
	Timestamp time.Time
}

func (e *OraclePriceUpdate) IdempotencyKey() string {
	return fmt.Sprintf("oracle:%s:%d", e.OracleKey, e.PublishSlot)
}

func (e *OraclePriceUpdate) EventType() EventType { return EventTypeOraclePriceUpdate }

func (e *OraclePriceUpdate) SourceSequence() int64 { return e.Sequence }
