package ingestion

import (
	"context"
	"fmt"
	"time"

	"RiskEngine/internal/event"
	"RiskEngine/internal/oracle"
)

// Injector provides admin/manual event injection. It is for operator
// tooling and backfills, not for high-throughput ingestion (use NATS
// for that).
type Injector struct {
	eventChan chan<- event.Event
}

func NewInjector(eventChan chan<- event.Event) *Injector {
	return &Injector{eventChan: eventChan}
}

// InjectOraclePrice manually injects an oracle price update.
func (s *Injector) InjectOraclePrice(
	ctx context.Context,
	oracleKey string,
	price int64,
	confidence uint64,
	publishSlot uint64,
	numPoints uint32,
	slot int64,
) error {
	if oracleKey == "" {
		return fmt.Errorf("oracle key is required")
	}
	if price <= 0 {
		return fmt.Errorf("price must be positive")
	}

	evt := &event.OraclePriceUpdate{
		OracleKey:   oracleKey,
		Price:       price,
		Confidence:  confidence,
		PublishSlot: publishSlot,
		NumPoints:   numPoints,
		Slot:        slot,
		Sequence:    time.Now().UnixMicro(), // Admin-injected: use timestamp as sequence
		Timestamp:   time.Now(),
	}

	select {
	case s.eventChan <- evt:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InjectGuardRails manually injects an oracle guard rails update.
func (s *Injector) InjectGuardRails(ctx context.Context, rails oracle.GuardRails) error {
	if rails.SlotsBeforeStaleForMargin <= 0 {
		return fmt.Errorf("slots_before_stale_for_margin must be positive")
	}

	evt := &event.OracleGuardRailsUpdate{
		Rails:     rails,
		Sequence:  time.Now().UnixMicro(),
		Timestamp: time.Now(),
	}

	select {
	case s.eventChan <- evt:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
