package event

import (
	"fmt"
	"time"

	"RiskEngine/internal/oracle"
)

// OracleGuardRailsUpdate replaces the engine's oracle acceptance
// thresholds. Rare; emitted when governance retunes the rails.
type OracleGuardRailsUpdate struct {
	Rails     oracle.GuardRails
	Sequence  int64
	Timestamp time.Time
}

func (e *OracleGuardRailsUpdate) IdempotencyKey() string {
	return fmt.Sprintf("guard-rails:%d", e.Sequence)
}

func (e *OracleGuardRailsUpdate) EventType() EventType {
	return EventTypeOracleGuardRailsUpdate
}

func (e *OracleGuardRailsUpdate) SourceSequence() int64 {
	return e.Sequence
}
