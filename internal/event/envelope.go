package event

// EventType discriminator for event payloads
type EventType int32

const (
	EventTypeUnknown EventType = iota
	EventTypeOraclePriceUpdate
	EventTypeSpotMarketUpdate
	EventTypePerpMarketUpdate
	EventTypeAccountUpdate
	EventTypeOracleGuardRailsUpdate
)

// Event is the interface all event payloads must implement
type Event interface {
	// IdempotencyKey returns the stable dedup key
	IdempotencyKey() string

	// EventType returns the discriminator
	EventType() EventType

	// SourceSequence returns upstream ordering key
	SourceSequence() int64
}

func (et EventType) String() string {
	switch et {
	case EventTypeOraclePriceUpdate:
		return "OraclePriceUpdate"
	case EventTypeSpotMarketUpdate:
		return "SpotMarketUpdate"
	case EventTypePerpMarketUpdate:
		return "PerpMarketUpdate"
	case EventTypeAccountUpdate:
		return "AccountUpdate"
	case EventTypeOracleGuardRailsUpdate:
		return "OracleGuardRailsUpdate"
	default:
		return "Unknown"
	}
}
