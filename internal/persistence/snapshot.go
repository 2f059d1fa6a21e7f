package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"RiskEngine/internal/account"
	"RiskEngine/internal/market"
	"RiskEngine/internal/oracle"
)

// StateManager saves and loads engine state snapshots for warm restart.
// The inbound JetStream consumers are durable, so acked updates are gone
// for good; the caches must come back from here, not from replay.
type StateManager struct {
	db *sql.DB
}

// StateData is the serialized engine state at a point in time.
type StateData struct {
	Sequence        int64                   `json:"sequence"`
	ResultHash      []byte                  `json:"result_hash"`
	Slot            uint64                  `json:"slot"`
	Rails           oracle.GuardRails       `json:"guard_rails"`
	SpotMarkets     []market.SpotMarket     `json:"spot_markets"`
	PerpMarkets     []market.PerpMarket     `json:"perp_markets"`
	Accounts        map[string]account.User `json:"accounts"`        // user_id -> account
	OracleAccounts  map[string][]byte       `json:"oracle_accounts"` // oracle key -> registered bytes
	SequenceState   map[string]int64        `json:"sequence_state"`  // partition -> last applied seq
	IdempotencyKeys []string                `json:"idempotency_keys"`
	CreatedAt       time.Time               `json:"created_at"`
}

func NewStateManager(db *sql.DB) *StateManager {
	return &StateManager{db: db}
}

// SaveState persists a state snapshot. Old snapshots beyond the two most
// recent are pruned in the same transaction.
func (sm *StateManager) SaveState(ctx context.Context, state *StateData) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tx, err := sm.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO risk.engine_state (sequence, payload, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (sequence) DO UPDATE SET payload = $2, created_at = $3
	`, state.Sequence, payload, state.CreatedAt); err != nil {
		return fmt.Errorf("insert state: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM risk.engine_state
		WHERE sequence NOT IN (
			SELECT sequence FROM risk.engine_state ORDER BY sequence DESC LIMIT 2
		)
	`); err != nil {
		return fmt.Errorf("prune state: %w", err)
	}

	return tx.Commit()
}

// LoadLatestState returns the most recent snapshot, or nil when there is
// none (cold start).
func (sm *StateManager) LoadLatestState(ctx context.Context) (*StateData, error) {
	var payload []byte
	err := sm.db.QueryRowContext(ctx, `
		SELECT payload FROM risk.engine_state ORDER BY sequence DESC LIMIT 1
	`).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var state StateData
	if err := json.Unmarshal(payload, &state); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	return &state, nil
}
