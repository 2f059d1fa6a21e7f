package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"RiskEngine/internal/account"
	"RiskEngine/internal/errs"
	"RiskEngine/internal/event"
	"RiskEngine/internal/margin"
	"RiskEngine/internal/market"
	"RiskEngine/internal/observability"
	"RiskEngine/internal/oracle"
)

// RiskCore is the single-threaded event processor. It owns the live market,
// account and oracle caches, applies inbound state updates, and recomputes
// margin for every account the update touches. All mutation happens on the
// goroutine calling ProcessEvent; the stores exist so that read-side
// consumers (query service) can snapshot concurrently.
type RiskCore struct {
	sequence int64

	// oracleMu guards slot, rails and oracleAccounts: the only core state
	// read by query goroutines (via BuildOracleMap) outside the event loop.
	oracleMu sync.RWMutex
	slot     uint64
	rails    oracle.GuardRails

	markets  *market.Store
	accounts *account.Store

	// oracleAccounts holds the latest registered bytes per oracle key.
	// A fresh oracle.Map is built from this for every margin pass.
	oracleAccounts map[oracle.Key][]byte

	hasher            *StateHasher
	idempotency       *IdempotencyChecker
	sequenceValidator *SequenceValidator
	metrics           *observability.Metrics

	// FuelBonusNumerator enables fuel accrual on maintenance passes when
	// positive. Zero disables accrual.
	fuelBonusNumerator int64

	persistChan chan<- Output
	publishChan chan<- Output
}

// Output is one completed margin calculation for a single user under a
// single regime, hash-chained for audit.
type Output struct {
	Sequence   int64
	UserID     uuid.UUID
	MarginType margin.RequirementType
	Calc       *margin.Calculation
	Slot       uint64
	Timestamp  time.Time
	ResultHash [32]byte
	PrevHash   [32]byte
}

func NewRiskCore(
	startSequence int64,
	rails oracle.GuardRails,
	fuelBonusNumerator int64,
	persistChan, publishChan chan<- Output,
	dbChecker DBIdempotencyChecker,
	metrics *observability.Metrics,
) *RiskCore {
	return &RiskCore{
		sequence:           startSequence,
		rails:              rails,
		markets:            market.NewStore(),
		accounts:           account.NewStore(),
		oracleAccounts:     make(map[oracle.Key][]byte),
		hasher:             NewStateHasher(),
		idempotency:        NewIdempotencyChecker(1_000_000, dbChecker),
		sequenceValidator:  NewSequenceValidator(),
		metrics:            metrics,
		fuelBonusNumerator: fuelBonusNumerator,
		persistChan:        persistChan,
		publishChan:        publishChan,
	}
}

// Markets exposes the live market store for read-side consumers.
func (c *RiskCore) Markets() *market.Store { return c.markets }

// Accounts exposes the live account store for read-side consumers.
func (c *RiskCore) Accounts() *account.Store { return c.accounts }

// Slot returns the highest slot observed across oracle updates.
func (c *RiskCore) Slot() uint64 {
	c.oracleMu.RLock()
	defer c.oracleMu.RUnlock()
	return c.slot
}

// ProcessEvent applies one inbound update and recomputes margin for every
// affected account.
func (c *RiskCore) ProcessEvent(evt event.Event) error {
	eventType := evt.EventType().String()
	idempotencyKey := evt.IdempotencyKey()

	if c.idempotency.IsDuplicate(eventType, idempotencyKey) {
		if c.metrics != nil {
			c.metrics.IngestEventsDropped.WithLabelValues("duplicate").Inc()
		}
		return nil
	}

	// Inbound streams carry full state per message, so stale delivery is
	// a skip, not an error.
	partition := c.getPartition(evt)
	if c.sequenceValidator.IsStale(partition, evt.SourceSequence()) {
		if c.metrics != nil {
			c.metrics.IngestEventsDropped.WithLabelValues("stale").Inc()
		}
		c.idempotency.MarkProcessed(eventType, idempotencyKey)
		return nil
	}

	var affected []uuid.UUID
	var err error

	switch e := evt.(type) {
	case *event.OraclePriceUpdate:
		affected, err = c.applyOraclePrice(e)
	case *event.SpotMarketUpdate:
		affected, err = c.applySpotMarket(e)
	case *event.PerpMarketUpdate:
		affected, err = c.applyPerpMarket(e)
	case *event.AccountUpdate:
		affected, err = c.applyAccount(e)
	case *event.OracleGuardRailsUpdate:
		c.oracleMu.Lock()
		c.rails = e.Rails
		c.oracleMu.Unlock()
	default:
		return fmt.Errorf("unknown event type: %T", evt)
	}
	if err != nil {
		return fmt.Errorf("apply %s: %w", eventType, err)
	}

	timestamp := c.getEventTimestamp(evt)
	for _, userID := range affected {
		// One bad account must not poison the rest of the pass; the
		// failure is already counted inside recomputeUser.
		_ = c.recomputeUser(userID, timestamp)
	}

	c.idempotency.MarkProcessed(eventType, idempotencyKey)

	if c.metrics != nil {
		c.metrics.IngestEventsTotal.WithLabelValues(eventType).Inc()
		c.metrics.AccountsTracked.Set(float64(c.accounts.Len()))
		c.metrics.OracleSlot.Set(float64(c.Slot()))
	}

	return nil
}

// getPartition determines the partition key for staleness checks.
func (c *RiskCore) getPartition(evt event.Event) string {
	switch e := evt.(type) {
	case *event.OraclePriceUpdate:
		return fmt.Sprintf("oracle:%s", e.OracleKey)
	case *event.SpotMarketUpdate:
		return fmt.Sprintf("spot-market:%d", e.Market.MarketIndex)
	case *event.PerpMarketUpdate:
		return fmt.Sprintf("perp-market:%d", e.Market.MarketIndex)
	case *event.AccountUpdate:
		return fmt.Sprintf("account:%s", e.UserID)
	default:
		return "global"
	}
}

// getEventTimestamp extracts the versioned timestamp from an event. The
// core never calls time.Now() for output timestamps; they are inputs.
func (c *RiskCore) getEventTimestamp(evt event.Event) time.Time {
	switch e := evt.(type) {
	case *event.OraclePriceUpdate:
		return e.Timestamp
	case *event.SpotMarketUpdate:
		return e.Timestamp
	case *event.PerpMarketUpdate:
		return e.Timestamp
	case *event.AccountUpdate:
		return e.Timestamp
	case *event.OracleGuardRailsUpdate:
		return e.Timestamp
	default:
		return time.Time{}
	}
}

// registeredOracleAccount is the stored-bytes layout consumed by
// oracle.DecodePriceData for SourceJSON registrations.
type registeredOracleAccount struct {
	Price       int64  `json:"price"`
	Confidence  uint64 `json:"confidence"`
	PublishSlot uint64 `json:"publish_slot"`
	NumPoints   uint32 `json:"num_points"`
}

func (c *RiskCore) applyOraclePrice(evt *event.OraclePriceUpdate) ([]uuid.UUID, error) {
	data, err := json.Marshal(registeredOracleAccount{
		Price:       evt.Price,
		Confidence:  evt.Confidence,
		PublishSlot: evt.PublishSlot,
		NumPoints:   evt.NumPoints,
	})
	if err != nil {
		return nil, err
	}

	key := oracle.Key(evt.OracleKey)
	c.oracleMu.Lock()
	c.oracleAccounts[key] = data
	if evt.Slot > 0 && uint64(evt.Slot) > c.slot {
		c.slot = uint64(evt.Slot)
	}
	c.oracleMu.Unlock()

	return c.usersOnOracle(key), nil
}

func (c *RiskCore) applySpotMarket(evt *event.SpotMarketUpdate) ([]uuid.UUID, error) {
	mk := evt.Market
	if err := c.markets.UpsertSpot(&mk); err != nil {
		return nil, err
	}
	if c.metrics != nil {
		c.metrics.SpotMarketsTracked.Set(float64(len(c.markets.ListSpot())))
	}
	return c.usersInSpotMarket(mk.MarketIndex), nil
}

func (c *RiskCore) applyPerpMarket(evt *event.PerpMarketUpdate) ([]uuid.UUID, error) {
	mk := evt.Market
	if err := c.markets.UpsertPerp(&mk); err != nil {
		return nil, err
	}
	if c.metrics != nil {
		c.metrics.PerpMarketsTracked.Set(float64(len(c.markets.ListPerp())))
	}
	return c.usersInPerpMarket(mk.MarketIndex), nil
}

func (c *RiskCore) applyAccount(evt *event.AccountUpdate) ([]uuid.UUID, error) {
	u := evt.User
	c.accounts.Upsert(evt.UserID, &u)
	return []uuid.UUID{evt.UserID}, nil
}

// usersOnOracle returns the accounts holding positions in any market priced
// by the given oracle key.
func (c *RiskCore) usersOnOracle(key oracle.Key) []uuid.UUID {
	spotIdx := make(map[uint16]bool)
	perpIdx := make(map[uint16]bool)
	for _, mk := range c.markets.ListSpot() {
		if mk.Oracle == key {
			spotIdx[mk.MarketIndex] = true
		}
	}
	for _, mk := range c.markets.ListPerp() {
		if mk.Oracle == key {
			perpIdx[mk.MarketIndex] = true
		}
	}
	if len(spotIdx) == 0 && len(perpIdx) == 0 {
		return nil
	}

	var out []uuid.UUID
	for _, id := range c.accounts.IDs() {
		u, ok := c.accounts.Get(id)
		if !ok {
			continue
		}
		if userTouches(u, spotIdx, perpIdx) {
			out = append(out, id)
		}
	}
	return out
}

func (c *RiskCore) usersInSpotMarket(index uint16) []uuid.UUID {
	return c.usersTouching(map[uint16]bool{index: true}, nil)
}

func (c *RiskCore) usersInPerpMarket(index uint16) []uuid.UUID {
	return c.usersTouching(nil, map[uint16]bool{index: true})
}

func (c *RiskCore) usersTouching(spotIdx, perpIdx map[uint16]bool) []uuid.UUID {
	var out []uuid.UUID
	for _, id := range c.accounts.IDs() {
		u, ok := c.accounts.Get(id)
		if !ok {
			continue
		}
		if userTouches(u, spotIdx, perpIdx) {
			out = append(out, id)
		}
	}
	return out
}

func userTouches(u *account.User, spotIdx, perpIdx map[uint16]bool) bool {
	for _, pos := range u.ActiveSpotPositions() {
		if spotIdx[pos.MarketIndex] {
			return true
		}
	}
	for _, pos := range u.ActivePerpPositions() {
		if perpIdx[pos.MarketIndex] {
			return true
		}
	}
	return false
}

// BuildOracleMap constructs a fresh memoizing oracle map over the current
// registrations at the current slot. Safe to call from query goroutines.
func (c *RiskCore) BuildOracleMap() *oracle.Map {
	c.oracleMu.RLock()
	defer c.oracleMu.RUnlock()
	m := oracle.NewMap(c.slot, c.rails, nil)
	for key, data := range c.oracleAccounts {
		m.Register(key, oracle.SourceJSON, data)
	}
	return m
}

// recomputeUser runs the initial and maintenance passes for one account
// and emits an Output per regime.
func (c *RiskCore) recomputeUser(userID uuid.UUID, timestamp time.Time) error {
	u, ok := c.accounts.Get(userID)
	if !ok {
		return fmt.Errorf("account %s not tracked", userID)
	}
	spots, perps := c.markets.Snapshot()

	initialCtx := margin.StandardContext(margin.Initial).WithStrict()
	maintCtx := margin.StandardContext(margin.Maintenance)
	if c.fuelBonusNumerator > 0 {
		maintCtx = maintCtx.WithFuelBonus(c.fuelBonusNumerator, 0)
	}

	for _, ctx := range []margin.Context{initialCtx, maintCtx} {
		start := time.Now()
		calc, err := margin.CalculateMarginRequirementAndTotalCollateral(
			u, perps, spots, c.BuildOracleMap(), ctx)
		if c.metrics != nil {
			c.metrics.MarginCalcsTotal.WithLabelValues(ctx.MarginType.String()).Inc()
			c.metrics.MarginCalcDuration.WithLabelValues(ctx.MarginType.String()).Observe(time.Since(start).Seconds())
		}
		if err != nil {
			if c.metrics != nil {
				c.metrics.MarginCalcErrors.WithLabelValues(ctx.MarginType.String(), errorCode(err)).Inc()
			}
			return err
		}

		if c.metrics != nil {
			if !calc.MeetsMarginRequirement() {
				c.metrics.MarginBreaches.WithLabelValues(ctx.MarginType.String()).Inc()
			}
			if !calc.AllOraclesValid {
				c.metrics.OraclesInvalidTotal.Inc()
			}
			if calc.FuelDeposits > 0 {
				c.metrics.FuelAccrued.WithLabelValues("deposits").Add(float64(calc.FuelDeposits))
			}
			if calc.FuelBorrows > 0 {
				c.metrics.FuelAccrued.WithLabelValues("borrows").Add(float64(calc.FuelBorrows))
			}
			if calc.FuelPositions > 0 {
				c.metrics.FuelAccrued.WithLabelValues("positions").Add(float64(calc.FuelPositions))
			}
		}

		c.emit(userID, calc, timestamp)
	}

	return nil
}

// emit hash-chains the result and sends it downstream. The persist channel
// is a blocking send so the core stalls rather than lose a snapshot; the
// publish channel drops on full.
func (c *RiskCore) emit(userID uuid.UUID, calc *margin.Calculation, timestamp time.Time) {
	prevHash := c.hasher.GetPrevHash()
	digest := resultDigest(userID, calc)
	resultHash := c.hasher.ComputeHash(c.sequence, digest)

	out := Output{
		Sequence:   c.sequence,
		UserID:     userID,
		MarginType: calc.Context.MarginType,
		Calc:       calc,
		Slot:       c.slot,
		Timestamp:  timestamp,
		ResultHash: resultHash,
		PrevHash:   prevHash,
	}
	c.sequence++

	c.persistChan <- out

	select {
	case c.publishChan <- out:
	default:
		if c.metrics != nil {
			c.metrics.PublishDrops.Inc()
		}
	}
}

// resultDigest builds the canonical bytes hashed into the result chain.
func resultDigest(userID uuid.UUID, calc *margin.Calculation) []byte {
	digest := make([]byte, 0, 128)
	digest = append(digest, userID[:]...)
	digest = append(digest, byte(calc.Context.MarginType))
	digest = appendBigBytes(digest, calc.TotalCollateral.Bytes(), calc.TotalCollateral.Sign() < 0)
	digest = appendBigBytes(digest, calc.MarginRequirement.Bytes(), false)
	digest = append(digest, calc.NumSpotLiabilities, calc.NumPerpLiabilities)
	digest = append(digest, boolByte(calc.AllOraclesValid))
	return digest
}

func appendBigBytes(buf, b []byte, negative bool) []byte {
	buf = append(buf, boolByte(negative), byte(len(b)))
	return append(buf, b...)
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}

func errorCode(err error) string {
	var e *errs.Error
	if errors.As(err, &e) {
		return e.Code.String()
	}
	return "Unknown"
}

// --- Snapshot Restore & Startup Methods ---

// SnapshotState holds the serializable in-memory state for restore. The
// inbound consumers are durable, so acked updates are never redelivered;
// a warm restart must reload the caches from here.
type SnapshotState struct {
	Sequence        int64
	ResultHash      [32]byte
	Slot            uint64
	Rails           oracle.GuardRails
	SpotMarkets     []*market.SpotMarket
	PerpMarkets     []*market.PerpMarket
	Accounts        map[uuid.UUID]*account.User
	OracleAccounts  map[oracle.Key][]byte
	SequenceState   map[string]int64
	IdempotencyKeys []string
}

// RestoreFromSnapshot restores the core's in-memory state from a snapshot.
func (c *RiskCore) RestoreFromSnapshot(snap *SnapshotState) error {
	c.sequence = snap.Sequence + 1 // Next sequence to assign
	c.oracleMu.Lock()
	c.slot = snap.Slot
	c.rails = snap.Rails
	for key, data := range snap.OracleAccounts {
		c.oracleAccounts[key] = data
	}
	c.oracleMu.Unlock()
	c.hasher.SetPrevHash(snap.ResultHash)

	for _, mk := range snap.SpotMarkets {
		if err := c.markets.UpsertSpot(mk); err != nil {
			return fmt.Errorf("restore spot market %d: %w", mk.MarketIndex, err)
		}
	}
	for _, mk := range snap.PerpMarkets {
		if err := c.markets.UpsertPerp(mk); err != nil {
			return fmt.Errorf("restore perp market %d: %w", mk.MarketIndex, err)
		}
	}
	for id, u := range snap.Accounts {
		c.accounts.Upsert(id, u)
	}
	for partition, seq := range snap.SequenceState {
		c.sequenceValidator.RestorePartition(partition, seq)
	}
	c.idempotency.lru.WarmFromKeys(snap.IdempotencyKeys)

	return nil
}

// CreateSnapshotState captures the current in-memory state for persistence.
func (c *RiskCore) CreateSnapshotState() *SnapshotState {
	accounts := make(map[uuid.UUID]*account.User, c.accounts.Len())
	for _, id := range c.accounts.IDs() {
		if u, ok := c.accounts.Get(id); ok {
			accounts[id] = u
		}
	}
	c.oracleMu.RLock()
	slot, rails := c.slot, c.rails
	oracleAccounts := make(map[oracle.Key][]byte, len(c.oracleAccounts))
	for key, data := range c.oracleAccounts {
		oracleAccounts[key] = data
	}
	c.oracleMu.RUnlock()

	return &SnapshotState{
		Sequence:        c.sequence - 1, // Last assigned sequence
		ResultHash:      c.hasher.GetPrevHash(),
		Slot:            slot,
		Rails:           rails,
		SpotMarkets:     c.markets.ListSpot(),
		PerpMarkets:     c.markets.ListPerp(),
		Accounts:        accounts,
		OracleAccounts:  oracleAccounts,
		SequenceState:   c.sequenceValidator.GetAllPartitions(),
		IdempotencyKeys: c.idempotency.lru.GetAllKeys(),
	}
}

// WarmLRU loads recent idempotency keys into the LRU cache.
func (c *RiskCore) WarmLRU(keys []string) {
	c.idempotency.lru.WarmFromKeys(keys)
}

// GetSequence returns the next output sequence number.
func (c *RiskCore) GetSequence() int64 {
	return c.sequence
}

// GetStateHash returns the current result hash chain tip.
func (c *RiskCore) GetStateHash() [32]byte {
	return c.hasher.GetPrevHash()
}
