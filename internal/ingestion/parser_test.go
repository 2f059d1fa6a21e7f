package ingestion_test

import (
	"encoding/json"
	"testing"
	"time"

	"RiskEngine/internal/event"
	"RiskEngine/internal/ingestion"
	"RiskEngine/internal/market"
)

func rawFromJSON(t *testing.T, v interface{}) ingestion.RawEvent {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return ingestion.RawEvent{
		Subject:   "test",
		Data:      data,
		Timestamp: time.Now(),
		AckFunc:   func() {},
		NakFunc:   func() {},
	}
}

func TestParseOraclePriceUpdate(t *testing.T) {
	payload := map[string]interface{}{
		"oracle_key":   "oracle:sol",
		"price":        int64(100_000_000),
		"confidence":   uint64(50_000),
		"publish_slot": uint64(12_345),
		"num_points":   uint32(5),
		"slot":         int64(12_350),
		"sequence":     int64(42),
		"timestamp_us": int64(1700000000000000),
	}

	raw := rawFromJSON(t, payload)
	evt, err := ingestion.ParseRawEvent(raw, "OraclePriceUpdate")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	op, ok := evt.(*event.OraclePriceUpdate)
	if !ok {
		t.Fatalf("expected *event.OraclePriceUpdate, got %T", evt)
	}

	if op.OracleKey != "oracle:sol" {
		t.Errorf("oracle_key: got %s, want oracle:sol", op.OracleKey)
	}
	if op.Price != 100_000_000 {
		t.Errorf("price: got %d, want 100_000_000", op.Price)
	}
	if op.PublishSlot != 12_345 {
		t.Errorf("publish_slot: got %d, want 12_345", op.PublishSlot)
	}
	if op.EventType() != event.EventTypeOraclePriceUpdate {
		t.Errorf("event type: got %v, want OraclePriceUpdate", op.EventType())
	}
	if op.SourceSequence() != 42 {
		t.Errorf("sequence: got %d, want 42", op.SourceSequence())
	}
}

func TestParseOraclePriceUpdate_RejectsNonPositive(t *testing.T) {
	payload := map[string]interface{}{
		"oracle_key": "oracle:sol",
		"price":      int64(0),
	}
	raw := rawFromJSON(t, payload)
	if _, err := ingestion.ParseRawEvent(raw, "OraclePriceUpdate"); err == nil {
		t.Fatal("expected error for non-positive price")
	}
}

func TestParseSpotMarketUpdate(t *testing.T) {
	payload := map[string]interface{}{
		"market_index":                 uint16(1),
		"name":                         "SOL",
		"oracle_key":                   "oracle:sol",
		"asset_tier":                   "cross",
		"decimals":                     uint32(9),
		"initial_asset_weight":         uint32(8_000),
		"maintenance_asset_weight":     uint32(9_000),
		"initial_liability_weight":     uint32(12_000),
		"maintenance_liability_weight": uint32(11_000),
		"imf_factor":                   uint32(10_000),
		"cumulative_deposit_interest":  uint64(10_000_000_000),
		"cumulative_borrow_interest":   uint64(10_000_000_000),
		"oracle_twap_5min":             int64(100_000_000),
		"sequence":                     int64(7),
		"timestamp_us":                 int64(1700000000000000),
	}

	raw := rawFromJSON(t, payload)
	evt, err := ingestion.ParseRawEvent(raw, "SpotMarketUpdate")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	sm, ok := evt.(*event.SpotMarketUpdate)
	if !ok {
		t.Fatalf("expected *event.SpotMarketUpdate, got %T", evt)
	}

	if sm.Market.MarketIndex != 1 {
		t.Errorf("market_index: got %d, want 1", sm.Market.MarketIndex)
	}
	if sm.Market.AssetTier != market.AssetTierCross {
		t.Errorf("asset_tier: got %v, want Cross", sm.Market.AssetTier)
	}
	if sm.Market.InitialAssetWeight != 8_000 {
		t.Errorf("initial_asset_weight: got %d, want 8_000", sm.Market.InitialAssetWeight)
	}
	if sm.Market.HistoricalOracleTwap5Min != 100_000_000 {
		t.Errorf("twap: got %d, want 100_000_000", sm.Market.HistoricalOracleTwap5Min)
	}
}

func TestParseSpotMarketUpdate_RejectsBadWeights(t *testing.T) {
	payload := map[string]interface{}{
		"market_index":                 uint16(1),
		"name":                         "SOL",
		"oracle_key":                   "oracle:sol",
		"decimals":                     uint32(9),
		"initial_asset_weight":         uint32(8_000),
		"maintenance_asset_weight":     uint32(9_000),
		"initial_liability_weight":     uint32(9_000), // below 1.0
		"maintenance_liability_weight": uint32(9_000),
		"cumulative_deposit_interest":  uint64(10_000_000_000),
		"cumulative_borrow_interest":   uint64(10_000_000_000),
	}
	raw := rawFromJSON(t, payload)
	if _, err := ingestion.ParseRawEvent(raw, "SpotMarketUpdate"); err == nil {
		t.Fatal("expected error for liability weight below 1.0")
	}
}

func TestParsePerpMarketUpdate(t *testing.T) {
	payload := map[string]interface{}{
		"market_index":                 uint16(0),
		"name":                         "SOL-PERP",
		"oracle_key":                   "oracle:sol-perp",
		"contract_tier":                "b",
		"contract_type":                "perpetual",
		"quote_spot_market_index":      uint16(0),
		"margin_ratio_initial":         uint32(1_000),
		"margin_ratio_maintenance":     uint32(500),
		"cumulative_funding_rate_long": int64(250_000_000),
		"oracle_twap_5min":             int64(120_000_000),
		"sequence":                     int64(3),
		"timestamp_us":                 int64(1700000000000000),
	}

	raw := rawFromJSON(t, payload)
	evt, err := ingestion.ParseRawEvent(raw, "PerpMarketUpdate")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	pm, ok := evt.(*event.PerpMarketUpdate)
	if !ok {
		t.Fatalf("expected *event.PerpMarketUpdate, got %T", evt)
	}

	if pm.Market.ContractTier != market.ContractTierB {
		t.Errorf("contract_tier: got %v, want B", pm.Market.ContractTier)
	}
	if pm.Market.MarginRatioInitial != 1_000 {
		t.Errorf("margin_ratio_initial: got %d, want 1_000", pm.Market.MarginRatioInitial)
	}
	if pm.Market.Amm.CumulativeFundingRateLong != 250_000_000 {
		t.Errorf("cumulative_funding_rate_long: got %d, want 250_000_000",
			pm.Market.Amm.CumulativeFundingRateLong)
	}
}

func TestParsePerpMarketUpdate_RejectsInvertedRatios(t *testing.T) {
	payload := map[string]interface{}{
		"market_index":             uint16(0),
		"name":                     "SOL-PERP",
		"oracle_key":               "oracle:sol-perp",
		"margin_ratio_initial":     uint32(500),
		"margin_ratio_maintenance": uint32(1_000),
	}
	raw := rawFromJSON(t, payload)
	if _, err := ingestion.ParseRawEvent(raw, "PerpMarketUpdate"); err == nil {
		t.Fatal("expected error for initial ratio below maintenance")
	}
}

func TestParseAccountUpdate(t *testing.T) {
	payload := map[string]interface{}{
		"user_id": "550e8400-e29b-41d4-a716-446655440000",
		"spot_positions": []map[string]interface{}{
			{
				"market_index":   uint16(0),
				"scaled_balance": uint64(1_000_000_000),
				"balance_type":   "deposit",
			},
			{
				"market_index":   uint16(1),
				"scaled_balance": uint64(500_000_000),
				"balance_type":   "borrow",
				"open_bids":      int64(100),
				"open_orders":    uint8(1),
			},
		},
		"perp_positions": []map[string]interface{}{
			{
				"market_index":       uint16(0),
				"base_asset_amount":  int64(1_000_000_000),
				"quote_asset_amount": int64(-100_000_000),
			},
		},
		"max_margin_ratio":   uint32(2_000),
		"high_leverage_mode": true,
		"sequence":           int64(9),
		"timestamp_us":       int64(1700000000000000),
	}

	raw := rawFromJSON(t, payload)
	evt, err := ingestion.ParseRawEvent(raw, "AccountUpdate")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	au, ok := evt.(*event.AccountUpdate)
	if !ok {
		t.Fatalf("expected *event.AccountUpdate, got %T", evt)
	}

	if au.UserID.String() != "550e8400-e29b-41d4-a716-446655440000" {
		t.Errorf("user_id: got %s", au.UserID)
	}
	if au.User.SpotPositions[1].BalanceType != market.BalanceTypeBorrow {
		t.Errorf("balance_type: got %v, want Borrow", au.User.SpotPositions[1].BalanceType)
	}
	if au.User.PerpPositions[0].BaseAssetAmount != 1_000_000_000 {
		t.Errorf("base: got %d, want 1_000_000_000", au.User.PerpPositions[0].BaseAssetAmount)
	}
	if !au.User.HighLeverageMode {
		t.Error("high_leverage_mode: got false, want true")
	}
	if au.User.MaxMarginRatio != 2_000 {
		t.Errorf("max_margin_ratio: got %d, want 2_000", au.User.MaxMarginRatio)
	}
}

func TestParseAccountUpdate_RejectsNegativeBids(t *testing.T) {
	payload := map[string]interface{}{
		"user_id": "550e8400-e29b-41d4-a716-446655440000",
		"spot_positions": []map[string]interface{}{
			{
				"market_index":   uint16(1),
				"scaled_balance": uint64(1),
				"balance_type":   "deposit",
				"open_bids":      int64(-5),
			},
		},
	}
	raw := rawFromJSON(t, payload)
	if _, err := ingestion.ParseRawEvent(raw, "AccountUpdate"); err == nil {
		t.Fatal("expected error for negative open bids")
	}
}

func TestParseUnknownEventType_Fails(t *testing.T) {
	raw := ingestion.RawEvent{Data: []byte(`{}`)}
	_, err := ingestion.ParseRawEvent(raw, "NonExistentType")
	if err == nil {
		t.Fatal("expected error for unknown event type")
	}
}

func TestParseInvalidJSON_Fails(t *testing.T) {
	raw := ingestion.RawEvent{Data: []byte(`{invalid json`)}
	_, err := ingestion.ParseRawEvent(raw, "OraclePriceUpdate")
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestParseInvalidUUID_Fails(t *testing.T) {
	payload := map[string]interface{}{
		"user_id": "not-a-uuid",
	}
	raw := rawFromJSON(t, payload)
	_, err := ingestion.ParseRawEvent(raw, "AccountUpdate")
	if err == nil {
		t.Fatal("expected error for invalid UUID")
	}
}
