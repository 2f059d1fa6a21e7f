package query_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"RiskEngine/internal/account"
	"RiskEngine/internal/core"
	"RiskEngine/internal/event"
	"RiskEngine/internal/margin"
	"RiskEngine/internal/market"
	"RiskEngine/internal/oracle"
	"RiskEngine/internal/query"
)

// newTestState builds a live core with a quote market, a SOL market with a
// fresh price, and one funded account.
func newTestState(t *testing.T, userID uuid.UUID) *core.RiskCore {
	t.Helper()
	persistChan := make(chan core.Output, 64)
	publishChan := make(chan core.Output, 64)
	c := core.NewRiskCore(0, oracle.DefaultGuardRails(), 0, persistChan, publishChan, nil, nil)

	ts := time.UnixMicro(1_700_000_000_000_000)
	events := []event.Event{
		&event.SpotMarketUpdate{
			Market: market.SpotMarket{
				MarketIndex:                0,
				Name:                       "USDC",
				Oracle:                     oracle.QuoteAssetKey,
				AssetTier:                  market.AssetTierCollateral,
				Decimals:                   6,
				InitialAssetWeight:         10_000,
				MaintenanceAssetWeight:     10_000,
				InitialLiabilityWeight:     10_000,
				MaintenanceLiabilityWeight: 10_000,
				CumulativeDepositInterest:  10_000_000_000,
				CumulativeBorrowInterest:   10_000_000_000,
				HistoricalOracleTwap5Min:   1_000_000,
			},
			Sequence:  1,
			Timestamp: ts,
		},
		&event.SpotMarketUpdate{
			Market: market.SpotMarket{
				MarketIndex:                1,
				Name:                       "SOL",
				Oracle:                     oracle.Key("oracle:sol"),
				AssetTier:                  market.AssetTierCross,
				Decimals:                   9,
				InitialAssetWeight:         8_000,
				MaintenanceAssetWeight:     9_000,
				InitialLiabilityWeight:     12_000,
				MaintenanceLiabilityWeight: 11_000,
				CumulativeDepositInterest:  10_000_000_000,
				CumulativeBorrowInterest:   10_000_000_000,
				HistoricalOracleTwap5Min:   100_000_000,
			},
			Sequence:  1,
			Timestamp: ts,
		},
		&event.OraclePriceUpdate{
			OracleKey:   "oracle:sol",
			Price:       100_000_000,
			Confidence:  0,
			PublishSlot: 1_000,
			NumPoints:   5,
			Slot:        1_000,
			Sequence:    1,
			Timestamp:   ts,
		},
	}

	var u account.User
	u.SpotPositions[0] = account.SpotPosition{
		MarketIndex:   0,
		ScaledBalance: 1_000_000_000,
		BalanceType:   market.BalanceTypeDeposit,
	}
	events = append(events, &event.AccountUpdate{
		UserID:    userID,
		User:      u,
		Sequence:  1,
		Timestamp: ts,
	})

	for _, evt := range events {
		if err := c.ProcessEvent(evt); err != nil {
			t.Fatalf("process event: %v", err)
		}
	}
	return c
}

func TestComputeMarginUnknownUser(t *testing.T) {
	state := newTestState(t, uuid.New())
	qs := query.NewQueryService(nil, state)

	resp, err := qs.ComputeMargin(context.Background(), uuid.New(), margin.Initial, false, 0)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if resp != nil {
		t.Fatalf("expected nil response for untracked user, got %+v", resp)
	}
}

func TestComputeMarginQuoteDeposit(t *testing.T) {
	userID := uuid.New()
	state := newTestState(t, userID)
	qs := query.NewQueryService(nil, state)

	resp, err := qs.ComputeMargin(context.Background(), userID, margin.Initial, true, 0)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if resp == nil {
		t.Fatal("expected a response for tracked user")
	}
	if resp.MarginType != "Initial" {
		t.Errorf("margin type = %q, want Initial", resp.MarginType)
	}
	if resp.TotalCollateral == "0" {
		t.Error("expected positive total collateral for quote deposit")
	}
	if resp.MarginRequirement != "0" {
		t.Errorf("margin requirement = %s, want 0 with no liabilities", resp.MarginRequirement)
	}
	if !resp.MeetsMarginRequirement {
		t.Error("deposit-only account should meet margin requirement")
	}
	if !resp.AllOraclesValid {
		t.Error("quote oracle is always valid")
	}
	if resp.FreeCollateral != resp.TotalCollateral {
		t.Errorf("free collateral %s != total collateral %s with zero requirement",
			resp.FreeCollateral, resp.TotalCollateral)
	}
	if resp.Slot != 1_000 {
		t.Errorf("slot = %d, want 1000", resp.Slot)
	}
}

func TestListMarketsSorted(t *testing.T) {
	state := newTestState(t, uuid.New())
	qs := query.NewQueryService(nil, state)

	resp, err := qs.ListMarkets(context.Background())
	if err != nil {
		t.Fatalf("list markets: %v", err)
	}
	if len(resp.SpotMarkets) != 2 {
		t.Fatalf("spot markets = %d, want 2", len(resp.SpotMarkets))
	}
	if resp.SpotMarkets[0].MarketIndex != 0 || resp.SpotMarkets[1].MarketIndex != 1 {
		t.Errorf("spot markets not sorted by index: %d, %d",
			resp.SpotMarkets[0].MarketIndex, resp.SpotMarkets[1].MarketIndex)
	}
	if resp.SpotMarkets[1].Name != "SOL" {
		t.Errorf("market 1 name = %q, want SOL", resp.SpotMarkets[1].Name)
	}
	if resp.SpotMarkets[1].AssetTier != "Cross" {
		t.Errorf("market 1 tier = %q, want Cross", resp.SpotMarkets[1].AssetTier)
	}
	if len(resp.PerpMarkets) != 0 {
		t.Errorf("perp markets = %d, want 0", len(resp.PerpMarkets))
	}
	if resp.Slot != 1_000 {
		t.Errorf("slot = %d, want 1000", resp.Slot)
	}
}

func TestParseMarginType(t *testing.T) {
	cases := []struct {
		in      string
		want    margin.RequirementType
		wantErr bool
	}{
		{"initial", margin.Initial, false},
		{"Initial", margin.Initial, false},
		{"", margin.Initial, false},
		{"fill", margin.Fill, false},
		{"maintenance", margin.Maintenance, false},
		{"Maintenance", margin.Maintenance, false},
		{"liquidation", 0, true},
	}
	for _, tc := range cases {
		got, err := query.ParseMarginType(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseMarginType(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseMarginType(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseMarginType(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
