package ingestion

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"RiskEngine/internal/account"
	"RiskEngine/internal/event"
	"RiskEngine/internal/market"
	"RiskEngine/internal/oracle"
)

// ParseRawEvent converts a RawEvent (JSON bytes + event type string) into a
// typed event.Event. The shell validates and parses before anything touches
// the live state caches.
func ParseRawEvent(raw RawEvent, eventType string) (event.Event, error) {
	switch eventType {
	case "OraclePriceUpdate":
		return parseOraclePriceUpdate(raw.Data)
	case "SpotMarketUpdate":
		return parseSpotMarketUpdate(raw.Data)
	case "PerpMarketUpdate":
		return parsePerpMarketUpdate(raw.Data)
	case "AccountUpdate":
		return parseAccountUpdate(raw.Data)
	case "OracleGuardRailsUpdate":
		return parseGuardRailsUpdate(raw.Data)
	default:
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}
}

// --- JSON wire formats ---
// These structs represent the JSON payloads received from NATS.
// Field names use snake_case to match upstream producers.

type oraclePriceJSON struct {
	OracleKey   string `json:"oracle_key"`
	Price       int64  `json:"price"`
	Confidence  uint64 `json:"confidence"`
	PublishSlot uint64 `json:"publish_slot"`
	NumPoints   uint32 `json:"num_points"`
	Slot        int64  `json:"slot"`
	Sequence    int64  `json:"sequence"`
	TimestampUs int64  `json:"timestamp_us"`
}

func parseOraclePriceUpdate(data []byte) (*event.OraclePriceUpdate, error) {
	var j oraclePriceJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse OraclePriceUpdate: %w", err)
	}
	if j.OracleKey == "" {
		return nil, fmt.Errorf("parse OraclePriceUpdate: empty oracle_key")
	}
	if j.Price <= 0 {
		return nil, fmt.Errorf("parse OraclePriceUpdate: non-positive price %d", j.Price)
	}
	return &event.OraclePriceUpdate{
		OracleKey:   j.OracleKey,
		Price:       j.Price,
		Confidence:  j.Confidence,
		PublishSlot: j.PublishSlot,
		NumPoints:   j.NumPoints,
		Slot:        j.Slot,
		Sequence:    j.Sequence,
		Timestamp:   time.UnixMicro(j.TimestampUs),
	}, nil
}

type spotMarketJSON struct {
	MarketIndex                uint16 `json:"market_index"`
	Name                       string `json:"name"`
	OracleKey                  string `json:"oracle_key"`
	AssetTier                  string `json:"asset_tier"`
	Decimals                   uint32 `json:"decimals"`
	InitialAssetWeight         uint32 `json:"initial_asset_weight"`
	MaintenanceAssetWeight     uint32 `json:"maintenance_asset_weight"`
	InitialLiabilityWeight     uint32 `json:"initial_liability_weight"`
	MaintenanceLiabilityWeight uint32 `json:"maintenance_liability_weight"`
	ImfFactor                  uint32 `json:"imf_factor"`
	CumulativeDepositInterest  uint64 `json:"cumulative_deposit_interest"`
	CumulativeBorrowInterest   uint64 `json:"cumulative_borrow_interest"`
	OracleTwap5Min             int64  `json:"oracle_twap_5min"`
	MaxConfMultiplier          uint64 `json:"max_confidence_interval_multiplier"`
	FuelBoostDeposits          uint8  `json:"fuel_boost_deposits"`
	FuelBoostBorrows           uint8  `json:"fuel_boost_borrows"`
	Sequence                   int64  `json:"sequence"`
	TimestampUs                int64  `json:"timestamp_us"`
}

func parseSpotMarketUpdate(data []byte) (*event.SpotMarketUpdate, error) {
	var j spotMarketJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse SpotMarketUpdate: %w", err)
	}
	tier, err := parseAssetTier(j.AssetTier)
	if err != nil {
		return nil, fmt.Errorf("parse SpotMarketUpdate: %w", err)
	}

	mk := market.SpotMarket{
		MarketIndex:                     j.MarketIndex,
		Name:                            j.Name,
		Oracle:                          oracle.Key(j.OracleKey),
		AssetTier:                       tier,
		Decimals:                        j.Decimals,
		InitialAssetWeight:              j.InitialAssetWeight,
		MaintenanceAssetWeight:          j.MaintenanceAssetWeight,
		InitialLiabilityWeight:          j.InitialLiabilityWeight,
		MaintenanceLiabilityWeight:      j.MaintenanceLiabilityWeight,
		ImfFactor:                       j.ImfFactor,
		CumulativeDepositInterest:       j.CumulativeDepositInterest,
		CumulativeBorrowInterest:        j.CumulativeBorrowInterest,
		HistoricalOracleTwap5Min:        j.OracleTwap5Min,
		MaxConfidenceIntervalMultiplier: j.MaxConfMultiplier,
		FuelBoostDeposits:               j.FuelBoostDeposits,
		FuelBoostBorrows:                j.FuelBoostBorrows,
	}
	if err := mk.Validate(); err != nil {
		return nil, fmt.Errorf("parse SpotMarketUpdate: %w", err)
	}

	return &event.SpotMarketUpdate{
		Market:    mk,
		Sequence:  j.Sequence,
		Timestamp: time.UnixMicro(j.TimestampUs),
	}, nil
}

type perpMarketJSON struct {
	MarketIndex            uint16 `json:"market_index"`
	Name                   string `json:"name"`
	OracleKey              string `json:"oracle_key"`
	ContractTier           string `json:"contract_tier"`
	ContractType           string `json:"contract_type"`
	QuoteSpotMarketIndex   uint16 `json:"quote_spot_market_index"`
	MarginRatioInitial     uint32 `json:"margin_ratio_initial"`
	MarginRatioMaintenance uint32 `json:"margin_ratio_maintenance"`
	HLMarginRatioInitial   uint32 `json:"high_leverage_margin_ratio_initial"`
	HLMarginRatioMaint     uint32 `json:"high_leverage_margin_ratio_maintenance"`
	ImfFactor              uint32 `json:"imf_factor"`
	UnrealizedPnlInitial   uint32 `json:"unrealized_pnl_initial_asset_weight"`
	UnrealizedPnlMaint     uint32 `json:"unrealized_pnl_maintenance_asset_weight"`
	MaxConfMultiplier      uint64 `json:"max_confidence_interval_multiplier"`
	FuelBoostPosition      uint8  `json:"fuel_boost_position"`
	CumFundingLong         int64  `json:"cumulative_funding_rate_long"`
	CumFundingShort        int64  `json:"cumulative_funding_rate_short"`
	BasePerLP              int64  `json:"base_asset_amount_per_lp"`
	QuotePerLP             int64  `json:"quote_asset_amount_per_lp"`
	OracleTwap5Min         int64  `json:"oracle_twap_5min"`
	Sequence               int64  `json:"sequence"`
	TimestampUs            int64  `json:"timestamp_us"`
}

func parsePerpMarketUpdate(data []byte) (*event.PerpMarketUpdate, error) {
	var j perpMarketJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse PerpMarketUpdate: %w", err)
	}
	tier, err := parseContractTier(j.ContractTier)
	if err != nil {
		return nil, fmt.Errorf("parse PerpMarketUpdate: %w", err)
	}
	contractType, err := parseContractType(j.ContractType)
	if err != nil {
		return nil, fmt.Errorf("parse PerpMarketUpdate: %w", err)
	}

	mk := market.PerpMarket{
		MarketIndex:                         j.MarketIndex,
		Name:                                j.Name,
		ContractTier:                        tier,
		ContractType:                        contractType,
		Oracle:                              oracle.Key(j.OracleKey),
		QuoteSpotMarketIndex:                j.QuoteSpotMarketIndex,
		MarginRatioInitial:                  j.MarginRatioInitial,
		MarginRatioMaintenance:              j.MarginRatioMaintenance,
		HighLeverageMarginRatioInitial:      j.HLMarginRatioInitial,
		HighLeverageMarginRatioMaintenance:  j.HLMarginRatioMaint,
		ImfFactor:                           j.ImfFactor,
		UnrealizedPnlInitialAssetWeight:     j.UnrealizedPnlInitial,
		UnrealizedPnlMaintenanceAssetWeight: j.UnrealizedPnlMaint,
		MaxConfidenceIntervalMultiplier:     j.MaxConfMultiplier,
		FuelBoostPosition:                   j.FuelBoostPosition,
		Amm: market.AMMState{
			CumulativeFundingRateLong:  j.CumFundingLong,
			CumulativeFundingRateShort: j.CumFundingShort,
			BaseAssetAmountPerLP:       j.BasePerLP,
			QuoteAssetAmountPerLP:      j.QuotePerLP,
			HistoricalOracleTwap5Min:   j.OracleTwap5Min,
		},
	}
	if err := mk.Validate(); err != nil {
		return nil, fmt.Errorf("parse PerpMarketUpdate: %w", err)
	}

	return &event.PerpMarketUpdate{
		Market:    mk,
		Sequence:  j.Sequence,
		Timestamp: time.UnixMicro(j.TimestampUs),
	}, nil
}

type spotPositionJSON struct {
	MarketIndex   uint16 `json:"market_index"`
	ScaledBalance uint64 `json:"scaled_balance"`
	BalanceType   string `json:"balance_type"` // "deposit" or "borrow"
	OpenBids      int64  `json:"open_bids"`
	OpenAsks      int64  `json:"open_asks"`
	OpenOrders    uint8  `json:"open_orders"`
}

type perpPositionJSON struct {
	MarketIndex               uint16 `json:"market_index"`
	BaseAssetAmount           int64  `json:"base_asset_amount"`
	QuoteAssetAmount          int64  `json:"quote_asset_amount"`
	QuoteEntryAmount          int64  `json:"quote_entry_amount"`
	QuoteBreakEvenAmount      int64  `json:"quote_break_even_amount"`
	OpenBids                  int64  `json:"open_bids"`
	OpenAsks                  int64  `json:"open_asks"`
	OpenOrders                uint8  `json:"open_orders"`
	LPShares                  uint64 `json:"lp_shares"`
	PerLPBase                 int64  `json:"per_lp_base"`
	RemainderBase             int32  `json:"remainder_base_asset_amount"`
	LastCumulativeFundingRate int64  `json:"last_cumulative_funding_rate"`
}

type accountJSON struct {
	UserID           string             `json:"user_id"`
	SpotPositions    []spotPositionJSON `json:"spot_positions"`
	PerpPositions    []perpPositionJSON `json:"perp_positions"`
	MaxMarginRatio   uint32             `json:"max_margin_ratio"`
	HighLeverageMode bool               `json:"high_leverage_mode"`
	Sequence         int64              `json:"sequence"`
	TimestampUs      int64              `json:"timestamp_us"`
}

func parseAccountUpdate(data []byte) (*event.AccountUpdate, error) {
	var j accountJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse AccountUpdate: %w", err)
	}
	userID, err := uuid.Parse(j.UserID)
	if err != nil {
		return nil, fmt.Errorf("parse user_id: %w", err)
	}
	if len(j.SpotPositions) > account.MaxSpotPositions {
		return nil, fmt.Errorf("parse AccountUpdate: %d spot positions exceeds max %d",
			len(j.SpotPositions), account.MaxSpotPositions)
	}
	if len(j.PerpPositions) > account.MaxPerpPositions {
		return nil, fmt.Errorf("parse AccountUpdate: %d perp positions exceeds max %d",
			len(j.PerpPositions), account.MaxPerpPositions)
	}

	user := account.User{
		MaxMarginRatio:   j.MaxMarginRatio,
		HighLeverageMode: j.HighLeverageMode,
	}
	for i, p := range j.SpotPositions {
		bt, err := parseBalanceType(p.BalanceType)
		if err != nil {
			return nil, fmt.Errorf("parse AccountUpdate: %w", err)
		}
		user.SpotPositions[i] = account.SpotPosition{
			MarketIndex:   p.MarketIndex,
			ScaledBalance: p.ScaledBalance,
			BalanceType:   bt,
			OpenBids:      p.OpenBids,
			OpenAsks:      p.OpenAsks,
			OpenOrders:    p.OpenOrders,
		}
		if err := user.SpotPositions[i].Validate(); err != nil {
			return nil, fmt.Errorf("parse AccountUpdate: %w", err)
		}
	}
	for i, p := range j.PerpPositions {
		user.PerpPositions[i] = account.PerpPosition{
			MarketIndex:               p.MarketIndex,
			BaseAssetAmount:           p.BaseAssetAmount,
			QuoteAssetAmount:          p.QuoteAssetAmount,
			QuoteEntryAmount:          p.QuoteEntryAmount,
			QuoteBreakEvenAmount:      p.QuoteBreakEvenAmount,
			OpenBids:                  p.OpenBids,
			OpenAsks:                  p.OpenAsks,
			OpenOrders:                p.OpenOrders,
			LPShares:                  p.LPShares,
			PerLPBase:                 p.PerLPBase,
			RemainderBaseAssetAmount:  p.RemainderBase,
			LastCumulativeFundingRate: p.LastCumulativeFundingRate,
		}
	}

	return &event.AccountUpdate{
		UserID:    userID,
		User:      user,
		Sequence:  j.Sequence,
		Timestamp: time.UnixMicro(j.TimestampUs),
	}, nil
}

type guardRailsJSON struct {
	TooVolatileRatio          int64  `json:"too_volatile_ratio"`
	ConfidenceIntervalMaxSize uint64 `json:"confidence_interval_max_size"`
	SlotsBeforeStaleForAMM    int64  `json:"slots_before_stale_for_amm"`
	SlotsBeforeStaleForMargin int64  `json:"slots_before_stale_for_margin"`
	Sequence                  int64  `json:"sequence"`
	TimestampUs               int64  `json:"timestamp_us"`
}

func parseGuardRailsUpdate(data []byte) (*event.OracleGuardRailsUpdate, error) {
	var j guardRailsJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse OracleGuardRailsUpdate: %w", err)
	}
	if j.SlotsBeforeStaleForMargin <= 0 {
		return nil, fmt.Errorf("parse OracleGuardRailsUpdate: non-positive margin staleness window %d",
			j.SlotsBeforeStaleForMargin)
	}
	return &event.OracleGuardRailsUpdate{
		Rails: oracle.GuardRails{
			TooVolatileRatio:          j.TooVolatileRatio,
			ConfidenceIntervalMaxSize: j.ConfidenceIntervalMaxSize,
			SlotsBeforeStaleForAMM:    j.SlotsBeforeStaleForAMM,
			SlotsBeforeStaleForMargin: j.SlotsBeforeStaleForMargin,
		},
		Sequence:  j.Sequence,
		Timestamp: time.UnixMicro(j.TimestampUs),
	}, nil
}

func parseAssetTier(s string) (market.AssetTier, error) {
	switch s {
	case "collateral", "":
		return market.AssetTierCollateral, nil
	case "protected":
		return market.AssetTierProtected, nil
	case "cross":
		return market.AssetTierCross, nil
	case "isolated":
		return market.AssetTierIsolated, nil
	case "unlisted":
		return market.AssetTierUnlisted, nil
	default:
		return 0, fmt.Errorf("unknown asset tier %q", s)
	}
}

func parseContractTier(s string) (market.ContractTier, error) {
	switch s {
	case "a":
		return market.ContractTierA, nil
	case "b":
		return market.ContractTierB, nil
	case "c", "":
		return market.ContractTierC, nil
	case "speculative":
		return market.ContractTierSpeculative, nil
	case "highly_speculative":
		return market.ContractTierHighlySpeculative, nil
	case "isolated":
		return market.ContractTierIsolated, nil
	default:
		return 0, fmt.Errorf("unknown contract tier %q", s)
	}
}

func parseContractType(s string) (market.ContractType, error) {
	switch s {
	case "perpetual", "":
		return market.ContractTypePerpetual, nil
	case "future":
		return market.ContractTypeFuture, nil
	case "prediction":
		return market.ContractTypePrediction, nil
	default:
		return 0, fmt.Errorf("unknown contract type %q", s)
	}
}

func parseBalanceType(s string) (market.BalanceType, error) {
	switch s {
	case "deposit", "":
		return market.BalanceTypeDeposit, nil
	case "borrow":
		return market.BalanceTypeBorrow, nil
	default:
		return 0, fmt.Errorf("unknown balance type %q", s)
	}
}
