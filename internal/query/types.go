package query

import "github.com/google/uuid"

// MarginSnapshotResponse is a persisted margin evaluation row. Collateral
// and requirement values are decimal strings since they exceed int64.
type MarginSnapshotResponse struct {
	UserID                 uuid.UUID `json:"user_id"`
	MarginType             string    `json:"margin_type"`
	Sequence               int64     `json:"sequence"`
	TotalCollateral        string    `json:"total_collateral"`
	MarginRequirement      string    `json:"margin_requirement"`
	FreeCollateral         string    `json:"free_collateral"`
	MeetsMarginRequirement bool      `json:"meets_margin_requirement"`
	NumSpotLiabilities     int16     `json:"num_spot_liabilities"`
	NumPerpLiabilities     int16     `json:"num_perp_liabilities"`
	AllOraclesValid        bool      `json:"all_oracles_valid"`
	WithSpotIsolatedLiab   bool      `json:"with_spot_isolated_liability"`
	WithPerpIsolatedLiab   bool      `json:"with_perp_isolated_liability"`
	Slot                   int64     `json:"slot"`
	Timestamp              int64     `json:"timestamp"`
	AsOfSequence           int64     `json:"as_of_sequence"`
}

// LiveMarginResponse is a margin evaluation computed from the in-memory
// engine state at request time rather than read from persistence.
type LiveMarginResponse struct {
	UserID                  uuid.UUID `json:"user_id"`
	MarginType              string    `json:"margin_type"`
	TotalCollateral         string    `json:"total_collateral"`
	MarginRequirement       string    `json:"margin_requirement"`
	FreeCollateral          string    `json:"free_collateral"`
	MeetsMarginRequirement  bool      `json:"meets_margin_requirement"`
	NumSpotLiabilities      uint8     `json:"num_spot_liabilities"`
	NumPerpLiabilities      uint8     `json:"num_perp_liabilities"`
	AllOraclesValid         bool      `json:"all_oracles_valid"`
	WithSpotIsolatedLiab    bool      `json:"with_spot_isolated_liability"`
	WithPerpIsolatedLiab    bool      `json:"with_perp_isolated_liability"`
	TotalSpotAssetValue     string    `json:"total_spot_asset_value"`
	TotalSpotLiabilityValue string    `json:"total_spot_liability_value"`
	TotalPerpLiabilityValue string    `json:"total_perp_liability_value"`
	TotalPerpPnl            string    `json:"total_perp_pnl"`
	FuelDeposits            uint32    `json:"fuel_deposits"`
	FuelBorrows             uint32    `json:"fuel_borrows"`
	FuelPositions           uint32    `json:"fuel_positions"`
	Slot                    uint64    `json:"slot"`
}

// SpotMarketResponse describes a tracked spot market.
type SpotMarketResponse struct {
	MarketIndex                uint16 `json:"market_index"`
	Name                       string `json:"name"`
	Oracle                     string `json:"oracle"`
	AssetTier                  string `json:"asset_tier"`
	Decimals                   uint32 `json:"decimals"`
	InitialAssetWeight         uint32 `json:"initial_asset_weight"`
	MaintenanceAssetWeight     uint32 `json:"maintenance_asset_weight"`
	InitialLiabilityWeight     uint32 `json:"initial_liability_weight"`
	MaintenanceLiabilityWeight uint32 `json:"maintenance_liability_weight"`
	ImfFactor                  uint32 `json:"imf_factor"`
	HistoricalOracleTwap5Min   int64  `json:"historical_oracle_twap_5min"`
}

// PerpMarketResponse describes a tracked perp market.
type PerpMarketResponse struct {
	MarketIndex            uint16 `json:"market_index"`
	Name                   string `json:"name"`
	ContractTier           string `json:"contract_tier"`
	ContractType           string `json:"contract_type"`
	Oracle                 string `json:"oracle"`
	QuoteSpotMarketIndex   uint16 `json:"quote_spot_market_index"`
	MarginRatioInitial     uint32 `json:"margin_ratio_initial"`
	MarginRatioMaintenance uint32 `json:"margin_ratio_maintenance"`
	ImfFactor              uint32 `json:"imf_factor"`
}

// MarketsResponse lists all tracked markets from the live stores.
type MarketsResponse struct {
	SpotMarkets []SpotMarketResponse `json:"spot_markets"`
	PerpMarkets []PerpMarketResponse `json:"perp_markets"`
	Slot        uint64               `json:"slot"`
}

// IntegrityReport is the result of a hash chain verification over the
// persisted snapshot history.
type IntegrityReport struct {
	IsHealthy       bool    `json:"is_healthy"`
	RowsChecked     int64   `json:"rows_checked"`
	HashChainBreaks []int64 `json:"hash_chain_breaks,omitempty"`
}
