package query

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"RiskEngine/internal/account"
	"RiskEngine/internal/margin"
	"RiskEngine/internal/market"
	"RiskEngine/internal/oracle"
)

// EngineState is the read side of the risk core. The stores return copies
// and the oracle map is rebuilt per call, so every method is safe to use
// from request goroutines while the event loop keeps mutating.
type EngineState interface {
	Markets() *market.Store
	Accounts() *account.Store
	BuildOracleMap() *oracle.Map
	Slot() uint64
}

// QueryService serves read-only access to persisted margin snapshots and
// to the live engine state. All persisted responses carry as_of_sequence
// for freshness semantics.
type QueryService struct {
	db    *sql.DB
	state EngineState
}

func NewQueryService(db *sql.DB, state EngineState) *QueryService {
	return &QueryService{db: db, state: state}
}

// ParseMarginType maps an API margin type string onto a requirement type.
func ParseMarginType(s string) (margin.RequirementType, error) {
	switch s {
	case "initial", "Initial", "":
		return margin.Initial, nil
	case "fill", "Fill":
		return margin.Fill, nil
	case "maintenance", "Maintenance":
		return margin.Maintenance, nil
	default:
		return 0, fmt.Errorf("unknown margin type %q", s)
	}
}

// GetMarginSnapshot returns the latest persisted margin evaluation for a
// user under one requirement regime.
func (qs *QueryService) GetMarginSnapshot(
	ctx context.Context,
	userID uuid.UUID,
	marginType margin.RequirementType,
) (*MarginSnapshotResponse, error) {
	asOfSeq, err := qs.getWatermark(ctx)
	if err != nil {
		return nil, fmt.Errorf("watermark: %w", err)
	}

	row := qs.db.QueryRowContext(ctx, `
		SELECT sequence, total_collateral, margin_requirement, free_collateral,
		       meets_margin_requirement, num_spot_liabilities, num_perp_liabilities,
		       all_oracles_valid, with_spot_isolated_liability, with_perp_isolated_liability,
		       slot, EXTRACT(EPOCH FROM timestamp)::BIGINT
		FROM risk.margin_snapshots
		WHERE user_id = $1 AND margin_type = $2
		ORDER BY sequence DESC
		LIMIT 1
	`, userID, marginType.String())

	resp := MarginSnapshotResponse{
		UserID:       userID,
		MarginType:   marginType.String(),
		AsOfSequence: asOfSeq,
	}
	err = row.Scan(
		&resp.Sequence, &resp.TotalCollateral, &resp.MarginRequirement,
		&resp.FreeCollateral, &resp.MeetsMarginRequirement,
		&resp.NumSpotLiabilities, &resp.NumPerpLiabilities,
		&resp.AllOraclesValid, &resp.WithSpotIsolatedLiab, &resp.WithPerpIsolatedLiab,
		&resp.Slot, &resp.Timestamp,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetMarginHistory returns persisted margin evaluations for a user with
// cursor-based pagination, newest first.
func (qs *QueryService) GetMarginHistory(
	ctx context.Context,
	userID uuid.UUID,
	marginType *margin.RequirementType,
	limit int,
	afterSequence *int64,
) ([]MarginSnapshotResponse, error) {
	asOfSeq, err := qs.getWatermark(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT sequence, margin_type, total_collateral, margin_requirement, free_collateral,
		       meets_margin_requirement, num_spot_liabilities, num_perp_liabilities,
		       all_oracles_valid, with_spot_isolated_liability, with_perp_isolated_liability,
		       slot, EXTRACT(EPOCH FROM timestamp)::BIGINT
		FROM risk.margin_snapshots
		WHERE user_id = $1
	`
	args := []interface{}{userID}
	argIdx := 2

	if marginType != nil {
		query += fmt.Sprintf(" AND margin_type = $%d", argIdx)
		args = append(args, marginType.String())
		argIdx++
	}

	if afterSequence != nil {
		query += fmt.Sprintf(" AND sequence < $%d", argIdx)
		args = append(args, *afterSequence)
		argIdx++
	}

	query += " ORDER BY sequence DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, limit)

	rows, err := qs.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []MarginSnapshotResponse
	for rows.Next() {
		h := MarginSnapshotResponse{UserID: userID, AsOfSequence: asOfSeq}
		if err := rows.Scan(
			&h.Sequence, &h.MarginType, &h.TotalCollateral, &h.MarginRequirement,
			&h.FreeCollateral, &h.MeetsMarginRequirement,
			&h.NumSpotLiabilities, &h.NumPerpLiabilities,
			&h.AllOraclesValid, &h.WithSpotIsolatedLiab, &h.WithPerpIsolatedLiab,
			&h.Slot, &h.Timestamp,
		); err != nil {
			return nil, err
		}
		history = append(history, h)
	}

	return history, rows.Err()
}

// ComputeMargin evaluates a user's margin from the live engine state.
// Strict pricing and a margin buffer are opt-in per request.
func (qs *QueryService) ComputeMargin(
	ctx context.Context,
	userID uuid.UUID,
	marginType margin.RequirementType,
	strict bool,
	marginBuffer uint64,
) (*LiveMarginResponse, error) {
	u, ok := qs.state.Accounts().Get(userID)
	if !ok {
		return nil, nil
	}

	mctx := margin.StandardContext(marginType)
	if strict {
		mctx = mctx.WithStrict()
	}
	if marginBuffer > 0 {
		mctx = mctx.WithBuffer(marginBuffer)
	}

	spots, perps := qs.state.Markets().Snapshot()
	calc, err := margin.CalculateMarginRequirementAndTotalCollateral(
		u, perps, spots, qs.state.BuildOracleMap(), mctx)
	if err != nil {
		return nil, err
	}

	return &LiveMarginResponse{
		UserID:                  userID,
		MarginType:              marginType.String(),
		TotalCollateral:         calc.TotalCollateral.String(),
		MarginRequirement:       calc.MarginRequirement.String(),
		FreeCollateral:          calc.FreeCollateral().String(),
		MeetsMarginRequirement:  calc.MeetsMarginRequirement(),
		NumSpotLiabilities:      calc.NumSpotLiabilities,
		NumPerpLiabilities:      calc.NumPerpLiabilities,
		AllOraclesValid:         calc.AllOraclesValid,
		WithSpotIsolatedLiab:    calc.WithSpotIsolatedLiability,
		WithPerpIsolatedLiab:    calc.WithPerpIsolatedLiability,
		TotalSpotAssetValue:     calc.TotalSpotAssetValue.String(),
		TotalSpotLiabilityValue: calc.TotalSpotLiabilityValue.String(),
		TotalPerpLiabilityValue: calc.TotalPerpLiabilityValue.String(),
		TotalPerpPnl:            calc.TotalPerpPnl.String(),
		FuelDeposits:            calc.FuelDeposits,
		FuelBorrows:             calc.FuelBorrows,
		FuelPositions:           calc.FuelPositions,
		Slot:                    qs.state.Slot(),
	}, nil
}

// ListMarkets returns every tracked market from the live stores.
func (qs *QueryService) ListMarkets(ctx context.Context) (*MarketsResponse, error) {
	spots := qs.state.Markets().ListSpot()
	perps := qs.state.Markets().ListPerp()

	resp := &MarketsResponse{
		SpotMarkets: make([]SpotMarketResponse, 0, len(spots)),
		PerpMarkets: make([]PerpMarketResponse, 0, len(perps)),
		Slot:        qs.state.Slot(),
	}
	for _, mk := range spots {
		resp.SpotMarkets = append(resp.SpotMarkets, SpotMarketResponse{
			MarketIndex:                mk.MarketIndex,
			Name:                       mk.Name,
			Oracle:                     string(mk.Oracle),
			AssetTier:                  mk.AssetTier.String(),
			Decimals:                   mk.Decimals,
			InitialAssetWeight:         mk.InitialAssetWeight,
			MaintenanceAssetWeight:     mk.MaintenanceAssetWeight,
			InitialLiabilityWeight:     mk.InitialLiabilityWeight,
			MaintenanceLiabilityWeight: mk.MaintenanceLiabilityWeight,
			ImfFactor:                  mk.ImfFactor,
			HistoricalOracleTwap5Min:   mk.HistoricalOracleTwap5Min,
		})
	}
	for _, mk := range perps {
		resp.PerpMarkets = append(resp.PerpMarkets, PerpMarketResponse{
			MarketIndex:            mk.MarketIndex,
			Name:                   mk.Name,
			ContractTier:           mk.ContractTier.String(),
			ContractType:           mk.ContractType.String(),
			Oracle:                 string(mk.Oracle),
			QuoteSpotMarketIndex:   mk.QuoteSpotMarketIndex,
			MarginRatioInitial:     mk.MarginRatioInitial,
			MarginRatioMaintenance: mk.MarginRatioMaintenance,
			ImfFactor:              mk.ImfFactor,
		})
	}
	sort.Slice(resp.SpotMarkets, func(i, j int) bool {
		return resp.SpotMarkets[i].MarketIndex < resp.SpotMarkets[j].MarketIndex
	})
	sort.Slice(resp.PerpMarkets, func(i, j int) bool {
		return resp.PerpMarkets[i].MarketIndex < resp.PerpMarkets[j].MarketIndex
	})

	return resp, nil
}

// --- Admin APIs ---

// VerifyIntegrity walks the persisted snapshot history and checks that
// each row's prev_hash matches the result_hash of the preceding row.
func (qs *QueryService) VerifyIntegrity(ctx context.Context) (*IntegrityReport, error) {
	report := &IntegrityReport{}

	err := qs.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM risk.margin_snapshots
	`).Scan(&report.RowsChecked)
	if err != nil {
		return nil, err
	}

	rows, err := qs.db.QueryContext(ctx, `
		SELECT s1.sequence
		FROM risk.margin_snapshots s1
		JOIN risk.margin_snapshots s2
		  ON s2.sequence = (
			SELECT MAX(sequence) FROM risk.margin_snapshots WHERE sequence < s1.sequence
		  )
		WHERE s1.prev_hash != s2.result_hash
		LIMIT 10
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var seq int64
		if err := rows.Scan(&seq); err != nil {
			return nil, err
		}
		report.HashChainBreaks = append(report.HashChainBreaks, seq)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	report.IsHealthy = len(report.HashChainBreaks) == 0
	return report, nil
}

// --- helpers ---

func (qs *QueryService) getWatermark(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	err := qs.db.QueryRowContext(ctx, `
		SELECT MAX(sequence) FROM risk.margin_snapshots
	`).Scan(&seq)
	if err != nil {
		return -1, err
	}
	if !seq.Valid {
		return -1, nil
	}
	return seq.Int64, nil
}
