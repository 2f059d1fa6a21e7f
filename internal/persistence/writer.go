package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// SnapshotWriter writes margin snapshots to Postgres using batch inserts.
// Multi-row INSERT keeps the writer portable across drivers; switch to pgx
// CopyFrom if snapshot volume outgrows it.
type SnapshotWriter struct {
	db *sql.DB
}

// SnapshotRow is one row of risk.margin_snapshots. Big integer fields
// travel as decimal strings and land in NUMERIC columns.
type SnapshotRow struct {
	Sequence               int64
	UserID                 string
	MarginType             string
	TotalCollateral        string
	MarginRequirement      string
	FreeCollateral         string
	MeetsMarginRequirement bool
	NumSpotLiabilities     int16
	NumPerpLiabilities     int16
	AllOraclesValid        bool
	WithSpotIsolatedLiab   bool
	WithPerpIsolatedLiab   bool
	Slot                   int64
	ResultHash             []byte
	PrevHash               []byte
	Timestamp              time.Time
}

func NewSnapshotWriter(db *sql.DB) *SnapshotWriter {
	return &SnapshotWriter{db: db}
}

const snapshotColumns = 16

// WriteSnapshotBatch writes a batch of snapshots inside the given
// transaction using a multi-row INSERT.
func (w *SnapshotWriter) WriteSnapshotBatch(ctx context.Context, tx *sql.Tx, rows []SnapshotRow) error {
	if len(rows) == 0 {
		return nil
	}

	query := `INSERT INTO risk.margin_snapshots
		(sequence, user_id, margin_type, total_collateral, margin_requirement, free_collateral,
		 meets_margin_requirement, num_spot_liabilities, num_perp_liabilities, all_oracles_valid,
		 with_spot_isolated_liability, with_perp_isolated_liability, slot, result_hash, prev_hash, timestamp)
		VALUES `

	values := make([]string, 0, len(rows))
	args := make([]interface{}, 0, len(rows)*snapshotColumns)

	for i, r := range rows {
		base := i * snapshotColumns
		placeholders := make([]string, snapshotColumns)
		for j := range placeholders {
			placeholders[j] = fmt.Sprintf("$%d", base+j+1)
		}
		values = append(values, "("+strings.Join(placeholders, ", ")+")")
		args = append(args,
			r.Sequence, r.UserID, r.MarginType, r.TotalCollateral, r.MarginRequirement, r.FreeCollateral,
			r.MeetsMarginRequirement, r.NumSpotLiabilities, r.NumPerpLiabilities, r.AllOraclesValid,
			r.WithSpotIsolatedLiab, r.WithPerpIsolatedLiab, r.Slot, r.ResultHash, r.PrevHash, r.Timestamp,
		)
	}

	query += strings.Join(values, ", ")
	query += " ON CONFLICT (sequence) DO NOTHING" // Idempotent writes

	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// LatestSequence returns the highest persisted snapshot sequence, or -1
// when the table is empty. Used to resume the output sequence on restart.
func (w *SnapshotWriter) LatestSequence(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	err := w.db.QueryRowContext(ctx,
		`SELECT MAX(sequence) FROM risk.margin_snapshots`,
	).Scan(&seq)
	if err != nil {
		return -1, err
	}
	if !seq.Valid {
		return -1, nil
	}
	return seq.Int64, nil
}
