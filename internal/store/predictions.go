package store

import (
	"context"
	"fmt"
)

// ConflictPolicy selects what happens when an insert collides with an
// existing (nextplace_id, miner_hotkey) primary key.
type ConflictPolicy string

const (
	// PolicyIgnore keeps the existing row and drops the new one.
	PolicyIgnore ConflictPolicy = "IGNORE"

	// PolicyReplace replaces the existing row with the new one.
	PolicyReplace ConflictPolicy = "REPLACE"
)

// PredictionRow is one miner prediction destined for a per-miner table.
type PredictionRow struct {
	NextplaceID         string
	MinerHotkey         string
	PredictedSalePrice  float64
	PredictedSaleDate   string
	PredictionTimestamp string
	Market              string
}

// InsertPredictions batch-inserts rows into a per-miner prediction
// table under the given conflict policy. All rows are written in a
// single transaction.
func (s *Store) InsertPredictions(ctx context.Context, table string, policy ConflictPolicy, rows []PredictionRow) error {
	if len(rows) == 0 {
		return nil
	}
	if err := validateMinerTable(table); err != nil {
		return err
	}
	if policy != PolicyIgnore && policy != PolicyReplace {
		return fmt.Errorf("insert predictions: unknown conflict policy %q", policy)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert predictions: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	query := fmt.Sprintf(`
		INSERT OR %s INTO %s
		(nextplace_id, miner_hotkey, predicted_sale_price, predicted_sale_date, prediction_timestamp, market)
		VALUES (?, ?, ?, ?, ?, ?)
	`, policy, table)

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("insert predictions: prepare: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		_, err := stmt.ExecContext(ctx,
			row.NextplaceID,
			row.MinerHotkey,
			row.PredictedSalePrice,
			row.PredictedSaleDate,
			row.PredictionTimestamp,
			row.Market,
		)
		if err != nil {
			return fmt.Errorf("insert prediction %s: %w", row.NextplaceID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert predictions: commit: %w", err)
	}

	return nil
}

// Predictions reads all rows from a per-miner prediction table,
// ordered by nextplace_id for deterministic results.
func (s *Store) Predictions(ctx context.Context, table string) ([]PredictionRow, error) {
	if err := validateMinerTable(table); err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
		SELECT nextplace_id, miner_hotkey, predicted_sale_price, predicted_sale_date, prediction_timestamp, market
		FROM %s
		ORDER BY nextplace_id ASC
	`, table)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	defer rows.Close()

	var out []PredictionRow
	for rows.Next() {
		var row PredictionRow
		err := rows.Scan(
			&row.NextplaceID,
			&row.MinerHotkey,
			&row.PredictedSalePrice,
			&row.PredictedSaleDate,
			&row.PredictionTimestamp,
			&row.Market,
		)
		if err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate predictions: %w", err)
	}

	return out, nil
}
