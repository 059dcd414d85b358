package store

import (
	"context"
	"fmt"
	"time"
)

// TimestampLayout is the wire format for timestamps persisted by the
// validator. All timestamps are UTC.
const TimestampLayout = "2006-01-02T15:04:05Z"

// MinerScore is one row of miner_scores: a miner's accumulated
// performance, maintained by the external reconciliation process and
// read by the weight allocator.
type MinerScore struct {
	Hotkey           string
	LifetimeScore    float64
	TotalPredictions int
	LastUpdate       time.Time
}

// MinerScores returns all rows of miner_scores.
func (s *Store) MinerScores(ctx context.Context) ([]MinerScore, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT miner_hotkey, lifetime_score, total_predictions, last_update_timestamp
		FROM miner_scores
		ORDER BY miner_hotkey ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query miner scores: %w", err)
	}
	defer rows.Close()

	var scores []MinerScore
	for rows.Next() {
		var ms MinerScore
		var lastUpdate string
		if err := rows.Scan(&ms.Hotkey, &ms.LifetimeScore, &ms.TotalPredictions, &lastUpdate); err != nil {
			return nil, fmt.Errorf("scan miner score: %w", err)
		}
		ms.LastUpdate, err = time.Parse(TimestampLayout, lastUpdate)
		if err != nil {
			return nil, fmt.Errorf("parse last update for %s: %w", ms.Hotkey, err)
		}
		scores = append(scores, ms)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate miner scores: %w", err)
	}

	return scores, nil
}

// UpsertMinerScore writes a miner's score row, replacing any existing
// row for the same hotkey. This is the write surface the external
// reconciliation process uses.
func (s *Store) UpsertMinerScore(ctx context.Context, ms MinerScore) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO miner_scores (miner_hotkey, lifetime_score, total_predictions, last_update_timestamp)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(miner_hotkey) DO UPDATE SET
			lifetime_score = excluded.lifetime_score,
			total_predictions = excluded.total_predictions,
			last_update_timestamp = excluded.last_update_timestamp
	`, ms.Hotkey, ms.LifetimeScore, ms.TotalPredictions, ms.LastUpdate.UTC().Format(TimestampLayout))
	if err != nil {
		return fmt.Errorf("upsert miner score: %w", err)
	}
	return nil
}

// ScoredPrediction is a prediction reconciled against a realized sale.
type ScoredPrediction struct {
	NextplaceID         string
	Market              string
	MinerHotkey         string
	PredictedSalePrice  float64
	PredictedSaleDate   string
	PredictionTimestamp string
	SalePrice           float64
	SaleDate            string
	ScoreTimestamp      string
}

// WriteScoredPrediction records a reconciled prediction. Duplicate
// (nextplace_id, miner_hotkey) pairs are silently ignored so the
// reconciliation process can safely re-run.
func (s *Store) WriteScoredPrediction(ctx context.Context, sp ScoredPrediction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scored_predictions
		(nextplace_id, market, miner_hotkey, predicted_sale_price, predicted_sale_date,
		 prediction_timestamp, sale_price, sale_date, score_timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		sp.NextplaceID,
		sp.Market,
		sp.MinerHotkey,
		sp.PredictedSalePrice,
		sp.PredictedSaleDate,
		sp.PredictionTimestamp,
		sp.SalePrice,
		sp.SaleDate,
		sp.ScoreTimestamp,
	)
	if err != nil {
		return fmt.Errorf("write scored prediction: %w", err)
	}
	return nil
}

// MarkMinerActive records a miner hotkey in the active set. Idempotent.
func (s *Store) MarkMinerActive(ctx context.Context, hotkey string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO active_miners (miner_hotkey) VALUES (?)
	`, hotkey)
	if err != nil {
		return fmt.Errorf("mark miner active: %w", err)
	}
	return nil
}

// ActiveMiners returns all hotkeys in the active set.
func (s *Store) ActiveMiners(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT miner_hotkey FROM active_miners ORDER BY miner_hotkey ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query active miners: %w", err)
	}
	defer rows.Close()

	var hotkeys []string
	for rows.Next() {
		var hk string
		if err := rows.Scan(&hk); err != nil {
			return nil, fmt.Errorf("scan active miner: %w", err)
		}
		hotkeys = append(hotkeys, hk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate active miners: %w", err)
	}

	return hotkeys, nil
}
