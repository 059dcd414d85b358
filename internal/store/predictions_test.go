package store

import (
	"context"
	"testing"
)

func seedMinerTable(t *testing.T, s *Store, hotkey string) string {
	t.Helper()
	table, err := s.EnsureMinerTable(context.Background(), hotkey)
	if err != nil {
		t.Fatalf("EnsureMinerTable() failed: %v", err)
	}
	return table
}

func TestInsertPredictions_IgnorePolicyKeepsExisting(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	table := seedMinerTable(t, s, "hk1")

	first := []PredictionRow{{
		NextplaceID:         "NP1",
		MinerHotkey:         "hk1",
		PredictedSalePrice:  500000,
		PredictedSaleDate:   "2026-10-01",
		PredictionTimestamp: "2026-09-01T00:00:00Z",
		Market:              "Austin",
	}}
	if err := s.InsertPredictions(ctx, table, PolicyIgnore, first); err != nil {
		t.Fatalf("first InsertPredictions() failed: %v", err)
	}

	second := []PredictionRow{{
		NextplaceID:         "NP1",
		MinerHotkey:         "hk1",
		PredictedSalePrice:  999999,
		PredictedSaleDate:   "2026-11-01",
		PredictionTimestamp: "2026-09-02T00:00:00Z",
		Market:              "Austin",
	}}
	if err := s.InsertPredictions(ctx, table, PolicyIgnore, second); err != nil {
		t.Fatalf("second InsertPredictions() failed: %v", err)
	}

	rows, err := s.Predictions(ctx, table)
	if err != nil {
		t.Fatalf("Predictions() failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1", len(rows))
	}
	if rows[0].PredictedSalePrice != 500000 {
		t.Errorf("price = %v, want original 500000", rows[0].PredictedSalePrice)
	}
}

func TestInsertPredictions_ReplacePolicyOverwrites(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	table := seedMinerTable(t, s, "hk1")

	first := []PredictionRow{{
		NextplaceID:         "NP1",
		MinerHotkey:         "hk1",
		PredictedSalePrice:  500000,
		PredictedSaleDate:   "2026-10-01",
		PredictionTimestamp: "2026-09-01T00:00:00Z",
		Market:              "Austin",
	}}
	if err := s.InsertPredictions(ctx, table, PolicyReplace, first); err != nil {
		t.Fatalf("first InsertPredictions() failed: %v", err)
	}

	second := []PredictionRow{{
		NextplaceID:         "NP1",
		MinerHotkey:         "hk1",
		PredictedSalePrice:  999999,
		PredictedSaleDate:   "2026-11-01",
		PredictionTimestamp: "2026-09-02T00:00:00Z",
		Market:              "Austin",
	}}
	if err := s.InsertPredictions(ctx, table, PolicyReplace, second); err != nil {
		t.Fatalf("second InsertPredictions() failed: %v", err)
	}

	rows, err := s.Predictions(ctx, table)
	if err != nil {
		t.Fatalf("Predictions() failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1", len(rows))
	}
	if rows[0].PredictedSalePrice != 999999 {
		t.Errorf("price = %v, want replaced 999999", rows[0].PredictedSalePrice)
	}
	if rows[0].PredictedSaleDate != "2026-11-01" {
		t.Errorf("date = %q, want replaced 2026-11-01", rows[0].PredictedSaleDate)
	}
}

func TestInsertPredictions_Batch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	table := seedMinerTable(t, s, "hk1")

	rows := make([]PredictionRow, 0, 50)
	for i := 0; i < 50; i++ {
		rows = append(rows, PredictionRow{
			NextplaceID:         string(rune('A'+i%26)) + "NP",
			MinerHotkey:         "hk1",
			PredictedSalePrice:  float64(100000 + i),
			PredictedSaleDate:   "2026-10-01",
			PredictionTimestamp: "2026-09-01T00:00:00Z",
			Market:              "Austin",
		})
	}
	if err := s.InsertPredictions(ctx, table, PolicyIgnore, rows); err != nil {
		t.Fatalf("InsertPredictions() failed: %v", err)
	}

	// 26 distinct nextplace ids after conflict resolution
	size, err := s.TableSize(ctx, table)
	if err != nil {
		t.Fatalf("TableSize() failed: %v", err)
	}
	if size != 26 {
		t.Errorf("size = %d, want 26", size)
	}
}

func TestInsertPredictions_EmptyIsNoop(t *testing.T) {
	s := openTestStore(t)
	table := seedMinerTable(t, s, "hk1")

	if err := s.InsertPredictions(context.Background(), table, PolicyIgnore, nil); err != nil {
		t.Fatalf("InsertPredictions(nil) failed: %v", err)
	}
}

func TestInsertPredictions_RejectsUnknownPolicy(t *testing.T) {
	s := openTestStore(t)
	table := seedMinerTable(t, s, "hk1")

	err := s.InsertPredictions(context.Background(), table, ConflictPolicy("ROLLBACK"), []PredictionRow{{NextplaceID: "NP1"}})
	if err == nil {
		t.Fatal("InsertPredictions with unknown policy succeeded, want error")
	}
}
