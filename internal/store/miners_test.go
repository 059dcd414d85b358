package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestMinerTableName(t *testing.T) {
	tests := []struct {
		hotkey  string
		want    string
		wantErr bool
	}{
		{hotkey: "5F3sa2TJAWMqDhXG6jhV4N8ko9SxwGy8TpaNS1repo5EYjQX", want: "predictions_5F3sa2TJAWMqDhXG6jhV4N8ko9SxwGy8TpaNS1repo5EYjQX"},
		{hotkey: "abc123", want: "predictions_abc123"},
		{hotkey: "", wantErr: true},
		{hotkey: "abc-123", wantErr: true},
		{hotkey: "x; DROP TABLE miner_scores;--", wantErr: true},
		{hotkey: "abc 123", wantErr: true},
		{hotkey: `a"b`, wantErr: true},
	}

	for _, tt := range tests {
		got, err := MinerTableName(tt.hotkey)
		if tt.wantErr {
			if err == nil {
				t.Errorf("MinerTableName(%q) = %q, want error", tt.hotkey, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("MinerTableName(%q) failed: %v", tt.hotkey, err)
			continue
		}
		if got != tt.want {
			t.Errorf("MinerTableName(%q) = %q, want %q", tt.hotkey, got, tt.want)
		}
	}
}

func TestEnsureMinerTable(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	table, err := s.EnsureMinerTable(ctx, "hk1")
	if err != nil {
		t.Fatalf("EnsureMinerTable() failed: %v", err)
	}
	if table != "predictions_hk1" {
		t.Errorf("table = %q, want predictions_hk1", table)
	}

	// Second call is a no-op
	again, err := s.EnsureMinerTable(ctx, "hk1")
	if err != nil {
		t.Fatalf("second EnsureMinerTable() failed: %v", err)
	}
	if again != table {
		t.Errorf("second call returned %q, want %q", again, table)
	}

	tables, err := s.MinerTables(ctx)
	if err != nil {
		t.Fatalf("MinerTables() failed: %v", err)
	}
	if len(tables) != 1 || tables[0] != table {
		t.Errorf("MinerTables() = %v, want [%s]", tables, table)
	}
}

func TestEnsureMinerTable_RejectsBadHotkey(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.EnsureMinerTable(context.Background(), "x; DROP TABLE miner_scores;--"); err == nil {
		t.Fatal("EnsureMinerTable with injection succeeded, want error")
	}
}

func TestEnsureMinerTable_Concurrent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Many goroutines racing on two distinct miners must not deadlock
	// or produce duplicate-table errors.
	var wg sync.WaitGroup
	errCh := make(chan error, 20)
	for i := 0; i < 10; i++ {
		for _, hotkey := range []string{"minerA", "minerB"} {
			wg.Add(1)
			go func(hk string) {
				defer wg.Done()
				if _, err := s.EnsureMinerTable(ctx, hk); err != nil {
					errCh <- err
				}
			}(hotkey)
		}
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Errorf("concurrent EnsureMinerTable() failed: %v", err)
	}

	tables, err := s.MinerTables(ctx)
	if err != nil {
		t.Fatalf("MinerTables() failed: %v", err)
	}
	if len(tables) != 2 {
		t.Errorf("MinerTables() = %v, want 2 tables", tables)
	}
}

func TestDistinctMarketsSince(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	table, err := s.EnsureMinerTable(ctx, "hk1")
	if err != nil {
		t.Fatalf("EnsureMinerTable() failed: %v", err)
	}

	now := time.Now().UTC()
	recent := now.Format(TimestampLayout)
	old := now.AddDate(0, 0, -10).Format(TimestampLayout)

	rows := []PredictionRow{
		{NextplaceID: "NP1", MinerHotkey: "hk1", PredictedSalePrice: 100, PredictedSaleDate: "2026-10-01", PredictionTimestamp: recent, Market: "Austin"},
		{NextplaceID: "NP2", MinerHotkey: "hk1", PredictedSalePrice: 200, PredictedSaleDate: "2026-10-01", PredictionTimestamp: recent, Market: "Denver"},
		{NextplaceID: "NP3", MinerHotkey: "hk1", PredictedSalePrice: 300, PredictedSaleDate: "2026-10-01", PredictionTimestamp: recent, Market: "Austin"},
		{NextplaceID: "NP4", MinerHotkey: "hk1", PredictedSalePrice: 400, PredictedSaleDate: "2026-10-01", PredictionTimestamp: old, Market: "Seattle"},
	}
	if err := s.InsertPredictions(ctx, table, PolicyIgnore, rows); err != nil {
		t.Fatalf("InsertPredictions() failed: %v", err)
	}

	// Seattle is outside the 5-day window
	count, err := s.DistinctMarketsSince(ctx, table, 5)
	if err != nil {
		t.Fatalf("DistinctMarketsSince() failed: %v", err)
	}
	if count != 2 {
		t.Errorf("DistinctMarketsSince() = %d, want 2", count)
	}

	// A wider window picks Seattle up
	count, err = s.DistinctMarketsSince(ctx, table, 30)
	if err != nil {
		t.Fatalf("DistinctMarketsSince(30) failed: %v", err)
	}
	if count != 3 {
		t.Errorf("DistinctMarketsSince(30) = %d, want 3", count)
	}
}

func TestDistinctMarketsSince_RejectsArbitraryTable(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.DistinctMarketsSince(context.Background(), "miner_scores", 5); err == nil {
		t.Error("DistinctMarketsSince(miner_scores) succeeded, want error")
	}
	if _, err := s.DistinctMarketsSince(context.Background(), fmt.Sprintf("%sbad-key", minerTablePrefix), 5); err == nil {
		t.Error("DistinctMarketsSince with bad hotkey succeeded, want error")
	}
}
