package store

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()
}

func TestOpen_Pragmas(t *testing.T) {
	s := openTestStore(t)

	checks := map[string]string{
		"journal_mode": "wal",
		"foreign_keys": "1",
		"busy_timeout": "5000",
	}
	for name, expected := range checks {
		if err := s.verifyPragma(name, expected); err != nil {
			t.Errorf("pragma check failed: %v", err)
		}
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open() failed: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	// Reopening must re-run the schema without error
	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open() failed: %v", err)
	}
	defer s2.Close()
}

func TestOpen_FixedTablesExist(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, table := range FixedTables() {
		size, err := s.TableSize(ctx, table)
		if err != nil {
			t.Errorf("TableSize(%s) failed: %v", table, err)
		}
		if size != 0 {
			t.Errorf("TableSize(%s) = %d, want 0", table, size)
		}
	}
}

func TestTableSize_RejectsUnknownTable(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.TableSize(context.Background(), "sqlite_master"); err == nil {
		t.Error("TableSize(sqlite_master) succeeded, want error")
	}
	if _, err := s.TableSize(context.Background(), "sales; DROP TABLE sales"); err == nil {
		t.Error("TableSize with injection succeeded, want error")
	}
}

func TestCheckpoint(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.MarkMinerActive(ctx, "hk1"); err != nil {
		t.Fatalf("MarkMinerActive() failed: %v", err)
	}
	if err := s.Checkpoint(ctx); err != nil {
		t.Fatalf("Checkpoint() failed: %v", err)
	}

	// Data survives the checkpoint
	miners, err := s.ActiveMiners(ctx)
	if err != nil {
		t.Fatalf("ActiveMiners() failed: %v", err)
	}
	if len(miners) != 1 || miners[0] != "hk1" {
		t.Errorf("ActiveMiners() = %v, want [hk1]", miners)
	}
}

func TestDeleteAll(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Exec(ctx, `INSERT INTO sales (nextplace_id, sale_price) VALUES ('NP1', 500000)`); err != nil {
		t.Fatalf("insert sale failed: %v", err)
	}
	if err := s.Exec(ctx, `INSERT INTO properties (nextplace_id, market) VALUES ('NP1', 'Austin')`); err != nil {
		t.Fatalf("insert property failed: %v", err)
	}

	if err := s.DeleteAllSales(ctx); err != nil {
		t.Fatalf("DeleteAllSales() failed: %v", err)
	}
	if err := s.DeleteAllProperties(ctx); err != nil {
		t.Fatalf("DeleteAllProperties() failed: %v", err)
	}

	for _, table := range []string{"sales", "properties"} {
		size, err := s.TableSize(ctx, table)
		if err != nil {
			t.Fatalf("TableSize(%s) failed: %v", table, err)
		}
		if size != 0 {
			t.Errorf("TableSize(%s) = %d after delete, want 0", table, size)
		}
	}
}
