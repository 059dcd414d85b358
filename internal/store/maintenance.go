package store

import (
	"context"
	"fmt"
)

// fixedTables lists the tables created by schema.sql.
var fixedTables = []string{
	"properties",
	"sales",
	"scored_predictions",
	"miner_scores",
	"active_miners",
	"website_comms",
	"synapse_ids",
}

// FixedTables returns the names of the fixed schema tables.
func FixedTables() []string {
	out := make([]string, len(fixedTables))
	copy(out, fixedTables)
	return out
}

// TableSize returns the row count of a table. Only fixed tables and
// per-miner prediction tables are accepted.
func (s *Store) TableSize(ctx context.Context, table string) (int64, error) {
	if !isKnownTable(table) {
		return 0, fmt.Errorf("table size: unknown table %q", table)
	}
	var count int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", table)
	if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("table size for %s: %w", table, err)
	}
	return count, nil
}

// DeleteAllSales removes every row from the sales table.
func (s *Store) DeleteAllSales(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM sales"); err != nil {
		return fmt.Errorf("delete all sales: %w", err)
	}
	return nil
}

// DeleteAllProperties removes every row from the properties table.
func (s *Store) DeleteAllProperties(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM properties"); err != nil {
		return fmt.Errorf("delete all properties: %w", err)
	}
	return nil
}

// Checkpoint flushes the WAL into the main database file and compacts
// it. Intended for operator use between cycles, not the hot path.
func (s *Store) Checkpoint(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(FULL)"); err != nil {
		return fmt.Errorf("wal checkpoint: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("vacuum: %w", err)
	}
	return nil
}

func isKnownTable(table string) bool {
	for _, t := range fixedTables {
		if t == table {
			return true
		}
	}
	return validateMinerTable(table) == nil
}
