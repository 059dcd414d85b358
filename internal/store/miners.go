package store

import (
	"context"
	"fmt"
	"strings"
)

// minerTablePrefix prefixes every per-miner prediction table.
const minerTablePrefix = "predictions_"

// MinerTableName derives the prediction table name for a miner hotkey.
// Hotkeys are interpolated into DDL, so the name is validated against
// an alphanumeric allow-list to prevent SQL injection through a
// malicious identity.
func MinerTableName(hotkey string) (string, error) {
	if hotkey == "" {
		return "", fmt.Errorf("miner table name: empty hotkey")
	}
	for _, r := range hotkey {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", fmt.Errorf("miner table name: invalid character %q in hotkey", r)
		}
	}
	return minerTablePrefix + hotkey, nil
}

// EnsureMinerTable creates the per-miner prediction table and its
// indexes if they do not already exist, and returns the table name.
//
// The check-then-create sequence is guarded by the store mutex so two
// ingestion goroutines racing on the same miner cannot interleave DDL.
func (s *Store) EnsureMinerTable(ctx context.Context, hotkey string) (string, error) {
	table, err := MinerTableName(hotkey)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var count int
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sqlite_master
		WHERE type = 'table' AND name = ?
	`, table).Scan(&count)
	if err != nil {
		return "", fmt.Errorf("check miner table: %w", err)
	}
	if count > 0 {
		return table, nil
	}

	stmts := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				nextplace_id TEXT,
				miner_hotkey TEXT,
				predicted_sale_price REAL,
				predicted_sale_date TEXT,
				prediction_timestamp TEXT,
				market TEXT,
				PRIMARY KEY (nextplace_id, miner_hotkey)
			)
		`, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_timestamp ON %s(prediction_timestamp)`, table, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_market ON %s(market)`, table, table),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return "", fmt.Errorf("create miner table %s: %w", table, err)
		}
	}

	return table, nil
}

// MinerTables returns the names of all per-miner prediction tables.
func (s *Store) MinerTables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name LIKE ?
		ORDER BY name
	`, minerTablePrefix+"%")
	if err != nil {
		return nil, fmt.Errorf("list miner tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan miner table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate miner tables: %w", err)
	}

	return tables, nil
}

// DistinctMarketsSince counts the distinct markets a miner predicted
// into within the trailing window of the given number of days.
func (s *Store) DistinctMarketsSince(ctx context.Context, table string, windowDays int) (int, error) {
	if err := validateMinerTable(table); err != nil {
		return 0, err
	}
	query := fmt.Sprintf(`
		SELECT COUNT(DISTINCT market) FROM %s
		WHERE prediction_timestamp >= datetime('now', ?)
	`, table)
	var count int
	err := s.db.QueryRowContext(ctx, query, fmt.Sprintf("-%d days", windowDays)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("distinct markets for %s: %w", table, err)
	}
	return count, nil
}

// validateMinerTable rejects table names that are not prefix + an
// allow-listed hotkey. Used before interpolating a caller-supplied
// table name into SQL.
func validateMinerTable(table string) error {
	hotkey, ok := strings.CutPrefix(table, minerTablePrefix)
	if !ok {
		return fmt.Errorf("not a miner table: %q", table)
	}
	if _, err := MinerTableName(hotkey); err != nil {
		return err
	}
	return nil
}
