package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// WriteSynapseRecord stores the set of nextplace ids offered to miners
// under an outbound request id. The set is JSON-encoded; a later
// ingestion cycle consults it to reject predictions for listings that
// were never offered.
func (s *Store) WriteSynapseRecord(ctx context.Context, requestID string, nextplaceIDs []string) error {
	encoded, err := json.Marshal(nextplaceIDs)
	if err != nil {
		return fmt.Errorf("write synapse record: encode ids: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO synapse_ids (synapse_id, nextplace_ids)
		VALUES (?, ?)
	`, requestID, string(encoded))
	if err != nil {
		return fmt.Errorf("write synapse record: %w", err)
	}
	return nil
}

// SynapseRecord returns the offered nextplace ids for a request id.
// Returns sql.ErrNoRows if the request id is unknown.
func (s *Store) SynapseRecord(ctx context.Context, requestID string) ([]string, error) {
	var encoded string
	err := s.db.QueryRowContext(ctx, `
		SELECT nextplace_ids FROM synapse_ids WHERE synapse_id = ?
	`, requestID).Scan(&encoded)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("read synapse record: %w", err)
	}

	var ids []string
	if err := json.Unmarshal([]byte(encoded), &ids); err != nil {
		return nil, fmt.Errorf("decode synapse record %q: %w", requestID, err)
	}
	return ids, nil
}

// DeleteSynapseRecords removes the records for the given request ids in
// one statement. Deleting a consulted record prevents unbounded growth
// of synapse_ids and replay of the same request id in a later cycle.
func (s *Store) DeleteSynapseRecords(ctx context.Context, requestIDs []string) error {
	if len(requestIDs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(requestIDs)), ",")
	args := make([]any, len(requestIDs))
	for i, id := range requestIDs {
		args[i] = id
	}

	query := fmt.Sprintf("DELETE FROM synapse_ids WHERE synapse_id IN (%s)", placeholders)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete synapse records: %w", err)
	}
	return nil
}
