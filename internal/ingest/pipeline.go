package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/homecast/homecast/internal/metrics"
	"github.com/homecast/homecast/internal/registry"
	"github.com/homecast/homecast/internal/store"
)

// Pipeline validates and persists inbound prediction batches.
//
// Multiple goroutines may call ProcessPredictions concurrently; the
// store serializes the shared-table sequences internally, and a miner's
// own prediction table is only ever written by the goroutine handling
// that miner's registry position.
type Pipeline struct {
	store    *store.Store
	registry registry.Registry
	metrics  *metrics.Metrics
	idGen    RequestIDGenerator

	// now is injectable for tests.
	now func() time.Time
}

// New creates a Pipeline. metrics may be nil.
func New(st *store.Store, reg registry.Registry, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		store:    st,
		registry: reg,
		metrics:  m,
		idGen:    UUIDv7Generator{},
		now:      time.Now,
	}
}

// RecordOutboundRequest assigns a fresh request id to the set of
// listings offered to miners and persists it for later validation of
// the responses.
func (p *Pipeline) RecordOutboundRequest(ctx context.Context, nextplaceIDs []string) (string, error) {
	requestID := p.idGen.Generate()
	if err := p.store.WriteSynapseRecord(ctx, requestID, nextplaceIDs); err != nil {
		return "", fmt.Errorf("record outbound request: %w", err)
	}
	return requestID, nil
}

// ProcessPredictions ingests a batch of responses. The i-th response is
// attributed to the miner at registry position i.
//
// A malformed prediction is dropped with a logged reason; a response
// whose miner cannot be resolved, or whose offered set is unknown or
// undecodable, is skipped without aborting the batch. Every synapse
// record referenced by the batch is deleted afterwards, valid or not.
func (p *Pipeline) ProcessPredictions(ctx context.Context, responses []Response) []ResponseResult {
	if len(responses) == 0 {
		slog.Error("no responses received")
		return nil
	}

	hotkeys := p.registry.Hotkeys()
	timestamp := p.now().UTC().Format(store.TimestampLayout)

	results := make([]ResponseResult, 0, len(responses))
	requestIDs := make([]string, 0, len(responses))
	seen := make(map[string]bool, len(responses))

	for idx, response := range responses {
		if response.RequestID != "" && !seen[response.RequestID] {
			seen[response.RequestID] = true
			requestIDs = append(requestIDs, response.RequestID)
		}
		results = append(results, p.processResponse(ctx, response, idx, hotkeys, timestamp))
	}

	// Consulted request ids must not survive the batch: dropping them
	// bounds synapse_ids and blocks replay of the same id later.
	if err := p.store.DeleteSynapseRecords(ctx, requestIDs); err != nil {
		slog.Error("failed to delete synapse records", "count", len(requestIDs), "error", err)
	}

	if miners, err := p.store.ActiveMiners(ctx); err == nil {
		p.metrics.SetActiveMiners(len(miners))
	}

	return results
}

// processResponse handles one response end to end.
func (p *Pipeline) processResponse(ctx context.Context, response Response, idx int, hotkeys []string, timestamp string) ResponseResult {
	result := ResponseResult{RequestID: response.RequestID}

	offered, err := p.offeredSet(ctx, response.RequestID)
	if errors.Is(err, sql.ErrNoRows) {
		slog.Warn("skipping response for unknown request", "request_id", response.RequestID, "index", idx)
		p.metrics.ResponseSkipped()
		result.Skipped = true
		result.Reason = ReasonUnknownRequest
		return result
	}
	if err != nil {
		slog.Error("failed to load offered set", "request_id", response.RequestID, "error", err)
		p.metrics.ResponseSkipped()
		result.Skipped = true
		result.Reason = ReasonBadOfferedSet
		result.Err = err
		return result
	}

	if idx >= len(hotkeys) || hotkeys[idx] == "" {
		slog.Error("failed to resolve miner hotkey", "index", idx, "request_id", response.RequestID)
		p.metrics.ResponseSkipped()
		result.Skipped = true
		result.Reason = ReasonUnresolvedMiner
		return result
	}
	hotkey := hotkeys[idx]
	result.MinerHotkey = hotkey

	var ignoreRows, replaceRows []store.PredictionRow
	for _, prediction := range response.Predictions {
		outcome := Outcome{NextplaceID: prediction.NextplaceID}

		switch {
		case prediction.PredictedSalePrice == nil || prediction.PredictedSaleDate == nil:
			outcome.Reason = ReasonMissingFields
		case !offered[prediction.NextplaceID]:
			outcome.Reason = ReasonNotOffered
		default:
			outcome.Accepted = true
		}

		if !outcome.Accepted {
			slog.Debug("dropping prediction",
				"nextplace_id", prediction.NextplaceID,
				"miner", hotkey,
				"reason", string(outcome.Reason))
			p.metrics.PredictionsRejected(string(outcome.Reason), 1)
			result.Outcomes = append(result.Outcomes, outcome)
			continue
		}

		row := store.PredictionRow{
			NextplaceID:         prediction.NextplaceID,
			MinerHotkey:         hotkey,
			PredictedSalePrice:  *prediction.PredictedSalePrice,
			PredictedSaleDate:   *prediction.PredictedSaleDate,
			PredictionTimestamp: timestamp,
			Market:              normalizeMarket(prediction.Market),
		}
		if prediction.ForceUpdate {
			replaceRows = append(replaceRows, row)
		} else {
			ignoreRows = append(ignoreRows, row)
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	if len(ignoreRows) == 0 && len(replaceRows) == 0 {
		return result
	}

	table, err := p.store.EnsureMinerTable(ctx, hotkey)
	if err != nil {
		slog.Error("failed to create miner table", "miner", hotkey, "error", err)
		result.Err = err
		return result
	}

	if err := p.store.InsertPredictions(ctx, table, store.PolicyIgnore, ignoreRows); err != nil {
		slog.Error("failed to ingest predictions", "miner", hotkey, "policy", "ignore", "error", err)
		result.Err = err
		return result
	}
	p.metrics.PredictionsIngested("ignore", len(ignoreRows))

	if err := p.store.InsertPredictions(ctx, table, store.PolicyReplace, replaceRows); err != nil {
		slog.Error("failed to ingest predictions", "miner", hotkey, "policy", "replace", "error", err)
		result.Err = err
		return result
	}
	p.metrics.PredictionsIngested("replace", len(replaceRows))

	if err := p.store.MarkMinerActive(ctx, hotkey); err != nil {
		slog.Error("failed to mark miner active", "miner", hotkey, "error", err)
		result.Err = err
		return result
	}

	if size, err := p.store.TableSize(ctx, table); err == nil {
		slog.Debug("predictions ingested", "miner", hotkey, "table_size", size,
			"ignored_policy", len(ignoreRows), "replace_policy", len(replaceRows))
	}

	return result
}

// offeredSet loads and indexes the offered-listing set for a request.
func (p *Pipeline) offeredSet(ctx context.Context, requestID string) (map[string]bool, error) {
	ids, err := p.store.SynapseRecord(ctx, requestID)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// normalizeMarket puts market names in NFC form so the distinct-market
// aggregate counts accented spellings once.
func normalizeMarket(market string) string {
	return norm.NFC.String(strings.TrimSpace(market))
}
