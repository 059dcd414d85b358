package weights

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/homecast/homecast/internal/config"
	"github.com/homecast/homecast/internal/metrics"
	"github.com/homecast/homecast/internal/registry"
	"github.com/homecast/homecast/internal/store"
)

// Allocator converts accumulated miner performance into a normalized
// weight vector and submits it to the network registry.
//
// Allocation is single-flight: a cycle that starts while another is
// still running short-circuits instead of overlapping it.
type Allocator struct {
	store    *store.Store
	registry registry.Registry
	metrics  *metrics.Metrics

	interval       time.Duration
	timeout        time.Duration
	minStake       float64
	hotkey         string
	windowDays     int
	cutoffFraction float64
	staleAfter     time.Duration
	volumeTiers    []VolumeTier

	// now is injectable for tests.
	now func() time.Time

	mu             sync.Mutex
	lastAllocation time.Time

	running atomic.Bool
}

// New creates an Allocator. metrics may be nil. The allocation timer
// starts at construction, so the first cycle runs one interval later.
func New(st *store.Store, reg registry.Registry, m *metrics.Metrics, cfg config.Config) *Allocator {
	a := &Allocator{
		store:          st,
		registry:       reg,
		metrics:        m,
		interval:       cfg.AllocationInterval,
		timeout:        cfg.AllocationTimeout,
		minStake:       cfg.MinValidatorStake,
		hotkey:         cfg.ValidatorHotkey,
		windowDays:     cfg.DiversityWindowDays,
		cutoffFraction: cfg.DiversityCutoffFraction,
		staleAfter:     cfg.StaleScoreAfter,
		volumeTiers:    DefaultVolumeTiers(),
		now:            time.Now,
	}
	a.lastAllocation = a.now()
	return a
}

// IsTimeToAllocate reports whether at least the configured interval has
// elapsed since the last allocation started. The timer resets only when
// an allocation actually runs.
func (a *Allocator) IsTimeToAllocate() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.now().Sub(a.lastAllocation) >= a.interval
}

// Allocate runs one allocation cycle and reports whether the weight
// vector was accepted by the registry. Every failure is logged and
// non-fatal; the next timer tick retries independently.
func (a *Allocator) Allocate(ctx context.Context) bool {
	if !a.running.CompareAndSwap(false, true) {
		slog.Warn("allocation cycle already running, skipping")
		return false
	}
	defer a.running.Store(false)

	a.mu.Lock()
	a.lastAllocation = a.now()
	a.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	accepted, err := a.allocate(ctx)
	elapsed := time.Since(start)

	switch {
	case err != nil:
		slog.Error("weight allocation failed", "error", err, "elapsed", elapsed)
		a.metrics.AllocationCycle("error", elapsed)
		return false
	case !accepted:
		a.metrics.AllocationCycle("rejected", elapsed)
		return false
	default:
		slog.Info("successfully set weights", "elapsed", elapsed)
		a.metrics.AllocationCycle("success", elapsed)
		return true
	}
}

func (a *Allocator) allocate(ctx context.Context) (bool, error) {
	if err := a.registry.Sync(ctx); err != nil {
		return false, fmt.Errorf("sync registry: %w", err)
	}

	scores, err := a.minerScores(ctx)
	if err != nil {
		return false, err
	}
	vector := ComputeWeights(scores)

	stake, ok := a.registry.Stake(a.hotkey)
	if !ok {
		return false, fmt.Errorf("validator hotkey %q not found in registry", a.hotkey)
	}
	if stake < a.minStake {
		slog.Error("insufficient stake to set weights", "stake", stake, "required", a.minStake)
		return false, nil
	}

	uids := make([]int, len(vector))
	for i := range uids {
		uids[i] = i
	}

	accepted, err := a.registry.SetWeights(ctx, registry.SetWeightsRequest{
		UIDs:                uids,
		Weights:             vector,
		WaitForInclusion:    true,
		WaitForFinalization: false,
	})
	if err != nil {
		return false, fmt.Errorf("set weights: %w", err)
	}
	if !accepted {
		slog.Error("registry rejected weight submission", "miners", len(vector))
	}
	return accepted, nil
}

// minerScores builds the dense effective-score vector indexed by
// registry position. Hotkeys absent from the registry are skipped;
// positions without a score row stay zero.
func (a *Allocator) minerScores(ctx context.Context) ([]float64, error) {
	hotkeys := a.registry.Hotkeys()
	uidOf := make(map[string]int, len(hotkeys))
	for uid, hk := range hotkeys {
		uidOf[hk] = uid
	}

	rows, err := a.store.MinerScores(ctx)
	if err != nil {
		return nil, fmt.Errorf("read miner scores: %w", err)
	}

	cutoff, enforced, err := a.marketDiversityCutoff(ctx)
	if err != nil {
		return nil, err
	}

	tables, err := a.store.MinerTables(ctx)
	if err != nil {
		return nil, err
	}
	tableSet := make(map[string]bool, len(tables))
	for _, t := range tables {
		tableSet[t] = true
	}

	scores := make([]float64, len(hotkeys))
	now := a.now()
	for _, ms := range rows {
		uid, known := uidOf[ms.Hotkey]
		if !known {
			continue
		}

		distinctMarkets := 0
		if table, err := store.MinerTableName(ms.Hotkey); err == nil && tableSet[table] {
			distinctMarkets, err = a.store.DistinctMarketsSince(ctx, table, a.windowDays)
			if err != nil {
				return nil, err
			}
		}

		scores[uid] = a.effectiveScore(ms, distinctMarkets, cutoff, enforced, now)
	}

	return scores, nil
}

// effectiveScore applies the decay penalties, in order, to a miner's
// raw lifetime score. Diversity and staleness penalties stack; the
// volume tiers are mutually exclusive.
func (a *Allocator) effectiveScore(ms store.MinerScore, distinctMarkets, cutoff int, enforced bool, now time.Time) float64 {
	score := ms.LifetimeScore

	if enforced && distinctMarkets < cutoff {
		slog.Debug("applying market diversity penalty",
			"miner", ms.Hotkey, "markets", distinctMarkets, "cutoff", cutoff)
		score *= diversityPenalty
	}

	if now.Sub(ms.LastUpdate) > a.staleAfter {
		slog.Debug("applying staleness penalty",
			"miner", ms.Hotkey, "last_update", ms.LastUpdate)
		score *= stalenessPenalty
	}

	return score * volumeMultiplier(ms.TotalPredictions, a.volumeTiers)
}

// marketDiversityCutoff computes the reference value miners are held
// to: the configured fraction of the average distinct-market count
// across miner tables with recent activity. Tables with zero recent
// predictions are excluded from the average; if no table qualifies the
// penalty is disabled for this cycle.
func (a *Allocator) marketDiversityCutoff(ctx context.Context) (cutoff int, enforced bool, err error) {
	tables, err := a.store.MinerTables(ctx)
	if err != nil {
		return 0, false, err
	}

	total, count := 0, 0
	for _, table := range tables {
		markets, err := a.store.DistinctMarketsSince(ctx, table, a.windowDays)
		if err != nil {
			return 0, false, err
		}
		if markets > 0 {
			total += markets
			count++
		}
	}

	if count == 0 {
		slog.Debug("no miner table with recent predictions, diversity penalty disabled")
		return 0, false, nil
	}

	average := float64(total) / float64(count)
	slog.Debug("computed market diversity cutoff", "average", average, "fraction", a.cutoffFraction)
	return int(average * a.cutoffFraction), true, nil
}
