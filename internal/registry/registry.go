// Package registry defines the contract for the network registry: the
// external source of truth for miner identity ordering and stake, and
// the sink for submitted weight vectors.
package registry

import (
	"context"
	"fmt"
	"sync"
)

// SetWeightsRequest carries a weight vector submission.
// UIDs and Weights are parallel slices indexed by registry position.
type SetWeightsRequest struct {
	UIDs                []int
	Weights             []float64
	WaitForInclusion    bool
	WaitForFinalization bool
}

// Registry is the network registry collaborator. Implemented by the
// chain client in production and by Static in tests and offline runs.
type Registry interface {
	// Sync refreshes the registry snapshot (identity list, stake).
	Sync(ctx context.Context) error

	// Hotkeys returns the ordered miner identity list. Position in the
	// slice is the miner's UID.
	Hotkeys() []string

	// Stake returns the stake for a hotkey, and whether it is known.
	Stake(hotkey string) (float64, bool)

	// SetWeights submits a weight vector and reports acceptance.
	SetWeights(ctx context.Context, req SetWeightsRequest) (bool, error)
}

// Static is a fixed-snapshot Registry backed by in-memory data. Used
// for offline runs and tests; Sync is a no-op and SetWeights records
// the last submitted request.
type Static struct {
	mu      sync.Mutex
	hotkeys []string
	stakes  map[string]float64

	lastRequest *SetWeightsRequest
	setErr      error
	accept      bool
}

// NewStatic creates a Static registry with the given ordered hotkeys
// and per-hotkey stakes. Submissions are accepted by default.
func NewStatic(hotkeys []string, stakes map[string]float64) *Static {
	hk := make([]string, len(hotkeys))
	copy(hk, hotkeys)
	st := make(map[string]float64, len(stakes))
	for k, v := range stakes {
		st[k] = v
	}
	return &Static{hotkeys: hk, stakes: st, accept: true}
}

// Sync is a no-op for a fixed snapshot.
func (r *Static) Sync(ctx context.Context) error {
	return ctx.Err()
}

// Hotkeys returns the ordered identity list.
func (r *Static) Hotkeys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.hotkeys))
	copy(out, r.hotkeys)
	return out
}

// Stake returns the stake for a hotkey.
func (r *Static) Stake(hotkey string) (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stake, ok := r.stakes[hotkey]
	return stake, ok
}

// SetWeights records the request and returns the configured outcome.
func (r *Static) SetWeights(ctx context.Context, req SetWeightsRequest) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if len(req.UIDs) != len(req.Weights) {
		return false, fmt.Errorf("set weights: %d uids but %d weights", len(req.UIDs), len(req.Weights))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.setErr != nil {
		return false, r.setErr
	}
	reqCopy := req
	reqCopy.UIDs = append([]int(nil), req.UIDs...)
	reqCopy.Weights = append([]float64(nil), req.Weights...)
	r.lastRequest = &reqCopy
	return r.accept, nil
}

// LastRequest returns the most recent SetWeights request, or nil.
func (r *Static) LastRequest() *SetWeightsRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastRequest
}

// FailSubmissions makes subsequent SetWeights calls return err, or, if
// err is nil, succeed with accept=false.
func (r *Static) FailSubmissions(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setErr = err
	r.accept = false
}
