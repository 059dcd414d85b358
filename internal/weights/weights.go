package weights

import "sort"

// Fixed aggregate weight share per rank tier.
const (
	topShare  = 0.7
	midShare  = 0.2
	tailShare = 0.1
)

// ComputeWeights converts a dense score vector (indexed by UID) into a
// normalized weight vector.
//
// Miners are ranked by score descending and partitioned into three
// tiers: top 10%, next 40%, remaining 50%, each rounded up to at least
// one member. Within a tier, scores are squared to emphasize
// differences and normalized to the tier's share (0.7 / 0.2 / 0.1). A
// tier whose score sum is zero splits its share equally. The full
// vector is renormalized to sum to exactly 1.0.
func ComputeWeights(scores []float64) []float64 {
	n := len(scores)
	if n == 0 {
		return nil
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(a, b int) bool {
		return scores[indices[a]] > scores[indices[b]]
	})

	topCount := max(1, n/10)
	midCount := max(1, n*2/5)
	midEnd := min(n, topCount+midCount)

	weights := make([]float64, n)
	assignTier(weights, scores, indices[:topCount], topShare)
	assignTier(weights, scores, indices[topCount:midEnd], midShare)
	assignTier(weights, scores, indices[midEnd:], tailShare)

	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total > 0 {
		for i := range weights {
			weights[i] /= total
		}
	}

	return weights
}

// assignTier distributes share across the tier's members by squared
// score, or equally when the tier's score sum is zero.
func assignTier(weights, scores []float64, tier []int, share float64) {
	if len(tier) == 0 {
		return
	}

	sum := 0.0
	squared := make([]float64, len(tier))
	for i, idx := range tier {
		sq := scores[idx] * scores[idx]
		squared[i] = sq
		sum += sq
	}

	if sum > 0 {
		for i, idx := range tier {
			weights[idx] = squared[i] / sum * share
		}
		return
	}

	equal := share / float64(len(tier))
	for _, idx := range tier {
		weights[idx] = equal
	}
}
