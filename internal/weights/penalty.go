package weights

// Multiplicative penalties applied to a miner's lifetime score before
// weight computation. Diversity and staleness can stack; exactly one
// volume tier applies.
const (
	diversityPenalty = 0.5
	stalenessPenalty = 0.5
)

// VolumeTier pairs a scored-prediction count threshold with the
// multiplier applied when a miner's total is below it.
type VolumeTier struct {
	Below      int
	Multiplier float64
}

// DefaultVolumeTiers returns the low-volume penalty schedule. Miners
// with few scored predictions get scaled back so a handful of lucky
// predictions does not earn outsized rewards.
func DefaultVolumeTiers() []VolumeTier {
	return []VolumeTier{
		{Below: 5, Multiplier: 0.7},
		{Below: 10, Multiplier: 0.725},
		{Below: 15, Multiplier: 0.75},
		{Below: 20, Multiplier: 0.775},
		{Below: 25, Multiplier: 0.8},
	}
}

// volumeMultiplier evaluates the tier schedule in ascending threshold
// order, first match wins. At or above the last threshold no penalty
// applies.
func volumeMultiplier(totalPredictions int, tiers []VolumeTier) float64 {
	for _, tier := range tiers {
		if totalPredictions < tier.Below {
			return tier.Multiplier
		}
	}
	return 1.0
}
