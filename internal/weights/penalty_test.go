package weights

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVolumeMultiplier_FirstMatchWins(t *testing.T) {
	tiers := DefaultVolumeTiers()

	tests := []struct {
		total int
		want  float64
	}{
		{total: 0, want: 0.7},
		{total: 4, want: 0.7},
		{total: 5, want: 0.725},
		{total: 9, want: 0.725},
		{total: 10, want: 0.75},
		{total: 14, want: 0.75},
		{total: 15, want: 0.775},
		{total: 19, want: 0.775},
		{total: 20, want: 0.8},
		{total: 24, want: 0.8},
		{total: 25, want: 1.0},
		{total: 1000, want: 1.0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, volumeMultiplier(tt.total, tiers), "total=%d", tt.total)
	}
}

func TestVolumeMultiplier_EmptySchedule(t *testing.T) {
	assert.Equal(t, 1.0, volumeMultiplier(0, nil))
}
