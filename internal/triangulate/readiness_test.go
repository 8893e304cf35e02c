package triangulate

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// markersSeenBy returns one marker per entry, seen by the given number of
// cameras.
func markersSeenBy(counts ...int) []MarkerObservations {
	out := make([]MarkerObservations, len(counts))
	for i, n := range counts {
		out[i] = MarkerObservations{
			MarkerID: fmt.Sprintf("m%02d", i),
			Views:    make([]View, n),
		}
	}
	return out
}

func TestAssessReadiness_Verdict(t *testing.T) {
	tests := []struct {
		name   string
		counts []int
		want   ReadinessVerdict
		usable int
	}{
		{"none", nil, ReadinessInsufficient, 0},
		{"two usable", []int{3, 4, 2, 1}, ReadinessInsufficient, 2},
		{"three usable", []int{3, 3, 3}, ReadinessMinimal, 3},
		{"five usable", []int{3, 4, 5, 6, 7, 2}, ReadinessGood, 5},
		{"seven usable", []int{3, 3, 3, 3, 3, 3, 3}, ReadinessGood, 7},
		{"eight usable", []int{3, 3, 3, 3, 3, 3, 3, 3}, ReadinessExcellent, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := AssessReadiness(markersSeenBy(tt.counts...), 3)
			if r.Verdict != tt.want {
				t.Errorf("Verdict = %q, want %q", r.Verdict, tt.want)
			}
			if r.Triangulatable != tt.usable {
				t.Errorf("Triangulatable = %d, want %d", r.Triangulatable, tt.usable)
			}
		})
	}
}

func TestAssessReadiness_MinCamerasMovesThreshold(t *testing.T) {
	markers := markersSeenBy(2, 2, 2)
	assert.Equal(t, ReadinessInsufficient, AssessReadiness(markers, 3).Verdict)
	assert.Equal(t, ReadinessMinimal, AssessReadiness(markers, 2).Verdict)
}

func TestReadiness_GroupsByCameraCount(t *testing.T) {
	r := AssessReadiness(markersSeenBy(4, 2, 4, 7), 3)

	assert.Equal(t, []int{7, 4, 2}, r.CameraCounts())
	assert.Equal(t, []string{"m00", "m02"}, r.MarkersByCameraCount[4])
	assert.Equal(t, []string{"m01"}, r.MarkersByCameraCount[2])
	assert.Equal(t, []string{"m03"}, r.MarkersByCameraCount[7])
}
