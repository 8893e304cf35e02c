package triangulate

import (
	"errors"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cand(x, y, z float64) Candidate {
	return Candidate{Point: r3.Vector{X: x, Y: y, Z: z}, CameraA: "a", CameraB: "b"}
}

func TestAggregate_Empty(t *testing.T) {
	t.Parallel()

	_, err := Aggregate(nil, 2, 0.1)
	assert.True(t, errors.Is(err, ErrNoCandidates))
}

func TestAggregate_CoincidentCandidates(t *testing.T) {
	t.Parallel()

	cands := []Candidate{cand(1, 2, 3), cand(1, 2, 3), cand(1, 2, 3)}
	c, err := Aggregate(cands, 2, 0.1)
	require.NoError(t, err)

	assert.Equal(t, 0.0, c.MedianDistance)
	assert.InDelta(t, 0.1, c.Threshold, 1e-12)
	assert.Len(t, c.Inliers, 3)
	assert.Empty(t, c.Outliers)
	assert.Equal(t, r3.Vector{X: 1, Y: 2, Z: 3}, c.Point)
}

func TestAggregate_RejectsFarOutlier(t *testing.T) {
	t.Parallel()

	// Ten pairwise candidates from five cameras: nine agree to within a
	// centimetre, one is injected at 100x the scene scale.
	inliers := []Candidate{
		cand(1.00, 2.00, 3.00),
		cand(1.01, 2.00, 3.00),
		cand(0.99, 2.00, 3.00),
		cand(1.00, 2.01, 3.00),
		cand(1.00, 1.99, 3.00),
		cand(1.00, 2.00, 3.01),
		cand(1.00, 2.00, 2.99),
		cand(1.005, 2.005, 3.005),
		cand(0.995, 1.995, 2.995),
	}
	outlier := cand(100, -200, 300)
	cands := append(append([]Candidate(nil), inliers...), outlier)

	c, err := Aggregate(cands, 2, 0.1)
	require.NoError(t, err)

	require.Len(t, c.Outliers, 1)
	assert.Equal(t, outlier, c.Outliers[0])
	assert.Len(t, c.Inliers, len(inliers))

	var sum r3.Vector
	for _, in := range inliers {
		sum = sum.Add(in.Point)
	}
	want := sum.Mul(1 / float64(len(inliers)))
	assert.InDelta(t, want.X, c.Point.X, 1e-9)
	assert.InDelta(t, want.Y, c.Point.Y, 1e-9)
	assert.InDelta(t, want.Z, c.Point.Z, 1e-9)
}

func TestAggregate_AllOutliers(t *testing.T) {
	t.Parallel()

	// With no slack the gate keeps only candidates exactly at the median.
	cands := []Candidate{cand(0, 0, 0), cand(2, 2, 2)}
	c, err := Aggregate(cands, 0, 0)
	assert.True(t, errors.Is(err, ErrAllOutliers))
	assert.Len(t, c.Outliers, 2)
}

func TestAggregate_SingleCandidate(t *testing.T) {
	t.Parallel()

	c, err := Aggregate([]Candidate{cand(4, 5, 6)}, 2, 0.1)
	require.NoError(t, err)
	assert.Equal(t, r3.Vector{X: 4, Y: 5, Z: 6}, c.Point)
}

func TestMedian(t *testing.T) {
	tests := []struct {
		in   []float64
		want float64
	}{
		{nil, 0},
		{[]float64{3}, 3},
		{[]float64{3, 1, 2}, 2},
		{[]float64{4, 1, 3, 2}, 2.5},
		{[]float64{0, 0, 0, 5, 7, 0}, 0},
	}
	for _, tt := range tests {
		in := append([]float64(nil), tt.in...)
		if got := median(in); got != tt.want {
			t.Errorf("median(%v) = %v, want %v", tt.in, got, tt.want)
		}
		assert.Equal(t, tt.in, in, "median must not reorder its input")
	}
}
