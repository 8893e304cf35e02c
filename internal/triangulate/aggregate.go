package triangulate

import (
	"sort"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/stat"
)

// Consensus is the outcome of robust aggregation for one marker.
type Consensus struct {
	Point          r3.Vector
	Median         r3.Vector
	MedianDistance float64
	Threshold      float64
	Inliers        []Candidate
	Outliers       []Candidate
}

// Aggregate reduces pairwise candidates to one consensus point.
//
// It takes the coordinate-wise median M, the median distance medDist of all
// candidates to M, keeps candidates with distance <= scale*medDist + floor
// and returns the mean of the survivors. floor absorbs the medDist ≈ 0 case
// where all candidates coincide; it is in world units.
func Aggregate(candidates []Candidate, scale, floor float64) (Consensus, error) {
	if len(candidates) == 0 {
		return Consensus{}, ErrNoCandidates
	}

	n := len(candidates)
	xs := make([]float64, n)
	ys := make([]float64, n)
	zs := make([]float64, n)
	for i, c := range candidates {
		xs[i], ys[i], zs[i] = c.Point.X, c.Point.Y, c.Point.Z
	}
	m := r3.Vector{X: median(xs), Y: median(ys), Z: median(zs)}

	dists := make([]float64, n)
	for i, c := range candidates {
		dists[i] = c.Point.Distance(m)
	}
	medDist := median(dists)
	threshold := scale*medDist + floor

	out := Consensus{Median: m, MedianDistance: medDist, Threshold: threshold}
	for i, c := range candidates {
		if dists[i] <= threshold {
			out.Inliers = append(out.Inliers, c)
		} else {
			out.Outliers = append(out.Outliers, c)
		}
	}
	if len(out.Inliers) == 0 {
		return out, ErrAllOutliers
	}

	ix := make([]float64, len(out.Inliers))
	iy := make([]float64, len(out.Inliers))
	iz := make([]float64, len(out.Inliers))
	for i, c := range out.Inliers {
		ix[i], iy[i], iz[i] = c.Point.X, c.Point.Y, c.Point.Z
	}
	out.Point = r3.Vector{X: stat.Mean(ix, nil), Y: stat.Mean(iy, nil), Z: stat.Mean(iz, nil)}
	return out, nil
}

// median returns the middle value of xs, averaging the two middle values for
// even lengths. xs is not modified.
func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}
