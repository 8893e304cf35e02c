package triangulate

import (
	"math"

	"github.com/banshee-data/fiducial3d/internal/camera"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// homogeneousEpsilon is the smallest |w| accepted before a DLT solution is
// treated as a point at infinity.
const homogeneousEpsilon = 1e-6

// rankEpsilon is the smallest accepted ratio of the third to the first
// singular value of the DLT system. Below it A has rank < 3, the null space
// is not a single point (both cameras see the target along one line) and
// the SVD would return an arbitrary point on that line.
const rankEpsilon = 1e-9

// TriangulatePair recovers a world point from one observation in each of two
// cameras using the Direct Linear Transform.
//
// Each observation (x, y) contributes the rows x·P₃ − P₁ and y·P₃ − P₂ to a
// 4x4 system A·X = 0. X is the right singular vector of A with the smallest
// singular value, de-homogenised by its fourth component. ErrDegenerate is
// returned when |w| < 1e-6 (parallel rays, point at infinity), when the two
// viewing rays coincide (rank-deficient system), when the SVD does not
// converge, or when the result is not finite.
func TriangulatePair(a, b *camera.Model, pa, pb [2]float64) (r3.Vector, error) {
	A := mat.NewDense(4, 4, nil)
	fillDLTRows(A, 0, a, pa)
	fillDLTRows(A, 2, b, pb)

	var svd mat.SVD
	if ok := svd.Factorize(A, mat.SVDFullV); !ok {
		return r3.Vector{}, ErrDegenerate
	}
	values := svd.Values(nil)
	if values[0] == 0 || values[2]/values[0] < rankEpsilon {
		return r3.Vector{}, ErrDegenerate
	}
	var v mat.Dense
	svd.VTo(&v)

	// Singular values are sorted in descending order, so the null vector is
	// the last column of V.
	w := v.At(3, 3)
	if math.Abs(w) < homogeneousEpsilon {
		return r3.Vector{}, ErrDegenerate
	}
	p := r3.Vector{X: v.At(0, 3) / w, Y: v.At(1, 3) / w, Z: v.At(2, 3) / w}
	if !isFinite(p) {
		return r3.Vector{}, ErrDegenerate
	}
	return p, nil
}

func fillDLTRows(A *mat.Dense, row int, m *camera.Model, px [2]float64) {
	p1 := m.ProjectionRow(0)
	p2 := m.ProjectionRow(1)
	p3 := m.ProjectionRow(2)
	for j := 0; j < 4; j++ {
		A.Set(row, j, px[0]*p3[j]-p1[j])
		A.Set(row+1, j, px[1]*p3[j]-p2[j])
	}
}

func isFinite(p r3.Vector) bool {
	for _, c := range [3]float64{p.X, p.Y, p.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// PairCount returns n·(n−1)/2, the number of unordered pairs of n cameras.
func PairCount(n int) int {
	if n < 2 {
		return 0
	}
	return n * (n - 1) / 2
}

// View pairs a camera model with that camera's observation of one marker.
type View struct {
	Model    *camera.Model
	Observed [2]float64
}

// TriangulateAllPairs runs TriangulatePair over every unordered pair of views
// in order (i<j). Degenerate pairs are skipped and counted.
func TriangulateAllPairs(views []View) (candidates []Candidate, degenerate int) {
	candidates = make([]Candidate, 0, PairCount(len(views)))
	for i := 0; i < len(views); i++ {
		for j := i + 1; j < len(views); j++ {
			a, b := views[i], views[j]
			p, err := TriangulatePair(a.Model, b.Model, a.Observed, b.Observed)
			if err != nil {
				degenerate++
				continue
			}
			candidates = append(candidates, Candidate{
				Point:   p,
				CameraA: a.Model.ID(),
				CameraB: b.Model.ID(),
			})
		}
	}
	return candidates, degenerate
}
