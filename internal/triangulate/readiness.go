package triangulate

import "sort"

// ReadinessVerdict summarises whether a capture has enough multi-view
// coverage for a useful reconstruction.
type ReadinessVerdict string

const (
	ReadinessExcellent    ReadinessVerdict = "excellent"    // 8+ triangulatable markers
	ReadinessGood         ReadinessVerdict = "good"         // 5-7
	ReadinessMinimal      ReadinessVerdict = "minimal"      // 3-4
	ReadinessInsufficient ReadinessVerdict = "insufficient" // fewer than 3
)

// Readiness is the pre-triangulation coverage analysis.
type Readiness struct {
	// MarkersByCameraCount maps observing-camera count to marker ids.
	MarkersByCameraCount map[int][]string
	// Triangulatable counts markers seen by at least MinCameras cameras.
	Triangulatable int
	Verdict        ReadinessVerdict
}

// AssessReadiness groups markers by how many cameras observed them.
func AssessReadiness(markers []MarkerObservations, minCameras int) Readiness {
	r := Readiness{MarkersByCameraCount: make(map[int][]string)}
	for _, m := range markers {
		n := len(m.Views)
		r.MarkersByCameraCount[n] = append(r.MarkersByCameraCount[n], m.MarkerID)
		if n >= minCameras {
			r.Triangulatable++
		}
	}
	for _, ids := range r.MarkersByCameraCount {
		sort.Strings(ids)
	}

	switch {
	case r.Triangulatable >= 8:
		r.Verdict = ReadinessExcellent
	case r.Triangulatable >= 5:
		r.Verdict = ReadinessGood
	case r.Triangulatable >= 3:
		r.Verdict = ReadinessMinimal
	default:
		r.Verdict = ReadinessInsufficient
	}
	return r
}

// CameraCounts returns the distinct camera counts in descending order.
func (r Readiness) CameraCounts() []int {
	counts := make([]int, 0, len(r.MarkersByCameraCount))
	for n := range r.MarkersByCameraCount {
		counts = append(counts, n)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(counts)))
	return counts
}
