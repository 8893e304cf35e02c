package triangulate

// Report is the outcome of a Run. Results and Rejections are ordered by
// marker id.
type Report struct {
	Params     Params
	Results    []MarkerResult
	Rejections []Rejection
	Readiness  Readiness

	UnknownCameras      []string
	SkippedObservations int
}

// Empty reports whether no marker was triangulated. An empty report is a
// valid outcome, not an error.
func (r Report) Empty() bool {
	return len(r.Results) == 0
}

// QualityCounts tallies accepted markers per quality label.
type QualityCounts struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// Total returns the number of counted markers.
func (q QualityCounts) Total() int {
	return q.High + q.Medium + q.Low
}

// CountQuality tallies results per quality label.
func CountQuality(results []MarkerResult) QualityCounts {
	var q QualityCounts
	for _, r := range results {
		switch r.Quality {
		case QualityHigh:
			q.High++
		case QualityMedium:
			q.Medium++
		default:
			q.Low++
		}
	}
	return q
}

// RejectionsByStage tallies rejections per stage.
func (r Report) RejectionsByStage() map[Stage]int {
	out := make(map[Stage]int)
	for _, rej := range r.Rejections {
		out[rej.Stage]++
	}
	return out
}

// Result returns the result for markerID, if accepted.
func (r Report) Result(markerID string) (MarkerResult, bool) {
	for _, res := range r.Results {
		if res.MarkerID == markerID {
			return res, true
		}
	}
	return MarkerResult{}, false
}
