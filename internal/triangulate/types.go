package triangulate

import (
	"github.com/golang/geo/r3"
)

// Observation is one detected marker centre in one camera image.
type Observation struct {
	MarkerID string
	CameraID string
	// Center is the marker centre in pixel coordinates (u, v).
	Center [2]float64
}

// Candidate is a pairwise triangulation of one marker. It only lives for the
// duration of that marker's aggregation pass.
type Candidate struct {
	Point   r3.Vector
	CameraA string
	CameraB string
}

// Quality is the coarse label derived from a marker's confidence.
type Quality string

const (
	QualityHigh   Quality = "high"
	QualityMedium Quality = "medium"
	QualityLow    Quality = "low"
)

// CameraError is the reprojection error of the consensus point in one camera.
type CameraError struct {
	CameraID string  `json:"camera_id"`
	ErrorPx  float64 `json:"error_px"`
}

// MarkerResult is the accepted output for one marker.
type MarkerResult struct {
	MarkerID string
	Position r3.Vector
	// ObservationsCount is the number of distinct cameras that saw the marker.
	ObservationsCount int
	// ReprojectionError is the mean pixel error over cameras that produced a
	// valid reprojection.
	ReprojectionError float64
	Confidence        float64
	Quality           Quality
	CameraIDs         []string

	CameraErrors   []CameraError
	CandidateCount int // pairwise candidates that survived the DLT
	InlierCount    int // candidates kept by the outlier gate
}

// Stage names the pipeline step a marker was in when it was dropped.
type Stage string

const (
	StageCollecting        Stage = "collecting"
	StagePairTriangulating Stage = "pair_triangulating"
	StageAggregating       Stage = "aggregating"
	StageScoring           Stage = "scoring"
	StageCancelled         Stage = "cancelled"
)

// Rejection records a marker that produced no result.
type Rejection struct {
	MarkerID string
	Stage    Stage
	Cameras  int
	Err      error
}

// Reason returns the rejection cause as text.
func (r Rejection) Reason() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Params holds the tunables of a triangulation run.
type Params struct {
	// MinCameras is the minimum number of distinct observing cameras.
	MinCameras int
	// MaxReprojectionError is the mean-pixel-error gate.
	MaxReprojectionError float64
	// OutlierScale and OutlierFloor define the aggregation gate
	// distance <= OutlierScale*medDist + OutlierFloor.
	OutlierScale float64
	OutlierFloor float64
	// HighConfidence and MediumConfidence are the quality label thresholds.
	HighConfidence   float64
	MediumConfidence float64
	// Workers bounds marker-level parallelism; 0 means runtime.NumCPU().
	Workers int
}

// DefaultParams returns the production defaults.
func DefaultParams() Params {
	return Params{
		MinCameras:           3,
		MaxReprojectionError: 200.0,
		OutlierScale:         2.0,
		OutlierFloor:         0.1,
		HighConfidence:       0.7,
		MediumConfidence:     0.5,
	}
}
