package triangulate

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/stat"
)

// Confidence model constants.
const (
	// confidenceCameraSpan is the number of cameras beyond two at which the
	// camera-count factor saturates (7 cameras total).
	confidenceCameraSpan = 5.0
	// confidenceErrorSpan is the mean error (pixels) at which the error
	// factor reaches zero.
	confidenceErrorSpan = 200.0
)

// Score is the reprojection assessment of a consensus point.
type Score struct {
	Errors     []CameraError
	Skipped    []string // cameras where the point sits on the camera plane
	MeanError  float64
	Confidence float64
	Quality    Quality
}

// ScoreReprojection reprojects x into every view and scores the result.
//
// Views where the point falls on the camera plane (|z| < 1e-6 in camera
// coordinates) are skipped. ErrNoValidReprojection is returned when no view
// yields an error, ErrReprojectionTooHigh when the mean error exceeds
// p.MaxReprojectionError; in the latter case the returned Score is still
// populated.
func ScoreReprojection(x r3.Vector, views []View, nCameras int, p Params) (Score, error) {
	var s Score
	errs := make([]float64, 0, len(views))
	for _, v := range views {
		projected, ok := v.Model.Project(x)
		if !ok {
			s.Skipped = append(s.Skipped, v.Model.ID())
			continue
		}
		e := math.Hypot(projected[0]-v.Observed[0], projected[1]-v.Observed[1])
		if math.IsNaN(e) || math.IsInf(e, 0) {
			s.Skipped = append(s.Skipped, v.Model.ID())
			continue
		}
		errs = append(errs, e)
		s.Errors = append(s.Errors, CameraError{CameraID: v.Model.ID(), ErrorPx: e})
	}
	if len(errs) == 0 {
		return s, ErrNoValidReprojection
	}

	s.MeanError = stat.Mean(errs, nil)
	s.Confidence = Confidence(nCameras, s.MeanError)
	s.Quality = ClassifyQuality(s.Confidence, p.HighConfidence, p.MediumConfidence)

	if s.MeanError > p.MaxReprojectionError {
		return s, ErrReprojectionTooHigh
	}
	return s, nil
}

// Confidence combines camera count and mean reprojection error:
//
//	min(1, (n−2)/5) · (1 − min(1, err/200))
//
// clamped to [0, 1]. It rewards more cameras (saturating at 7) and lower
// error (zero at 200px and beyond).
func Confidence(nCameras int, meanError float64) float64 {
	cameraFactor := math.Min(1, float64(nCameras-2)/confidenceCameraSpan)
	errorFactor := 1 - math.Min(1, meanError/confidenceErrorSpan)
	c := cameraFactor * errorFactor
	if math.IsNaN(c) || c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// ClassifyQuality maps confidence to a quality label.
func ClassifyQuality(confidence, high, medium float64) Quality {
	switch {
	case confidence >= high:
		return QualityHigh
	case confidence >= medium:
		return QualityMedium
	default:
		return QualityLow
	}
}
