package triangulate

import (
	"errors"
	"fmt"
)

var (
	// ErrDegenerate marks a pair whose DLT solution is at infinity or not finite.
	ErrDegenerate = errors.New("degenerate triangulation")
	// ErrInsufficientCameras marks a marker seen by fewer than MinCameras cameras.
	ErrInsufficientCameras = errors.New("insufficient observing cameras")
	// ErrNoCandidates marks a marker for which every camera pair was degenerate.
	ErrNoCandidates = errors.New("no valid pairwise candidates")
	// ErrAllOutliers marks a marker whose candidates were all rejected by the outlier gate.
	ErrAllOutliers = errors.New("all candidates rejected as outliers")
	// ErrNoValidReprojection marks a marker with no camera able to reproject the consensus point.
	ErrNoValidReprojection = errors.New("no valid reprojection")
	// ErrReprojectionTooHigh marks a marker whose mean reprojection error exceeds the limit.
	ErrReprojectionTooHigh = errors.New("reprojection error above limit")
)

// StageError wraps a marker failure with the stage it happened in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage Stage, err error) error {
	return &StageError{Stage: stage, Err: err}
}
