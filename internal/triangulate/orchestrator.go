package triangulate

import (
	"context"
	"errors"
	"runtime"
	"sort"
	"sync"

	"github.com/banshee-data/fiducial3d/internal/camera"
	"github.com/banshee-data/fiducial3d/internal/monitoring"
)

// MarkerObservations holds every usable view of one marker, ordered by
// camera id.
type MarkerObservations struct {
	MarkerID string
	Views    []View
}

// CameraIDs returns the observing camera ids in order.
func (m MarkerObservations) CameraIDs() []string {
	ids := make([]string, len(m.Views))
	for i, v := range m.Views {
		ids[i] = v.Model.ID()
	}
	return ids
}

// Grouping is the result of grouping raw observations by marker.
type Grouping struct {
	Markers []MarkerObservations // ordered by marker id
	// UnknownCameras lists camera ids referenced by observations but absent
	// from the camera table (or excluded from it as unusable).
	UnknownCameras []string
	// SkippedObservations counts observations dropped for an unknown camera
	// or as a repeat of the same (marker, camera) pair.
	SkippedObservations int
}

// GroupObservations groups observations by marker id across cameras. Only the
// first observation of a (marker, camera) pair is kept.
func GroupObservations(obs []Observation, cameras map[string]*camera.Model) Grouping {
	var g Grouping
	unknown := make(map[string]struct{})
	byMarker := make(map[string]map[string]View)

	for _, o := range obs {
		m, ok := cameras[o.CameraID]
		if !ok {
			unknown[o.CameraID] = struct{}{}
			g.SkippedObservations++
			continue
		}
		views, ok := byMarker[o.MarkerID]
		if !ok {
			views = make(map[string]View)
			byMarker[o.MarkerID] = views
		}
		if _, dup := views[o.CameraID]; dup {
			g.SkippedObservations++
			continue
		}
		views[o.CameraID] = View{Model: m, Observed: o.Center}
	}

	for id := range unknown {
		g.UnknownCameras = append(g.UnknownCameras, id)
	}
	sort.Strings(g.UnknownCameras)

	g.Markers = make([]MarkerObservations, 0, len(byMarker))
	for markerID, views := range byMarker {
		mo := MarkerObservations{MarkerID: markerID, Views: make([]View, 0, len(views))}
		for _, v := range views {
			mo.Views = append(mo.Views, v)
		}
		sort.Slice(mo.Views, func(i, j int) bool { return mo.Views[i].Model.ID() < mo.Views[j].Model.ID() })
		g.Markers = append(g.Markers, mo)
	}
	sort.Slice(g.Markers, func(i, j int) bool { return g.Markers[i].MarkerID < g.Markers[j].MarkerID })
	return g
}

// Triangulator drives the per-marker pipeline over a read-only camera table.
type Triangulator struct {
	cameras map[string]*camera.Model
	params  Params
}

// New creates a Triangulator. The camera map must not be modified afterwards.
func New(cameras map[string]*camera.Model, params Params) *Triangulator {
	if params.MinCameras < 2 {
		params.MinCameras = 2
	}
	return &Triangulator{cameras: cameras, params: params}
}

// Params returns the effective parameters.
func (t *Triangulator) Params() Params { return t.params }

// TriangulateMarker runs pair triangulation, aggregation and scoring for one
// marker. A failure is returned as a *StageError wrapping one of the
// package sentinels.
func (t *Triangulator) TriangulateMarker(m MarkerObservations) (MarkerResult, error) {
	n := len(m.Views)
	if n < t.params.MinCameras {
		return MarkerResult{}, stageErr(StageCollecting, ErrInsufficientCameras)
	}

	candidates, degenerate := TriangulateAllPairs(m.Views)
	monitoring.Debugf("marker %s: %d valid candidates from %d pairs (%d degenerate)",
		m.MarkerID, len(candidates), PairCount(n), degenerate)

	consensus, err := Aggregate(candidates, t.params.OutlierScale, t.params.OutlierFloor)
	if err != nil {
		return MarkerResult{}, stageErr(StageAggregating, err)
	}
	monitoring.Debugf("marker %s: %d/%d candidates within %.4f of median",
		m.MarkerID, len(consensus.Inliers), len(candidates), consensus.Threshold)

	score, err := ScoreReprojection(consensus.Point, m.Views, n, t.params)
	if err != nil {
		if errors.Is(err, ErrReprojectionTooHigh) {
			monitoring.Debugf("marker %s: mean reprojection error %.2fpx > %.2fpx",
				m.MarkerID, score.MeanError, t.params.MaxReprojectionError)
		}
		return MarkerResult{}, stageErr(StageScoring, err)
	}

	return MarkerResult{
		MarkerID:          m.MarkerID,
		Position:          consensus.Point,
		ObservationsCount: n,
		ReprojectionError: score.MeanError,
		Confidence:        score.Confidence,
		Quality:           score.Quality,
		CameraIDs:         m.CameraIDs(),
		CameraErrors:      score.Errors,
		CandidateCount:    len(candidates),
		InlierCount:       len(consensus.Inliers),
	}, nil
}

// outcome is one marker's slot in the run; exactly one field is set.
type outcome struct {
	result    *MarkerResult
	rejection *Rejection
}

// Run triangulates every marker in obs. Markers are independent, so they are
// processed on up to Params.Workers goroutines. When ctx ends, markers not yet
// started are rejected with StageCancelled; nothing in a run is fatal.
func (t *Triangulator) Run(ctx context.Context, obs []Observation) Report {
	grouping := GroupObservations(obs, t.cameras)
	for _, id := range grouping.UnknownCameras {
		monitoring.Logf("skipping observations from camera %s: no usable calibration", id)
	}

	markers := grouping.Markers
	outcomes := make([]outcome, len(markers))

	workers := t.params.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(markers) {
		workers = len(markers)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				outcomes[i] = t.process(ctx, markers[i])
			}
		}()
	}
	for i := range markers {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	report := Report{
		Params:              t.params,
		Readiness:           AssessReadiness(markers, t.params.MinCameras),
		UnknownCameras:      grouping.UnknownCameras,
		SkippedObservations: grouping.SkippedObservations,
	}
	for _, o := range outcomes {
		if o.result != nil {
			report.Results = append(report.Results, *o.result)
			continue
		}
		report.Rejections = append(report.Rejections, *o.rejection)
	}
	return report
}

func (t *Triangulator) process(ctx context.Context, m MarkerObservations) outcome {
	if err := ctx.Err(); err != nil {
		return outcome{rejection: &Rejection{
			MarkerID: m.MarkerID,
			Stage:    StageCancelled,
			Cameras:  len(m.Views),
			Err:      err,
		}}
	}

	res, err := t.TriangulateMarker(m)
	if err != nil {
		stage := StageCollecting
		var se *StageError
		if errors.As(err, &se) {
			stage = se.Stage
			err = se.Err
		}
		if stage == StageCollecting {
			monitoring.Debugf("marker %s: only %d cameras, need %d", m.MarkerID, len(m.Views), t.params.MinCameras)
		} else {
			monitoring.Logf("marker %s rejected at %s: %v", m.MarkerID, stage, err)
		}
		return outcome{rejection: &Rejection{
			MarkerID: m.MarkerID,
			Stage:    stage,
			Cameras:  len(m.Views),
			Err:      err,
		}}
	}
	return outcome{result: &res}
}

// Triangulate builds a Triangulator and runs it in one call.
func Triangulate(ctx context.Context, cameras map[string]*camera.Model, obs []Observation, params Params) Report {
	return New(cameras, params).Run(ctx, obs)
}
