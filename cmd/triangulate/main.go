// Command triangulate computes 3D marker positions from a calibrated camera
// table and per-camera marker detections.
//
//	triangulate -cameras cameras.json -observations detections.json \
//	    -output markers.json -html markers.html -db runs.db
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"time"

	"github.com/banshee-data/fiducial3d/internal/camera"
	"github.com/banshee-data/fiducial3d/internal/config"
	"github.com/banshee-data/fiducial3d/internal/export"
	"github.com/banshee-data/fiducial3d/internal/fsutil"
	"github.com/banshee-data/fiducial3d/internal/ingest"
	"github.com/banshee-data/fiducial3d/internal/monitoring"
	"github.com/banshee-data/fiducial3d/internal/store"
	"github.com/banshee-data/fiducial3d/internal/timeutil"
	"github.com/banshee-data/fiducial3d/internal/triangulate"
	"github.com/banshee-data/fiducial3d/internal/version"
)

// options holds the parsed command line.
type options struct {
	camerasPath      string
	observationsPath string
	configPath       string
	outputPath       string
	htmlPath         string
	plotPath         string
	dbPath           string
	minConfidence    float64
	verbose          bool

	// overrides for config values; applied only when the flag was given
	minCameras  int
	maxError    float64
	sensorWidth float64
	workers     int
	timeout     time.Duration
	set         map[string]bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("triangulate", flag.ContinueOnError)
	fs.SetOutput(stderr)

	o := &options{set: make(map[string]bool)}
	fs.StringVar(&o.camerasPath, "cameras", "", "Camera calibration table (JSON, required)")
	fs.StringVar(&o.observationsPath, "observations", "", "Marker detections per camera (JSON, required)")
	fs.StringVar(&o.configPath, "config", "", "Triangulation config (JSON); defaults to "+config.DefaultConfigPath+" when present")
	fs.IntVar(&o.minCameras, "min-cameras", config.DefaultMinCameras, "Minimum observing cameras per marker")
	fs.Float64Var(&o.maxError, "max-error", config.DefaultMaxReprojectionError, "Maximum mean reprojection error in pixels")
	fs.Float64Var(&o.sensorWidth, "sensor-width", config.DefaultSensorWidthMM, "Sensor width in mm for 35mm-equivalent focal lengths")
	fs.IntVar(&o.workers, "workers", 0, "Parallel marker workers (0 = number of CPUs)")
	fs.DurationVar(&o.timeout, "timeout", 0, "Abandon markers not finished within this duration (0 = no limit)")
	fs.StringVar(&o.outputPath, "output", "", "Write the marker document (JSON) to this path")
	fs.StringVar(&o.htmlPath, "html", "", "Write an HTML chart page to this path")
	fs.StringVar(&o.plotPath, "png", "", "Write a top-down marker plot to this path (png, svg or pdf)")
	fs.StringVar(&o.dbPath, "db", "", "Record the run in this SQLite database")
	fs.Float64Var(&o.minConfidence, "min-confidence", 0, "Only export markers with at least this confidence")
	fs.BoolVar(&o.verbose, "verbose", false, "Log per-marker diagnostics")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })

	if o.camerasPath == "" || o.observationsPath == "" {
		return nil, errors.New("-cameras and -observations are required")
	}
	if o.minConfidence < 0 || o.minConfidence > 1 {
		return nil, fmt.Errorf("-min-confidence must be within [0,1], got %g", o.minConfidence)
	}
	return o, nil
}

// loadConfig loads the config file and applies flag overrides.
func loadConfig(o *options) (*config.TriangulationConfig, error) {
	cfg := config.EmptyTriangulationConfig()
	switch {
	case o.configPath != "":
		c, err := config.LoadTriangulationConfig(o.configPath)
		if err != nil {
			return nil, err
		}
		cfg = c
	default:
		if _, err := os.Stat(config.DefaultConfigPath); err == nil {
			c, err := config.LoadTriangulationConfig(config.DefaultConfigPath)
			if err != nil {
				return nil, err
			}
			cfg = c
		}
	}

	if o.set["min-cameras"] {
		cfg.MinCameras = &o.minCameras
	}
	if o.set["max-error"] {
		cfg.MaxReprojectionError = &o.maxError
	}
	if o.set["sensor-width"] {
		cfg.SensorWidthMM = &o.sensorWidth
	}
	if o.set["workers"] {
		cfg.Workers = &o.workers
	}
	if o.set["timeout"] {
		d := o.timeout.String()
		cfg.Timeout = &d
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func paramsFromConfig(cfg *config.TriangulationConfig) triangulate.Params {
	return triangulate.Params{
		MinCameras:           cfg.GetMinCameras(),
		MaxReprojectionError: cfg.GetMaxReprojectionError(),
		OutlierScale:         cfg.GetOutlierScale(),
		OutlierFloor:         cfg.GetOutlierFloor(),
		HighConfidence:       cfg.GetHighConfidence(),
		MediumConfidence:     cfg.GetMediumConfidence(),
		Workers:              cfg.GetWorkers(),
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, fsys fsutil.FileSystem, clock timeutil.Clock) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	monitoring.SetVerbose(o.verbose)

	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}
	params := paramsFromConfig(cfg)

	cals, issues, err := ingest.LoadCameras(fsys, o.camerasPath)
	if err != nil {
		return err
	}
	for _, is := range issues {
		monitoring.Logf("skipping camera %s", is)
	}
	obs, issues, err := ingest.LoadObservations(fsys, o.observationsPath)
	if err != nil {
		return err
	}
	for _, is := range issues {
		monitoring.Logf("skipping detection %s", is)
	}

	cameras, camIssues := camera.BuildAll(cals, cfg.GetSensorWidthMM())
	for _, is := range camIssues {
		monitoring.Logf("camera excluded: %s", is)
	}
	ids := make([]string, 0, len(cameras))
	for id := range cameras {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		for _, w := range cameras[id].Warnings() {
			monitoring.Logf("camera %s: %s", id, w)
		}
	}

	runCtx := ctx
	if d := cfg.GetTimeout(); d > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	start := clock.Now()
	report := triangulate.Triangulate(runCtx, cameras, obs, params)
	printSummary(stdout, report, len(cameras), len(obs), clock.Since(start))

	var runID string
	if o.dbPath != "" {
		st, err := store.Open(o.dbPath)
		if err != nil {
			return err
		}
		defer st.Close()
		st.Clock = clock
		if runID, err = st.SaveReport(ctx, report); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Run recorded: %s\n", runID)
	}

	if o.outputPath != "" {
		doc := export.BuildDocument(report, export.Options{RunID: runID, MinConfidence: o.minConfidence, Now: clock.Now()})
		if err := export.WriteJSON(fsys, o.outputPath, doc); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Markers written: %s (%d)\n", o.outputPath, doc.Metadata.TotalMarkers)
	}
	if o.htmlPath != "" {
		if err := export.WriteHTML(fsys, o.htmlPath, report); err != nil {
			return err
		}
	}
	if o.plotPath != "" {
		if err := export.SavePlot(fsys, o.plotPath, export.Filter(report.Results, o.minConfidence)); err != nil {
			return err
		}
	}
	return nil
}

func printSummary(w io.Writer, report triangulate.Report, nCameras, nObs int, elapsed time.Duration) {
	fmt.Fprintf(w, "Cameras: %d usable, observations: %d (%d skipped)\n",
		nCameras, nObs, report.SkippedObservations)
	if len(report.UnknownCameras) > 0 {
		fmt.Fprintf(w, "Unknown cameras in detections: %v\n", report.UnknownCameras)
	}

	r := report.Readiness
	fmt.Fprintf(w, "Readiness: %s (%d triangulatable markers)\n", r.Verdict, r.Triangulatable)
	for _, n := range r.CameraCounts() {
		fmt.Fprintf(w, "  %d cameras: %d markers\n", n, len(r.MarkersByCameraCount[n]))
	}

	if report.Empty() {
		fmt.Fprintf(w, "Zero markers triangulated (%d rejected) in %v\n", len(report.Rejections), elapsed.Round(time.Millisecond))
	} else {
		q := triangulate.CountQuality(report.Results)
		fmt.Fprintf(w, "Triangulated %d markers in %v: high=%d medium=%d low=%d\n",
			len(report.Results), elapsed.Round(time.Millisecond), q.High, q.Medium, q.Low)
	}

	byStage := report.RejectionsByStage()
	stages := make([]string, 0, len(byStage))
	for s := range byStage {
		stages = append(stages, string(s))
	}
	sort.Strings(stages)
	for _, s := range stages {
		fmt.Fprintf(w, "  rejected at %s: %d\n", s, byStage[triangulate.Stage(s)])
	}
}

func main() {
	log.Printf("triangulate %s", version.String())
	err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr, fsutil.OSFileSystem{}, timeutil.RealClock{})
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("triangulate: %v", err)
	}
}
