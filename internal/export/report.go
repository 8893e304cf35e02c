// Package export renders a triangulation report for downstream tools: a JSON
// marker document for scene import, an HTML chart page and a PNG plot.
package export

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/banshee-data/fiducial3d/internal/fsutil"
	"github.com/banshee-data/fiducial3d/internal/triangulate"
	"github.com/banshee-data/fiducial3d/internal/version"
)

// CoordinateSystem tags exported positions as absolute photogrammetry world
// coordinates, with no axis conversion applied.
const CoordinateSystem = "realitycapture_absolute"

// Metadata summarises the exported marker set.
type Metadata struct {
	TotalMarkers          int     `json:"total_markers"`
	High                  int     `json:"high"`
	Medium                int     `json:"medium"`
	Low                   int     `json:"low"`
	HighConfidenceMarkers int     `json:"high_confidence_markers"`
	Rejected              int     `json:"rejected"`
	MinConfidence         float64 `json:"min_confidence"`
	Readiness             string  `json:"readiness"`
	CoordinateSystem      string  `json:"coordinate_system"`
	RunID                 string  `json:"run_id,omitempty"`
	Version               string  `json:"version"`
	GeneratedAt           string  `json:"generated_at"`
}

// Marker is one exported marker.
type Marker struct {
	ID                string     `json:"id"`
	Position          [3]float64 `json:"position"`
	Confidence        float64    `json:"confidence"`
	Quality           string     `json:"quality"`
	ReprojectionError float64    `json:"reprojection_error"`
	ObservationsCount int        `json:"observations_count"`
	CameraIDs         []string   `json:"camera_ids"`
}

// Document is the JSON export. Markers are keyed "marker_<id>".
type Document struct {
	Metadata Metadata          `json:"metadata"`
	Markers  map[string]Marker `json:"markers"`
}

// Options control document construction.
type Options struct {
	RunID         string
	MinConfidence float64
	// Now stamps the document; zero means time.Now.
	Now time.Time
}

// MarkerKey returns the document key for a marker id.
func MarkerKey(id string) string {
	return "marker_" + id
}

// Filter returns the results whose confidence is at least minConfidence,
// preserving order.
func Filter(results []triangulate.MarkerResult, minConfidence float64) []triangulate.MarkerResult {
	out := make([]triangulate.MarkerResult, 0, len(results))
	for _, r := range results {
		if r.Confidence >= minConfidence {
			out = append(out, r)
		}
	}
	return out
}

// BuildDocument converts a report into the export document. Only results
// passing Filter(opts.MinConfidence) are included; the quality counts
// describe the exported markers.
func BuildDocument(report triangulate.Report, opts Options) Document {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	results := Filter(report.Results, opts.MinConfidence)
	counts := triangulate.CountQuality(results)

	doc := Document{
		Metadata: Metadata{
			TotalMarkers:     len(results),
			High:             counts.High,
			Medium:           counts.Medium,
			Low:              counts.Low,
			Rejected:         len(report.Rejections),
			MinConfidence:    opts.MinConfidence,
			Readiness:        string(report.Readiness.Verdict),
			CoordinateSystem: CoordinateSystem,
			RunID:            opts.RunID,
			Version:          version.String(),
			GeneratedAt:      now.UTC().Format(time.RFC3339),
		},
		Markers: make(map[string]Marker, len(results)),
	}

	for _, r := range results {
		if r.Confidence >= report.Params.HighConfidence {
			doc.Metadata.HighConfidenceMarkers++
		}
		doc.Markers[MarkerKey(r.MarkerID)] = Marker{
			ID:                r.MarkerID,
			Position:          [3]float64{r.Position.X, r.Position.Y, r.Position.Z},
			Confidence:        r.Confidence,
			Quality:           string(r.Quality),
			ReprojectionError: r.ReprojectionError,
			ObservationsCount: r.ObservationsCount,
			CameraIDs:         r.CameraIDs,
		}
	}
	return doc
}

// WriteJSON writes doc as indented JSON to path.
func WriteJSON(fsys fsutil.FileSystem, path string, doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode export document: %w", err)
	}
	data = append(data, '\n')
	if err := fsys.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
