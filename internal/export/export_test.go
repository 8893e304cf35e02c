package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/fiducial3d/internal/fsutil"
	"github.com/banshee-data/fiducial3d/internal/triangulate"
)

func sampleReport() triangulate.Report {
	return triangulate.Report{
		Params: triangulate.DefaultParams(),
		Results: []triangulate.MarkerResult{
			{
				MarkerID: "1", Position: r3.Vector{X: 1, Y: 2, Z: 3},
				ObservationsCount: 8, ReprojectionError: 2, Confidence: 0.99,
				Quality: triangulate.QualityHigh, CameraIDs: []string{"a", "b", "c"},
			},
			{
				MarkerID: "2", Position: r3.Vector{X: -1, Y: 0.5},
				ObservationsCount: 6, ReprojectionError: 10, Confidence: 0.76,
				Quality: triangulate.QualityHigh, CameraIDs: []string{"a", "c", "d"},
			},
			{
				MarkerID: "3", Position: r3.Vector{Y: -4},
				ObservationsCount: 5, ReprojectionError: 40, Confidence: 0.48,
				Quality: triangulate.QualityLow, CameraIDs: []string{"b", "c", "d"},
			},
		},
		Rejections: []triangulate.Rejection{
			{MarkerID: "9", Stage: triangulate.StageCollecting, Err: triangulate.ErrInsufficientCameras},
		},
		Readiness: triangulate.Readiness{Verdict: triangulate.ReadinessMinimal},
	}
}

func TestFilter(t *testing.T) {
	results := sampleReport().Results

	assert.Len(t, Filter(results, 0), 3)
	got := Filter(results, 0.5)
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].MarkerID)
	assert.Equal(t, "2", got[1].MarkerID)
	assert.Empty(t, Filter(results, 1.01))
	assert.Empty(t, Filter(nil, 0))
}

func TestBuildDocument(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	doc := BuildDocument(sampleReport(), Options{RunID: "run-1", Now: now})

	m := doc.Metadata
	assert.Equal(t, 3, m.TotalMarkers)
	assert.Equal(t, 2, m.High)
	assert.Equal(t, 0, m.Medium)
	assert.Equal(t, 1, m.Low)
	assert.Equal(t, 2, m.HighConfidenceMarkers)
	assert.Equal(t, 1, m.Rejected)
	assert.Equal(t, "minimal", m.Readiness)
	assert.Equal(t, CoordinateSystem, m.CoordinateSystem)
	assert.Equal(t, "run-1", m.RunID)
	assert.Equal(t, "2026-03-01T12:00:00Z", m.GeneratedAt)
	assert.NotEmpty(t, m.Version)

	require.Contains(t, doc.Markers, "marker_1")
	mk := doc.Markers["marker_1"]
	assert.Equal(t, "1", mk.ID)
	assert.Equal(t, [3]float64{1, 2, 3}, mk.Position)
	assert.Equal(t, "high", mk.Quality)
	assert.Equal(t, 8, mk.ObservationsCount)
	assert.Equal(t, []string{"a", "b", "c"}, mk.CameraIDs)
}

func TestBuildDocument_MinConfidence(t *testing.T) {
	doc := BuildDocument(sampleReport(), Options{MinConfidence: 0.8})

	assert.Equal(t, 1, doc.Metadata.TotalMarkers)
	assert.Equal(t, 1, doc.Metadata.High)
	assert.Equal(t, 0.8, doc.Metadata.MinConfidence)
	assert.Contains(t, doc.Markers, "marker_1")
	assert.NotContains(t, doc.Markers, "marker_2")
}

func TestBuildDocument_EmptyReport(t *testing.T) {
	doc := BuildDocument(triangulate.Report{}, Options{})
	assert.Equal(t, 0, doc.Metadata.TotalMarkers)
	assert.NotNil(t, doc.Markers)
}

func TestWriteJSON(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	doc := BuildDocument(sampleReport(), Options{RunID: "r"})

	require.NoError(t, WriteJSON(mfs, "/out/markers.json", doc))

	data, err := mfs.ReadFile("/out/markers.json")
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	meta := decoded["metadata"].(map[string]any)
	assert.Equal(t, "realitycapture_absolute", meta["coordinate_system"])
	assert.EqualValues(t, 3, meta["total_markers"])

	markers := decoded["markers"].(map[string]any)
	m3 := markers["marker_3"].(map[string]any)
	assert.Equal(t, "low", m3["quality"])
	assert.Equal(t, []any{0.0, -4.0, 0.0}, m3["position"])
}

func TestRenderHTML(t *testing.T) {
	html, err := RenderHTML(sampleReport())
	require.NoError(t, err)

	s := string(html)
	assert.True(t, strings.Contains(s, "<html"), "not an HTML page")
	assert.Contains(t, s, "Triangulated Markers")
	assert.Contains(t, s, "Mean Reprojection Error")

	mfs := fsutil.NewMemoryFileSystem()
	require.NoError(t, WriteHTML(mfs, "/out/markers.html", sampleReport()))
	assert.Equal(t, []string{"/out/markers.html"}, mfs.Names())
}

func TestSavePlot(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	require.NoError(t, SavePlot(mfs, "/out/markers.png", sampleReport().Results))

	data, err := mfs.ReadFile("/out/markers.png")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")), "missing PNG signature")

	// An empty run still produces an image.
	require.NoError(t, SavePlot(mfs, "/out/empty.png", nil))

	assert.Error(t, SavePlot(mfs, "/out/markers", nil))
}
