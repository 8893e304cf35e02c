package ingest

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/banshee-data/fiducial3d/internal/camera"
	"github.com/banshee-data/fiducial3d/internal/fsutil"
	"github.com/banshee-data/fiducial3d/internal/triangulate"
)

// detection is one marker detection as it appears on disk.
type detection struct {
	Center []float64 `json:"center"`
}

// LoadObservations reads a detection table from path.
func LoadObservations(fsys fsutil.FileSystem, path string) ([]triangulate.Observation, []Issue, error) {
	data, err := fsutil.ReadBounded(fsys, path, ".json", MaxFileSize)
	if err != nil {
		return nil, nil, fmt.Errorf("observations: %w", err)
	}
	return DecodeObservations(data)
}

// DecodeObservations decodes {camera_id: {marker_id: {center: [u, v]}}}.
// Observations are returned ordered by camera id, then marker id.
func DecodeObservations(data []byte) ([]triangulate.Observation, []Issue, error) {
	var raw map[string]map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("failed to parse observation table: %w", err)
	}

	var (
		obs    []triangulate.Observation
		issues []Issue
	)
	for _, camID := range sortedKeys(raw) {
		markers := raw[camID]
		for _, markerID := range sortedKeys(markers) {
			center, err := decodeCenter(markers[markerID])
			if err != nil {
				issues = append(issues, Issue{Record: camID + "/" + markerID, Err: err})
				continue
			}
			obs = append(obs, triangulate.Observation{
				MarkerID: markerID,
				CameraID: camID,
				Center:   center,
			})
		}
	}
	return obs, issues, nil
}

func decodeCenter(data json.RawMessage) ([2]float64, error) {
	var d detection
	if err := json.Unmarshal(data, &d); err != nil {
		return [2]float64{}, fmt.Errorf("malformed detection: %w", err)
	}
	if d.Center == nil {
		return [2]float64{}, fmt.Errorf("center: %w", ErrMissingField)
	}
	if len(d.Center) != 2 {
		return [2]float64{}, fmt.Errorf("center: %w (got %d, want 2)", ErrVectorLength, len(d.Center))
	}
	if !isFinite(d.Center[0]) || !isFinite(d.Center[1]) {
		return [2]float64{}, fmt.Errorf("center: %w", camera.ErrNonFinite)
	}
	return [2]float64{d.Center[0], d.Center[1]}, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
