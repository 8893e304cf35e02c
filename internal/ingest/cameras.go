// Package ingest decodes the camera table and the marker detection table
// from their JSON interchange formats.
//
// Both loaders are lenient per record and strict per document: a malformed
// document is an error, a malformed camera or detection is reported as an
// Issue and left out.
package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/fiducial3d/internal/camera"
	"github.com/banshee-data/fiducial3d/internal/fsutil"
	"github.com/golang/geo/r3"
)

// MaxFileSize bounds every input document.
const MaxFileSize = 64 * 1024 * 1024

var (
	// ErrVectorLength marks a position, rotation or centre with the wrong
	// number of components.
	ErrVectorLength = errors.New("wrong vector length")
	// ErrMissingField marks a record without a required field.
	ErrMissingField = errors.New("missing required field")
)

// Issue is a record dropped at the input boundary.
type Issue struct {
	// Record identifies the dropped record: a camera id, or
	// "camera_id/marker_id" for a detection.
	Record string
	Err    error
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %v", i.Record, i.Err)
}

// cameraRecord is one camera entry as it appears on disk.
type cameraRecord struct {
	Position        []float64       `json:"position"`
	Rotation        json.RawMessage `json:"rotation"`
	FocalLengthMM   *float64        `json:"focal_length_mm"`
	PrincipalPointU float64         `json:"principal_point_u"`
	PrincipalPointV float64         `json:"principal_point_v"`
	AspectRatio     *float64        `json:"aspect_ratio,omitempty"` // defaults to 1
	ImageWidth      int             `json:"image_width"`
	ImageHeight     int             `json:"image_height"`
}

// LoadCameras reads a camera table from path.
func LoadCameras(fsys fsutil.FileSystem, path string) ([]camera.Calibration, []Issue, error) {
	data, err := fsutil.ReadBounded(fsys, path, ".json", MaxFileSize)
	if err != nil {
		return nil, nil, fmt.Errorf("cameras: %w", err)
	}
	return DecodeCameras(data)
}

// DecodeCameras decodes a camera table keyed by camera id. Calibrations are
// returned in camera id order and have passed camera.Calibration.Validate.
func DecodeCameras(data []byte) ([]camera.Calibration, []Issue, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("failed to parse camera table: %w", err)
	}

	var (
		cals   []camera.Calibration
		issues []Issue
	)
	for _, id := range sortedKeys(raw) {
		cal, err := decodeCamera(id, raw[id])
		if err != nil {
			issues = append(issues, Issue{Record: id, Err: err})
			continue
		}
		cals = append(cals, cal)
	}
	return cals, issues, nil
}

func decodeCamera(id string, data json.RawMessage) (camera.Calibration, error) {
	var rec cameraRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return camera.Calibration{}, fmt.Errorf("malformed camera record: %w", err)
	}
	if len(rec.Position) != 3 {
		return camera.Calibration{}, fmt.Errorf("position: %w (got %d, want 3)", ErrVectorLength, len(rec.Position))
	}
	if rec.FocalLengthMM == nil {
		return camera.Calibration{}, fmt.Errorf("focal_length_mm: %w", ErrMissingField)
	}
	rot, err := parseRotation(rec.Rotation)
	if err != nil {
		return camera.Calibration{}, fmt.Errorf("rotation: %w", err)
	}

	aspect := 1.0
	if rec.AspectRatio != nil {
		aspect = *rec.AspectRatio
	}

	cal := camera.Calibration{
		ID:              id,
		Position:        r3.Vector{X: rec.Position[0], Y: rec.Position[1], Z: rec.Position[2]},
		Rotation:        rot,
		FocalLength35mm: *rec.FocalLengthMM,
		PrincipalPointU: rec.PrincipalPointU,
		PrincipalPointV: rec.PrincipalPointV,
		AspectRatio:     aspect,
		ImageWidth:      rec.ImageWidth,
		ImageHeight:     rec.ImageHeight,
	}
	if err := cal.Validate(); err != nil {
		return camera.Calibration{}, err
	}
	return cal, nil
}

// parseRotation accepts a row-major flat list of 9 values or a nested 3x3
// list of rows.
func parseRotation(raw json.RawMessage) ([9]float64, error) {
	var out [9]float64
	if len(raw) == 0 || string(raw) == "null" {
		return out, ErrMissingField
	}

	var flat []float64
	if err := json.Unmarshal(raw, &flat); err == nil {
		if len(flat) != 9 {
			return out, fmt.Errorf("%w (got %d values, want 9)", ErrVectorLength, len(flat))
		}
		copy(out[:], flat)
		return out, nil
	}

	var rows [][]float64
	if err := json.Unmarshal(raw, &rows); err != nil {
		return out, fmt.Errorf("expected 9 numbers or 3 rows of 3: %w", err)
	}
	if len(rows) != 3 {
		return out, fmt.Errorf("%w (got %d rows, want 3)", ErrVectorLength, len(rows))
	}
	for i, row := range rows {
		if len(row) != 3 {
			return out, fmt.Errorf("%w (row %d has %d values, want 3)", ErrVectorLength, i, len(row))
		}
		copy(out[i*3:], row)
	}
	return out, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
