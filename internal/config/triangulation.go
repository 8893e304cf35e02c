package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical triangulation defaults file.
const DefaultConfigPath = "config/triangulation.defaults.json"

// TriangulationConfig is the root configuration for the triangulation run.
// Every field is optional; the Get* accessors supply defaults for anything
// the JSON omits, so partial files are safe.
type TriangulationConfig struct {
	// Marker gating
	MinCameras           *int     `json:"min_cameras,omitempty"`
	MaxReprojectionError *float64 `json:"max_reprojection_error,omitempty"` // pixels

	// Camera model
	SensorWidthMM *float64 `json:"sensor_width_mm,omitempty"`

	// Outlier gate: keep candidates within scale*medDist + floor of the median.
	// floor is in world units, so it must be re-derived for captures that are
	// not in metres.
	OutlierScale *float64 `json:"outlier_scale,omitempty"`
	OutlierFloor *float64 `json:"outlier_floor,omitempty"`

	// Quality label thresholds
	HighConfidence   *float64 `json:"high_confidence,omitempty"`
	MediumConfidence *float64 `json:"medium_confidence,omitempty"`

	// Execution
	Workers *int    `json:"workers,omitempty"` // 0 means runtime.NumCPU()
	Timeout *string `json:"timeout,omitempty"` // duration string like "30s"; empty disables
}

// Defaults used when a field is absent.
const (
	DefaultMinCameras           = 3
	DefaultMaxReprojectionError = 200.0
	DefaultSensorWidthMM        = 36.0
	DefaultOutlierScale         = 2.0
	DefaultOutlierFloor         = 0.1
	DefaultHighConfidence       = 0.7
	DefaultMediumConfidence     = 0.5
)

// EmptyTriangulationConfig returns a config with all fields unset.
func EmptyTriangulationConfig() *TriangulationConfig {
	return &TriangulationConfig{}
}

// LoadTriangulationConfig loads a TriangulationConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadTriangulationConfig(path string) (*TriangulationConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTriangulationConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath from the current directory or
// one of its parents. Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TriangulationConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTriangulationConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TriangulationConfig) Validate() error {
	if c.MinCameras != nil && *c.MinCameras < 2 {
		return fmt.Errorf("min_cameras must be at least 2, got %d", *c.MinCameras)
	}
	if c.MaxReprojectionError != nil && !positiveFinite(*c.MaxReprojectionError) {
		return fmt.Errorf("max_reprojection_error must be positive, got %f", *c.MaxReprojectionError)
	}
	if c.SensorWidthMM != nil && !positiveFinite(*c.SensorWidthMM) {
		return fmt.Errorf("sensor_width_mm must be positive, got %f", *c.SensorWidthMM)
	}
	if c.OutlierScale != nil && (*c.OutlierScale < 0 || math.IsNaN(*c.OutlierScale)) {
		return fmt.Errorf("outlier_scale must be non-negative, got %f", *c.OutlierScale)
	}
	if c.OutlierFloor != nil && (*c.OutlierFloor < 0 || math.IsNaN(*c.OutlierFloor)) {
		return fmt.Errorf("outlier_floor must be non-negative, got %f", *c.OutlierFloor)
	}
	high, medium := c.GetHighConfidence(), c.GetMediumConfidence()
	if high < 0 || high > 1 || medium < 0 || medium > 1 {
		return fmt.Errorf("confidence thresholds must be within [0,1], got high=%f medium=%f", high, medium)
	}
	if medium > high {
		return fmt.Errorf("medium_confidence (%f) must not exceed high_confidence (%f)", medium, high)
	}
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	if c.Timeout != nil && *c.Timeout != "" {
		if _, err := time.ParseDuration(*c.Timeout); err != nil {
			return fmt.Errorf("invalid timeout '%s': %w", *c.Timeout, err)
		}
	}
	return nil
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// GetMinCameras returns the min_cameras value or the default.
func (c *TriangulationConfig) GetMinCameras() int {
	if c.MinCameras == nil {
		return DefaultMinCameras
	}
	return *c.MinCameras
}

// GetMaxReprojectionError returns the max_reprojection_error value or the default.
func (c *TriangulationConfig) GetMaxReprojectionError() float64 {
	if c.MaxReprojectionError == nil {
		return DefaultMaxReprojectionError
	}
	return *c.MaxReprojectionError
}

// GetSensorWidthMM returns the sensor_width_mm value or the default.
func (c *TriangulationConfig) GetSensorWidthMM() float64 {
	if c.SensorWidthMM == nil {
		return DefaultSensorWidthMM
	}
	return *c.SensorWidthMM
}

// GetOutlierScale returns the outlier_scale value or the default.
func (c *TriangulationConfig) GetOutlierScale() float64 {
	if c.OutlierScale == nil {
		return DefaultOutlierScale
	}
	return *c.OutlierScale
}

// GetOutlierFloor returns the outlier_floor value or the default.
func (c *TriangulationConfig) GetOutlierFloor() float64 {
	if c.OutlierFloor == nil {
		return DefaultOutlierFloor
	}
	return *c.OutlierFloor
}

// GetHighConfidence returns the high_confidence value or the default.
func (c *TriangulationConfig) GetHighConfidence() float64 {
	if c.HighConfidence == nil {
		return DefaultHighConfidence
	}
	return *c.HighConfidence
}

// GetMediumConfidence returns the medium_confidence value or the default.
func (c *TriangulationConfig) GetMediumConfidence() float64 {
	if c.MediumConfidence == nil {
		return DefaultMediumConfidence
	}
	return *c.MediumConfidence
}

// GetWorkers returns the workers value, 0 when unset (caller picks NumCPU).
func (c *TriangulationConfig) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}

// GetTimeout parses and returns Timeout. Zero means no deadline.
func (c *TriangulationConfig) GetTimeout() time.Duration {
	if c.Timeout == nil || *c.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(*c.Timeout)
	if err != nil {
		return 0
	}
	return d
}
