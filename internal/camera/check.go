package camera

import (
	"fmt"
	"math"
)

// Sanity bounds applied to converted intrinsics. Values outside them are
// usually a sign of a wrong image size or sensor width, not a broken camera.
const (
	minPlausibleFocalPx    = 500.0
	maxPlausibleFocalPx    = 10000.0
	maxFocalRatioDiff      = 0.05
	maxPrincipalOffsetFrac = 0.10
)

// Warnings returns non-fatal sanity warnings about the converted intrinsics.
// An empty slice means every check passed.
func (m *Model) Warnings() []string {
	var warnings []string

	if m.fx < minPlausibleFocalPx || m.fx > maxPlausibleFocalPx {
		warnings = append(warnings, fmt.Sprintf("unusual focal length fx=%.1f px", m.fx))
	}
	if m.fy < minPlausibleFocalPx || m.fy > maxPlausibleFocalPx {
		warnings = append(warnings, fmt.Sprintf("unusual focal length fy=%.1f px", m.fy))
	}

	w, h := float64(m.width), float64(m.height)
	if m.cx < 0 || m.cx > w {
		warnings = append(warnings, fmt.Sprintf("principal point cx=%.1f outside image", m.cx))
	}
	if m.cy < 0 || m.cy > h {
		warnings = append(warnings, fmt.Sprintf("principal point cy=%.1f outside image", m.cy))
	}

	if ratio := math.Abs(m.fx-m.fy) / math.Max(m.fx, m.fy); ratio > maxFocalRatioDiff {
		warnings = append(warnings, fmt.Sprintf("large fx/fy difference: %.1f%%", ratio*100))
	}

	centerX, centerY := w/2, h/2
	if off := math.Abs(m.cx-centerX) / centerX; off > maxPrincipalOffsetFrac {
		warnings = append(warnings, fmt.Sprintf("large principal point offset in X: %.1f%%", off*100))
	}
	if off := math.Abs(m.cy-centerY) / centerY; off > maxPrincipalOffsetFrac {
		warnings = append(warnings, fmt.Sprintf("large principal point offset in Y: %.1f%%", off*100))
	}

	return warnings
}
