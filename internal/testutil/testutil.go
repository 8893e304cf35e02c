// Package testutil provides shared test helpers for geometry assertions and
// input fixtures.
package testutil

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/golang/geo/r3"

	"github.com/banshee-data/fiducial3d/internal/fsutil"
)

// VectorNear reports whether every component of a and b differs by at most tol.
func VectorNear(a, b r3.Vector, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol && math.Abs(a.Y-b.Y) <= tol && math.Abs(a.Z-b.Z) <= tol
}

// AssertVectorNear fails the test if got is not within tol of want on every axis.
func AssertVectorNear(t testing.TB, got, want r3.Vector, tol float64) {
	t.Helper()
	if !VectorNear(got, want, tol) {
		t.Errorf("vector = %v, want %v (tol %g, distance %g)", got, want, tol, got.Distance(want))
	}
}

// AssertPixelNear fails the test if got is not within tol pixels of want.
func AssertPixelNear(t testing.TB, got, want [2]float64, tol float64) {
	t.Helper()
	if d := math.Hypot(got[0]-want[0], got[1]-want[1]); d > tol {
		t.Errorf("pixel = %v, want %v (off by %g px)", got, want, d)
	}
}

// WriteJSON encodes v into fsys at path, failing the test on error.
func WriteJSON(t testing.TB, fsys fsutil.FileSystem, path string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
	if err := fsys.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
