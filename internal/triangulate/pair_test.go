package triangulate

import (
	"errors"
	"testing"

	"github.com/banshee-data/fiducial3d/internal/camera"
	"github.com/banshee-data/fiducial3d/internal/testutil"
	"github.com/golang/geo/r3"
)

func TestTriangulatePair_RecoversPoint(t *testing.T) {
	t.Parallel()

	models := ringRig(t, 4, 5)
	x := r3.Vector{X: 0.3, Y: -0.2, Z: 0.5}

	a, b := models["cam-00"], models["cam-01"]
	pa, _ := a.Project(x)
	pb, _ := b.Project(x)

	got, err := TriangulatePair(a, b, pa, pb)
	if err != nil {
		t.Fatalf("TriangulatePair failed: %v", err)
	}
	if !testutil.VectorNear(got, x, 1e-6) {
		t.Errorf("TriangulatePair = %v, want %v", got, x)
	}
}

func TestTriangulatePair_ParallelRaysAreDegenerate(t *testing.T) {
	t.Parallel()

	// Two cameras with the same orientation, both seeing the target exactly
	// at the principal point: the rays are parallel and meet at infinity.
	identity := [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}
	calA := camera.Calibration{
		ID: "a", Rotation: identity, FocalLength35mm: 35, AspectRatio: 1,
		ImageWidth: 1920, ImageHeight: 1080,
	}
	calB := calA
	calB.ID = "b"
	calB.Position = r3.Vector{X: 1}

	a, err := camera.Build(calA, camera.DefaultSensorWidthMM)
	if err != nil {
		t.Fatal(err)
	}
	b, err := camera.Build(calB, camera.DefaultSensorWidthMM)
	if err != nil {
		t.Fatal(err)
	}

	_, _, cx, cy := a.Intrinsics()
	_, err = TriangulatePair(a, b, [2]float64{cx, cy}, [2]float64{cx, cy})
	if !errors.Is(err, ErrDegenerate) {
		t.Fatalf("expected ErrDegenerate, got %v", err)
	}
}

func TestTriangulatePair_CoincidentViewingLineIsDegenerate(t *testing.T) {
	t.Parallel()

	// Facing cameras on the X axis both see the origin at the principal
	// point. Every point on the axis satisfies both rays.
	a, err := camera.Build(lookingAtOrigin("a", r3.Vector{X: 2}), camera.DefaultSensorWidthMM)
	if err != nil {
		t.Fatal(err)
	}
	b, err := camera.Build(lookingAtOrigin("b", r3.Vector{X: -2}), camera.DefaultSensorWidthMM)
	if err != nil {
		t.Fatal(err)
	}

	pa, ok := a.Project(r3.Vector{})
	if !ok {
		t.Fatal("origin not in front of camera a")
	}
	pb, _ := b.Project(r3.Vector{})
	if _, err := TriangulatePair(a, b, pa, pb); !errors.Is(err, ErrDegenerate) {
		t.Fatalf("expected ErrDegenerate, got %v", err)
	}
}

func TestPairCount(t *testing.T) {
	tests := []struct {
		n, want int
	}{
		{0, 0}, {1, 0}, {2, 1}, {3, 3}, {4, 6}, {5, 10}, {7, 21},
	}
	for _, tt := range tests {
		if got := PairCount(tt.n); got != tt.want {
			t.Errorf("PairCount(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestTriangulateAllPairs(t *testing.T) {
	t.Parallel()

	models := ringRig(t, 5, 5)
	x := r3.Vector{X: -0.4, Y: 0.1, Z: 0.2}
	views := viewsFor(models, observe(t, models, "7", x))

	candidates, degenerate := TriangulateAllPairs(views)
	if degenerate != 0 {
		t.Errorf("expected no degenerate pairs, got %d", degenerate)
	}
	if len(candidates) != PairCount(5) {
		t.Fatalf("expected %d candidates, got %d", PairCount(5), len(candidates))
	}

	seen := make(map[[2]string]bool)
	for _, c := range candidates {
		if c.CameraA >= c.CameraB {
			t.Errorf("pair %s-%s not ordered", c.CameraA, c.CameraB)
		}
		key := [2]string{c.CameraA, c.CameraB}
		if seen[key] {
			t.Errorf("pair %v produced twice", key)
		}
		seen[key] = true
		if !testutil.VectorNear(c.Point, x, 1e-6) {
			t.Errorf("pair %s-%s: %v, want %v", c.CameraA, c.CameraB, c.Point, x)
		}
	}
}
