package triangulate

import (
	"fmt"
	"math"
	"testing"

	"github.com/banshee-data/fiducial3d/internal/camera"
	"github.com/golang/geo/r3"
)

var worldUp = r3.Vector{Z: 1}

// lookingAtOrigin returns a 35mm, 1920x1080 calibration at eye facing the origin.
func lookingAtOrigin(id string, eye r3.Vector) camera.Calibration {
	return camera.Calibration{
		ID:              id,
		Position:        eye,
		Rotation:        camera.LookAt(eye, r3.Vector{}, worldUp),
		FocalLength35mm: 35,
		AspectRatio:     1,
		ImageWidth:      1920,
		ImageHeight:     1080,
	}
}

// ringRig builds n cameras on a circle of the given radius around the
// origin, alternating between two heights so no two cameras are collinear
// with the scene centre.
func ringRig(t *testing.T, n int, radius float64) map[string]*camera.Model {
	t.Helper()
	models := make(map[string]*camera.Model, n)
	for i := 0; i < n; i++ {
		theta := 2 * math.Pi * float64(i) / float64(n)
		eye := r3.Vector{
			X: radius * math.Cos(theta),
			Y: radius * math.Sin(theta),
			Z: 1 + 0.5*float64(i%2),
		}
		id := fmt.Sprintf("cam-%02d", i)
		m, err := camera.Build(lookingAtOrigin(id, eye), camera.DefaultSensorWidthMM)
		if err != nil {
			t.Fatalf("build %s: %v", id, err)
		}
		models[id] = m
	}
	return models
}

// observe projects x into every model and returns noise-free observations.
func observe(t *testing.T, models map[string]*camera.Model, markerID string, x r3.Vector) []Observation {
	t.Helper()
	var obs []Observation
	for id, m := range models {
		px, ok := m.Project(x)
		if !ok {
			t.Fatalf("marker %s not projectable in %s", markerID, id)
		}
		obs = append(obs, Observation{MarkerID: markerID, CameraID: id, Center: px})
	}
	return obs
}

// subset returns the models whose ids are listed.
func subset(models map[string]*camera.Model, ids ...string) map[string]*camera.Model {
	out := make(map[string]*camera.Model, len(ids))
	for _, id := range ids {
		out[id] = models[id]
	}
	return out
}

func viewsFor(models map[string]*camera.Model, obs []Observation) []View {
	g := GroupObservations(obs, models)
	if len(g.Markers) == 0 {
		return nil
	}
	return g.Markers[0].Views
}
