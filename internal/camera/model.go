package camera

import (
	"fmt"
	"math"
	"sort"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// DefaultSensorWidthMM is the full-frame sensor width assumed when converting
// a 35mm-equivalent focal length to pixels.
const DefaultSensorWidthMM = 36.0

// behindCameraEpsilon is the minimum |z| in camera coordinates for a point
// to be projectable.
const behindCameraEpsilon = 1e-6

// Model is an immutable pinhole camera derived from a Calibration.
// It is safe for concurrent read-only use.
type Model struct {
	id string

	fx, fy, cx, cy float64
	width, height  int

	rotation [9]float64
	center   r3.Vector

	k *mat.Dense // 3x3
	p *mat.Dense // 3x4
}

// Build converts a calibration record into a Model.
//
//	fx = (focal_35mm / sensorWidthMM) * width
//	fy = fx * aspect
//	cx = width/2 + u*width/2,  cy = height/2 + v*height/2
//	P  = K·[R | −R·C]
//
// A non-positive sensorWidthMM falls back to DefaultSensorWidthMM.
func Build(cal Calibration, sensorWidthMM float64) (*Model, error) {
	if err := cal.Validate(); err != nil {
		return nil, err
	}
	if sensorWidthMM <= 0 {
		sensorWidthMM = DefaultSensorWidthMM
	}

	w := float64(cal.ImageWidth)
	h := float64(cal.ImageHeight)

	fx := (cal.FocalLength35mm / sensorWidthMM) * w
	fy := fx * cal.AspectRatio
	cx := w/2 + cal.PrincipalPointU*(w/2)
	cy := h/2 + cal.PrincipalPointV*(h/2)

	k := mat.NewDense(3, 3, []float64{
		fx, 0, cx,
		0, fy, cy,
		0, 0, 1,
	})

	r := mat.NewDense(3, 3, cal.Rotation[:])
	c := mat.NewVecDense(3, []float64{cal.Position.X, cal.Position.Y, cal.Position.Z})
	var t mat.VecDense
	t.MulVec(r, c)
	t.ScaleVec(-1, &t)

	rt := mat.NewDense(3, 4, nil)
	rt.Slice(0, 3, 0, 3).(*mat.Dense).Copy(r)
	rt.Slice(0, 3, 3, 4).(*mat.Dense).Copy(&t)

	p := mat.NewDense(3, 4, nil)
	p.Mul(k, rt)

	return &Model{
		id:       cal.ID,
		fx:       fx,
		fy:       fy,
		cx:       cx,
		cy:       cy,
		width:    cal.ImageWidth,
		height:   cal.ImageHeight,
		rotation: cal.Rotation,
		center:   cal.Position,
		k:        k,
		p:        p,
	}, nil
}

// ID returns the camera identifier.
func (m *Model) ID() string { return m.id }

// Intrinsics returns the focal lengths and principal point in pixels.
func (m *Model) Intrinsics() (fx, fy, cx, cy float64) {
	return m.fx, m.fy, m.cx, m.cy
}

// ImageSize returns the image width and height in pixels.
func (m *Model) ImageSize() (width, height int) {
	return m.width, m.height
}

// Center returns the camera centre C in world coordinates.
func (m *Model) Center() r3.Vector { return m.center }

// K returns a copy of the 3x3 intrinsic matrix.
func (m *Model) K() *mat.Dense { return mat.DenseCopyOf(m.k) }

// P returns a copy of the 3x4 projection matrix.
func (m *Model) P() *mat.Dense { return mat.DenseCopyOf(m.p) }

// ProjectionRow returns row i (0..2) of P.
func (m *Model) ProjectionRow(i int) [4]float64 {
	var row [4]float64
	mat.Row(row[:], i, m.p)
	return row
}

// ToCameraFrame maps a world point into camera coordinates: R·(X − C).
func (m *Model) ToCameraFrame(x r3.Vector) r3.Vector {
	d := x.Sub(m.center)
	R := m.rotation
	return r3.Vector{
		X: R[0]*d.X + R[1]*d.Y + R[2]*d.Z,
		Y: R[3]*d.X + R[4]*d.Y + R[5]*d.Z,
		Z: R[6]*d.X + R[7]*d.Y + R[8]*d.Z,
	}
}

// Project maps a world point to pixel coordinates through K·R·(X − C).
// ok is false when the point lies on (or numerically at) the camera plane.
func (m *Model) Project(x r3.Vector) (px [2]float64, ok bool) {
	pc := m.ToCameraFrame(x)
	if math.Abs(pc.Z) < behindCameraEpsilon {
		return px, false
	}
	u := m.fx*pc.X + m.cx*pc.Z
	v := m.fy*pc.Y + m.cy*pc.Z
	return [2]float64{u / pc.Z, v / pc.Z}, true
}

// Issue records a calibration that could not be turned into a Model.
type Issue struct {
	CameraID string
	Err      error
}

func (i Issue) String() string {
	return fmt.Sprintf("camera %s: %v", i.CameraID, i.Err)
}

// BuildAll builds a model for every calibration. Unusable cameras are
// returned as issues and left out of the table; they never fail the batch.
func BuildAll(cals []Calibration, sensorWidthMM float64) (map[string]*Model, []Issue) {
	models := make(map[string]*Model, len(cals))
	var issues []Issue
	for _, cal := range cals {
		if _, dup := models[cal.ID]; dup {
			issues = append(issues, Issue{CameraID: cal.ID, Err: fmt.Errorf("duplicate camera id")})
			continue
		}
		m, err := Build(cal, sensorWidthMM)
		if err != nil {
			issues = append(issues, Issue{CameraID: cal.ID, Err: err})
			continue
		}
		models[cal.ID] = m
	}
	sort.Slice(issues, func(i, j int) bool { return issues[i].CameraID < issues[j].CameraID })
	return models, issues
}
