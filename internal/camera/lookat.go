package camera

import "github.com/golang/geo/r3"

// LookAt returns the world-to-camera rotation for a camera at eye looking at
// target, using the computer-vision convention: x right, y down, z forward.
// When the viewing direction is parallel to up, another world axis is used
// as the up hint.
func LookAt(eye, target, up r3.Vector) [9]float64 {
	forward := target.Sub(eye).Normalize()
	right := forward.Cross(up)
	if right.Norm() < 1e-9 {
		right = forward.Cross(forward.Ortho())
	}
	right = right.Normalize()
	down := forward.Cross(right)

	return [9]float64{
		right.X, right.Y, right.Z,
		down.X, down.Y, down.Z,
		forward.X, forward.Y, forward.Z,
	}
}
