// Package camera builds pinhole projection models from photogrammetry
// calibration records.
//
// A Calibration carries a camera's world position C, its world-to-camera
// rotation R (row-major), a 35mm-equivalent focal length and a normalised
// principal point. Build turns it into an immutable Model holding the
// intrinsic matrix K and the projection matrix P = K·[R|t] with t = −R·C.
package camera

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/r3"
)

// RotationTolerance is the allowed deviation of det(R) from 1 and of each row
// norm from 1.
const RotationTolerance = 0.01

var (
	// ErrNonPositiveFocalLength marks a camera whose focal length is zero or
	// negative. Such a camera is excluded from the run, not fatal to it.
	ErrNonPositiveFocalLength = errors.New("focal length must be positive")
	// ErrInvalidRotation marks a rotation that is not a proper orthonormal matrix.
	ErrInvalidRotation = errors.New("rotation is not a proper rotation matrix")
	// ErrInvalidImageSize marks a non-positive image width or height.
	ErrInvalidImageSize = errors.New("image size must be positive")
	// ErrNonFinite marks NaN or Inf in any numeric field.
	ErrNonFinite = errors.New("non-finite value")
)

// Calibration is one camera's calibration record as delivered by the
// photogrammetry export parser.
type Calibration struct {
	ID string

	// Position is the camera centre C in world coordinates.
	Position r3.Vector
	// Rotation is the 3x3 world-to-camera rotation R, row-major.
	Rotation [9]float64

	FocalLength35mm float64
	// PrincipalPointU and PrincipalPointV are offsets normalised to [-1, 1]
	// of the half image width and height.
	PrincipalPointU float64
	PrincipalPointV float64
	AspectRatio     float64

	ImageWidth  int
	ImageHeight int
}

// Validate checks a calibration record at the input boundary.
func (c Calibration) Validate() error {
	scalars := []float64{
		c.Position.X, c.Position.Y, c.Position.Z,
		c.FocalLength35mm, c.PrincipalPointU, c.PrincipalPointV, c.AspectRatio,
	}
	scalars = append(scalars, c.Rotation[:]...)
	for _, v := range scalars {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("camera %s: %w", c.ID, ErrNonFinite)
		}
	}
	if c.FocalLength35mm <= 0 {
		return fmt.Errorf("camera %s: %w (got %g)", c.ID, ErrNonPositiveFocalLength, c.FocalLength35mm)
	}
	if c.ImageWidth <= 0 || c.ImageHeight <= 0 {
		return fmt.Errorf("camera %s: %w (got %dx%d)", c.ID, ErrInvalidImageSize, c.ImageWidth, c.ImageHeight)
	}
	if c.AspectRatio <= 0 {
		return fmt.Errorf("camera %s: aspect ratio must be positive (got %g)", c.ID, c.AspectRatio)
	}
	if !IsValidRotation(c.Rotation) {
		return fmt.Errorf("camera %s: %w", c.ID, ErrInvalidRotation)
	}
	return nil
}

// IsValidRotation checks that R is approximately orthonormal with det(R) ≈ 1
// (a proper rotation, not a reflection).
func IsValidRotation(R [9]float64) bool {
	r00, r01, r02 := R[0], R[1], R[2]
	r10, r11, r12 := R[3], R[4], R[5]
	r20, r21, r22 := R[6], R[7], R[8]

	det := r00*(r11*r22-r12*r21) - r01*(r10*r22-r12*r20) + r02*(r10*r21-r11*r20)
	if math.Abs(det-1.0) > RotationTolerance {
		return false
	}

	for i := 0; i < 3; i++ {
		row := r3.Vector{X: R[3*i], Y: R[3*i+1], Z: R[3*i+2]}
		if math.Abs(row.Norm()-1.0) > RotationTolerance {
			return false
		}
	}
	return true
}
