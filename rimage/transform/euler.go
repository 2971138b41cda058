package transform

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// AngleEstimate is the pitch and yaw of a relative camera rotation, in radians.
type AngleEstimate struct {
	Pitch float64
	Yaw   float64
}

// RotationToEuler extracts pitch and yaw from a rotation matrix using the Z-Y-X (yaw, pitch,
// roll) convention. Roll is not reported. Near gimbal lock (R21 and R22 both close to zero) the
// pitch is ill conditioned; atan2 keeps it finite but it should not be trusted.
func RotationToEuler(rot mat.Matrix) AngleEstimate {
	yaw := math.Atan2(rot.At(1, 0), rot.At(0, 0))
	pitch := math.Atan2(-rot.At(2, 0), math.Hypot(rot.At(2, 1), rot.At(2, 2)))
	return AngleEstimate{Pitch: pitch, Yaw: yaw}
}

// RotationFromEuler builds Rz(yaw) * Ry(pitch) * Rx(roll), the inverse of RotationToEuler.
func RotationFromEuler(yaw, pitch, roll float64) *mat.Dense {
	sy, cy := math.Sincos(yaw)
	sp, cp := math.Sincos(pitch)
	sr, cr := math.Sincos(roll)
	return mat.NewDense(3, 3, []float64{
		cy * cp, cy*sp*sr - sy*cr, cy*sp*cr + sy*sr,
		sy * cp, sy*sp*sr + cy*cr, sy*sp*cr - cy*sr,
		-sp, cp * sr, cp * cr,
	})
}
