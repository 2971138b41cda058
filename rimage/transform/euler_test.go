package transform

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func TestRotationToEulerIdentity(t *testing.T) {
	angles := RotationToEuler(eye(3))
	test.That(t, angles.Pitch, test.ShouldEqual, 0.)
	test.That(t, angles.Yaw, test.ShouldEqual, 0.)
}

func TestRotationToEulerRoundTrip(t *testing.T) {
	for _, tc := range []struct{ yaw, pitch, roll float64 }{
		{0.1745, 0, 0},
		{0, 0.1, 0},
		{-0.4, 0.25, 0.3},
		{2.5, -1.2, -0.7},
	} {
		angles := RotationToEuler(RotationFromEuler(tc.yaw, tc.pitch, tc.roll))
		test.That(t, angles.Yaw, test.ShouldAlmostEqual, tc.yaw, 1e-12)
		test.That(t, angles.Pitch, test.ShouldAlmostEqual, tc.pitch, 1e-12)
	}
}

func TestRotationToEulerGimbalLock(t *testing.T) {
	angles := RotationToEuler(RotationFromEuler(0.3, math.Pi/2, 0))
	test.That(t, math.IsNaN(angles.Pitch), test.ShouldBeFalse)
	test.That(t, angles.Pitch, test.ShouldAlmostEqual, math.Pi/2, 1e-6)
}
