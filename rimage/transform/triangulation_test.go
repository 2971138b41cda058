package transform

import (
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

func TestTriangulatePointRoundTrip(t *testing.T) {
	intrinsics := testIntrinsics()
	k := intrinsics.GetCameraMatrix()
	hyp := PoseHypothesis{
		Variant:     RotationATranslationPos,
		Rotation:    RotationFromEuler(0.15, -0.03, 0.02),
		Translation: unitTranslation(0.4, 0.1, 1),
	}
	p1, p2 := CameraProjections(k, hyp)

	for _, pt := range scenePoints() {
		x1, _ := intrinsics.ProjectPoint(eye(3), mat.NewDense(3, 1, nil), pt)
		x2, depth2 := intrinsics.ProjectPoint(hyp.Rotation, hyp.Translation, pt)

		got, err := TriangulatePoint(p1, p2, x1, x2)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, got.Distance(pt), test.ShouldBeLessThan, 1e-6)

		tp, err := TriangulateCorrespondence(p1, p2, hyp, x1, x2)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, tp.Depth1, test.ShouldAlmostEqual, pt.Z, 1e-6)
		test.That(t, tp.Depth2, test.ShouldAlmostEqual, depth2, 1e-6)
		test.That(t, tp.InFront(), test.ShouldBeTrue)
	}
}

func TestTriangulatePointAtInfinity(t *testing.T) {
	intrinsics := testIntrinsics()
	k := intrinsics.GetCameraMatrix()
	// pure sideways translation: identical pixels in both views only meet at infinity
	hyp := PoseHypothesis{Rotation: eye(3), Translation: unitTranslation(1, 0, 0)}
	p1, p2 := CameraProjections(k, hyp)

	px := r2.Point{X: 700, Y: 300}
	_, err := TriangulatePoint(p1, p2, px, px)
	test.That(t, errors.Is(err, ErrUnreliablePoint), test.ShouldBeTrue)

	corr := Correspondences{
		Src: []r2.Point{px, {X: 582, Y: 437}},
		Dst: []r2.Point{px, {X: 582 + 910.0/5, Y: 437}},
	}
	pts, indices, err := GetLinearTriangulatedPoints(k, hyp, corr)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, indices, test.ShouldResemble, []int{1})
	test.That(t, pts[0].Point.Distance(r3.Vector{Z: 5}), test.ShouldBeLessThan, 1e-6)
}

func TestGetLinearTriangulatedPointsMismatched(t *testing.T) {
	hyp := PoseHypothesis{Rotation: eye(3), Translation: unitTranslation(1, 0, 0)}
	_, _, err := GetLinearTriangulatedPoints(eye(3), hyp, Correspondences{Src: make([]r2.Point, 2), Dst: make([]r2.Point, 1)})
	test.That(t, err, test.ShouldNotBeNil)
}
