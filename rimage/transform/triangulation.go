package transform

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// homogeneousEpsilon is the smallest |w| of a unit-norm homogeneous solution that is still
// dehomogenized. Smaller values put the point (numerically) at infinity.
const homogeneousEpsilon = 1e-10

// ErrUnreliablePoint is returned for correspondences whose triangulation lands at infinity.
var ErrUnreliablePoint = errors.New("triangulated point is at infinity")

// TriangulatedPoint is a 3D point in the first camera frame together with its depth in both cameras.
type TriangulatedPoint struct {
	Point  r3.Vector
	Depth1 float64
	Depth2 float64
}

// InFront reports whether the point has positive depth in both cameras.
func (tp TriangulatedPoint) InFront() bool {
	return tp.Depth1 > 0 && tp.Depth2 > 0
}

// CameraProjections builds the 3x4 projection matrices K[I|0] and K[R|t] for a hypothesis.
func CameraProjections(k mat.Matrix, hyp PoseHypothesis) (*mat.Dense, *mat.Dense) {
	var p1, p2 mat.Dense
	p1.Mul(k, eye(4).Slice(0, 3, 0, 4))
	p2.Mul(k, hyp.ProjectionMatrix())
	return &p1, &p2
}

// TriangulatePoint recovers the homogeneous point X with p1*X ~ x1 and p2*X ~ x2 with the direct
// linear transform and returns it dehomogenized.
func TriangulatePoint(p1, p2 mat.Matrix, x1, x2 r2.Point) (r3.Vector, error) {
	// x * P3 - P1 and y * P3 - P2 for both cameras
	A := mat.NewDense(4, 4, nil)
	for i, obs := range []struct {
		p  mat.Matrix
		pt r2.Point
	}{{p1, x1}, {p2, x2}} {
		for c := 0; c < 4; c++ {
			A.Set(2*i, c, obs.pt.X*obs.p.At(2, c)-obs.p.At(0, c))
			A.Set(2*i+1, c, obs.pt.Y*obs.p.At(2, c)-obs.p.At(1, c))
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(A, mat.SVDFull); !ok {
		return r3.Vector{}, errors.New("failed to factorize triangulation system")
	}
	var V mat.Dense
	svd.VTo(&V)
	X := V.ColView(3)
	w := X.AtVec(3)
	if math.Abs(w) < homogeneousEpsilon {
		return r3.Vector{}, ErrUnreliablePoint
	}
	return r3.Vector{
		X: X.AtVec(0) / w,
		Y: X.AtVec(1) / w,
		Z: X.AtVec(2) / w,
	}, nil
}

// TriangulateCorrespondence triangulates one correspondence under a hypothesis and reports its depth
// in both cameras.
func TriangulateCorrespondence(p1, p2 mat.Matrix, hyp PoseHypothesis, x1, x2 r2.Point) (TriangulatedPoint, error) {
	pt, err := TriangulatePoint(p1, p2, x1, x2)
	if err != nil {
		return TriangulatedPoint{}, err
	}
	inSecond := transformPoint(hyp.Rotation, hyp.Translation, pt)
	return TriangulatedPoint{Point: pt, Depth1: pt.Z, Depth2: inSecond.Z}, nil
}

// GetLinearTriangulatedPoints computes triangulated 3D points with linear method. Points at
// infinity are skipped; the returned indices map each point back to its correspondence.
func GetLinearTriangulatedPoints(k mat.Matrix, hyp PoseHypothesis, corr Correspondences) ([]TriangulatedPoint, []int, error) {
	if err := corr.Validate(); err != nil {
		return nil, nil, err
	}
	p1, p2 := CameraProjections(k, hyp)
	pts := make([]TriangulatedPoint, 0, corr.Len())
	indices := make([]int, 0, corr.Len())
	for i := range corr.Src {
		tp, err := TriangulateCorrespondence(p1, p2, hyp, corr.Src[i], corr.Dst[i])
		if errors.Is(err, ErrUnreliablePoint) {
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		pts = append(pts, tp)
		indices = append(indices, i)
	}
	return pts, indices, nil
}
