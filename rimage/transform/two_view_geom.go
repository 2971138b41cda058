package transform

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// DefaultEssentialTolerance is the largest relative gap allowed between the two non-zero singular
// values of an essential matrix before it is considered degenerate.
const DefaultEssentialTolerance = 0.1

// ErrDegenerateEssential is returned when an essential matrix does not have two equal non-zero
// singular values. It usually means the fundamental matrix was poorly estimated.
var ErrDegenerateEssential = errors.New("essential matrix is degenerate")

// Correspondences holds matched pixels between a source and a target frame. Src[i] and Dst[i]
// are projections of the same scene point.
type Correspondences struct {
	Src []r2.Point
	Dst []r2.Point
}

// Len returns the number of correspondences.
func (c Correspondences) Len() int {
	return len(c.Src)
}

// Validate checks the two point lists are index aligned.
func (c Correspondences) Validate() error {
	if len(c.Src) != len(c.Dst) {
		return errors.Errorf("correspondence lists have different lengths (%d != %d)", len(c.Src), len(c.Dst))
	}
	return nil
}

// GetEssentialMatrixFromFundamental returns the essential matrix K2^T * F * K1. The result is not
// projected onto the essential manifold; DecomposeEssentialMatrix checks its structure.
func GetEssentialMatrixFromFundamental(k1, k2, f mat.Matrix) (*mat.Dense, error) {
	for _, m := range []mat.Matrix{k1, k2, f} {
		if r, c := m.Dims(); r != 3 || c != 3 {
			return nil, errors.Errorf("expected 3x3 matrices, got %dx%d", r, c)
		}
	}
	var essMat, tmp mat.Dense
	tmp.Mul(k2.T(), f)
	essMat.Mul(&tmp, k1)
	return &essMat, nil
}

// GetEssentialMatrixFromPose returns [t]x * rot, the essential matrix of a camera with pose
// [rot|t] relative to a camera at the origin.
func GetEssentialMatrixFromPose(rot, t mat.Matrix) *mat.Dense {
	cross := getCrossProductMatFromPoint(r3.Vector{X: t.At(0, 0), Y: t.At(1, 0), Z: t.At(2, 0)})
	var essMat mat.Dense
	essMat.Mul(cross, rot)
	return &essMat
}

// GetFundamentalMatrixFromPose returns K^-T * [t]x * rot * K^-1 for a camera pair sharing the
// intrinsics k.
func GetFundamentalMatrixFromPose(k, rot, t mat.Matrix) (*mat.Dense, error) {
	var kInv mat.Dense
	if err := kInv.Inverse(k); err != nil {
		return nil, errors.Wrap(err, "camera matrix is not invertible")
	}
	essMat := GetEssentialMatrixFromPose(rot, t)
	var f mat.Dense
	f.Mul(kInv.T(), essMat)
	f.Mul(&f, &kInv)
	return &f, nil
}

// DecomposeEssentialMatrix decomposes the Essential matrix into 2 possible 3D rotations and a 3D
// translation direction. Both rotations are returned with a positive determinant.
func DecomposeEssentialMatrix(essMat mat.Matrix, tolerance float64) (*mat.Dense, *mat.Dense, *mat.Dense, error) {
	mats, err := performSVD(essMat)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := checkEssentialSingularValues(mats.Values, tolerance); err != nil {
		return nil, nil, nil, err
	}
	// create matrix W
	W := mat.NewDense(3, 3, []float64{
		0, -1, 0,
		1, 0, 0,
		0, 0, 1,
	})
	// UWV^T
	var R1, R2 mat.Dense
	R1.Mul(mats.U, W)
	R1.Mul(&R1, mats.VT)
	// UW^TV^T
	R2.Mul(mats.U, W.T())
	R2.Mul(&R2, mats.VT)
	for _, r := range []*mat.Dense{&R1, &R2} {
		if mat.Det(r) < 0 {
			r.Scale(-1, r)
		}
	}
	U3 := mats.U.ColView(2)
	t := mat.NewDense(3, 1, []float64{U3.AtVec(0), U3.AtVec(1), U3.AtVec(2)})
	return &R1, &R2, t, nil
}

func checkEssentialSingularValues(values []float64, tolerance float64) error {
	if len(values) != 3 {
		return errors.Wrapf(ErrDegenerateEssential, "expected 3 singular values, got %d", len(values))
	}
	if values[0] <= 0 || math.IsNaN(values[0]) {
		return errors.Wrap(ErrDegenerateEssential, "matrix is zero")
	}
	if gap := (values[0] - values[1]) / values[0]; gap > tolerance {
		return errors.Wrapf(ErrDegenerateEssential,
			"singular values %.6g and %.6g differ by %.3g (tolerance %.3g)", values[0], values[1], gap, tolerance)
	}
	return nil
}

// ComputeFundamentalMatrixAllPoints compute the fundamental matrix from all points with the
// 8-point algorithm, so that pts2^T * F * pts1 = 0.
func ComputeFundamentalMatrixAllPoints(pts1, pts2 []r2.Point, normalize bool) (*mat.Dense, error) {
	if len(pts1) != len(pts2) {
		return nil, errors.New("sets of points pts1 and pts2 must have the same number of elements")
	}
	if len(pts1) < 8 {
		return nil, errors.New("sets of points must have at least 8 elements")
	}
	nPoints := len(pts1)

	var points1, points2 []r2.Point
	var T1, T2 *mat.Dense

	// if normalize, normalize points and get transform
	if normalize {
		points1, T1 = normalizePoints(pts1)
		points2, T2 = normalizePoints(pts2)
	} else {
		points1 = make([]r2.Point, nPoints)
		copy(points1, pts1)
		points2 = make([]r2.Point, nPoints)
		copy(points2, pts2)
		T1 = eye(3)
		T2 = eye(3)
	}

	// pad to a square system when only 8 points are given
	nRows := nPoints
	if nRows < 9 {
		nRows = 9
	}
	m := mat.NewDense(nRows, 9, nil)
	for i := range points1 {
		v1 := points1[i]
		v2 := points2[i]
		row := []float64{
			v2.X * v1.X, v2.X * v1.Y, v2.X,
			v2.Y * v1.X, v2.Y * v1.Y, v2.Y,
			v1.X, v1.Y, 1,
		}
		m.SetRow(i, row)
	}

	mats1, err := performSVD(m)
	if err != nil {
		return nil, err
	}
	lastColV := mats1.V.ColView(8)

	// reshape into F
	lastColVdata := make([]float64, 9)
	for i := range lastColVdata {
		lastColVdata[i] = lastColV.AtVec(i)
	}
	F := mat.NewDense(3, 3, lastColVdata)

	// enforce rank 2 of F
	mats2, err := performSVD(F)
	if err != nil {
		return nil, err
	}
	S := mats2.S
	S.Set(2, 2, 0)

	// get refined F: U@S@V2^T
	Fhat := mat.NewDense(3, 3, nil)
	Fhat.Mul(mats2.U, S)
	F.Mul(Fhat, mats2.VT)
	// rescale F: T2^T @ F @ T1
	F.Mul(T2.T(), F)
	F.Mul(F, T1)

	if f22 := F.At(2, 2); math.Abs(f22) > 1e-12 {
		F.Scale(1/f22, F)
	} else {
		F.Scale(1/mat.Norm(F, 2), F)
	}

	return F, nil
}

// helpers
// normalizePoints normalizes points as described in Multiple View Geometry, Alg 11.1.
func normalizePoints(pts []r2.Point) ([]r2.Point, *mat.Dense) {
	nPoints := len(pts)
	// computer centroid of points
	mu := r2.Point{X: 0, Y: 0}

	for _, pt := range pts {
		mu.X += pt.X
		mu.Y += pt.Y
	}
	mu = mu.Mul(1. / float64(nPoints))
	// compute scale factor
	d := 0.0
	for _, pt := range pts {
		x2 := (pt.X - mu.X) * (pt.X - mu.X)
		y2 := (pt.Y - mu.Y) * (pt.Y - mu.Y)
		d += math.Sqrt(x2+y2) / float64(nPoints)
	}
	scale := 1.
	if d > 0 {
		scale = math.Sqrt(2) / d
	}
	transformData := []float64{
		scale, 0, -scale * mu.X,
		0, scale, -scale * mu.Y,
		0, 0, 1,
	}
	T := mat.NewDense(3, 3, transformData)
	// apply transform to points
	pointsTransformed := make([]r2.Point, nPoints)
	for i := range pointsTransformed {
		pointsTransformed[i] = r2.Point{X: scale * (pts[i].X - mu.X), Y: scale * (pts[i].Y - mu.Y)}
	}
	return pointsTransformed, T
}

// getCrossProductMatFromPoint returns the cross product with point p matrix.
func getCrossProductMatFromPoint(p r3.Vector) *mat.Dense {
	cross := mat.NewDense(3, 3, nil)
	cross.Set(0, 1, -p.Z)
	cross.Set(0, 2, p.Y)
	cross.Set(1, 0, p.Z)
	cross.Set(1, 2, -p.X)
	cross.Set(2, 0, -p.Y)
	cross.Set(2, 1, p.X)
	return cross
}

// eye create an identity matrix of size nxn.
func eye(n int) *mat.Dense {
	if n <= 0 {
		return nil
	}
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// matsSVD stores the matrices from SVD decomposition.
type matsSVD struct {
	U      *mat.Dense
	V      *mat.Dense
	VT     *mat.Dense
	S      *mat.Dense
	Values []float64
}

// performSVD performs SVD on inputMatrix and returns matrices U, Sigma and V from the decomposition.
func performSVD(inputMatrix mat.Matrix) (*matsSVD, error) {
	var svd mat.SVD
	if ok := svd.Factorize(inputMatrix, mat.SVDFull); !ok {
		return nil, errors.New("failed to factorize matrix")
	}

	u, v, sigma, vt := &mat.Dense{}, &mat.Dense{}, &mat.Dense{}, &mat.Dense{}

	svd.UTo(u)
	svd.VTo(v)
	vt.CloneFrom(v.T())

	singularValues := svd.Values(nil)
	sigma.CloneFrom(mat.NewDiagDense(len(singularValues), singularValues))

	return &matsSVD{u, v, vt, sigma, singularValues}, nil
}
