package correspondence

import (
	"context"
	"math/rand"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/monovo/rimage/transform"
)

// Motion is the pose of a frame's camera relative to the previous frame's camera: a point X in
// the previous camera is at Rotation*X + Translation in the current one.
type Motion struct {
	Rotation    *mat.Dense
	Translation r3.Vector
}

// SyntheticProvider projects a fixed point cloud, expressed in the previous camera's frame,
// through known per-frame motions.
type SyntheticProvider struct {
	Intrinsics *transform.PinholeCameraIntrinsics
	Points     []r3.Vector
	// Motions[i] relates frame i-1 to frame i; Motions[0] is unused.
	Motions []Motion
	// Noise is the standard deviation in pixels of gaussian noise added to every match. With
	// noise, F is fitted from the matches instead of taken from the true motion.
	Noise float64

	rng *rand.Rand
}

// NewSyntheticProvider returns a provider over points with the given motions.
func NewSyntheticProvider(intrinsics *transform.PinholeCameraIntrinsics, points []r3.Vector, motions []Motion, seed int64) *SyntheticProvider {
	return &SyntheticProvider{
		Intrinsics: intrinsics,
		Points:     points,
		Motions:    motions,
		//nolint:gosec
		rng: rand.New(rand.NewSource(seed)),
	}
}

// NewYawSweep builds a sequence where frame i yaws by yaws[i] and moves by translation relative
// to frame i-1; yaws[0] is ignored. It also returns the ground truth, one row per frame after the
// first.
func NewYawSweep(
	intrinsics *transform.PinholeCameraIntrinsics,
	yaws []float64,
	translation r3.Vector,
	seed int64,
) (*SyntheticProvider, []transform.AngleEstimate) {
	motions := make([]Motion, len(yaws))
	truth := make([]transform.AngleEstimate, 0, len(yaws))
	for i, yaw := range yaws {
		motions[i] = Motion{Rotation: transform.RotationFromEuler(yaw, 0, 0), Translation: translation}
		if i > 0 {
			truth = append(truth, transform.AngleEstimate{Yaw: yaw})
		}
	}
	return NewSyntheticProvider(intrinsics, GridScene(), motions, seed), truth
}

// GridScene returns a non-coplanar set of points between 6 and 10 units in front of the camera.
func GridScene() []r3.Vector {
	pts := make([]r3.Vector, 0, 40)
	for i := 0; i < 5; i++ {
		for j := 0; j < 4; j++ {
			for _, dz := range []float64{0, 2} {
				pts = append(pts, r3.Vector{
					X: -2 + float64(i),
					Y: -1.5 + float64(j),
					Z: 6 + dz + 0.25*float64(i) + 0.1*float64(j),
				})
			}
		}
	}
	return pts
}

// NumFrames returns the length of the synthetic sequence.
func (sp *SyntheticProvider) NumFrames() int {
	return len(sp.Motions)
}

// MatchFrames projects the scene into both frames. Points behind either camera are dropped.
func (sp *SyntheticProvider) MatchFrames(ctx context.Context, prev, curr Frame) (*mat.Dense, transform.Correspondences, error) {
	if err := ctx.Err(); err != nil {
		return nil, transform.Correspondences{}, err
	}
	if err := checkPair(prev, curr); err != nil {
		return nil, transform.Correspondences{}, err
	}
	if curr.Index >= len(sp.Motions) {
		return nil, transform.Correspondences{}, errors.Wrapf(ErrNoCorrespondences, "frame %d is past the end of the sequence", curr.Index)
	}
	motion := sp.Motions[curr.Index]
	t := mat.NewDense(3, 1, []float64{motion.Translation.X, motion.Translation.Y, motion.Translation.Z})
	identity := transform.RotationFromEuler(0, 0, 0)
	origin := mat.NewDense(3, 1, nil)

	var corr transform.Correspondences
	for _, pt := range sp.Points {
		src, depth1 := sp.Intrinsics.ProjectPoint(identity, origin, pt)
		dst, depth2 := sp.Intrinsics.ProjectPoint(motion.Rotation, t, pt)
		if depth1 <= 0 || depth2 <= 0 {
			continue
		}
		corr.Src = append(corr.Src, sp.jitter(src))
		corr.Dst = append(corr.Dst, sp.jitter(dst))
	}
	if corr.Len() < MinMatches {
		return nil, transform.Correspondences{}, errors.Wrapf(ErrNoCorrespondences,
			"frame %d has %d visible points", curr.Index, corr.Len())
	}

	if sp.Noise > 0 {
		f, err := transform.ComputeFundamentalMatrixAllPoints(corr.Src, corr.Dst, true)
		if err != nil {
			return nil, transform.Correspondences{}, err
		}
		return f, corr, nil
	}
	f, err := transform.GetFundamentalMatrixFromPose(sp.Intrinsics.GetCameraMatrix(), motion.Rotation, t)
	if err != nil {
		return nil, transform.Correspondences{}, err
	}
	return f, corr, nil
}

func (sp *SyntheticProvider) jitter(pt r2.Point) r2.Point {
	if sp.Noise <= 0 {
		return pt
	}
	return r2.Point{X: pt.X + sp.rng.NormFloat64()*sp.Noise, Y: pt.Y + sp.rng.NormFloat64()*sp.Noise}
}
