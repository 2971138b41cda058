package transform

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/monovo/logging"
)

// DefaultMinSupport is the fraction of correspondences that must lie in front of both cameras
// for a pose to be accepted.
const DefaultMinSupport = 0.5

// ErrCheiralityFailure is returned when no hypothesis puts enough points in front of both cameras.
var ErrCheiralityFailure = errors.New("no pose hypothesis has enough positive depth support")

// how many correspondences are scored between context checks
const ctxCheckInterval = 64

// Validator selects the physically valid pose among the four hypotheses of an essential matrix.
type Validator struct {
	// MinSupport is the minimum fraction of correspondences with positive depth in both cameras.
	MinSupport float64
	// Sequential scores hypotheses one after the other instead of concurrently.
	Sequential bool

	logger logging.Logger
}

// NewValidator returns a Validator. A non-positive minSupport selects DefaultMinSupport.
func NewValidator(minSupport float64, logger logging.Logger) *Validator {
	if minSupport <= 0 {
		minSupport = DefaultMinSupport
	}
	return &Validator{MinSupport: minSupport, logger: logger}
}

// requiredSupport is the smallest count accepted for n correspondences; never below one.
func (v *Validator) requiredSupport(n int) int {
	required := int(math.Ceil(v.MinSupport * float64(n)))
	if required < 1 {
		required = 1
	}
	return required
}

// Select triangulates every correspondence under each hypothesis and returns the one with the
// most points in front of both cameras, along with the count for every hypothesis. Ties go to the
// hypothesis that comes first in variant order.
func (v *Validator) Select(
	ctx context.Context,
	hyps PoseHypotheses,
	k mat.Matrix,
	corr Correspondences,
) (*ValidatedPose, [NumHypotheses]int, error) {
	var counts [NumHypotheses]int
	if err := corr.Validate(); err != nil {
		return nil, counts, err
	}

	if v.Sequential {
		for i := range hyps {
			count, err := CountPositiveDepth(ctx, k, hyps[i], corr)
			if err != nil {
				return nil, counts, err
			}
			counts[i] = count
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		for i := range hyps {
			g.Go(func() error {
				count, err := CountPositiveDepth(gctx, k, hyps[i], corr)
				counts[i] = count
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return nil, counts, err
		}
	}

	best := selectBest(counts)
	if v.logger != nil {
		v.logger.Debugw("scored pose hypotheses", "counts", counts, "best", hyps[best].Variant.String())
	}

	n := corr.Len()
	if required := v.requiredSupport(n); counts[best] < required {
		return nil, counts, errors.Wrapf(ErrCheiralityFailure,
			"best hypothesis %s has %d of %d points in front (need %d)", hyps[best].Variant, counts[best], n, required)
	}
	return &ValidatedPose{PoseHypothesis: hyps[best], PositiveDepthCount: counts[best], Total: n}, counts, nil
}

// CountPositiveDepth counts correspondences whose triangulation lies in front of both cameras.
// Points at infinity do not count.
func CountPositiveDepth(ctx context.Context, k mat.Matrix, hyp PoseHypothesis, corr Correspondences) (int, error) {
	p1, p2 := CameraProjections(k, hyp)
	nPositiveDepth := 0
	for i := range corr.Src {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		tp, err := TriangulateCorrespondence(p1, p2, hyp, corr.Src[i], corr.Dst[i])
		if errors.Is(err, ErrUnreliablePoint) {
			continue
		}
		if err != nil {
			return 0, err
		}
		if tp.InFront() {
			nPositiveDepth++
		}
	}
	return nPositiveDepth, nil
}

// selectBest returns the index of the largest count, preferring the lowest index on ties.
func selectBest(counts [NumHypotheses]int) int {
	best := 0
	for i := 1; i < NumHypotheses; i++ {
		if counts[i] > counts[best] {
			best = i
		}
	}
	return best
}
