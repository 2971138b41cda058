// Package correspondence supplies matched points and fundamental matrices for consecutive frames.
// Feature detection and matching happen elsewhere; providers here replay recorded matches or
// synthesize them from a known scene.
package correspondence

import (
	"context"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/monovo/rimage/transform"
)

// MinMatches is the fewest correspondences a provider hands out; the 8-point fit needs that many.
const MinMatches = 8

// ErrNoCorrespondences is returned when a frame pair has too few matches to estimate a pose.
var ErrNoCorrespondences = errors.New("not enough correspondences")

// Frame identifies a frame by its position in the stream. Pixel data stays with the provider.
type Frame struct {
	Index int
}

// A Provider matches two frames and returns the fundamental matrix F relating them
// (dst^T * F * src = 0) with the correspondences it was estimated from.
type Provider interface {
	MatchFrames(ctx context.Context, prev, curr Frame) (*mat.Dense, transform.Correspondences, error)
}

func checkPair(prev, curr Frame) error {
	if curr.Index != prev.Index+1 {
		return errors.Errorf("frames %d and %d are not consecutive", prev.Index, curr.Index)
	}
	return nil
}
