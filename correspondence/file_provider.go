package correspondence

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/monovo/rimage/transform"
)

// FrameMatches are the recorded matches between frame Index-1 and frame Index.
type FrameMatches struct {
	Index int          `json:"index"`
	Src   [][2]float64 `json:"src"`
	Dst   [][2]float64 `json:"dst"`
	// Fundamental is F in row-major order. When empty, F is fitted from the matches.
	Fundamental []float64 `json:"fundamental,omitempty"`
}

// MatchFile is the on-disk layout read by FileProvider.
type MatchFile struct {
	Frames []FrameMatches `json:"frames"`
}

// FileProvider replays matches recorded by an external feature matcher.
type FileProvider struct {
	byIndex   map[int]FrameMatches
	numFrames int
}

// NewFileProvider builds a provider from a decoded match file.
func NewFileProvider(mf MatchFile) (*FileProvider, error) {
	fp := &FileProvider{byIndex: make(map[int]FrameMatches, len(mf.Frames))}
	for i, fm := range mf.Frames {
		if fm.Index < 1 {
			return nil, errors.Errorf("frames[%d]: index must be at least 1, got %d", i, fm.Index)
		}
		if len(fm.Src) != len(fm.Dst) {
			return nil, errors.Errorf("frames[%d]: src and dst have different lengths (%d != %d)", i, len(fm.Src), len(fm.Dst))
		}
		if len(fm.Fundamental) != 0 && len(fm.Fundamental) != 9 {
			return nil, errors.Errorf("frames[%d]: fundamental must have 9 values, got %d", i, len(fm.Fundamental))
		}
		if _, ok := fp.byIndex[fm.Index]; ok {
			return nil, errors.Errorf("frames[%d]: duplicate index %d", i, fm.Index)
		}
		fp.byIndex[fm.Index] = fm
		if fm.Index+1 > fp.numFrames {
			fp.numFrames = fm.Index + 1
		}
	}
	return fp, nil
}

// NewFileProviderFromJSON decodes a match file from r.
func NewFileProviderFromJSON(r io.Reader) (*FileProvider, error) {
	var mf MatchFile
	if err := json.NewDecoder(r).Decode(&mf); err != nil {
		return nil, errors.Wrap(err, "error parsing match file")
	}
	return NewFileProvider(mf)
}

// NewFileProviderFromJSONFile reads a match file from disk.
func NewFileProviderFromJSONFile(path string) (*FileProvider, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "error opening match file")
	}
	defer utils.UncheckedErrorFunc(f.Close)
	return NewFileProviderFromJSON(f)
}

// NumFrames is one past the highest frame index with recorded matches.
func (fp *FileProvider) NumFrames() int {
	return fp.numFrames
}

// MatchFrames returns the recorded matches for curr, fitting F with the normalized 8-point
// algorithm when none was recorded.
func (fp *FileProvider) MatchFrames(ctx context.Context, prev, curr Frame) (*mat.Dense, transform.Correspondences, error) {
	if err := ctx.Err(); err != nil {
		return nil, transform.Correspondences{}, err
	}
	if err := checkPair(prev, curr); err != nil {
		return nil, transform.Correspondences{}, err
	}
	fm, ok := fp.byIndex[curr.Index]
	if !ok || len(fm.Src) < MinMatches {
		return nil, transform.Correspondences{}, errors.Wrapf(ErrNoCorrespondences,
			"frame %d has %d matches", curr.Index, len(fm.Src))
	}
	corr := transform.Correspondences{
		Src: lo.Map(fm.Src, toPoint),
		Dst: lo.Map(fm.Dst, toPoint),
	}
	if len(fm.Fundamental) == 9 {
		return mat.NewDense(3, 3, append([]float64(nil), fm.Fundamental...)), corr, nil
	}
	f, err := transform.ComputeFundamentalMatrixAllPoints(corr.Src, corr.Dst, true)
	if err != nil {
		return nil, transform.Correspondences{}, errors.Wrapf(err, "fitting fundamental matrix for frame %d", curr.Index)
	}
	return f, corr, nil
}

func toPoint(xy [2]float64, _ int) r2.Point {
	return r2.Point{X: xy[0], Y: xy[1]}
}
