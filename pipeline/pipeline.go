// Package pipeline turns a stream of frames into per-frame pitch/yaw estimates and a running
// error score.
package pipeline

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/monovo/correspondence"
	"go.viam.com/monovo/logging"
	"go.viam.com/monovo/rimage/transform"
	"go.viam.com/monovo/score"
)

// ErrPipelineClosed is returned when a frame is processed after Close.
var ErrPipelineClosed = errors.New("pipeline is closed")

// State is the position of a Pipeline in its frame stream.
type State int

const (
	// AwaitingFirstFrame means no frame has been seen yet.
	AwaitingFirstFrame State = iota
	// Tracking means a previous frame is cached and every new frame yields an estimate.
	Tracking
	// Finished means the stream ended.
	Finished
)

func (s State) String() string {
	switch s {
	case AwaitingFirstFrame:
		return "AwaitingFirstFrame"
	case Tracking:
		return "Tracking"
	case Finished:
		return "Finished"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Output is what a Pipeline reports for one frame.
type Output struct {
	Frame int
	// Emitted is false for the first frame, which only seeds the pipeline.
	Emitted  bool
	Estimate transform.AngleEstimate
	Score    score.Result
	// Pose is the validated pose, nil when the frame was recovered by the failure policy.
	Pose *ValidatedPose
	// Recovered is set when the failure policy filled in Estimate; Err holds the cause.
	Recovered bool
	Err       error
}

// ValidatedPose is re-exported so callers of this package need not import transform for it.
type ValidatedPose = transform.ValidatedPose

// Pipeline recovers relative camera rotation frame by frame and scores it against ground truth.
// It is not safe for concurrent use; frames must be processed in order.
type Pipeline struct {
	conf      Config
	k         *mat.Dense
	provider  correspondence.Provider
	validator *transform.Validator
	acc       *score.Accumulator
	logger    logging.Logger

	state    State
	endErr   error // returned by Process once Finished
	prev     correspondence.Frame
	lastEst  transform.AngleEstimate
	frameNum int
}

// New returns a pipeline in the AwaitingFirstFrame state.
func New(
	conf Config,
	provider correspondence.Provider,
	groundTruth []transform.AngleEstimate,
	logger logging.Logger,
) (*Pipeline, error) {
	if err := conf.Validate("pipeline"); err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, errors.New("pipeline needs a correspondence provider")
	}
	conf = conf.WithDefaults()
	logger = logger.Sublogger("pipeline")
	if conf.LogLevel != nil {
		logger.SetLevel(*conf.LogLevel)
	}
	validator := transform.NewValidator(conf.MinSupport, logger.Sublogger("cheirality"))
	validator.Sequential = conf.Sequential
	return &Pipeline{
		conf:      conf,
		k:         conf.Intrinsics.GetCameraMatrix(),
		provider:  provider,
		validator: validator,
		acc:       score.NewAccumulator(groundTruth),
		logger:    logger,
		state:     AwaitingFirstFrame,
	}, nil
}

// State returns the current state.
func (p *Pipeline) State() State {
	return p.state
}

// Predictions returns the estimates recorded so far, one per emitted frame.
func (p *Pipeline) Predictions() []transform.AngleEstimate {
	return p.acc.Predictions()
}

// Process consumes the next frame. Degenerate essential matrices and cheirality failures are
// absorbed by the failure policy; missing correspondences and context errors are returned.
// Running out of ground truth is checked before any matching and finishes the pipeline.
func (p *Pipeline) Process(ctx context.Context, frame correspondence.Frame) (Output, error) {
	out := Output{Frame: frame.Index}
	if err := ctx.Err(); err != nil {
		return out, err
	}

	switch p.state {
	case Finished:
		return out, p.endErr
	case AwaitingFirstFrame:
		p.prev = frame
		p.state = Tracking
		p.logger.Debugw("cached first frame", "frame", frame.Index)
		return out, nil
	case Tracking:
	}

	if p.acc.Remaining() == 0 {
		p.finish(errors.Wrapf(score.ErrGroundTruthExhausted, "frame %d", frame.Index))
		return out, p.endErr
	}

	// the frame is cached whether or not a pose comes out of it
	prev := p.prev
	p.prev = frame
	f, corr, err := p.provider.MatchFrames(ctx, prev, frame)
	if err != nil {
		return out, errors.Wrapf(err, "matching frames %d and %d", prev.Index, frame.Index)
	}

	pose, err := p.recoverPose(ctx, f, corr)
	switch {
	case err == nil:
		out.Pose = pose
		out.Estimate = transform.RotationToEuler(pose.Rotation)
	case errors.Is(err, transform.ErrDegenerateEssential), errors.Is(err, transform.ErrCheiralityFailure):
		out.Recovered = true
		out.Err = err
		out.Estimate = p.fallbackEstimate()
		p.logger.Warnw("pose not recovered; applying failure policy",
			"frame", frame.Index, "policy", string(p.conf.FailurePolicy), "error", err.Error())
	default:
		return out, err
	}

	res, err := p.acc.Append(out.Estimate)
	if err != nil {
		return out, errors.Wrapf(err, "frame %d", frame.Index)
	}
	p.lastEst = out.Estimate
	p.frameNum++
	out.Emitted = true
	out.Score = res
	p.logger.Debugw("frame processed",
		"frame", frame.Index,
		"pitch", out.Estimate.Pitch,
		"yaw", out.Estimate.Yaw,
		"percent_error", res.Percent,
		"recovered", out.Recovered)
	return out, nil
}

func (p *Pipeline) recoverPose(ctx context.Context, f *mat.Dense, corr transform.Correspondences) (*ValidatedPose, error) {
	essMat, err := transform.GetEssentialMatrixFromFundamental(p.k, p.k, f)
	if err != nil {
		return nil, err
	}
	hyps, err := transform.GetPossibleCameraPoses(essMat, p.conf.EssentialTolerance)
	if err != nil {
		return nil, err
	}
	pose, _, err := p.validator.Select(ctx, hyps, p.k, corr)
	return pose, err
}

func (p *Pipeline) fallbackEstimate() transform.AngleEstimate {
	if p.conf.FailurePolicy == ZeroFill {
		return transform.AngleEstimate{}
	}
	return p.lastEst
}

func (p *Pipeline) finish(endErr error) {
	if p.state == Finished {
		return
	}
	p.state = Finished
	p.endErr = endErr
	p.logger.Infow("sequence finished", "frames", p.frameNum, "score", p.acc.Score().Percent)
	if !errors.Is(endErr, ErrPipelineClosed) {
		p.logger.Errorw("sequence stopped early", "error", endErr.Error())
	}
}

// Close ends the stream. Later calls to Process fail with ErrPipelineClosed, or with the error
// that already ended the stream.
func (p *Pipeline) Close() error {
	p.finish(ErrPipelineClosed)
	return p.logger.Sync()
}
