// Package score tracks predicted pitch/yaw against ground truth over a sequence and reports the
// normalized percent error.
package score

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"

	"go.viam.com/monovo/rimage/transform"
	"go.viam.com/monovo/utils"
)

// ErrGroundTruthExhausted is returned when more predictions are appended than there are ground
// truth rows.
var ErrGroundTruthExhausted = errors.New("ground truth exhausted")

// Result is the score of a sequence after a frame was appended.
type Result struct {
	// Percent is 100 * PredictedMSE / BaselineMSE; NaN when Defined is false.
	Percent float64
	// Defined is false when the zero baseline has no error to normalize by.
	Defined      bool
	PredictedMSE float64
	BaselineMSE  float64
	// Frames is the number of predictions scored.
	Frames int
}

// Accumulator holds the predicted angles of a sequence and the matching ground truth. It is not
// safe for concurrent use.
type Accumulator struct {
	groundTruth []transform.AngleEstimate
	predictions []transform.AngleEstimate
}

// NewAccumulator returns an Accumulator scoring against groundTruth, which it does not copy.
func NewAccumulator(groundTruth []transform.AngleEstimate) *Accumulator {
	return &Accumulator{groundTruth: groundTruth}
}

// Append records the prediction for the next frame and rescores the whole history.
func (a *Accumulator) Append(est transform.AngleEstimate) (Result, error) {
	if len(a.predictions) >= len(a.groundTruth) {
		return Result{}, errors.Wrapf(ErrGroundTruthExhausted,
			"all %d ground truth rows already scored", len(a.groundTruth))
	}
	a.predictions = append(a.predictions, est)
	return a.Score(), nil
}

// Score recomputes the error of all predictions so far. Each error term is the mean over the
// pitch and yaw components of that component's mean squared error. Non-finite predictions count as
// zero and NaN ground truth values are left out of their component's mean.
func (a *Accumulator) Score() Result {
	var predErr, zeroErr [2][]float64
	for i, pred := range a.predictions {
		gt := a.groundTruth[i]
		truths := [2]float64{gt.Pitch, gt.Yaw}
		guesses := [2]float64{pred.Pitch, pred.Yaw}
		for c := range truths {
			if math.IsNaN(truths[c]) {
				continue
			}
			guess := guesses[c]
			if !utils.IsFinite(guess) {
				guess = 0
			}
			predErr[c] = append(predErr[c], utils.Square(truths[c]-guess))
			zeroErr[c] = append(zeroErr[c], utils.Square(truths[c]))
		}
	}

	res := Result{Frames: len(a.predictions), Percent: math.NaN()}
	var predMSE, zeroMSE []float64
	for c := range predErr {
		if len(predErr[c]) == 0 {
			continue
		}
		predMSE = append(predMSE, stat.Mean(predErr[c], nil))
		zeroMSE = append(zeroMSE, stat.Mean(zeroErr[c], nil))
	}
	if len(predMSE) == 0 {
		return res
	}
	res.PredictedMSE = stat.Mean(predMSE, nil)
	res.BaselineMSE = stat.Mean(zeroMSE, nil)
	if res.BaselineMSE == 0 {
		return res
	}
	res.Percent = 100 * res.PredictedMSE / res.BaselineMSE
	res.Defined = true
	return res
}

// Len returns the number of predictions appended.
func (a *Accumulator) Len() int {
	return len(a.predictions)
}

// Remaining returns how many more frames can be scored.
func (a *Accumulator) Remaining() int {
	return len(a.groundTruth) - len(a.predictions)
}

// Predictions returns a copy of the predictions appended so far.
func (a *Accumulator) Predictions() []transform.AngleEstimate {
	out := make([]transform.AngleEstimate, len(a.predictions))
	copy(out, a.predictions)
	return out
}
