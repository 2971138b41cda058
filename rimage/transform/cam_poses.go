package transform

import (
	"fmt"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// HypothesisVariant tags which rotation and which translation sign produced a PoseHypothesis.
type HypothesisVariant int

// The four variants, in the order they are generated and in which cheirality ties are broken.
const (
	RotationATranslationPos HypothesisVariant = iota
	RotationATranslationNeg
	RotationBTranslationPos
	RotationBTranslationNeg
)

// NumHypotheses is the number of poses an essential matrix decomposes into.
const NumHypotheses = 4

func (v HypothesisVariant) String() string {
	switch v {
	case RotationATranslationPos:
		return "(Ra,+t)"
	case RotationATranslationNeg:
		return "(Ra,-t)"
	case RotationBTranslationPos:
		return "(Rb,+t)"
	case RotationBTranslationNeg:
		return "(Rb,-t)"
	}
	return fmt.Sprintf("HypothesisVariant(%d)", int(v))
}

// PoseHypothesis is one candidate pose [R|t] of the second camera relative to the first.
type PoseHypothesis struct {
	Variant     HypothesisVariant
	Rotation    *mat.Dense
	Translation *mat.Dense
}

// PoseHypotheses are the four candidates from one essential matrix, indexed by variant.
type PoseHypotheses [NumHypotheses]PoseHypothesis

// ProjectionMatrix returns the 3x4 extrinsic matrix [R|t].
func (h PoseHypothesis) ProjectionMatrix() *mat.Dense {
	var pose mat.Dense
	pose.Augment(h.Rotation, h.Translation)
	return &pose
}

// TranslationVector returns the translation as an r3.Vector.
func (h PoseHypothesis) TranslationVector() r3.Vector {
	return r3.Vector{X: h.Translation.At(0, 0), Y: h.Translation.At(1, 0), Z: h.Translation.At(2, 0)}
}

// ValidatedPose is the hypothesis chosen by cheirality together with its support.
type ValidatedPose struct {
	PoseHypothesis
	PositiveDepthCount int
	Total              int
}

// Support returns the fraction of correspondences in front of both cameras.
func (vp *ValidatedPose) Support() float64 {
	if vp.Total == 0 {
		return 0
	}
	return float64(vp.PositiveDepthCount) / float64(vp.Total)
}

// GetPossibleCameraPoses computes all 4 possible poses from the essential matrix.
func GetPossibleCameraPoses(essMat mat.Matrix, tolerance float64) (PoseHypotheses, error) {
	var poses PoseHypotheses
	R1, R2, t, err := DecomposeEssentialMatrix(essMat, tolerance)
	if err != nil {
		return poses, err
	}
	var tOpp mat.Dense
	tOpp.Scale(-1, t)

	poses[RotationATranslationPos] = PoseHypothesis{RotationATranslationPos, R1, t}
	poses[RotationATranslationNeg] = PoseHypothesis{RotationATranslationNeg, R1, &tOpp}
	poses[RotationBTranslationPos] = PoseHypothesis{RotationBTranslationPos, R2, t}
	poses[RotationBTranslationNeg] = PoseHypothesis{RotationBTranslationNeg, R2, &tOpp}
	return poses, nil
}
