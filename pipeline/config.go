package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/monovo/logging"
	"go.viam.com/monovo/rimage/transform"
)

// FailurePolicy decides what is recorded for a frame whose pose could not be recovered.
type FailurePolicy string

const (
	// CarryForward repeats the previous frame's estimate (zero before the first success).
	CarryForward FailurePolicy = "carry_forward"
	// ZeroFill records a zero estimate.
	ZeroFill FailurePolicy = "zero_fill"
)

// Config configures a Pipeline.
type Config struct {
	Intrinsics *transform.PinholeCameraIntrinsics `json:"intrinsics,omitempty"`

	// IntrinsicsFile names a JSON intrinsics file, relative to the config file. ReadConfigFile
	// loads it into Intrinsics; setting both is an error.
	IntrinsicsFile string `json:"intrinsics_file,omitempty"`

	// MinSupport is the fraction of correspondences that must triangulate in front of both
	// cameras. Zero means unset and becomes transform.DefaultMinSupport; the requirement never
	// drops below one point, so a tiny positive value is the loosest setting.
	MinSupport float64 `json:"min_support,omitempty"`

	EssentialTolerance float64       `json:"essential_tolerance,omitempty"`
	FailurePolicy      FailurePolicy `json:"failure_policy,omitempty"`

	// Sequential disables concurrent scoring of the pose hypotheses.
	Sequential bool `json:"sequential,omitempty"`

	// LogLevel overrides the level of the pipeline's logger when set.
	LogLevel *logging.Level `json:"log_level,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate(path string) error {
	if conf.Intrinsics == nil {
		return utils.NewConfigValidationFieldRequiredError(path, "intrinsics")
	}
	if err := conf.Intrinsics.CheckValid(); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	if conf.MinSupport < 0 || conf.MinSupport > 1 {
		return utils.NewConfigValidationError(path, errors.Errorf("min_support must be in [0, 1], got %v", conf.MinSupport))
	}
	if conf.EssentialTolerance < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("essential_tolerance must be positive, got %v", conf.EssentialTolerance))
	}
	switch conf.FailurePolicy {
	case "", CarryForward, ZeroFill:
	default:
		return utils.NewConfigValidationError(path, errors.Errorf("unknown failure_policy %q", conf.FailurePolicy))
	}
	return nil
}

// WithDefaults returns a copy with unset fields filled in.
func (conf Config) WithDefaults() Config {
	if conf.MinSupport == 0 {
		conf.MinSupport = transform.DefaultMinSupport
	}
	if conf.EssentialTolerance == 0 {
		conf.EssentialTolerance = transform.DefaultEssentialTolerance
	}
	if conf.FailurePolicy == "" {
		conf.FailurePolicy = CarryForward
	}
	return conf
}

// ReadConfigFile loads and validates a JSON config.
func ReadConfigFile(path string) (*Config, error) {
	//nolint:gosec
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "error reading config file")
	}
	var conf Config
	if err := json.Unmarshal(b, &conf); err != nil {
		return nil, errors.Wrap(err, "error parsing config file")
	}
	if conf.IntrinsicsFile != "" {
		if conf.Intrinsics != nil {
			return nil, utils.NewConfigValidationError("config", errors.New("set only one of intrinsics and intrinsics_file"))
		}
		intrinsicsPath := conf.IntrinsicsFile
		if !filepath.IsAbs(intrinsicsPath) {
			intrinsicsPath = filepath.Join(filepath.Dir(path), intrinsicsPath)
		}
		conf.Intrinsics, err = transform.NewPinholeCameraIntrinsicsFromJSONFile(intrinsicsPath)
		if err != nil {
			return nil, utils.NewConfigValidationError("config.intrinsics_file", err)
		}
	}
	if err := conf.Validate("config"); err != nil {
		return nil, err
	}
	withDefaults := conf.WithDefaults()
	return &withDefaults, nil
}
