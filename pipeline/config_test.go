package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"

	"go.viam.com/monovo/logging"
	"go.viam.com/monovo/rimage/transform"
	"go.viam.com/monovo/utils"
)

func TestConfigValidate(t *testing.T) {
	for _, tc := range []struct {
		name   string
		conf   Config
		errMsg string
	}{
		{"valid", testConfig(), ""},
		{"missing intrinsics", Config{}, `"intrinsics" is required`},
		{
			"bad intrinsics",
			Config{Intrinsics: &transform.PinholeCameraIntrinsics{Width: -1, Height: 10, Fx: 1, Fy: 1}},
			"invalid size",
		},
		{"support too high", Config{Intrinsics: testIntrinsics(), MinSupport: 1.5}, "min_support"},
		{"negative tolerance", Config{Intrinsics: testIntrinsics(), EssentialTolerance: -0.1}, "essential_tolerance"},
		{"unknown policy", Config{Intrinsics: testIntrinsics(), FailurePolicy: "skip"}, `unknown failure_policy "skip"`},
		{"zero fill", Config{Intrinsics: testIntrinsics(), FailurePolicy: ZeroFill}, ""},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.conf.Validate("path")
			if tc.errMsg == "" {
				test.That(t, err, test.ShouldBeNil)
				return
			}
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.errMsg)
			test.That(t, err.Error(), test.ShouldContainSubstring, "path")
		})
	}
}

func TestConfigWithDefaults(t *testing.T) {
	conf := testConfig().WithDefaults()
	test.That(t, conf.MinSupport, test.ShouldEqual, transform.DefaultMinSupport)
	test.That(t, conf.EssentialTolerance, test.ShouldEqual, transform.DefaultEssentialTolerance)
	test.That(t, conf.FailurePolicy, test.ShouldEqual, CarryForward)

	// zero reads as unset; small positive values survive
	loose := Config{Intrinsics: testIntrinsics(), MinSupport: 0.01}
	test.That(t, loose.WithDefaults().MinSupport, test.ShouldEqual, 0.01)
	test.That(t, Config{Intrinsics: testIntrinsics(), MinSupport: 0}.WithDefaults().MinSupport,
		test.ShouldEqual, transform.DefaultMinSupport)

	custom := Config{Intrinsics: testIntrinsics(), MinSupport: 0.8, EssentialTolerance: 0.2, FailurePolicy: ZeroFill}
	test.That(t, custom.WithDefaults(), test.ShouldResemble, custom)
}

func TestReadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	contents := `{
		"intrinsics": {"width_px": 1164, "height_px": 874, "fx": 910, "fy": 910, "ppx": 582, "ppy": 437},
		"min_support": 0.6,
		"failure_policy": "zero_fill",
		"sequential": true,
		"log_level": "warn"
	}`
	test.That(t, os.WriteFile(path, []byte(contents), 0o600), test.ShouldBeNil)

	conf, err := ReadConfigFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf.Intrinsics, test.ShouldResemble, testIntrinsics())
	test.That(t, conf.MinSupport, test.ShouldEqual, 0.6)
	test.That(t, conf.EssentialTolerance, test.ShouldEqual, transform.DefaultEssentialTolerance)
	test.That(t, conf.FailurePolicy, test.ShouldEqual, ZeroFill)
	test.That(t, conf.Sequential, test.ShouldBeTrue)
	test.That(t, conf.LogLevel, test.ShouldNotBeNil)
	test.That(t, *conf.LogLevel, test.ShouldEqual, logging.WARN)

	badLevel := filepath.Join(dir, "bad_level.json")
	test.That(t, os.WriteFile(badLevel, []byte(`{"intrinsics_file": "intrinsics.json", "log_level": "loud"}`), 0o600),
		test.ShouldBeNil)
	_, err = ReadConfigFile(badLevel)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `unknown log level "loud"`)

	bad := filepath.Join(dir, "bad.json")
	test.That(t, os.WriteFile(bad, []byte(`{"min_support": 0.6}`), 0o600), test.ShouldBeNil)
	_, err = ReadConfigFile(bad)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "intrinsics")

	_, err = ReadConfigFile(filepath.Join(dir, "missing.json"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestReadConfigFileIntrinsicsFile(t *testing.T) {
	fixture := utils.ResolveFile("rimage/transform/data/calib_challenge_intrinsics.json")
	dir := t.TempDir()

	t.Run("absolute", func(t *testing.T) {
		path := filepath.Join(dir, "absolute.json")
		contents := `{"intrinsics_file": "` + filepath.ToSlash(fixture) + `"}`
		test.That(t, os.WriteFile(path, []byte(contents), 0o600), test.ShouldBeNil)
		conf, err := ReadConfigFile(path)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, conf.Intrinsics, test.ShouldResemble, testIntrinsics())
		test.That(t, conf.MinSupport, test.ShouldEqual, transform.DefaultMinSupport)
		test.That(t, conf.LogLevel, test.ShouldBeNil)
	})

	t.Run("relative to config", func(t *testing.T) {
		data, err := os.ReadFile(fixture)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, os.MkdirAll(filepath.Join(dir, "cams"), 0o700), test.ShouldBeNil)
		test.That(t, os.WriteFile(filepath.Join(dir, "cams", "front.json"), data, 0o600), test.ShouldBeNil)

		path := filepath.Join(dir, "relative.json")
		test.That(t, os.WriteFile(path, []byte(`{"intrinsics_file": "cams/front.json"}`), 0o600), test.ShouldBeNil)
		conf, err := ReadConfigFile(path)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, conf.Intrinsics, test.ShouldResemble, testIntrinsics())
	})

	t.Run("missing file", func(t *testing.T) {
		path := filepath.Join(dir, "missing.json")
		test.That(t, os.WriteFile(path, []byte(`{"intrinsics_file": "nowhere.json"}`), 0o600), test.ShouldBeNil)
		_, err := ReadConfigFile(path)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "config.intrinsics_file")
	})

	t.Run("both set", func(t *testing.T) {
		path := filepath.Join(dir, "both.json")
		contents := `{
			"intrinsics": {"width_px": 1164, "height_px": 874, "fx": 910, "fy": 910, "ppx": 582, "ppy": 437},
			"intrinsics_file": "cams/front.json"
		}`
		test.That(t, os.WriteFile(path, []byte(contents), 0o600), test.ShouldBeNil)
		_, err := ReadConfigFile(path)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "set only one of intrinsics and intrinsics_file")
	})
}
