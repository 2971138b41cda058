package score

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.viam.com/test"

	"go.viam.com/monovo/rimage/transform"
)

func TestReadGroundTruth(t *testing.T) {
	rows, err := ReadGroundTruth(strings.NewReader("0.0336 0.0392\n\n  3.1e-02\t4.0e-02  \nnan nan\n"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(rows), test.ShouldEqual, 3)
	test.That(t, rows[0], test.ShouldResemble, transform.AngleEstimate{Pitch: 0.0336, Yaw: 0.0392})
	test.That(t, rows[1].Yaw, test.ShouldEqual, 0.04)
	test.That(t, math.IsNaN(rows[2].Pitch), test.ShouldBeTrue)

	_, err = ReadGroundTruth(strings.NewReader("0.1 0.2\n0.3\n"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "line 2")

	_, err = ReadGroundTruth(strings.NewReader("0.1 abc\n"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "bad yaw")
}

func TestPredictionsRoundTrip(t *testing.T) {
	estimates := []transform.AngleEstimate{{Pitch: 0.01, Yaw: -0.2}, {Pitch: math.NaN(), Yaw: 1e-9}}

	var buf bytes.Buffer
	test.That(t, WritePredictions(&buf, estimates), test.ShouldBeNil)
	test.That(t, strings.Count(buf.String(), "\n"), test.ShouldEqual, 2)

	path := filepath.Join(t.TempDir(), "0.txt")
	test.That(t, WritePredictionsFile(path, estimates), test.ShouldBeNil)
	rows, err := ReadGroundTruthFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rows[0].Pitch, test.ShouldAlmostEqual, 0.01, 1e-12)
	test.That(t, rows[0].Yaw, test.ShouldAlmostEqual, -0.2, 1e-12)
	test.That(t, math.IsNaN(rows[1].Pitch), test.ShouldBeTrue)

	_, err = ReadGroundTruthFile(filepath.Join(t.TempDir(), "missing.txt"))
	test.That(t, err, test.ShouldNotBeNil)
	_, err = os.Stat(path)
	test.That(t, err, test.ShouldBeNil)
}
