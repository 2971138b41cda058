package score

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/monovo/rimage/transform"
)

// ReadGroundTruth parses one "pitch yaw" pair (radians, whitespace separated) per line. Blank lines
// are skipped; "nan" marks an unlabeled frame.
func ReadGroundTruth(r io.Reader) ([]transform.AngleEstimate, error) {
	var rows []transform.AngleEstimate
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, errors.Errorf("ground truth line %d: expected 2 values, got %d", lineNum, len(fields))
		}
		pitch, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "ground truth line %d: bad pitch", lineNum)
		}
		yaw, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "ground truth line %d: bad yaw", lineNum)
		}
		rows = append(rows, transform.AngleEstimate{Pitch: pitch, Yaw: yaw})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading ground truth")
	}
	return rows, nil
}

// ReadGroundTruthFile reads a ground truth file from disk.
func ReadGroundTruthFile(path string) (rows []transform.AngleEstimate, err error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "error opening ground truth file")
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	return ReadGroundTruth(f)
}

// WritePredictions writes estimates in the same format ReadGroundTruth reads.
func WritePredictions(w io.Writer, estimates []transform.AngleEstimate) error {
	bw := bufio.NewWriter(w)
	for _, est := range estimates {
		if _, err := fmt.Fprintf(bw, "%.12e %.12e\n", est.Pitch, est.Yaw); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WritePredictionsFile writes estimates to path, replacing any existing file.
func WritePredictionsFile(path string, estimates []transform.AngleEstimate) (err error) {
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "error creating predictions file")
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	return WritePredictions(f, estimates)
}
