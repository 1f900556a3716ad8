package replay

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"nuha.dev/gpslogger/internal/tracking"
)

var ErrEmptyCapture = errors.New("capture has no samples")

// ReadCapture parses a JSON-lines capture, one GeoSample per line. Blank lines
// are skipped. Samples must be ordered by CapturedAt.
func ReadCapture(r io.Reader) ([]tracking.GeoSample, error) {
	var samples []tracking.GeoSample
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}
		var g tracking.GeoSample
		if err := json.Unmarshal(b, &g); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if n := len(samples); n > 0 && g.CapturedAt.Before(samples[n-1].CapturedAt) {
			return nil, fmt.Errorf("line %d: sample captured before previous one", line)
		}
		samples = append(samples, g)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, ErrEmptyCapture
	}
	return samples, nil
}

func WriteCapture(w io.Writer, samples []tracking.GeoSample) error {
	enc := json.NewEncoder(w)
	for _, g := range samples {
		if err := enc.Encode(g); err != nil {
			return err
		}
	}
	return nil
}
