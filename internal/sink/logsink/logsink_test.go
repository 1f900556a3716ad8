package logsink

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"nuha.dev/gpslogger/internal/tracking"
)

func TestAppendWritesOneLine(t *testing.T) {
	buf := &bytes.Buffer{}
	s := NewSink(buf)
	s.Append(tracking.LogRecord{RunID: "r1", Seq: 2, WallClock: time.Now(), ElapsedSeconds: 3,
		Latitude: 0.0001, IncrementalDistance: 11.12, CumulativeDistance: 11.12})
	var v map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &v); err != nil {
		t.Fatalf("invalid json %q: %v", buf.String(), err)
	}
	if v["run_id"] != "r1" || v["elapsed"].(float64) != 3 || v["cumulative"].(float64) != 11.12 || v["module"] != "records" {
		t.Fatalf("unexpected line %v", v)
	}
}
