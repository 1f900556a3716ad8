package replay

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"nuha.dev/gpslogger/internal/table"
	"nuha.dev/gpslogger/internal/tracking"
)

var t0 = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func northWalk(n int, every time.Duration) []tracking.GeoSample {
	out := make([]tracking.GeoSample, n)
	for i := range out {
		out[i] = tracking.GeoSample{
			Latitude:   41.3874 + float64(i)*0.0001,
			Longitude:  2.1686,
			CapturedAt: t0.Add(time.Duration(i) * every),
		}
	}
	return out
}

func TestCaptureRoundTrip(t *testing.T) {
	in := northWalk(4, time.Second)
	var buf bytes.Buffer
	if err := WriteCapture(&buf, in); err != nil {
		t.Fatal(err)
	}
	buf.WriteString("\n\n")
	out, err := ReadCapture(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != len(in) {
		t.Fatalf("got %d samples, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i].Latitude != in[i].Latitude || !out[i].CapturedAt.Equal(in[i].CapturedAt) {
			t.Fatalf("sample %d mismatch: %+v != %+v", i, out[i], in[i])
		}
	}
}

func TestReadCaptureErrors(t *testing.T) {
	if _, err := ReadCapture(strings.NewReader("\n")); !errors.Is(err, ErrEmptyCapture) {
		t.Fatalf("expected ErrEmptyCapture, got %v", err)
	}
	if _, err := ReadCapture(strings.NewReader("{\"latitude\":1}\nnot json\n")); err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("expected line 2 error, got %v", err)
	}
	unordered := `{"latitude":1,"longitude":1,"captured_at":"2024-05-01T10:00:05Z"}
{"latitude":1,"longitude":1,"captured_at":"2024-05-01T10:00:00Z"}`
	if _, err := ReadCapture(strings.NewReader(unordered)); err == nil {
		t.Fatal("expected ordering error")
	}
}

func TestManualTickerFiresInOrder(t *testing.T) {
	clock := NewManualClock(t0)
	ticks := NewManualTicker(clock)
	var at []time.Duration
	ticks.Arm(func() { at = append(at, clock.Monotonic()) }, 3*time.Second)
	if n := ticks.AdvanceTo(10 * time.Second); n != 3 {
		t.Fatalf("fired %d, want 3", n)
	}
	want := []time.Duration{3 * time.Second, 6 * time.Second, 9 * time.Second}
	for i := range want {
		if at[i] != want[i] {
			t.Fatalf("tick %d at %v, want %v", i, at[i], want[i])
		}
	}
	if clock.Monotonic() != 10*time.Second {
		t.Fatalf("clock at %v", clock.Monotonic())
	}
	if !clock.Now().Equal(t0.Add(10 * time.Second)) {
		t.Fatalf("wall clock at %v", clock.Now())
	}
}

func TestManualTickerDisarm(t *testing.T) {
	clock := NewManualClock(t0)
	ticks := NewManualTicker(clock)
	n := 0
	h := ticks.Arm(func() { n++ }, time.Second)
	ticks.Disarm(h)
	ticks.AdvanceTo(5 * time.Second)
	if n != 0 || ticks.Armed() != 0 {
		t.Fatalf("disarmed timer fired %d times", n)
	}
}

func TestReplayWithTicks(t *testing.T) {
	tab := table.NewTable()
	series := table.NewSeries()
	samples := northWalk(4, 3*time.Second)
	snap, err := Replay(samples, &Param{Log: tab, Series: series}, &tracking.Config{TickPeriod: 3 * time.Second})
	if err != nil {
		t.Fatal(err)
	}
	recs := tab.Records()
	// ticks at 3,6,9,12; the first sample arrives at 0 so the tick at 3 logs it
	if len(recs) != 4 {
		t.Fatalf("got %d records, want 4", len(recs))
	}
	if recs[0].ElapsedSeconds != 0 || recs[0].IncrementalDistance != 0 {
		t.Fatalf("unexpected first record %+v", recs[0])
	}
	for i := 1; i < len(recs); i++ {
		if recs[i].ElapsedSeconds != 3*i {
			t.Fatalf("record %d elapsed %d", i, recs[i].ElapsedSeconds)
		}
		if recs[i].IncrementalDistance < 11.0 || recs[i].IncrementalDistance > 11.2 {
			t.Fatalf("record %d increment %f", i, recs[i].IncrementalDistance)
		}
	}
	if snap.Records != 4 || snap.CumulativeDistance != recs[3].CumulativeDistance {
		t.Fatalf("snapshot %+v", snap)
	}
	if len(series.Points()) != 4 {
		t.Fatalf("got %d series points", len(series.Points()))
	}
}

func TestReplayEverySample(t *testing.T) {
	tab := table.NewTable()
	samples := northWalk(5, 1500*time.Millisecond)
	snap, err := Replay(samples, &Param{Log: tab}, &tracking.Config{})
	if err != nil {
		t.Fatal(err)
	}
	recs := tab.Records()
	if len(recs) != 5 || snap.Records != 5 {
		t.Fatalf("got %d records", len(recs))
	}
	// 0, 1.5, 3, 4.5, 6 floored
	want := []int{0, 1, 3, 4, 6}
	for i := range want {
		if recs[i].ElapsedSeconds != want[i] {
			t.Fatalf("record %d elapsed %d, want %d", i, recs[i].ElapsedSeconds, want[i])
		}
	}
}

func TestReplayEmpty(t *testing.T) {
	if _, err := Replay(nil, &Param{}, &tracking.Config{}); !errors.Is(err, ErrEmptyCapture) {
		t.Fatalf("expected ErrEmptyCapture, got %v", err)
	}
}
