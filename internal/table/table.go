// Package table keeps the running record table and distance series in memory
// and renders them for a terminal.
package table

import (
	"fmt"
	"io"
	"sync"
	"text/tabwriter"

	"nuha.dev/gpslogger/internal/tracking"
)

const TimeLayout = "15:04:05"

var header = []string{"time", "elapsed", "latitude", "longitude", "distance", "distance2", "total"}

// Table is an append-only list of log records.
type Table struct {
	mu      sync.Mutex
	records []tracking.LogRecord
}

func NewTable() *Table {
	return &Table{records: make([]tracking.LogRecord, 0, 128)}
}

func (t *Table) Append(rec tracking.LogRecord) {
	t.mu.Lock()
	t.records = append(t.records, rec)
	t.mu.Unlock()
}

func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}

// Records returns a copy of the table.
func (t *Table) Records() []tracking.LogRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]tracking.LogRecord, len(t.records))
	copy(out, t.records)
	return out
}

func (t *Table) Render(w io.Writer) error {
	return Render(w, t.Records())
}

// Render writes records as an aligned table. distance is the great-circle
// increment, distance2 the planar increment that feeds the total.
func Render(w io.Writer, records []tracking.LogRecord) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	for _, h := range header {
		fmt.Fprintf(tw, "%s\t", h)
	}
	fmt.Fprintln(tw)
	for i := range records {
		fmt.Fprintln(tw, Row(&records[i]))
	}
	return tw.Flush()
}

// Row formats one record as tab separated cells.
func Row(r *tracking.LogRecord) string {
	return fmt.Sprintf("%s\t%d\t%.6f\t%.6f\t%.2f\t%.2f\t%.2f\t",
		r.WallClock.Format(TimeLayout), r.ElapsedSeconds, r.Latitude, r.Longitude,
		r.GreatCircleDistance, r.IncrementalDistance, r.CumulativeDistance)
}

// Series is the append-only (elapsed, cumulative) chart data.
type Series struct {
	mu     sync.Mutex
	points []tracking.SeriesPoint
}

func NewSeries() *Series {
	return &Series{points: make([]tracking.SeriesPoint, 0, 128)}
}

func (s *Series) AddPoint(elapsedSeconds int, cumulativeDistance float64) {
	s.mu.Lock()
	s.points = append(s.points, tracking.SeriesPoint{ElapsedSeconds: elapsedSeconds, CumulativeDistance: cumulativeDistance})
	s.mu.Unlock()
}

func (s *Series) Points() []tracking.SeriesPoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]tracking.SeriesPoint, len(s.points))
	copy(out, s.points)
	return out
}

// Tee fans one record out to several log sinks in order.
type Tee []tracking.LogSink

func (t Tee) Append(rec tracking.LogRecord) {
	for _, s := range t {
		s.Append(rec)
	}
}

// SeriesTee fans one point out to several series sinks in order.
type SeriesTee []tracking.SeriesSink

func (t SeriesTee) AddPoint(elapsedSeconds int, cumulativeDistance float64) {
	for _, s := range t {
		s.AddPoint(elapsedSeconds, cumulativeDistance)
	}
}

// Printer writes each record as a table row as soon as it is appended.
type Printer struct {
	mu     sync.Mutex
	w      io.Writer
	header bool
}

func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

func (p *Printer) Append(rec tracking.LogRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.header {
		fmt.Fprintf(p.w, "%-8s %7s %11s %11s %9s %9s %10s\n", header[0], header[1], header[2], header[3], header[4], header[5], header[6])
		p.header = true
	}
	fmt.Fprintf(p.w, "%-8s %7d %11.6f %11.6f %9.2f %9.2f %10.2f\n",
		rec.WallClock.Format(TimeLayout), rec.ElapsedSeconds, rec.Latitude, rec.Longitude,
		rec.GreatCircleDistance, rec.IncrementalDistance, rec.CumulativeDistance)
}
