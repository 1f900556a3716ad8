package tracking

import (
	"errors"
	"time"

	"github.com/phuslu/log"
)

// ErrLocationUnavailable is reported by location sources when a fix cannot be
// obtained (permission, hardware failure, acquisition timeout). Sources wrap it.
var ErrLocationUnavailable = errors.New("location unavailable")

type Status int

const (
	Idle Status = iota
	Active
)

func (s Status) String() string {
	switch s {
	case Active:
		return "active"
	default:
		return "idle"
	}
}

// GeoSample is one raw reading from a location source.
type GeoSample struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	CapturedAt time.Time `json:"captured_at"`
}

func (g GeoSample) MarshalObject(e *log.Entry) {
	e.Float64("lat", g.Latitude).Float64("lon", g.Longitude).Time("captured_at", g.CapturedAt)
}

// LoggedPoint is the position of the previously emitted record.
type LoggedPoint struct {
	Latitude  float64
	Longitude float64
}

type LogRecord struct {
	RunID               string    `json:"run_id"`
	Seq                 int       `json:"seq"`
	WallClock           time.Time `json:"time"`
	ElapsedSeconds      int       `json:"elapsed"`
	Latitude            float64   `json:"latitude"`
	Longitude           float64   `json:"longitude"`
	IncrementalDistance float64   `json:"incremental"`
	CumulativeDistance  float64   `json:"cumulative"`
	// haversine counterpart of IncrementalDistance, display only
	GreatCircleDistance float64 `json:"great_circle"`
}

func (r *LogRecord) MarshalObject(e *log.Entry) {
	e.Str("run_id", r.RunID).Int("seq", r.Seq).Int("elapsed", r.ElapsedSeconds).
		Float64("incremental", r.IncrementalDistance).Float64("cumulative", r.CumulativeDistance)
}

type SeriesPoint struct {
	ElapsedSeconds     int     `json:"elapsed"`
	CumulativeDistance float64 `json:"cumulative"`
}

// Snapshot is a read-only view of the session.
type Snapshot struct {
	Status             string  `json:"status"`
	RunID              string  `json:"run_id,omitempty"`
	CumulativeDistance float64 `json:"cumulative"`
	Records            int     `json:"records"`
	ElapsedSeconds     int     `json:"elapsed"`
	HasSample          bool    `json:"has_sample"`
}
