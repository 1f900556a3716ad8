package logsink

import (
	"io"

	"github.com/rs/zerolog"
	"nuha.dev/gpslogger/internal/tracking"
)

// Sink writes one structured line per record.
type Sink struct {
	logger zerolog.Logger
}

func NewSink(w io.Writer) *Sink {
	return &Sink{logger: zerolog.New(w).With().Timestamp().Str("module", "records").Logger()}
}

func (l *Sink) Append(rec tracking.LogRecord) {
	l.logger.Info().
		Str("run_id", rec.RunID).
		Int("seq", rec.Seq).
		Time("wall_clock", rec.WallClock).
		Int("elapsed", rec.ElapsedSeconds).
		Float64("lat", rec.Latitude).
		Float64("lon", rec.Longitude).
		Float64("incremental", rec.IncrementalDistance).
		Float64("great_circle", rec.GreatCircleDistance).
		Float64("cumulative", rec.CumulativeDistance).
		Msg("record")
}
