// Package replay drives a tracking session from a recorded capture using
// simulated time.
package replay

import (
	"github.com/phuslu/log"

	"nuha.dev/gpslogger/internal/tracking"
)

type Param struct {
	Log      tracking.LogSink
	Series   tracking.SeriesSink
	Notifier tracking.Notifier
}

// Replay feeds samples into a fresh session in capture time order, firing
// ticks at conf.TickPeriod between them. With a tick period one more period
// is simulated after the last sample so it gets logged. The returned snapshot
// is taken just before the session is stopped.
func Replay(samples []tracking.GeoSample, param *Param, conf *tracking.Config) (tracking.Snapshot, error) {
	if len(samples) == 0 {
		return tracking.Snapshot{}, ErrEmptyCapture
	}
	logger := log.DefaultLogger
	logger.Context = log.NewContext(nil).Str("module", "replay").Value()

	start := samples[0].CapturedAt
	clock := NewManualClock(start)
	ticks := NewManualTicker(clock)
	source := NewManualSource()

	s := tracking.NewSession(&tracking.Param{
		Source:   source,
		Ticks:    ticks,
		Clock:    clock,
		Log:      param.Log,
		Series:   param.Series,
		Notifier: param.Notifier,
	}, conf)
	if err := s.Start(); err != nil {
		return tracking.Snapshot{}, err
	}

	fired := 0
	for _, g := range samples {
		fired += ticks.AdvanceTo(g.CapturedAt.Sub(start))
		source.Push(g)
	}
	if conf.TickPeriod > 0 {
		last := samples[len(samples)-1].CapturedAt.Sub(start)
		fired += ticks.AdvanceTo(last + conf.TickPeriod)
	}

	snap := s.Snapshot()
	s.Stop()
	logger.Info().Int("samples", len(samples)).Int("ticks", fired).Int("records", snap.Records).
		Float64("cumulative", snap.CumulativeDistance).Msg("replay done")
	return snap, nil
}
