package tracking

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phuslu/log"
	"nuha.dev/gpslogger/internal/geo"
)

const (
	SESSION_STARTED  string = "session_started"
	SESSION_STOPPED  string = "session_stopped"
	START_IGNORED    string = "start_ignored"
	STOP_IGNORED     string = "stop_ignored"
	SUBSCRIBE_FAILED string = "subscribe_failed"
	LOCATION_ERROR   string = "location_error"
	RECORD_LOGGED    string = "record_logged"
)

type Config struct {
	// TickPeriod is the logging cadence. Zero logs on every delivered sample
	// instead of arming a tick source.
	TickPeriod time.Duration
}

type Param struct {
	Source   LocationSource
	Ticks    TickSource
	Clock    Clock
	Log      LogSink
	Series   SeriesSink
	Notifier Notifier
}

// Session is the tracking state machine. All collaborator callbacks enter
// through mu, so at most one of them runs at a time.
//
// Collaborators must not invoke callbacks synchronously from Subscribe or
// Arm, and Unsubscribe/Disarm must not wait for a running callback.
type Session struct {
	mu     sync.Mutex
	log    log.Logger
	conf   Config
	source LocationSource
	ticks  TickSource
	clock  Clock
	sink   LogSink
	series SeriesSink
	notify Notifier

	status Status
	gen    uint64
	runID  string
	sub    SubscriptionID
	timer  TimerHandle
	armed  bool

	origin     time.Duration
	hasOrigin  bool
	lastLogged *LoggedPoint
	cumulative float64
	records    int
	elapsed    int

	// kept across stop, see Stop
	latest *GeoSample
}

func NewSession(param *Param, conf *Config) *Session {
	s := &Session{conf: *conf}
	s.log = log.DefaultLogger
	s.log.Context = log.NewContext(nil).Str("module", "tracking").Value()
	s.source = param.Source
	s.ticks = param.Ticks
	s.clock = param.Clock
	if s.clock == nil {
		s.clock = SystemClock()
	}
	s.sink = param.Log
	if s.sink == nil {
		s.sink = nopSink{}
	}
	s.series = param.Series
	if s.series == nil {
		s.series = nopSink{}
	}
	s.notify = param.Notifier
	if s.notify == nil {
		s.notify = nopNotifier{}
	}
	s.status = Idle
	return s
}

// Start moves the session to Active. It is a no-op when already Active. If the
// location source refuses the subscription the session stays Idle.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == Active {
		s.log.Debug().Str("event", START_IGNORED).Str("run_id", s.runID).Msg("already active")
		return nil
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return err
	}
	s.gen++
	gen := s.gen
	sub, err := s.source.Subscribe(
		func(g GeoSample) { s.onSample(gen, g) },
		func(err error) { s.onError(gen, err) },
	)
	if err != nil {
		s.log.Error().Err(err).Str("event", SUBSCRIBE_FAILED).Msg("unable to subscribe to location source")
		return err
	}
	s.sub = sub
	if s.conf.TickPeriod > 0 {
		s.timer = s.ticks.Arm(func() { s.onTick(gen) }, s.conf.TickPeriod)
		s.armed = true
	}
	s.runID = id.String()
	s.status = Active
	s.log.Info().Str("event", SESSION_STARTED).Str("run_id", s.runID).Dur("tick_period", s.conf.TickPeriod).Msg("")
	s.notify.SessionStarted(s.runID)
	return nil
}

// Stop moves the session to Idle and resets the distance state. The latest
// sample survives so a restart can log immediately. No-op when Idle.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == Idle {
		s.log.Debug().Str("event", STOP_IGNORED).Msg("already idle")
		return
	}
	s.source.Unsubscribe(s.sub)
	if s.armed {
		s.ticks.Disarm(s.timer)
		s.armed = false
	}
	snap := s.snapshot()
	runID := s.runID

	s.gen++
	s.status = Idle
	s.runID = ""
	s.hasOrigin = false
	s.origin = 0
	s.lastLogged = nil
	s.cumulative = 0
	s.records = 0
	s.elapsed = 0

	s.log.Info().Str("event", SESSION_STOPPED).Str("run_id", runID).Int("records", snap.Records).
		Float64("cumulative", snap.CumulativeDistance).Msg("")
	s.notify.SessionStopped(runID, snap)
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Session) snapshot() Snapshot {
	return Snapshot{
		Status:             s.status.String(),
		RunID:              s.runID,
		CumulativeDistance: s.cumulative,
		Records:            s.records,
		ElapsedSeconds:     s.elapsed,
		HasSample:          s.latest != nil,
	}
}

func (s *Session) onSample(gen uint64, g GeoSample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return
	}
	s.latest = &g
	if s.conf.TickPeriod <= 0 {
		s.recordTick(g)
	}
}

func (s *Session) onTick(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return
	}
	if s.latest == nil {
		s.log.Trace().Msg("tick without sample")
		return
	}
	s.recordTick(*s.latest)
}

func (s *Session) onError(gen uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return
	}
	s.log.Warn().Err(err).Str("event", LOCATION_ERROR).Str("run_id", s.runID).Msg("")
	s.notify.LocationError(s.runID, err)
}

// recordTick is called with mu held.
func (s *Session) recordTick(g GeoSample) {
	now := s.clock.Monotonic()
	if !s.hasOrigin {
		s.origin = now
		s.hasOrigin = true
	}
	elapsed := int((now - s.origin) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}

	var inc, gc float64
	if s.lastLogged != nil {
		inc = geo.PlanarApproxDistance(s.lastLogged.Latitude, s.lastLogged.Longitude, g.Latitude, g.Longitude)
		gc = geo.GreatCircleDistance(s.lastLogged.Latitude, s.lastLogged.Longitude, g.Latitude, g.Longitude)
	}
	s.cumulative += inc
	s.lastLogged = &LoggedPoint{Latitude: g.Latitude, Longitude: g.Longitude}
	s.records++
	s.elapsed = elapsed

	rec := LogRecord{
		RunID:               s.runID,
		Seq:                 s.records,
		WallClock:           s.clock.Now(),
		ElapsedSeconds:      elapsed,
		Latitude:            g.Latitude,
		Longitude:           g.Longitude,
		IncrementalDistance: inc,
		CumulativeDistance:  s.cumulative,
		GreatCircleDistance: gc,
	}
	s.log.Debug().Str("event", RECORD_LOGGED).EmbedObject(&rec).Msg("")
	s.sink.Append(rec)
	s.series.AddPoint(elapsed, s.cumulative)
	s.notify.RecordLogged(rec)
}

type nopSink struct{}

func (nopSink) Append(LogRecord)      {}
func (nopSink) AddPoint(int, float64) {}

type nopNotifier struct{}

func (nopNotifier) SessionStarted(string)          {}
func (nopNotifier) SessionStopped(string, Snapshot) {}
func (nopNotifier) RecordLogged(LogRecord)         {}
func (nopNotifier) LocationError(string, error)    {}
