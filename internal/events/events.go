package events

import (
	"context"

	"github.com/mustafaturan/bus/v3"
	"github.com/mustafaturan/monoton/v2"
	"github.com/mustafaturan/monoton/v2/sequencer"
	"github.com/phuslu/log"

	"nuha.dev/gpslogger/internal/sublist"
	"nuha.dev/gpslogger/internal/tracking"
)

const (
	TOPIC_STARTED        string = "session.started"
	TOPIC_STOPPED        string = "session.stopped"
	TOPIC_RECORD         string = "session.record"
	TOPIC_LOCATION_ERROR string = "location.error"
)

// 2026-01-01 UTC in milliseconds
const initialTime uint64 = 1767225600000

type SessionEvent struct {
	RunID    string             `json:"run_id"`
	Snapshot *tracking.Snapshot `json:"snapshot,omitempty"`
	Error    string             `json:"error,omitempty"`
}

// Bus publishes session lifecycle events in-process. Handlers run
// synchronously on the emitting goroutine, while the session holds its lock,
// so they must not call back into the session.
type Bus struct {
	b   *bus.Bus
	log log.Logger
}

func NewBus() (*Bus, error) {
	m, err := monoton.New(sequencer.NewMillisecond(), 1, initialTime)
	if err != nil {
		return nil, err
	}
	var next bus.Next = m.Next
	b, err := bus.NewBus(next)
	if err != nil {
		return nil, err
	}
	b.RegisterTopics(TOPIC_STARTED, TOPIC_STOPPED, TOPIC_RECORD, TOPIC_LOCATION_ERROR)
	o := &Bus{b: b}
	o.log = log.DefaultLogger
	o.log.Context = log.NewContext(nil).Str("module", "events").Value()
	return o, nil
}

// Subscribe registers fn for topics matching the matcher regex.
func (o *Bus) Subscribe(key, matcher string, fn func(ctx context.Context, e bus.Event)) {
	o.b.RegisterHandler(key, bus.Handler{Handle: fn, Matcher: matcher})
}

func (o *Bus) Unsubscribe(key string) {
	o.b.DeregisterHandler(key)
}

func (o *Bus) emit(topic string, data interface{}) {
	err := o.b.Emit(context.Background(), topic, data)
	if err != nil {
		o.log.Error().Err(err).Str("topic", topic).Msg("emit failed")
	}
}

func (o *Bus) SessionStarted(runID string) {
	o.emit(TOPIC_STARTED, SessionEvent{RunID: runID})
}

func (o *Bus) SessionStopped(runID string, snap tracking.Snapshot) {
	o.emit(TOPIC_STOPPED, SessionEvent{RunID: runID, Snapshot: &snap})
}

func (o *Bus) RecordLogged(rec tracking.LogRecord) {
	o.emit(TOPIC_RECORD, rec)
}

func (o *Bus) LocationError(runID string, err error) {
	o.emit(TOPIC_LOCATION_ERROR, SessionEvent{RunID: runID, Error: err.Error()})
}

// ForwardStatus relays lifecycle and location error events to sl. Records are
// not forwarded: subscribers of sl only see series points and status.
func (o *Bus) ForwardStatus(sl *sublist.Sublist) {
	o.Subscribe("sublist-status", `^(session\.(started|stopped)|location\.error)$`, func(ctx context.Context, e bus.Event) {
		ev, ok := e.Data.(SessionEvent)
		if !ok {
			return
		}
		sl.SendEvent(e.Topic, ev.RunID, e.OccurredAt)
	})
}
