package tracking

import "time"

type SubscriptionID uint64

type TimerHandle uint64

// LocationSource pushes samples to onSample until unsubscribed. Errors such as
// acquisition timeouts are reported through onError and are not terminal.
type LocationSource interface {
	Subscribe(onSample func(GeoSample), onError func(error)) (SubscriptionID, error)
	Unsubscribe(id SubscriptionID)
}

type TickSource interface {
	Arm(fn func(), period time.Duration) TimerHandle
	Disarm(h TimerHandle)
}

// Clock separates display time from elapsed time. Monotonic must not jump
// when the wall clock is adjusted.
type Clock interface {
	Now() time.Time
	Monotonic() time.Duration
}

type LogSink interface {
	Append(rec LogRecord)
}

type SeriesSink interface {
	AddPoint(elapsedSeconds int, cumulativeDistance float64)
}

// Notifier receives session lifecycle events.
type Notifier interface {
	SessionStarted(runID string)
	SessionStopped(runID string, snap Snapshot)
	RecordLogged(rec LogRecord)
	LocationError(runID string, err error)
}

type systemClock struct {
	base time.Time
}

// SystemClock returns a Clock backed by time.Now. Monotonic uses the
// monotonic reading carried by time.Time.
func SystemClock() Clock {
	return &systemClock{base: time.Now()}
}

func (c *systemClock) Now() time.Time {
	return time.Now()
}

func (c *systemClock) Monotonic() time.Duration {
	return time.Since(c.base)
}
