package replay

import (
	"sort"
	"sync"
	"time"

	"nuha.dev/gpslogger/internal/tracking"
)

// ManualClock only moves when told to.
type ManualClock struct {
	mu   sync.Mutex
	base time.Time
	mono time.Duration
}

func NewManualClock(base time.Time) *ManualClock {
	return &ManualClock{base: base}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.base.Add(c.mono)
}

func (c *ManualClock) Monotonic() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mono
}

// Set moves the clock to d. The clock never goes backwards.
func (c *ManualClock) Set(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d > c.mono {
		c.mono = d
	}
}

type manualTimer struct {
	fn     func()
	period time.Duration
	next   time.Duration
}

// ManualTicker fires armed timers when AdvanceTo passes their deadline.
type ManualTicker struct {
	mu     sync.Mutex
	clock  *ManualClock
	next   tracking.TimerHandle
	timers map[tracking.TimerHandle]*manualTimer
}

func NewManualTicker(clock *ManualClock) *ManualTicker {
	return &ManualTicker{clock: clock, timers: make(map[tracking.TimerHandle]*manualTimer)}
}

func (t *ManualTicker) Arm(fn func(), period time.Duration) tracking.TimerHandle {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	t.timers[t.next] = &manualTimer{fn: fn, period: period, next: t.clock.Monotonic() + period}
	return t.next
}

func (t *ManualTicker) Disarm(h tracking.TimerHandle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.timers, h)
}

func (t *ManualTicker) Armed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.timers)
}

// due returns the earliest timer whose deadline is at or before d.
func (t *ManualTicker) due(d time.Duration) (tracking.TimerHandle, *manualTimer, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	handles := make([]tracking.TimerHandle, 0, len(t.timers))
	for h := range t.timers {
		handles = append(handles, h)
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })
	var (
		best  tracking.TimerHandle
		found *manualTimer
	)
	for _, h := range handles {
		tm := t.timers[h]
		if tm.next > d {
			continue
		}
		if found == nil || tm.next < found.next {
			best, found = h, tm
		}
	}
	return best, found, found != nil
}

// AdvanceTo moves the clock to d, firing every deadline on the way in order.
// Callbacks run without the ticker lock held.
func (t *ManualTicker) AdvanceTo(d time.Duration) int {
	fired := 0
	for {
		h, tm, ok := t.due(d)
		if !ok {
			break
		}
		t.clock.Set(tm.next)
		t.mu.Lock()
		_, armed := t.timers[h]
		tm.next += tm.period
		t.mu.Unlock()
		if !armed {
			continue
		}
		tm.fn()
		fired++
	}
	t.clock.Set(d)
	return fired
}

type manualSub struct {
	onSample func(tracking.GeoSample)
	onError  func(error)
}

// ManualSource delivers samples pushed by the caller to its subscribers.
type ManualSource struct {
	mu   sync.Mutex
	next tracking.SubscriptionID
	subs map[tracking.SubscriptionID]manualSub
}

func NewManualSource() *ManualSource {
	return &ManualSource{subs: make(map[tracking.SubscriptionID]manualSub)}
}

func (s *ManualSource) Subscribe(onSample func(tracking.GeoSample), onError func(error)) (tracking.SubscriptionID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.subs[s.next] = manualSub{onSample: onSample, onError: onError}
	return s.next, nil
}

func (s *ManualSource) Unsubscribe(id tracking.SubscriptionID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}

func (s *ManualSource) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func (s *ManualSource) snapshot() []manualSub {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]manualSub, 0, len(s.subs))
	for _, sub := range s.subs {
		out = append(out, sub)
	}
	return out
}

func (s *ManualSource) Push(g tracking.GeoSample) {
	for _, sub := range s.snapshot() {
		sub.onSample(g)
	}
}

func (s *ManualSource) Fail(err error) {
	for _, sub := range s.snapshot() {
		sub.onError(err)
	}
}
