package ticker

import (
	"sync"
	"time"

	"github.com/phuslu/log"
	"nuha.dev/gpslogger/internal/tracking"
)

// Ticker arms periodic callbacks on time.Ticker goroutines.
type Ticker struct {
	mu     sync.Mutex
	log    log.Logger
	next   tracking.TimerHandle
	timers map[tracking.TimerHandle]chan struct{}
}

func NewTicker() *Ticker {
	t := &Ticker{}
	t.log = log.DefaultLogger
	t.log.Context = log.NewContext(nil).Str("module", "ticker").Value()
	t.timers = make(map[tracking.TimerHandle]chan struct{})
	return t
}

func (t *Ticker) Arm(fn func(), period time.Duration) tracking.TimerHandle {
	stopchan := make(chan struct{})
	t.mu.Lock()
	t.next++
	h := t.next
	t.timers[h] = stopchan
	t.mu.Unlock()

	tk := time.NewTicker(period)
	go func() {
		defer tk.Stop()
		for {
			select {
			case <-tk.C:
				fn()
			case <-stopchan:
				return
			}
		}
	}()
	t.log.Debug().Uint64("timer", uint64(h)).Dur("period", period).Msg("timer armed")
	return h
}

// Disarm stops the timer without waiting for a callback that is already
// running.
func (t *Ticker) Disarm(h tracking.TimerHandle) {
	t.mu.Lock()
	stopchan, ok := t.timers[h]
	delete(t.timers, h)
	t.mu.Unlock()
	if !ok {
		t.log.Warn().Uint64("timer", uint64(h)).Msg("disarm of unknown timer")
		return
	}
	close(stopchan)
	t.log.Debug().Uint64("timer", uint64(h)).Msg("timer disarmed")
}

// Armed reports the number of running timers.
func (t *Ticker) Armed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.timers)
}
