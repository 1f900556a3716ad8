package simplejson

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/phuslu/log"

	"nuha.dev/gpslogger/internal/device"
	"nuha.dev/gpslogger/internal/device/conn"
	"nuha.dev/gpslogger/internal/tracking"
)

const (
	FIX_RECEIVED   string = "fix_received"
	FIX_DROPPED    string = "fix_dropped"
	GPS_ERROR_EV   string = "gps_error"
	ACQUIRE_TIMEOUT string = "acquisition_timeout"
	FEED_CLOSED    string = "feed_closed"
)

type subscription struct {
	onSample func(tracking.GeoSample)
	onError  func(error)
	watchdog *time.Timer
	// held while delivering to this subscriber so a cached replay never
	// overtakes a live fix
	dmu  sync.Mutex
	seen bool
}

// Feed is a LocationSource reading simplejson frames from a device stream.
type Feed struct {
	c    *conn.Conn
	conf device.SourceConfig
	log  log.Logger
	msg  FrameMessage

	mu        sync.Mutex
	next      tracking.SubscriptionID
	subs      map[tracking.SubscriptionID]*subscription
	last      *tracking.GeoSample
	last_time time.Time
	login     *LoginMessage
	closed    bool
	err       error
	done      chan struct{}
}

func NewFeed(c *conn.Conn, logger log.Logger, conf *device.SourceConfig) *Feed {
	f := &Feed{c: c, conf: *conf}
	f.log = logger
	f.log.Context = log.NewContext(nil).Str("module", "simplejson").Str("device", c.Name()).Value()
	f.msg.Buffer = make([]byte, 4096)
	f.subs = make(map[tracking.SubscriptionID]*subscription)
	f.done = make(chan struct{})
	return f
}

// Run starts the read loop.
func (f *Feed) Run() {
	go f.run()
}

// Done is closed once the read loop ended.
func (f *Feed) Done() <-chan struct{} {
	return f.done
}

func (f *Feed) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *Feed) Close() error {
	return f.c.Close()
}

// Last returns the most recent fix and when it was received.
func (f *Feed) Last() (tracking.GeoSample, time.Time, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.last == nil {
		return tracking.GeoSample{}, time.Time{}, false
	}
	return *f.last, f.last_time, true
}

func (f *Feed) Login() (LoginMessage, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.login == nil {
		return LoginMessage{}, false
	}
	return *f.login, true
}

func (f *Feed) Subscribe(onSample func(tracking.GeoSample), onError func(error)) (tracking.SubscriptionID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, device.ErrSourceClosed
	}
	f.next++
	id := f.next
	sub := &subscription{onSample: onSample, onError: onError}
	if f.conf.AcquisitionTimeout > 0 {
		sub.watchdog = time.AfterFunc(f.conf.AcquisitionTimeout, func() { f.timeout(id) })
	}
	f.subs[id] = sub

	if f.conf.MaxCacheAge > 0 && f.last != nil && time.Since(f.last_time) <= f.conf.MaxCacheAge {
		cached := *f.last
		go func() {
			sub.dmu.Lock()
			defer sub.dmu.Unlock()
			if !sub.seen && f.subscribed(id) {
				sub.seen = true
				sub.onSample(cached)
			}
		}()
	}
	f.log.Debug().Uint64("subscription", uint64(id)).Msg("subscribed")
	return id, nil
}

func (f *Feed) Unsubscribe(id tracking.SubscriptionID) {
	f.mu.Lock()
	sub, ok := f.subs[id]
	delete(f.subs, id)
	f.mu.Unlock()
	if !ok {
		return
	}
	if sub.watchdog != nil {
		sub.watchdog.Stop()
	}
	f.log.Debug().Uint64("subscription", uint64(id)).Msg("unsubscribed")
}

func (f *Feed) subscribed(id tracking.SubscriptionID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.subs[id]
	return ok
}

func (f *Feed) timeout(id tracking.SubscriptionID) {
	f.mu.Lock()
	sub, ok := f.subs[id]
	if ok {
		sub.watchdog.Reset(f.conf.AcquisitionTimeout)
	}
	f.mu.Unlock()
	if !ok {
		return
	}
	f.log.Warn().Str("event", ACQUIRE_TIMEOUT).Dur("timeout", f.conf.AcquisitionTimeout).Msg("")
	sub.onError(device.ErrAcquisitionTimeout)
}

func (f *Feed) snapshotSubs() []*subscription {
	list := make([]*subscription, 0, len(f.subs))
	for _, sub := range f.subs {
		list = append(list, sub)
	}
	return list
}

func (f *Feed) deliver(g tracking.GeoSample) {
	f.mu.Lock()
	f.last = &g
	f.last_time = time.Now()
	subs := f.snapshotSubs()
	for _, sub := range subs {
		if sub.watchdog != nil {
			sub.watchdog.Reset(f.conf.AcquisitionTimeout)
		}
	}
	f.mu.Unlock()
	for _, sub := range subs {
		sub.dmu.Lock()
		sub.seen = true
		sub.onSample(g)
		sub.dmu.Unlock()
	}
}

func (f *Feed) fail(err error) {
	f.mu.Lock()
	subs := f.snapshotSubs()
	f.mu.Unlock()
	for _, sub := range subs {
		sub.onError(err)
	}
}

func (f *Feed) closeErr(err error) {
	f.mu.Lock()
	f.closed = true
	f.err = err
	subs := f.snapshotSubs()
	for id, sub := range f.subs {
		if sub.watchdog != nil {
			sub.watchdog.Stop()
		}
		delete(f.subs, id)
	}
	f.mu.Unlock()
	f.c.Close()
	f.log.Info().Str("event", FEED_CLOSED).Err(err).Msg("")
	werr := fmt.Errorf("%w: %v", device.ErrSourceClosed, err)
	for _, sub := range subs {
		sub.onError(werr)
	}
	close(f.done)
}

// accept reports whether a location frame carries a usable fix.
func (f *Feed) accept(loc *LocationMessage) bool {
	if !loc.Fix {
		return false
	}
	if f.conf.HighAccuracy && !strings.EqualFold(loc.FixMode, "3d") {
		return false
	}
	return true
}

func (f *Feed) run() {
	for {
		err := readMessage(f.c, &f.msg)
		if err != nil {
			f.closeErr(err)
			return
		}
		switch f.msg.Protocol {
		case LOGIN:
			login := LoginMessage{}
			err = json.Unmarshal(f.msg.Payload, &login)
			if err != nil {
				f.log.Error().Err(err).Msg("error parsing login message")
				continue
			}
			f.mu.Lock()
			f.login = &login
			f.mu.Unlock()
			f.log.Info().Str("sn_type", login.SnType).Str("serial", login.Serial).Str("device_type", login.DeviceType).Msg("device login")

		case LOCATION_UPDATE:
			loc := LocationMessage{}
			err = json.Unmarshal(f.msg.Payload, &loc)
			if err != nil {
				f.log.Error().Err(err).Msg("error parsing location data")
				continue
			}
			if !f.accept(&loc) {
				f.log.Trace().Str("event", FIX_DROPPED).Bool("fix", loc.Fix).Str("fix_mode", loc.FixMode).Msg("")
				continue
			}
			g := tracking.GeoSample{Latitude: loc.Latitude, Longitude: loc.Longitude, CapturedAt: loc.GpsTime}
			if g.CapturedAt.IsZero() {
				g.CapturedAt = time.Now().UTC()
			}
			f.log.Trace().Str("event", FIX_RECEIVED).EmbedObject(g).Msg("")
			f.deliver(g)

		case GPS_ERROR:
			e := ErrorMessage{}
			_ = json.Unmarshal(f.msg.Payload, &e)
			f.log.Warn().Str("event", GPS_ERROR_EV).Str("message", e.Message).Msg("")
			if e.Message != "" {
				f.fail(fmt.Errorf("%w: %s", device.ErrGpsError, e.Message))
			} else {
				f.fail(device.ErrGpsError)
			}

		case GPS_INIT:
			f.log.Info().Msg("gps initialising")

		case STATUS:
			status := StatusMessage{}
			err = json.Unmarshal(f.msg.Payload, &status)
			if err != nil {
				f.log.Error().Err(err).Msg("error parsing status data")
				continue
			}
			f.log.Debug().Bool("gps_status", status.GpsStatus).Msg("status update")

		case SAT_UPDATE:
			f.log.Trace().Int("length", len(f.msg.Payload)).Msg("satellite update")

		default:
			f.log.Warn().Msgf("unknown protocol %#x", f.msg.Protocol)
		}
	}
}
