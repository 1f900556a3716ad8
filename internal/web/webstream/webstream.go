package webstream

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"nuha.dev/gpslogger/internal/sublist"
)

// max frames buffered per client before new frames are dropped
const maxBuffered = 256

// WebstreamServer streams series points and session events from a Sublist
// as binary websocket messages. Clients only read; anything they send is
// discarded.
type WebstreamServer struct {
	logger zerolog.Logger
	sl     *sublist.Sublist
	nextID uint64
}

func NewWebstream(sl *sublist.Sublist, logger zerolog.Logger) *WebstreamServer {
	o := &WebstreamServer{sl: sl}
	o.logger = logger.With().Str("module", "websocket").Logger()
	return o
}

func (ws *WebstreamServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		ws.logger.Err(err).Msg("Error while upgrading websocket")
		return
	}
	wc := &WebstreamClient{c: c, notify: make(chan struct{}, 1), done: make(chan struct{})}
	wc.cid = atomic.AddUint64(&ws.nextID, 1)
	wc.logger = ws.logger.With().Uint64("cid", wc.cid).Logger()
	wc.buf = make([][]byte, 0, 10)
	wc.logger.Debug().Str("remote_address", r.RemoteAddr).Msg("stream client connected")

	ws.sl.Subscribe(wc)
	wc.wg.Add(2)
	go wc.writeLoop(r.Context())
	go wc.readloop(r.Context())
	wc.wg.Wait()
	ws.sl.Unsubscribe(wc)
	c.Close(websocket.StatusNormalClosure, "")
	wc.logger.Debug().Uint64("pushed", atomic.LoadUint64(&wc.pushed)).
		Uint64("dropped", atomic.LoadUint64(&wc.dropped)).Msg("stream client closed")
}

type WebstreamClient struct {
	lock    sync.Mutex
	wg      sync.WaitGroup
	c       *websocket.Conn
	cid     uint64
	logger  zerolog.Logger
	closed  bool
	err     error
	buf     [][]byte
	notify  chan struct{}
	done    chan struct{}
	once    sync.Once
	pushed  uint64
	dropped uint64
}

// closeErr is called with lock held.
func (wc *WebstreamClient) closeErr(err error) {
	if wc.closed {
		return
	}
	wc.closed = true
	wc.err = err
	wc.once.Do(func() { close(wc.done) })
}

func (wc *WebstreamClient) readloop(ctx context.Context) {
	defer wc.wg.Done()
	for {
		_, _, err := wc.c.Read(ctx)
		if err != nil {
			wc.logger.Debug().Err(err).Msg("read loop finished")
			wc.lock.Lock()
			wc.closeErr(err)
			wc.lock.Unlock()
			return
		}
	}
}

func (wc *WebstreamClient) writeLoop(ctx context.Context) {
	defer wc.wg.Done()
	for {
		select {
		case <-wc.done:
			return
		case <-wc.notify:
		}
		wc.lock.Lock()
		pending := wc.buf
		wc.buf = make([][]byte, 0, 10)
		wc.lock.Unlock()
		for _, d := range pending {
			err := wc.c.Write(ctx, websocket.MessageBinary, d)
			if err != nil {
				wc.logger.Error().Err(err).Msg("Error while writing to connection")
				wc.lock.Lock()
				wc.closeErr(err)
				wc.lock.Unlock()
				wc.c.Close(websocket.StatusInternalError, "write failed")
				return
			}
		}
	}
}

// Push implements sublist.Subscriber. It never blocks.
func (wc *WebstreamClient) Push(data []byte) bool {
	wc.lock.Lock()
	defer wc.lock.Unlock()
	if wc.closed {
		return true
	}
	if len(wc.buf) >= maxBuffered {
		atomic.AddUint64(&wc.dropped, 1)
		return false
	}
	wc.buf = append(wc.buf, data)
	atomic.AddUint64(&wc.pushed, 1)
	select {
	case wc.notify <- struct{}{}:
	default:
	}
	return false
}
