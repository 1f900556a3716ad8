package sublist

import (
	"encoding/binary"
	"math"
	"strconv"
	"sync"
	"time"
)

const (
	FRAME_POINT byte = 0x00
	FRAME_EVENT byte = 0x01
)

// Subscriber receives encoded frames. Push returns true once the subscriber
// is closed, after which it is dropped from the list.
type Subscriber interface {
	Push(d []byte) (closed bool)
}

// Sublist fans series points and session events out to subscribers. A new
// subscriber first receives the latest point and the latest event.
type Sublist struct {
	list       map[Subscriber]bool
	data       []byte
	event_data []byte
	mu         *sync.Mutex
}

func NewSublist() *Sublist {
	s := &Sublist{}
	s.list = make(map[Subscriber]bool)
	s.mu = &sync.Mutex{}
	return s
}

func (s *Sublist) Subscribe(sub Subscriber) {
	s.mu.Lock()
	s.list[sub] = true
	if s.data != nil {
		sub.Push(s.data)
	}
	if s.event_data != nil {
		sub.Push(s.event_data)
	}
	s.mu.Unlock()
}

func (s *Sublist) Unsubscribe(sub Subscriber) {
	s.mu.Lock()
	delete(s.list, sub)
	s.mu.Unlock()
}

func (s *Sublist) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.list)
}

// AddPoint implements tracking.SeriesSink.
func (s *Sublist) AddPoint(elapsedSeconds int, cumulativeDistance float64) {
	s.mu.Lock()
	s.data = EncodePoint(elapsedSeconds, cumulativeDistance)
	s.send(s.data)
	s.mu.Unlock()
}

func (s *Sublist) SendEvent(topic string, runID string, t time.Time) {
	s.mu.Lock()
	s.event_data = EncodeEvent(topic, runID, t)
	s.send(s.event_data)
	s.mu.Unlock()
}

func (s *Sublist) send(d []byte) {
	for sub := range s.list {
		closed := sub.Push(d)
		if closed {
			delete(s.list, sub)
		}
	}
}

// EncodePoint: 0x00 | uint32 LE elapsed seconds | float64 LE cumulative meters.
func EncodePoint(elapsedSeconds int, cumulativeDistance float64) []byte {
	buf := make([]byte, 13)
	buf[0] = FRAME_POINT
	binary.LittleEndian.PutUint32(buf[1:], uint32(elapsedSeconds))
	binary.LittleEndian.PutUint64(buf[5:], math.Float64bits(cumulativeDistance))
	return buf
}

func DecodePoint(d []byte) (elapsedSeconds int, cumulativeDistance float64, ok bool) {
	if len(d) != 13 || d[0] != FRAME_POINT {
		return 0, 0, false
	}
	elapsedSeconds = int(binary.LittleEndian.Uint32(d[1:]))
	cumulativeDistance = math.Float64frombits(binary.LittleEndian.Uint64(d[5:]))
	return elapsedSeconds, cumulativeDistance, true
}

// EncodeEvent: 0x01 followed by {"topic":...,"run_id":...,"time":unix}.
func EncodeEvent(topic string, runID string, t time.Time) []byte {
	buf := make([]byte, 0, 100)
	buf = append(buf, FRAME_EVENT)
	buf = append(buf, `{"topic":`...)
	buf = strconv.AppendQuote(buf, topic)
	buf = append(buf, `,"run_id":`...)
	buf = strconv.AppendQuote(buf, runID)
	buf = append(buf, `,"time":`...)
	buf = strconv.AppendInt(buf, t.Unix(), 10)
	buf = append(buf, '}')
	return buf
}
