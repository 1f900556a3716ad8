package sublist

import (
	"encoding/json"
	"testing"
	"time"
)

type mockSub struct {
	closed bool
	got    [][]byte
}

func (m *mockSub) Push(d []byte) bool {
	if m.closed {
		return true
	}
	m.got = append(m.got, d)
	return false
}

func TestSendDropsClosed(t *testing.T) {
	s := NewSublist()
	subs := make([]*mockSub, 10)
	for i := range subs {
		subs[i] = &mockSub{}
		s.Subscribe(subs[i])
	}
	subs[4].closed = true
	subs[8].closed = true
	s.AddPoint(3, 11.12)
	if s.Len() != 8 {
		t.Fatalf("expected 8 subscribers, got %d", s.Len())
	}
	if len(subs[0].got) != 1 {
		t.Fatalf("expected one frame, got %d", len(subs[0].got))
	}
}

func TestSubscribeReplaysLatest(t *testing.T) {
	s := NewSublist()
	s.AddPoint(3, 1)
	s.AddPoint(6, 2)
	s.SendEvent("session.started", "run-1", time.Unix(100, 0))
	m := &mockSub{}
	s.Subscribe(m)
	if len(m.got) != 2 {
		t.Fatalf("expected latest point and event, got %d frames", len(m.got))
	}
	elapsed, cum, ok := DecodePoint(m.got[0])
	if !ok || elapsed != 6 || cum != 2 {
		t.Fatalf("unexpected point %d %v %v", elapsed, cum, ok)
	}
	if m.got[1][0] != FRAME_EVENT {
		t.Fatal("expected event frame")
	}
}

func TestUnsubscribe(t *testing.T) {
	s := NewSublist()
	m := &mockSub{}
	s.Subscribe(m)
	s.Unsubscribe(m)
	s.AddPoint(1, 1)
	if len(m.got) != 0 {
		t.Fatal("unsubscribed subscriber received data")
	}
}

func TestEncodeEvent(t *testing.T) {
	d := EncodeEvent("session.stopped", "abc", time.Unix(1700000000, 0))
	var v struct {
		Topic string `json:"topic"`
		RunID string `json:"run_id"`
		Time  int64  `json:"time"`
	}
	if err := json.Unmarshal(d[1:], &v); err != nil {
		t.Fatal(err)
	}
	if v.Topic != "session.stopped" || v.RunID != "abc" || v.Time != 1700000000 {
		t.Fatalf("unexpected event %+v", v)
	}
}

func TestDecodePointRejectsEvents(t *testing.T) {
	if _, _, ok := DecodePoint(EncodeEvent("x", "", time.Now())); ok {
		t.Fatal("event decoded as point")
	}
}

func BenchmarkSend(b *testing.B) {
	s := NewSublist()
	for i := 0; i < 100; i++ {
		s.Subscribe(&benchSub{n: i})
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.AddPoint(i, float64(i))
	}
}

type benchSub struct{ n int }

func (*benchSub) Push([]byte) bool { return false }
