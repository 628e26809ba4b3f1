package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/hearthsocial/hearth/internal/app/system/metrics"
	"github.com/hearthsocial/hearth/internal/app/system/roomid"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// fakeConn records what it is sent. A full fakeConn refuses everything.
type fakeConn struct {
	user string
	full bool

	mu   sync.Mutex
	sent [][]byte
}

func (f *fakeConn) UserID() string { return f.user }

func (f *fakeConn) TrySend(data []byte) bool {
	if f.full {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, data)
	return true
}

func (f *fakeConn) events(t *testing.T) []Event {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Event, 0, len(f.sent))
	for _, b := range f.sent {
		var e Event
		if err := json.Unmarshal(b, &e); err != nil {
			t.Fatalf("bad frame %q: %v", b, err)
		}
		out = append(out, e)
	}
	return out
}

// loopBridge delivers published events straight back, like a NATS server
// with this instance as the only subscriber.
type loopBridge struct {
	handle    func(string, []byte)
	published []string
}

func (b *loopBridge) Publish(subject string, data []byte) error {
	b.published = append(b.published, subject)
	if b.handle != nil {
		b.handle(subject, data)
	}
	return nil
}

func (b *loopBridge) Subscribe(h func(string, []byte)) error { b.handle = h; return nil }
func (b *loopBridge) Close()                                 {}

func newTestHub(t *testing.T, opts Options) *Hub {
	t.Helper()
	h, err := NewHub(opts, zap.NewNop())
	if err != nil {
		t.Fatalf("NewHub: %v", err)
	}
	return h
}

func TestRegistry_AddRemove(t *testing.T) {
	r := NewRegistry()
	a1 := &fakeConn{user: "a"}
	a2 := &fakeConn{user: "a"}
	b := &fakeConn{user: "b"}

	if !r.Add(a1) {
		t.Error("first connection of a should report first")
	}
	if r.Add(a2) {
		t.Error("second connection of a should not report first")
	}
	r.Add(b)

	if r.Count() != 3 {
		t.Errorf("Count = %d, want 3", r.Count())
	}
	if got := r.Users(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Users = %v, want [a b]", got)
	}

	if r.Remove(a1) {
		t.Error("removing one of two connections should not report last")
	}
	if !r.IsOnline("a") {
		t.Error("a should still be online")
	}
	if !r.Remove(a2) {
		t.Error("removing the final connection should report last")
	}
	if r.IsOnline("a") {
		t.Error("a should be offline")
	}
	if r.Remove(a2) {
		t.Error("removing an unknown connection should report false")
	}
}

func TestRegistry_SendCountsDrops(t *testing.T) {
	r := NewRegistry()
	r.Add(&fakeConn{user: "a"})
	r.Add(&fakeConn{user: "a", full: true})

	delivered, dropped := r.Send("a", []byte(`{}`))
	if delivered != 1 || dropped != 1 {
		t.Errorf("Send = (%d, %d), want (1, 1)", delivered, dropped)
	}
	if d, _ := r.Send("nobody", []byte(`{}`)); d != 0 {
		t.Errorf("Send to offline user delivered %d", d)
	}
}

func TestNewEvent(t *testing.T) {
	e, err := NewEvent(EventPong, nil)
	if err != nil || e.Type != EventPong || e.Data != nil {
		t.Fatalf("NewEvent(pong, nil) = %+v, %v", e, err)
	}
	e, err = NewEvent(EventTyping, typingData{From: "x"})
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	b, _ := e.encode()
	if string(b) != `{"type":"typing","data":{"from":"x"}}` {
		t.Errorf("encode = %s", b)
	}
}

func TestPublishRoom_LocalDelivery(t *testing.T) {
	h := newTestHub(t, Options{})
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	ca := &fakeConn{user: a.Hex()}
	cb := &fakeConn{user: b.Hex()}
	other := &fakeConn{user: primitive.NewObjectID().Hex()}
	h.attach(ca)
	h.attach(cb)
	h.attach(other)

	evt, _ := NewEvent(EventMessageNew, map[string]string{"content": "hi"})
	if err := h.PublishRoom(roomid.For(a, b), evt); err != nil {
		t.Fatalf("PublishRoom: %v", err)
	}

	for name, c := range map[string]*fakeConn{"sender": ca, "receiver": cb} {
		got := c.events(t)
		if len(got) != 1 || got[0].Type != EventMessageNew {
			t.Errorf("%s got %+v, want one message:new", name, got)
		}
	}
	if n := len(other.events(t)); n != 0 {
		t.Errorf("bystander received %d events", n)
	}
}

func TestPublishRoom_BadRoom(t *testing.T) {
	h := newTestHub(t, Options{})
	if err := h.PublishRoom("nope", Event{Type: EventMessageNew}); err == nil {
		t.Fatal("expected error for malformed room")
	}
}

func TestBridge_RoutesThroughSubjects(t *testing.T) {
	br := &loopBridge{}
	h := newTestHub(t, Options{Bridge: br})
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	ca := &fakeConn{user: a.Hex()}
	cb := &fakeConn{user: b.Hex()}
	h.attach(ca)
	h.attach(cb)

	room := roomid.For(a, b)
	evt, _ := NewEvent(EventMessageNew, nil)
	if err := h.PublishRoom(room, evt); err != nil {
		t.Fatalf("PublishRoom: %v", err)
	}
	h.NotifyUser(b, "group:invited", map[string]string{"group": "g"})

	want := []string{RoomSubject(room), UserSubject(b.Hex())}
	if len(br.published) != 2 || br.published[0] != want[0] || br.published[1] != want[1] {
		t.Errorf("published = %v, want %v", br.published, want)
	}
	if n := len(ca.events(t)); n != 1 {
		t.Errorf("a received %d events, want 1", n)
	}
	got := cb.events(t)
	if len(got) != 2 || got[1].Type != "group:invited" {
		t.Errorf("b received %+v", got)
	}
}

func TestHandleFrame(t *testing.T) {
	h := newTestHub(t, Options{})
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	ca := &fakeConn{user: a.Hex()}
	cb := &fakeConn{user: b.Hex()}
	h.attach(ca)
	h.attach(cb)

	h.handleFrame(ca, []byte(`{"type":"ping"}`))
	h.handleFrame(ca, []byte(`{"type":"typing","to":"`+b.Hex()+`"}`))
	h.handleFrame(ca, []byte(`{"type":"typing","to":"`+a.Hex()+`"}`))
	h.handleFrame(ca, []byte(`{"type":"dance"}`))
	h.handleFrame(ca, []byte(`not json`))

	got := ca.events(t)
	wantTypes := []string{EventPong, EventError, EventError, EventError}
	if len(got) != len(wantTypes) {
		t.Fatalf("a received %d events, want %d: %+v", len(got), len(wantTypes), got)
	}
	for i, w := range wantTypes {
		if got[i].Type != w {
			t.Errorf("event %d = %s, want %s", i, got[i].Type, w)
		}
	}

	peer := cb.events(t)
	if len(peer) != 1 || peer[0].Type != EventTyping {
		t.Fatalf("b received %+v, want one typing event", peer)
	}
	var td typingData
	_ = json.Unmarshal(peer[0].Data, &td)
	if td.From != a.Hex() {
		t.Errorf("typing from = %s, want %s", td.From, a.Hex())
	}
}

func TestDroppedEventsCounted(t *testing.T) {
	m := metrics.New()
	h := newTestHub(t, Options{Metrics: m})
	u := primitive.NewObjectID()
	h.attach(&fakeConn{user: u.Hex(), full: true})

	h.NotifyUser(u, "group:approved", nil)

	if got := promtest.ToFloat64(m.RealtimeDropped); got != 1 {
		t.Errorf("dropped = %v, want 1", got)
	}
}

func TestOnlineAmong_LocalPresence(t *testing.T) {
	h := newTestHub(t, Options{})
	on, off := primitive.NewObjectID(), primitive.NewObjectID()
	c := &fakeConn{user: on.Hex()}
	h.attach(c)

	got, err := h.OnlineAmong(context.Background(), []primitive.ObjectID{on, off})
	if err != nil {
		t.Fatalf("OnlineAmong: %v", err)
	}
	if len(got) != 1 || got[0] != on {
		t.Errorf("OnlineAmong = %v, want [%s]", got, on.Hex())
	}

	h.detach(c)
	got, _ = h.OnlineAmong(context.Background(), []primitive.ObjectID{on, off})
	if len(got) != 0 {
		t.Errorf("after detach OnlineAmong = %v, want empty", got)
	}
	if err := h.RefreshPresence(context.Background()); err != nil {
		t.Errorf("RefreshPresence: %v", err)
	}
}

func TestSplitSubject(t *testing.T) {
	cases := []struct {
		in       string
		kind, id string
		ok       bool
	}{
		{"hearth.rooms.a_b", "room", "a_b", true},
		{"hearth.users.abc", "user", "abc", true},
		{"other.subject", "", "", false},
	}
	for _, tc := range cases {
		kind, id, ok := splitSubject(tc.in)
		if kind != tc.kind || id != tc.id || ok != tc.ok {
			t.Errorf("splitSubject(%q) = (%q, %q, %v)", tc.in, kind, id, ok)
		}
	}
}
