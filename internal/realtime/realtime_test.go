package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

// fakeConn records written events and can optionally ack notification
// pushes back into its session, standing in for a websocket client.
type fakeConn struct {
	mu       sync.Mutex
	events   []Event
	writeErr error

	autoAck bool
	session *Session
}

func (c *fakeConn) WriteJSON(v any) error {
	c.mu.Lock()
	if c.writeErr != nil {
		c.mu.Unlock()
		return c.writeErr
	}
	ev := v.(Event)
	c.events = append(c.events, ev)
	autoAck := c.autoAck && c.session != nil && ev.ID != ""
	c.mu.Unlock()

	if autoAck {
		go c.session.Ack(ev.ID)
	}
	return nil
}

func (c *fakeConn) SetWriteDeadline(t time.Time) error { return nil }

func (c *fakeConn) Close() error { return nil }

// stalledConn models a peer that stopped reading: writes only return once a
// deadline is armed, and then only with a timeout error. Without a deadline
// a write blocks forever.
type stalledConn struct {
	mu       sync.Mutex
	deadline time.Time
}

func (c *stalledConn) SetWriteDeadline(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deadline = t
	return nil
}

func (c *stalledConn) WriteJSON(v any) error {
	c.mu.Lock()
	armed := !c.deadline.IsZero()
	c.mu.Unlock()
	if !armed {
		select {}
	}
	return errors.New("write: i/o timeout")
}

func (c *stalledConn) Close() error { return nil }

func (c *fakeConn) named(event string) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Event
	for _, ev := range c.events {
		if ev.Event == event {
			out = append(out, ev)
		}
	}
	return out
}

func newFakeSession(userID uuid.UUID, autoAck bool) (*Session, *fakeConn) {
	conn := &fakeConn{autoAck: autoAck}
	s := NewSession(userID, conn)
	conn.session = s
	return s, conn
}

func TestRegistryOnlineIffSessionsNonEmpty(t *testing.T) {
	r := NewRegistry()
	userID := uuid.New()

	if r.IsOnline(userID) {
		t.Fatalf("unknown user reported online")
	}
	if got := r.SessionsOf(userID); len(got) != 0 {
		t.Fatalf("unknown user has %d sessions", len(got))
	}

	s1, _ := newFakeSession(userID, false)
	s2, _ := newFakeSession(userID, false)

	if first := r.Add(s1); !first {
		t.Fatalf("first session did not report 0->1 edge")
	}
	if first := r.Add(s2); first {
		t.Fatalf("second session reported 0->1 edge")
	}
	if !r.IsOnline(userID) || r.ActiveSessionCount(userID) != 2 {
		t.Fatalf("expected online with 2 sessions, got online=%v count=%d", r.IsOnline(userID), r.ActiveSessionCount(userID))
	}

	if last := r.Remove(userID, s1.ID); last {
		t.Fatalf("removing one of two sessions reported 1->0 edge")
	}
	if last := r.Remove(userID, s2.ID); !last {
		t.Fatalf("removing final session did not report 1->0 edge")
	}
	if r.IsOnline(userID) || r.ActiveSessionCount(userID) != 0 {
		t.Fatalf("user still online after all sessions removed")
	}
}

func TestRegistryAddIdempotent(t *testing.T) {
	r := NewRegistry()
	s, _ := newFakeSession(uuid.New(), false)

	r.Add(s)
	if first := r.Add(s); first {
		t.Fatalf("re-adding the same session reported 0->1 edge")
	}
	if got := r.ActiveSessionCount(s.UserID); got != 1 {
		t.Fatalf("session set size = %d after duplicate add, want 1", got)
	}
}

func TestRegistryRemoveUnknown(t *testing.T) {
	r := NewRegistry()
	userID := uuid.New()

	if last := r.Remove(userID, "nope"); last {
		t.Fatalf("removing from unknown user reported 1->0 edge")
	}

	s, _ := newFakeSession(userID, false)
	r.Add(s)
	r.Remove(userID, s.ID)
	if last := r.Remove(userID, s.ID); last {
		t.Fatalf("double remove reported 1->0 edge")
	}
}

func TestRegistryConcurrentChurn(t *testing.T) {
	r := NewRegistry()
	userID := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, _ := newFakeSession(userID, false)
			r.Add(s)
			r.Remove(userID, s.ID)
		}()
	}
	wg.Wait()

	if r.IsOnline(userID) {
		t.Fatalf("user online after every session disconnected")
	}
	if got := r.ActiveSessionCount(userID); got != 0 {
		t.Fatalf("dangling sessions after churn: %d", got)
	}
}

func TestTrackerEmitsExactlyOncePerEdge(t *testing.T) {
	r := NewRegistry()
	tracker := NewTracker(r)
	ctx := context.Background()

	var transitions []string
	tracker.OnStatusChange(func(ctx context.Context, userID uuid.UUID, status string) {
		transitions = append(transitions, status)
	})

	// Observer stays connected the whole time and sees the broadcasts.
	observer, observerConn := newFakeSession(uuid.New(), false)
	tracker.Connect(ctx, observer)

	userID := uuid.New()
	var sessions []*Session
	for i := 0; i < 3; i++ {
		s, _ := newFakeSession(userID, false)
		sessions = append(sessions, s)
		tracker.Connect(ctx, s)
	}
	for _, s := range sessions {
		tracker.Disconnect(ctx, s)
	}

	var online, offline int
	for _, ev := range observerConn.named(EventUserStatus) {
		data := ev.Data.(StatusPayload)
		if data.UserID != userID.String() {
			continue
		}
		switch data.Status {
		case StatusOnline:
			online++
		case StatusOffline:
			offline++
		}
	}
	if online != 1 || offline != 1 {
		t.Fatalf("got %d online / %d offline broadcasts, want 1 / 1", online, offline)
	}

	// Listener sees the observer's online edge plus the user's two edges.
	want := []string{StatusOnline, StatusOnline, StatusOffline}
	if len(transitions) != len(want) {
		t.Fatalf("listener transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Fatalf("listener transitions = %v, want %v", transitions, want)
		}
	}
}

func TestTrackerBroadcastReachesAllConnections(t *testing.T) {
	r := NewRegistry()
	tracker := NewTracker(r)
	ctx := context.Background()

	a, aConn := newFakeSession(uuid.New(), false)
	b, bConn := newFakeSession(uuid.New(), false)
	tracker.Connect(ctx, a)
	tracker.Connect(ctx, b)

	newcomer, _ := newFakeSession(uuid.New(), false)
	tracker.Connect(ctx, newcomer)

	for name, conn := range map[string]*fakeConn{"a": aConn, "b": bConn} {
		found := false
		for _, ev := range conn.named(EventUserStatus) {
			data := ev.Data.(StatusPayload)
			if data.UserID == newcomer.UserID.String() && data.Status == StatusOnline {
				found = true
			}
		}
		if !found {
			t.Fatalf("connection %s did not receive the newcomer's online status", name)
		}
	}
}

func TestDeliverWithoutSessions(t *testing.T) {
	engine := NewEngine(NewRegistry(), time.Second)

	if engine.Deliver(context.Background(), uuid.New(), NotificationPayload{Type: "system"}) {
		t.Fatalf("Deliver reported success with no live sessions")
	}
}

func TestDeliverAcknowledged(t *testing.T) {
	r := NewRegistry()
	engine := NewEngine(r, time.Second)
	userID := uuid.New()

	s, conn := newFakeSession(userID, true)
	r.Add(s)

	payload := NotificationPayload{
		NotificationID: uuid.NewString(),
		Title:          "New Message",
		Body:           "hello",
		Type:           "message",
	}
	if !engine.Deliver(context.Background(), userID, payload) {
		t.Fatalf("Deliver = false with an acking session")
	}

	pushed := conn.named(EventNotification)
	if len(pushed) != 1 {
		t.Fatalf("session received %d notification events, want 1", len(pushed))
	}
	got := pushed[0].Data.(NotificationPayload)
	if got.Body != "hello" || got.Type != "message" || got.NotificationID != payload.NotificationID {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if pushed[0].ID == "" {
		t.Fatalf("pushed event has no id to ack against")
	}
}

func TestDeliverAckTimeout(t *testing.T) {
	r := NewRegistry()
	engine := NewEngine(r, 20*time.Millisecond)
	userID := uuid.New()

	s, _ := newFakeSession(userID, false) // never acks
	r.Add(s)

	if engine.Deliver(context.Background(), userID, NotificationPayload{Type: "system"}) {
		t.Fatalf("Deliver = true although no session acked")
	}
}

func TestDeliverToleratesFailedSession(t *testing.T) {
	r := NewRegistry()
	engine := NewEngine(r, time.Second)
	userID := uuid.New()

	broken := NewSession(userID, &fakeConn{writeErr: errors.New("write: broken pipe")})
	healthy, _ := newFakeSession(userID, true)
	r.Add(broken)
	r.Add(healthy)

	if !engine.Deliver(context.Background(), userID, NotificationPayload{Type: "message"}) {
		t.Fatalf("one broken session failed the whole delivery")
	}
}

func TestDeliverStalledConnectionDoesNotBlock(t *testing.T) {
	r := NewRegistry()
	engine := NewEngine(r, 20*time.Millisecond)
	userID := uuid.New()

	stalled := NewSession(userID, &stalledConn{})
	healthy, _ := newFakeSession(userID, true)
	r.Add(stalled)
	r.Add(healthy)

	done := make(chan bool, 1)
	go func() {
		done <- engine.Deliver(context.Background(), userID, NotificationPayload{Type: "message"})
	}()

	select {
	case delivered := <-done:
		if !delivered {
			t.Fatalf("healthy session did not carry the delivery")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Deliver blocked on a session whose peer stopped reading")
	}
}

func TestPresenceBroadcastSurvivesStalledConnection(t *testing.T) {
	r := NewRegistry()
	tracker := NewTracker(r)
	ctx := context.Background()

	stalled := NewSession(uuid.New(), &stalledConn{})
	tracker.Connect(ctx, stalled)

	done := make(chan struct{})
	go func() {
		s, _ := newFakeSession(uuid.New(), false)
		tracker.Connect(ctx, s)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("presence transition blocked behind a stalled connection")
	}
}

func TestDeliverFireAndForget(t *testing.T) {
	r := NewRegistry()
	engine := NewEngine(r, 0)
	userID := uuid.New()

	s, conn := newFakeSession(userID, false)
	r.Add(s)

	if !engine.Deliver(context.Background(), userID, NotificationPayload{Type: "system"}) {
		t.Fatalf("Deliver = false with ack wait disabled")
	}
	if len(conn.named(EventNotification)) != 1 {
		t.Fatalf("notification was not written")
	}
}

func TestSessionAckUnknownEventIsNoop(t *testing.T) {
	s, _ := newFakeSession(uuid.New(), false)
	s.Ack("never-pushed") // must not panic or block
}

func TestSessionPushAfterClose(t *testing.T) {
	s, _ := newFakeSession(uuid.New(), false)
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := s.Push(context.Background(), NewEvent(EventNotification, nil), time.Second); got != PushFailed {
		t.Fatalf("push after close = %v, want PushFailed", got)
	}
}
