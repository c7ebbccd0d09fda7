package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrSessionClosed = errors.New("session closed")

// writeWait bounds every write to the peer. A client that stopped reading
// fails its write instead of blocking the session's write lock forever.
const writeWait = 10 * time.Second

// Conn abstracts the underlying websocket connection.
// *websocket.Conn from gorilla satisfies it.
type Conn interface {
	WriteJSON(v any) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// PushResult is the outcome of a single push to one session.
type PushResult int

const (
	PushAcked PushResult = iota
	PushTimedOut
	PushFailed
)

// Session is one live connection of a user. A user may hold several
// sessions concurrently (multi-device). Sessions are never persisted.
type Session struct {
	ID          string
	UserID      uuid.UUID
	ConnectedAt time.Time

	conn    Conn
	writeMu sync.Mutex

	ackMu   sync.Mutex
	pending map[string]chan struct{}

	closeOnce sync.Once
	closed    chan struct{}
}

func NewSession(userID uuid.UUID, conn Conn) *Session {
	return &Session{
		ID:          uuid.NewString(),
		UserID:      userID,
		ConnectedAt: time.Now(),
		conn:        conn,
		pending:     make(map[string]chan struct{}),
		closed:      make(chan struct{}),
	}
}

// Send writes an event to the connection without waiting for an ack.
func (s *Session) Send(ev Event) error {
	select {
	case <-s.closed:
		return ErrSessionClosed
	default:
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return s.conn.WriteJSON(ev)
}

// Push sends an event and waits for the client ack up to ackTimeout.
// A non-positive timeout degrades to fire-and-forget, where a successful
// write counts as accepted.
func (s *Session) Push(ctx context.Context, ev Event, ackTimeout time.Duration) PushResult {
	if ackTimeout <= 0 {
		if err := s.Send(ev); err != nil {
			return PushFailed
		}
		return PushAcked
	}

	ackCh := s.expectAck(ev.ID)
	defer s.forgetAck(ev.ID)

	if err := s.Send(ev); err != nil {
		return PushFailed
	}

	timer := time.NewTimer(ackTimeout)
	defer timer.Stop()

	select {
	case <-ackCh:
		return PushAcked
	case <-timer.C:
		return PushTimedOut
	case <-s.closed:
		return PushFailed
	case <-ctx.Done():
		return PushFailed
	}
}

// Ack resolves a pending push. Called from the connection's read loop when
// the client sends an ack frame.
func (s *Session) Ack(eventID string) {
	s.ackMu.Lock()
	ch, ok := s.pending[eventID]
	if ok {
		delete(s.pending, eventID)
	}
	s.ackMu.Unlock()

	if ok {
		close(ch)
	}
}

// Close tears the session down. Safe to call more than once.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		err = s.conn.Close()
	})
	return err
}

func (s *Session) expectAck(eventID string) chan struct{} {
	ch := make(chan struct{})
	s.ackMu.Lock()
	s.pending[eventID] = ch
	s.ackMu.Unlock()
	return ch
}

func (s *Session) forgetAck(eventID string) {
	s.ackMu.Lock()
	delete(s.pending, eventID)
	s.ackMu.Unlock()
}
