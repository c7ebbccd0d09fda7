package realtime

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Engine pushes notification events to a user's live sessions.
//
// Delivery is best-effort and never retried: a miss is an expected outcome
// and the durable unread list is the recovery path for offline clients.
type Engine struct {
	registry   *Registry
	ackTimeout time.Duration
}

// NewEngine builds a delivery engine. ackTimeout bounds how long each push
// waits for a client ack; zero disables acks (write success counts).
func NewEngine(registry *Registry, ackTimeout time.Duration) *Engine {
	return &Engine{
		registry:   registry,
		ackTimeout: ackTimeout,
	}
}

// Deliver pushes the payload to every live session of the user and reports
// whether at least one session accepted it. No live sessions is not an
// error, just a false result. A push failing on one session (closed,
// timed out) never fails the whole call.
func (e *Engine) Deliver(ctx context.Context, userID uuid.UUID, payload NotificationPayload) bool {
	sessions := e.registry.SessionsOf(userID)
	if len(sessions) == 0 {
		return false
	}

	ev := NewEvent(EventNotification, payload)
	ev.ID = uuid.NewString()

	var delivered atomic.Bool
	var wg sync.WaitGroup
	for _, s := range sessions {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			switch s.Push(ctx, ev, e.ackTimeout) {
			case PushAcked:
				delivered.Store(true)
			case PushTimedOut:
				log.Printf("delivery to session %s of user %s timed out", s.ID, userID)
			case PushFailed:
				log.Printf("delivery to session %s of user %s failed", s.ID, userID)
			}
		}(s)
	}
	wg.Wait()

	return delivered.Load()
}

// ActiveSessionCount reports how many live sessions the user currently has.
func (e *Engine) ActiveSessionCount(userID uuid.UUID) int {
	return e.registry.ActiveSessionCount(userID)
}
