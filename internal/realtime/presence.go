package realtime

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"
)

// StatusListener observes online/offline transitions, e.g. to persist the
// user's status column.
type StatusListener func(ctx context.Context, userID uuid.UUID, status string)

const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Tracker derives presence from registry occupancy. Only the 0->1 and 1->0
// edges emit a user_status broadcast; intermediate session churn is silent.
// Connect/disconnect and their emits are serialized, so a single user's
// transitions are observed in registration order.
type Tracker struct {
	registry  *Registry
	listeners []StatusListener

	// transitions must not interleave between the registry mutation and
	// the resulting broadcast
	mu sync.Mutex
}

func NewTracker(registry *Registry) *Tracker {
	return &Tracker{registry: registry}
}

// OnStatusChange registers a listener. Not safe to call after the tracker
// starts receiving connections.
func (t *Tracker) OnStatusChange(l StatusListener) {
	t.listeners = append(t.listeners, l)
}

// Connect registers the session and, when it is the user's first, announces
// the user as online.
func (t *Tracker) Connect(ctx context.Context, s *Session) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if first := t.registry.Add(s); first {
		t.emit(ctx, s.UserID, StatusOnline)
	}
}

// Disconnect removes the session and, when it was the user's last, announces
// the user as offline.
func (t *Tracker) Disconnect(ctx context.Context, s *Session) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if last := t.registry.Remove(s.UserID, s.ID); last {
		t.emit(ctx, s.UserID, StatusOffline)
	}
}

func (t *Tracker) emit(ctx context.Context, userID uuid.UUID, status string) {
	ev := NewEvent(EventUserStatus, StatusPayload{
		UserID: userID.String(),
		Status: status,
	})

	// Broadcast to every live connection, not just the user's own.
	for _, s := range t.registry.All() {
		if err := s.Send(ev); err != nil {
			log.Printf("presence broadcast to session %s failed: %v", s.ID, err)
		}
	}

	for _, l := range t.listeners {
		l(ctx, userID, status)
	}
}
