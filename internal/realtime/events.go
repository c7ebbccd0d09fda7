package realtime

import "time"

// Wire event names. These are a stable contract with clients.
const (
	EventNotification = "notification"
	EventUserStatus   = "user_status"
	EventConnected    = "notifications:connected"

	// EventAck is sent client -> server to acknowledge a pushed event.
	EventAck = "ack"
)

// Event is the envelope for every server -> client frame.
type Event struct {
	ID        string    `json:"id,omitempty"`
	Event     string    `json:"event"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

func NewEvent(name string, data any) Event {
	return Event{
		Event:     name,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// NotificationPayload is the data of a "notification" event.
type NotificationPayload struct {
	NotificationID string         `json:"notification_id"`
	Title          string         `json:"title"`
	Body           string         `json:"body"`
	Type           string         `json:"type"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// StatusPayload is the data of a "user_status" event.
type StatusPayload struct {
	UserID string `json:"user_id"`
	Status string `json:"status"`
}

// ClientFrame is what the server expects back from clients (acks, pings).
type ClientFrame struct {
	Event string `json:"event"`
	ID    string `json:"id,omitempty"`
}
