package audit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Lifecycle and notification event types emitted by the engine.
const (
	EventLogin             = "login"
	EventLoginDenied       = "login_denied"
	EventLogout            = "logout"
	EventLogoutAll         = "logout_all"
	EventTokenExpired      = "token_expired"
	EventRefreshRotated    = "refresh_rotated"
	EventReplayDetected    = "replay_detected"
	EventRotationThrottled = "rotation_throttled"
	EventLimitExceeded     = "limit_exceeded"
)

// Expired-token notification kinds carried on EventTokenExpired.
const (
	ExpiredAuthToken    = "auth_token"
	ExpiredOtherToken   = "other_token"
	ExpiredRefreshToken = "refresh_token"
)

// Event is the canonical notification model used by internal dispatching
// and root APIs. TokenKey carries a lookup key, never a digest or secret.
type Event struct {
	EventID     string            `json:"event_id"`
	Timestamp   time.Time         `json:"timestamp"`
	EventType   string            `json:"event_type"`
	PrincipalID string            `json:"principal_id,omitempty"`
	TokenKey    string            `json:"token_key,omitempty"`
	ExpiredKind string            `json:"expired_kind,omitempty"`
	Success     bool              `json:"success"`
	Error       string            `json:"error,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// NewEvent stamps an event with an ID and timestamp.
func NewEvent(eventType string) Event {
	return Event{
		EventID:   uuid.NewString(),
		Timestamp: time.Now().UTC(),
		EventType: eventType,
	}
}

// Sink receives emitted events.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// NoOpSink drops events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink writes events into a buffered channel.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan Event, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(ctx context.Context, event Event) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}
