// Package events carries domain events between services over watermill.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	UserRegistered   Type = "user.registered"
	AttemptCompleted Type = "attempt.completed"
	SubmissionGraded Type = "submission.graded"
	DoubtRoomClosed  Type = "doubt_room.closed"
)

type Event struct {
	ID        string                 `json:"id"`
	Type      Type                   `json:"type"`
	Source    string                 `json:"source"`
	Timestamp time.Time              `json:"timestamp"`
	UserID    string                 `json:"user_id,omitempty"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
}

func NewEvent(eventType Type, userID uuid.UUID, payload map[string]interface{}) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    "gyanguru-backend",
		Timestamp: time.Now().UTC(),
		UserID:    userID.String(),
		Payload:   payload,
	}
}

type Publisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}
