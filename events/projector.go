package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

// PerformanceRecomputer rebuilds a student's performance row.
type PerformanceRecomputer interface {
	RecomputePerformance(ctx context.Context, studentID uuid.UUID) error
}

// PerformanceProjector refreshes performance rows when attempts complete or
// submissions are graded.
type PerformanceProjector struct {
	subscriber message.Subscriber
	topic      string
	target     PerformanceRecomputer
	logger     *slog.Logger
}

func NewPerformanceProjector(subscriber message.Subscriber, topic string, target PerformanceRecomputer, logger *slog.Logger) *PerformanceProjector {
	return &PerformanceProjector{subscriber: subscriber, topic: topic, target: target, logger: logger}
}

// Run consumes until ctx is cancelled or the subscriber closes.
func (p *PerformanceProjector) Run(ctx context.Context) error {
	messages, err := p.subscriber.Subscribe(ctx, p.topic)
	if err != nil {
		return err
	}
	for msg := range messages {
		p.handle(msg)
		msg.Ack()
	}
	return nil
}

func (p *PerformanceProjector) handle(msg *message.Message) {
	var event Event
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		p.logger.Warn("Dropping malformed event", "message_id", msg.UUID, "error", err)
		return
	}
	if event.Type != AttemptCompleted && event.Type != SubmissionGraded {
		return
	}

	studentID, err := uuid.Parse(event.UserID)
	if err != nil {
		p.logger.Warn("Event without student id", "event_id", event.ID, "event_type", event.Type)
		return
	}
	if err := p.target.RecomputePerformance(msg.Context(), studentID); err != nil {
		p.logger.Error("Failed to recompute performance", "student_id", studentID, "event_type", event.Type, "error", err)
		return
	}
	p.logger.Debug("Performance recomputed", "student_id", studentID, "event_type", event.Type)
}
