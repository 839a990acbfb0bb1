package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gyanguru/gyanguru-backend/apperrors"
	"github.com/gyanguru/gyanguru-backend/events"
	"github.com/gyanguru/gyanguru-backend/models"
	"github.com/gyanguru/gyanguru-backend/repositories"
)

const (
	RoomEventMessage = "message"
	RoomEventVote    = "vote"
	RoomEventStatus  = "status"
	RoomEventBest    = "best_answer"
	RoomEventCreated = "room_created"
	RoomEventClosed  = "room_closed"
)

// RoomNotifier pushes live updates to clients watching a room or the room list.
type RoomNotifier interface {
	NotifyRoom(roomID uuid.UUID, kind string, payload interface{})
	NotifyLobby(kind string, payload interface{})
}

type CreateRoomRequest struct {
	Topic       string   `json:"topic" binding:"required,max=200"`
	Description string   `json:"description"`
	ExpiryHours *float64 `json:"expiry_hours" binding:"omitempty,gt=0,lte=168"`
}

type PostMessageRequest struct {
	Text string `json:"message" binding:"required"`
	Type string `json:"type" binding:"omitempty,oneof=text image code"`
}

type RoomSummary struct {
	ID           uuid.UUID `json:"id"`
	Topic        string    `json:"topic"`
	CreatorID    uuid.UUID `json:"creator_id"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiryTime   time.Time `json:"expiry_time"`
	MessageCount int       `json:"message_count"`
}

// Reconcile closes a room whose expiry has passed. It reports whether the
// room changed and needs saving. Rooms are only ever closed this way, on
// access, never by a background sweep.
func Reconcile(room *models.DoubtRoom, now time.Time) bool {
	if room.Status == models.RoomClosed || !now.After(room.ExpiryTime) {
		return false
	}
	room.Status = models.RoomClosed
	closedAt := now
	room.ClosedAt = &closedAt
	return true
}

type DoubtRoomService struct {
	rooms         repositories.DoubtRoomRepository
	users         repositories.UserRepository
	notifier      RoomNotifier
	publisher     events.Publisher
	defaultExpiry time.Duration
	now           func() time.Time
	logger        *slog.Logger
}

func NewDoubtRoomService(rooms repositories.DoubtRoomRepository, users repositories.UserRepository, notifier RoomNotifier, publisher events.Publisher, defaultExpiry time.Duration, logger *slog.Logger) *DoubtRoomService {
	if defaultExpiry <= 0 {
		defaultExpiry = 2 * time.Hour
	}
	return &DoubtRoomService{
		rooms:         rooms,
		users:         users,
		notifier:      notifier,
		publisher:     publisher,
		defaultExpiry: defaultExpiry,
		now:           time.Now,
		logger:        logger,
	}
}

func (s *DoubtRoomService) WithClock(now func() time.Time) *DoubtRoomService {
	s.now = now
	return s
}

func (s *DoubtRoomService) Create(ctx context.Context, creatorID uuid.UUID, req CreateRoomRequest) (*models.DoubtRoom, error) {
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return nil, apperrors.Validation("topic", "is required")
	}
	expiry := s.defaultExpiry
	if req.ExpiryHours != nil {
		if *req.ExpiryHours <= 0 {
			return nil, apperrors.Validation("expiry_hours", "must be positive")
		}
		expiry = time.Duration(*req.ExpiryHours * float64(time.Hour))
	}

	now := s.now()
	room := &models.DoubtRoom{
		CreatorID:   creatorID,
		Topic:       topic,
		Description: req.Description,
		Status:      models.RoomActive,
		ExpiryTime:  now.Add(expiry),
		CreatedAt:   now,
	}
	if err := s.rooms.Create(ctx, room); err != nil {
		return nil, err
	}
	s.logger.Info("Doubt room created", "room_id", room.ID, "creator_id", creatorID, "expiry_time", room.ExpiryTime)
	s.notifyLobby(RoomEventCreated, summarize(room))
	return room, nil
}

// Get reads a room and persists the lazy close if its expiry has passed.
func (s *DoubtRoomService) Get(ctx context.Context, roomID uuid.UUID) (*models.DoubtRoom, error) {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if err := s.reconcile(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

func (s *DoubtRoomService) reconcile(ctx context.Context, room *models.DoubtRoom) error {
	if !Reconcile(room, s.now()) {
		return nil
	}
	if err := s.rooms.Save(ctx, room); err != nil {
		return fmt.Errorf("close expired room: %w", err)
	}
	s.logger.Info("Doubt room closed on expiry", "room_id", room.ID)
	s.notifyRoom(room.ID, RoomEventStatus, map[string]interface{}{"status": room.Status, "closed_at": room.ClosedAt})
	s.notifyLobby(RoomEventClosed, map[string]interface{}{"id": room.ID})
	publish(ctx, s.publisher, s.logger, events.NewEvent(events.DoubtRoomClosed, room.CreatorID, map[string]interface{}{"room_id": room.ID}))
	return nil
}

// ListOpen returns active rooms, closing the expired ones it comes across.
func (s *DoubtRoomService) ListOpen(ctx context.Context) ([]RoomSummary, error) {
	rooms, err := s.rooms.ListByStatus(ctx, models.RoomActive)
	if err != nil {
		return nil, err
	}
	out := make([]RoomSummary, 0, len(rooms))
	for i := range rooms {
		if err := s.reconcile(ctx, &rooms[i]); err != nil {
			return nil, err
		}
		if rooms[i].Status == models.RoomActive {
			out = append(out, summarize(&rooms[i]))
		}
	}
	return out, nil
}

func (s *DoubtRoomService) PostMessage(ctx context.Context, authorID, roomID uuid.UUID, req PostMessageRequest) (*models.DoubtMessage, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, apperrors.Validation("message", "is required")
	}
	room, err := s.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.Status == models.RoomClosed {
		return nil, apperrors.Conflict("doubt room is closed")
	}

	msgType := req.Type
	if msgType == "" {
		msgType = "text"
	}
	msg := &models.DoubtMessage{
		RoomID:      room.ID,
		UserID:      authorID,
		MessageType: msgType,
		Text:        text,
		CreatedAt:   s.now(),
	}
	if err := s.rooms.AddMessage(ctx, msg); err != nil {
		return nil, err
	}
	s.notifyRoom(room.ID, RoomEventMessage, msg)
	return msg, nil
}

func voteDelta(direction string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(direction)) {
	case "", "up":
		return 1, nil
	case "down":
		return -1, nil
	}
	return 0, apperrors.Validation("vote_type", "must be up or down")
}

// Vote moves a message's count by one. Downvotes stop at zero. Closed rooms,
// including ones that expire on this read, take no votes.
func (s *DoubtRoomService) Vote(ctx context.Context, roomID, messageID uuid.UUID, direction string) (int, error) {
	delta, err := voteDelta(direction)
	if err != nil {
		return 0, err
	}
	room, err := s.Get(ctx, roomID)
	if err != nil {
		return 0, err
	}
	if room.Status == models.RoomClosed {
		return 0, apperrors.Conflict("doubt room is closed")
	}
	msg, err := s.messageInRoom(ctx, roomID, messageID)
	if err != nil {
		return 0, err
	}
	votes, err := s.rooms.ApplyVote(ctx, msg.ID, delta)
	if err != nil {
		return 0, err
	}
	s.notifyRoom(roomID, RoomEventVote, map[string]interface{}{"message_id": msg.ID, "votes": votes})
	return votes, nil
}

// Escalate points the room at a teacher. Only the creator may do it and the
// room status is left alone.
func (s *DoubtRoomService) Escalate(ctx context.Context, actorID, roomID, teacherID uuid.UUID) (*models.DoubtRoom, error) {
	room, err := s.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.CreatorID != actorID {
		return nil, apperrors.Forbidden("only the room creator can escalate")
	}
	teacher, err := s.users.GetByID(ctx, teacherID)
	if errors.Is(err, apperrors.ErrNotFound) || (err == nil && teacher.Role != models.RoleTeacher) {
		return nil, apperrors.NotFound("teacher not found")
	}
	if err != nil {
		return nil, err
	}

	room.TeacherID = &teacher.ID
	if err := s.rooms.Save(ctx, room); err != nil {
		return nil, err
	}
	s.logger.Info("Doubt room escalated", "room_id", room.ID, "teacher_id", teacher.ID)
	s.notifyRoom(room.ID, RoomEventStatus, map[string]interface{}{"status": room.Status, "teacher_id": teacher.ID})
	return room, nil
}

// MarkBestAnswer flags one message as the answer and resolves the room.
func (s *DoubtRoomService) MarkBestAnswer(ctx context.Context, actorID, roomID, messageID uuid.UUID) (*models.DoubtRoom, error) {
	room, err := s.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.CreatorID != actorID {
		return nil, apperrors.Forbidden("only the room creator can pick the best answer")
	}
	if room.Status == models.RoomClosed {
		return nil, apperrors.Conflict("doubt room is closed")
	}
	if _, err := s.messageInRoom(ctx, roomID, messageID); err != nil {
		return nil, err
	}

	room.Status = models.RoomResolved
	if err := s.rooms.MarkBestAnswer(ctx, room, messageID); err != nil {
		return nil, err
	}
	for i := range room.Messages {
		room.Messages[i].IsBestAnswer = room.Messages[i].ID == messageID
	}
	s.notifyRoom(room.ID, RoomEventBest, map[string]interface{}{"message_id": messageID, "status": room.Status})
	return room, nil
}

func (s *DoubtRoomService) messageInRoom(ctx context.Context, roomID, messageID uuid.UUID) (*models.DoubtMessage, error) {
	msg, err := s.rooms.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.RoomID != roomID {
		return nil, apperrors.NotFound("message not found")
	}
	return msg, nil
}

func (s *DoubtRoomService) notifyRoom(roomID uuid.UUID, kind string, payload interface{}) {
	if s.notifier != nil {
		s.notifier.NotifyRoom(roomID, kind, payload)
	}
}

func (s *DoubtRoomService) notifyLobby(kind string, payload interface{}) {
	if s.notifier != nil {
		s.notifier.NotifyLobby(kind, payload)
	}
}

func summarize(room *models.DoubtRoom) RoomSummary {
	return RoomSummary{
		ID:           room.ID,
		Topic:        room.Topic,
		CreatorID:    room.CreatorID,
		CreatedAt:    room.CreatedAt,
		ExpiryTime:   room.ExpiryTime,
		MessageCount: len(room.Messages),
	}
}
