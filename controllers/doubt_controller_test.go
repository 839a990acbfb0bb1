package controllers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/gyanguru/gyanguru-backend/apperrors"
	"github.com/gyanguru/gyanguru-backend/models"
	"github.com/gyanguru/gyanguru-backend/services"
)

type stubRooms struct {
	DoubtRoomAPI
	votes  map[uuid.UUID]int
	closed bool
}

func (s *stubRooms) Create(_ context.Context, creatorID uuid.UUID, req services.CreateRoomRequest) (*models.DoubtRoom, error) {
	return &models.DoubtRoom{ID: uuid.New(), CreatorID: creatorID, Topic: req.Topic, Status: models.RoomActive, ExpiryTime: time.Now().Add(2 * time.Hour)}, nil
}

func (s *stubRooms) PostMessage(_ context.Context, authorID, roomID uuid.UUID, req services.PostMessageRequest) (*models.DoubtMessage, error) {
	if s.closed {
		return nil, apperrors.Conflict("doubt room is closed")
	}
	return &models.DoubtMessage{ID: uuid.New(), RoomID: roomID, UserID: authorID, Text: req.Text}, nil
}

func (s *stubRooms) Vote(_ context.Context, _, messageID uuid.UUID, direction string) (int, error) {
	if direction == "up" {
		s.votes[messageID]++
	} else if s.votes[messageID] > 0 {
		s.votes[messageID]--
	}
	return s.votes[messageID], nil
}

func TestDoubtEndpoints(t *testing.T) {
	me := uuid.New()
	rooms := &stubRooms{votes: map[uuid.UUID]int{}}
	dc := NewDoubtController(rooms)

	r := gin.New()
	g := r.Group("/doubt", as(me, models.RoleStudent))
	g.POST("", dc.CreateRoom)
	g.POST("/:id/message", dc.PostMessage)
	g.POST("/:id/message/:message_id/vote", dc.Vote)

	w := doJSON(r, http.MethodPost, "/doubt", map[string]interface{}{"topic": "Why is the sky blue?", "expiry_hours": 500})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPost, "/doubt", map[string]interface{}{"topic": "Why is the sky blue?"})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, me.String(), decode(t, w)["creator_id"])

	roomID := uuid.New()
	w = doJSON(r, http.MethodPost, "/doubt/"+roomID.String()+"/message", map[string]string{"message": "Rayleigh scattering"})
	assert.Equal(t, http.StatusCreated, w.Code)

	rooms.closed = true
	w = doJSON(r, http.MethodPost, "/doubt/"+roomID.String()+"/message", map[string]string{"message": "late"})
	assert.Equal(t, http.StatusConflict, w.Code)

	msgID := uuid.New()
	votePath := "/doubt/" + roomID.String() + "/message/" + msgID.String() + "/vote"
	w = doJSON(r, http.MethodPost, votePath, map[string]string{"direction": "sideways"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPost, votePath, map[string]string{"direction": "down"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, decode(t, w)["votes"])

	w = doJSON(r, http.MethodPost, votePath, map[string]string{"direction": "up"})
	assert.EqualValues(t, 1, decode(t, w)["votes"])
}
