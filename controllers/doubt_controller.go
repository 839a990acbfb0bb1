package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gyanguru/gyanguru-backend/models"
	"github.com/gyanguru/gyanguru-backend/services"
)

type DoubtRoomAPI interface {
	Create(ctx context.Context, creatorID uuid.UUID, req services.CreateRoomRequest) (*models.DoubtRoom, error)
	Get(ctx context.Context, roomID uuid.UUID) (*models.DoubtRoom, error)
	ListOpen(ctx context.Context) ([]services.RoomSummary, error)
	PostMessage(ctx context.Context, authorID, roomID uuid.UUID, req services.PostMessageRequest) (*models.DoubtMessage, error)
	Vote(ctx context.Context, roomID, messageID uuid.UUID, direction string) (int, error)
	Escalate(ctx context.Context, actorID, roomID, teacherID uuid.UUID) (*models.DoubtRoom, error)
	MarkBestAnswer(ctx context.Context, actorID, roomID, messageID uuid.UUID) (*models.DoubtRoom, error)
}

type DoubtController struct {
	rooms DoubtRoomAPI
}

func NewDoubtController(rooms DoubtRoomAPI) *DoubtController {
	return &DoubtController{rooms: rooms}
}

type voteInput struct {
	Direction string `json:"direction" binding:"required,vote_direction"`
}

type escalateInput struct {
	TeacherID uuid.UUID `json:"teacher_id" binding:"required"`
}

func (dc *DoubtController) CreateRoom(c *gin.Context) {
	me, ok := actor(c)
	if !ok {
		return
	}
	var req services.CreateRoomRequest
	if !bindJSON(c, &req) {
		return
	}
	room, err := dc.rooms.Create(c.Request.Context(), me.ID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, room)
}

func (dc *DoubtController) ListOpen(c *gin.Context) {
	rooms, err := dc.rooms.ListOpen(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms, "total": len(rooms)})
}

func (dc *DoubtController) GetRoom(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	room, err := dc.rooms.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (dc *DoubtController) PostMessage(c *gin.Context) {
	me, ok := actor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req services.PostMessageRequest
	if !bindJSON(c, &req) {
		return
	}
	msg, err := dc.rooms.PostMessage(c.Request.Context(), me.ID, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// POST /api/doubt/:id/message/:message_id/vote {"direction": "up"|"down"}
func (dc *DoubtController) Vote(c *gin.Context) {
	roomID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	messageID, ok := uuidParam(c, "message_id")
	if !ok {
		return
	}
	var in voteInput
	if !bindJSON(c, &in) {
		return
	}
	votes, err := dc.rooms.Vote(c.Request.Context(), roomID, messageID, in.Direction)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message_id": messageID, "votes": votes})
}

func (dc *DoubtController) MarkBestAnswer(c *gin.Context) {
	me, ok := actor(c)
	if !ok {
		return
	}
	roomID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	messageID, ok := uuidParam(c, "message_id")
	if !ok {
		return
	}
	room, err := dc.rooms.MarkBestAnswer(c.Request.Context(), me.ID, roomID, messageID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (dc *DoubtController) Escalate(c *gin.Context) {
	me, ok := actor(c)
	if !ok {
		return
	}
	roomID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var in escalateInput
	if !bindJSON(c, &in) {
		return
	}
	room, err := dc.rooms.Escalate(c.Request.Context(), me.ID, roomID, in.TeacherID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}
