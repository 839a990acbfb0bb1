package ws

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/gyanguru/gyanguru-backend/apperrors"
	"github.com/gyanguru/gyanguru-backend/models"
	"github.com/gyanguru/gyanguru-backend/utils"
)

// TokenVerifier validates the access token passed as ?token=.
type TokenVerifier interface {
	VerifyToken(token string) (*utils.Claims, error)
}

// RoomLookup loads a room, closing it first if it has expired.
type RoomLookup interface {
	Get(ctx context.Context, roomID uuid.UUID) (*models.DoubtRoom, error)
}

type Handler struct {
	hub      *Hub
	tokens   TokenVerifier
	rooms    RoomLookup
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler accepts upgrades only from allowedOrigins; an empty list
// accepts any origin.
func NewHandler(hub *Hub, tokens TokenVerifier, rooms RoomLookup, allowedOrigins []string, logger *slog.Logger) *Handler {
	return &Handler{
		hub:    hub,
		tokens: tokens,
		rooms:  rooms,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if len(allowed) == 0 || origin == "" {
			return true
		}
		for _, a := range allowed {
			if strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}

func (h *Handler) authenticate(c *gin.Context) (*utils.Claims, bool) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return nil, false
	}
	claims, err := h.tokens.VerifyToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return nil, false
	}
	return claims, true
}

// HandleRoom streams one doubt room's messages, votes and status changes.
func (h *Handler) HandleRoom(c *gin.Context) {
	claims, ok := h.authenticate(c)
	if !ok {
		return
	}
	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}
	room, err := h.rooms.Get(c.Request.Context(), roomID)
	if err != nil {
		c.JSON(apperrors.HTTPStatus(err), gin.H{"error": apperrors.Message(err)})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}
	client := h.hub.joinRoom(roomID, claims.UserID, conn)
	h.logger.Info("Room WS connected", "room_id", roomID, "user_id", claims.UserID)

	client.sendJSON(Message{Type: "connected", RoomID: roomID.String(), Data: gin.H{"status": room.Status}})
	go h.hub.writePump(client)
	h.hub.readPump(client)

	h.logger.Info("Room WS disconnected", "room_id", roomID, "user_id", claims.UserID)
}

// HandleLobby streams room creation and closing for the open room list.
func (h *Handler) HandleLobby(c *gin.Context) {
	claims, ok := h.authenticate(c)
	if !ok {
		return
	}
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}
	client := h.hub.joinLobby(claims.UserID, conn)

	client.sendJSON(Message{Type: "connected"})
	go h.hub.writePump(client)
	h.hub.readPump(client)
}
