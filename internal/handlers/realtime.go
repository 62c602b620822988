package handlers

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/univento/leaderboard-service/internal/apierr"
	"github.com/univento/leaderboard-service/internal/logger"
	"github.com/univento/leaderboard-service/internal/requestdata"
	"github.com/univento/leaderboard-service/internal/sse"
)

// RealtimeHandler exposes the event score channels over SSE. A client
// opens one stream, then joins or leaves per-event channels explicitly;
// messages go only to currently-joined subscribers, with no replay for
// late joiners (they re-fetch the leaderboard over REST).
type RealtimeHandler struct {
	Log *logger.Logger
	Hub *sse.SSEHub

	mu      sync.RWMutex
	clients map[uuid.UUID]*sse.SSEClient // one stream per user
}

func NewRealtimeHandler(log *logger.Logger, hub *sse.SSEHub) *RealtimeHandler {
	return &RealtimeHandler{
		Log:     log.With("handler", "RealtimeHandler"),
		Hub:     hub,
		clients: make(map[uuid.UUID]*sse.SSEClient),
	}
}

// ChannelRequest is the typed body of the join/leave endpoints.
type ChannelRequest struct {
	EventID uuid.UUID `json:"eventId"`
}

// GET /realtime/stream
func (h *RealtimeHandler) Stream(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, apierr.New(http.StatusUnauthorized, "", errors.New("not authenticated")))
		return
	}
	userID := rd.UserID

	h.mu.Lock()
	// A reconnect replaces the previous stream for this user.
	if existing, ok := h.clients[userID]; ok {
		h.Hub.CloseClient(existing)
		delete(h.clients, userID)
	}
	client := h.Hub.NewSSEClient(userID)
	h.clients[userID] = client
	h.mu.Unlock()

	h.Log.Debug("SSE stream open", "user_id", userID)
	h.Hub.ServeHTTP(c.Writer, c.Request, client)

	h.mu.Lock()
	if h.clients[userID] == client {
		delete(h.clients, userID)
	}
	h.mu.Unlock()
	h.Hub.CloseClient(client)
}

// POST /realtime/join
func (h *RealtimeHandler) JoinEvent(c *gin.Context) {
	client, req, ok := h.clientAndRequest(c)
	if !ok {
		return
	}
	channel := sse.EventChannel(req.EventID)
	h.Hub.AddChannel(client, channel)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "joined", "channel": channel})
}

// POST /realtime/leave
func (h *RealtimeHandler) LeaveEvent(c *gin.Context) {
	client, req, ok := h.clientAndRequest(c)
	if !ok {
		return
	}
	channel := sse.EventChannel(req.EventID)
	h.Hub.RemoveChannel(client, channel)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "left", "channel": channel})
}

func (h *RealtimeHandler) clientAndRequest(c *gin.Context) (*sse.SSEClient, ChannelRequest, bool) {
	var req ChannelRequest

	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, apierr.New(http.StatusUnauthorized, "", errors.New("not authenticated")))
		return nil, req, false
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.EventID == uuid.Nil {
		RespondError(c, apierr.Validation("invalid event id"))
		return nil, req, false
	}

	h.mu.RLock()
	client, exists := h.clients[rd.UserID]
	h.mu.RUnlock()
	if !exists {
		RespondError(c, apierr.Conflict("no active stream for this user"))
		return nil, req, false
	}
	return client, req, true
}
