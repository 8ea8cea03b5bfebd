package handlers

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/originality-backend/internal/http/response"
	"github.com/yungbote/originality-backend/internal/platform/ctxutil"
	"github.com/yungbote/originality-backend/internal/platform/logger"
	"github.com/yungbote/originality-backend/internal/realtime"
)

type RealtimeHandler struct {
	log *logger.Logger
	hub *realtime.SSEHub

	mu      sync.Mutex
	clients map[uuid.UUID]*realtime.SSEClient // key: session id
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub) *RealtimeHandler {
	return &RealtimeHandler{
		log:     log.With("handler", "RealtimeHandler"),
		hub:     hub,
		clients: make(map[uuid.UUID]*realtime.SSEClient),
	}
}

// GET /api/sse/stream
func (h *RealtimeHandler) SSEStream(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("not authenticated"))
		return
	}
	// Query-token sessions may lack a session id; fall back to one per connection.
	sessionID := rd.SessionID
	if sessionID == uuid.Nil {
		sessionID = uuid.New()
	}

	h.mu.Lock()
	if existing, ok := h.clients[sessionID]; ok {
		h.hub.CloseClient(existing)
		delete(h.clients, sessionID)
	}
	client := h.hub.NewSSEClient(rd.UserID)
	client.Logger = h.log.With("sse_client_id", client.ID.String())
	h.clients[sessionID] = client
	h.mu.Unlock()

	h.log.Debug("SSE stream open", "user_id", rd.UserID.String(), "session_id", sessionID.String())
	h.hub.AddChannel(client, realtime.UserChannel(rd.UserID))

	h.hub.ServeHTTP(c.Writer, c.Request, client)

	h.mu.Lock()
	if h.clients[sessionID] == client {
		delete(h.clients, sessionID)
	}
	h.mu.Unlock()
	h.hub.CloseClient(client)
}

// Sessions reports open streams.
func (h *RealtimeHandler) Sessions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
