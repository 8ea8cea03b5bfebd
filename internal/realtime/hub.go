package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/originality-backend/internal/platform/logger"
)

type SSEEvent string

const (
	SSEEventJobCreated  SSEEvent = "JobCreated"
	SSEEventJobProgress SSEEvent = "JobProgress"
	SSEEventJobFailed   SSEEvent = "JobFailed"
	SSEEventJobDone     SSEEvent = "JobDone"

	SSEEventAnalysisProgress SSEEvent = "AnalysisProgress"
	SSEEventAnalysisDone     SSEEvent = "AnalysisDone"

	SSEEventRewriteDelta SSEEvent = "RewriteDelta"
	SSEEventRewriteDone  SSEEvent = "RewriteDone"
	SSEEventError        SSEEvent = "Error"
)

type SSEMessage struct {
	Channel string   `json:"channel"`
	Event   SSEEvent `json:"event"`
	Data    any      `json:"data,omitempty"`
}

const (
	defaultOutboundBuffer = 64
	defaultHeartbeat      = 15 * time.Second
)

type SSEHub struct {
	mu            sync.RWMutex
	logger        *logger.Logger
	subscriptions map[string]map[*SSEClient]bool
	heartbeat     time.Duration
}

func NewSSEHub(log *logger.Logger) *SSEHub {
	return &SSEHub{
		logger:        log.With("component", "SSEHub"),
		subscriptions: make(map[string]map[*SSEClient]bool),
		heartbeat:     defaultHeartbeat,
	}
}

// SetHeartbeat changes the ping interval for connections served afterwards.
func (hub *SSEHub) SetHeartbeat(d time.Duration) {
	if d <= 0 {
		return
	}
	hub.mu.Lock()
	defer hub.mu.Unlock()
	hub.heartbeat = d
}

func (hub *SSEHub) heartbeatInterval() time.Duration {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return hub.heartbeat
}

func (hub *SSEHub) NewSSEClient(userID uuid.UUID) *SSEClient {
	id := uuid.New()
	return &SSEClient{
		ID:       id,
		UserID:   userID,
		Channels: make(map[string]bool),
		Outbound: make(chan SSEMessage, defaultOutboundBuffer),
		done:     make(chan struct{}),
		Logger:   hub.logger.With("clientID", id.String()),
	}
}

func (hub *SSEHub) AddChannel(client *SSEClient, channel string) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	channel = strings.TrimSpace(channel)
	if channel == "" || client.closed {
		return
	}
	client.Channels[channel] = true

	clients, exists := hub.subscriptions[channel]
	if !exists {
		clients = make(map[*SSEClient]bool)
		hub.subscriptions[channel] = clients
	}
	clients[client] = true
	hub.logger.Debug("SSE client subscribed", "clientID", client.ID, "channel", channel)
}

func (hub *SSEHub) RemoveChannel(client *SSEClient, channel string) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	channel = strings.TrimSpace(channel)
	if channel == "" {
		return
	}
	delete(client.Channels, channel)
	hub.unsubscribeLocked(client, channel)
}

func (hub *SSEHub) unsubscribeLocked(client *SSEClient, channel string) {
	if subMap, ok := hub.subscriptions[channel]; ok {
		delete(subMap, client)
		if len(subMap) == 0 {
			delete(hub.subscriptions, channel)
		}
	}
}

// Broadcast never blocks; a client whose buffer is full misses the message.
func (hub *SSEHub) Broadcast(msg SSEMessage) {
	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if msg.Channel == "" {
		return
	}
	for c := range hub.subscriptions[msg.Channel] {
		select {
		case c.Outbound <- msg:
		default:
			hub.logger.Warn("Dropping SSE message; outbound buffer full", "clientID", c.ID, "event", string(msg.Event))
		}
	}
}

// Subscribers reports how many clients listen on channel.
func (hub *SSEHub) Subscribers(channel string) int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.subscriptions[channel])
}

func (hub *SSEHub) ServeHTTP(w http.ResponseWriter, r *http.Request, client *SSEClient) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported!", http.StatusInternalServerError)
		return
	}
	ctx := r.Context()

	_, _ = fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(hub.heartbeatInterval())
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			hub.logger.Debug("SSE client context done", "clientID", client.ID, "err", ctx.Err())
			return
		case <-client.done:
			return
		case <-heartbeat.C:
			_, _ = fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case msg, ok := <-client.Outbound:
			if !ok {
				return
			}
			if err := WriteEvent(w, msg); err != nil {
				hub.logger.Warn("Failed to write SSE message", "error", err)
				continue
			}
			flusher.Flush()
		}
	}
}

// WriteEvent writes one message in text/event-stream framing.
func WriteEvent(w http.ResponseWriter, msg SSEMessage) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Event, raw)
	return err
}

// CloseClient unsubscribes the client and closes its outbound channel. Safe
// to call more than once.
func (hub *SSEHub) CloseClient(client *SSEClient) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	if client.closed {
		return
	}
	client.closed = true
	for ch := range client.Channels {
		hub.unsubscribeLocked(client, ch)
	}
	client.Channels = make(map[string]bool)
	close(client.done)
	close(client.Outbound)
	hub.logger.Debug("SSE client closed", "clientID", client.ID)
}
