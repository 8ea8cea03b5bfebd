package realtime

import (
	"github.com/google/uuid"

	"github.com/yungbote/originality-backend/internal/platform/logger"
)

type SSEClient struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Channels map[string]bool
	Outbound chan SSEMessage
	done     chan struct{}
	// guarded by SSEHub.mu
	closed bool
	Logger *logger.Logger
}

// UserChannel is the channel every user's progress events are published on.
func UserChannel(userID uuid.UUID) string {
	return "user:" + userID.String()
}
