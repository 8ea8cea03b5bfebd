package realtime

import (
	"context"

	"github.com/google/uuid"
)

type Emitter interface {
	Emit(ctx context.Context, msg SSEMessage)
}

type HubEmitter struct{ Hub *SSEHub }

func (e *HubEmitter) Emit(ctx context.Context, msg SSEMessage) {
	e.Hub.Broadcast(msg)
}

// Publisher is the subset of bus.Bus the emitter needs.
type Publisher interface {
	Publish(ctx context.Context, msg SSEMessage) error
}

// BusEmitter publishes to a cross-instance bus; the local hub receives the
// message back through the bus forwarder.
type BusEmitter struct {
	Bus      Publisher
	Fallback *SSEHub
}

func (e *BusEmitter) Emit(ctx context.Context, msg SSEMessage) {
	if err := e.Bus.Publish(ctx, msg); err != nil && e.Fallback != nil {
		e.Fallback.Broadcast(msg)
	}
}

// NopEmitter drops everything. Used by the CLI.
type NopEmitter struct{}

func (NopEmitter) Emit(context.Context, SSEMessage) {}

// ToUser is a small helper for the common case.
func ToUser(ctx context.Context, e Emitter, userID uuid.UUID, event SSEEvent, data any) {
	if e == nil || userID == uuid.Nil {
		return
	}
	e.Emit(ctx, SSEMessage{Channel: UserChannel(userID), Event: event, Data: data})
}
