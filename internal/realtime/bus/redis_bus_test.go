package bus

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/originality-backend/internal/platform/logger"
	"github.com/yungbote/originality-backend/internal/realtime"
)

func TestRedisBusRoundTrip(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis bus tests")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	b, err := NewRedisBus(ctx, logger.NewNop(), addr, "", "test:"+uuid.NewString())
	if err != nil {
		t.Fatalf("NewRedisBus: %v", err)
	}
	defer b.Close()

	got := make(chan realtime.SSEMessage, 1)
	if err := b.StartForwarder(ctx, func(m realtime.SSEMessage) { got <- m }); err != nil {
		t.Fatalf("StartForwarder: %v", err)
	}
	if err := b.Publish(ctx, realtime.SSEMessage{Channel: "c", Event: realtime.SSEEventJobDone}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	select {
	case m := <-got:
		if m.Event != realtime.SSEEventJobDone || m.Channel != "c" {
			t.Fatalf("got %+v", m)
		}
	case <-ctx.Done():
		t.Fatalf("timed out waiting for message")
	}
}

func TestNewRedisBusRequiresAddr(t *testing.T) {
	if _, err := NewRedisBus(context.Background(), logger.NewNop(), " ", "", ""); err == nil {
		t.Fatalf("expected error")
	}
}
