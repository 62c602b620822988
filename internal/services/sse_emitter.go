package services

import (
	"context"

	"github.com/univento/leaderboard-service/internal/logger"
	"github.com/univento/leaderboard-service/internal/sse"
	"github.com/univento/leaderboard-service/internal/sse/bus"
)

// SSEEmitter is the capability the score service publishes through. It is
// injected rather than reached as a global so the coordinator can be tested
// without a live transport.
type SSEEmitter interface {
	Emit(ctx context.Context, msg sse.SSEMessage)
}

// HubEmitter delivers straight to the in-process hub (single instance).
type HubEmitter struct{ Hub *sse.SSEHub }

func (e *HubEmitter) Emit(ctx context.Context, msg sse.SSEMessage) {
	e.Hub.Broadcast(msg)
}

// RedisEmitter publishes through the redis bus so every instance's hub sees
// the message. Failures are logged and swallowed: a publish error never
// fails the write that triggered it.
type RedisEmitter struct {
	Bus bus.Bus
	Log *logger.Logger
}

func (e *RedisEmitter) Emit(ctx context.Context, msg sse.SSEMessage) {
	if err := e.Bus.Publish(ctx, msg); err != nil && e.Log != nil {
		e.Log.Warn("SSE publish failed", "channel", msg.Channel, "error", err)
	}
}
