package bus

import (
	"context"

	"github.com/univento/leaderboard-service/internal/sse"
)

// Bus carries score-update messages between instances so every instance's
// hub can fan them out to its own subscribers.
type Bus interface {
	Publish(ctx context.Context, msg sse.SSEMessage) error
	StartForwarder(ctx context.Context, onMsg func(m sse.SSEMessage)) error
	Close() error
}
