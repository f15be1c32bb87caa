package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/example/grocery-sync/internal/realtime"
)

const DefaultHeartbeatInterval = 10 * time.Second

type heartbeat struct {
	At time.Time `json:"at"`
}

// Heartbeat broadcasts a Heartbeat envelope every interval until ctx ends.
// Consoles treat a longer silence than their liveness timeout as a drop,
// so the interval must stay well below it.
func Heartbeat(ctx context.Context, pub EnvelopePublisher, interval time.Duration, logger *zap.Logger) error {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	logger = logger.Named("heartbeat")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			env, err := realtime.NewEnvelope(realtime.EventHeartbeat, "", heartbeat{At: now.UTC()})
			if err != nil {
				return err
			}
			if err := pub.PublishEvent(ctx, env); err != nil && ctx.Err() == nil {
				logger.Warn("publishing heartbeat", zap.Error(err))
			}
		}
	}
}
