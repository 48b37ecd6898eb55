package realtime

import (
	"context"

	apphttp "visitor_backend/internal/http"
	"visitor_backend/platform/logger"

	"github.com/redis/go-redis/v9"
)

// Module serves the realtime stream and owns the notifier.
type Module struct {
	Hub      *Hub
	Notifier *Notifier
	fanout   *RedisTransport
}

// NewModule creates the realtime module. With a Redis client, emissions go through Redis so every
// API instance sees them; without one they stay on the local hub.
func NewModule(redisClient *redis.Client, channel string, recorder Recorder, log *logger.Logger) *Module {
	hub := NewHub(log)
	m := &Module{Hub: hub}

	var transport Transport = hub
	if redisClient != nil {
		m.fanout = NewRedisTransport(redisClient, channel, hub, log)
		transport = m.fanout
	}
	m.Notifier = NewNotifier(transport, recorder, log)
	return m
}

func (m *Module) Name() string {
	return "realtime"
}

// RegisterRoutes mounts GET /api/v1/realtime/stream for signed-in accounts.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/realtime/stream", m.Hub.Handler())
}

// Run forwards the Redis channel into the local hub. It returns at once without Redis.
func (m *Module) Run(ctx context.Context) error {
	if m.fanout == nil {
		return nil
	}
	return m.fanout.Run(ctx)
}

var _ apphttp.Module = (*Module)(nil)
