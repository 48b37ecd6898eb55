package realtime

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"

	"visitor_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultChannel = "realtime:appointments"

type envelope struct {
	Room    string          `json:"room"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// RedisTransport publishes events on a Redis channel. Every API instance runs Run to forward the
// channel into its local hub, so a client sees events emitted on any instance.
type RedisTransport struct {
	client  *redis.Client
	channel string
	local   *Hub
	log     *logger.Logger
}

func NewRedisTransport(client *redis.Client, channel string, local *Hub, log *logger.Logger) *RedisTransport {
	if channel == "" {
		channel = defaultChannel
	}
	return &RedisTransport{client: client, channel: channel, local: local, log: log}
}

// NewRedisClient builds a client from a redis:// or rediss:// URL.
func NewRedisClient(redisURL string, tlsInsecure bool) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if tlsInsecure {
		if opt.TLSConfig == nil {
			opt.TLSConfig = &tls.Config{}
		}
		opt.TLSConfig.InsecureSkipVerify = true
	}
	return redis.NewClient(opt), nil
}

func (t *RedisTransport) EmitToRoom(ctx context.Context, room, event string, payload any) error {
	data, err := encodePayload(payload)
	if err != nil {
		return err
	}
	msg, err := json.Marshal(envelope{Room: room, Event: event, Payload: data})
	if err != nil {
		return err
	}
	return t.client.Publish(ctx, t.channel, msg).Err()
}

func (t *RedisTransport) EmitBroadcast(ctx context.Context, tenantID uuid.UUID, event string, payload any) error {
	return t.EmitToRoom(ctx, TenantRoom(tenantID), event, payload)
}

// Run forwards published events to the local hub until ctx is done.
func (t *RedisTransport) Run(ctx context.Context) error {
	sub := t.client.Subscribe(ctx, t.channel)
	defer func() {
		_ = sub.Close()
	}()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", t.channel, err)
	}
	t.log.Info("realtime redis fan-out started", "channel", t.channel)

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				t.log.Warn("invalid realtime envelope", "error", err)
				continue
			}
			t.local.deliver(env.Room, Message{Event: env.Event, Payload: env.Payload})
		}
	}
}
