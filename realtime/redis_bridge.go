package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the Redis channel every instance publishes events to.
const DefaultChannel = "matchdesk:events"

// envelope is the Redis form of a hub message.
type envelope struct {
	Origin  string          `json:"origin"`
	Room    string          `json:"room"`
	Message json.RawMessage `json:"message"`
}

// RedisBridge fans events out to the websocket subscribers of every instance.
// Each event is delivered to the local hub directly and to the other instances
// through Redis pub/sub; an instance ignores its own envelopes.
type RedisBridge struct {
	client     *redis.Client
	hub        *Hub
	channel    string
	instanceID string
	logger     *slog.Logger
}

// NewRedisBridge connects to redisURL and checks the connection.
func NewRedisBridge(redisURL string, hub *Hub, logger *slog.Logger) (*RedisBridge, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return NewWithClient(client, hub, logger), nil
}

// NewWithClient creates a bridge over an existing client (for testing).
func NewWithClient(client *redis.Client, hub *Hub, logger *slog.Logger) *RedisBridge {
	return &RedisBridge{
		client:     client,
		hub:        hub,
		channel:    DefaultChannel,
		instanceID: uuid.NewString(),
		logger:     logger,
	}
}

// Start subscribes to the channel and forwards remote events to the local hub
// until ctx is done. The subscription is active when Start returns.
func (b *RedisBridge) Start(ctx context.Context) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
	}

	go func() {
		defer pubsub.Close()
		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				b.forward(msg.Payload)
			}
		}
	}()
	return nil
}

func (b *RedisBridge) forward(raw string) {
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		b.logger.Warn("dropping malformed event from redis", slog.Any("error", err))
		return
	}
	if env.Origin == b.instanceID {
		return
	}
	b.hub.BroadcastToRoom(env.Room, env.Message)
}

// Publish implements the services' event publisher.
func (b *RedisBridge) Publish(ctx context.Context, tournamentID uuid.UUID, eventType string, payload interface{}) {
	room := RoomForTournament(tournamentID)
	message, err := encodeMessage(room, eventType, payload)
	if err != nil {
		b.logger.ErrorContext(ctx, "failed to encode event", slog.String("type", eventType), slog.Any("error", err))
		return
	}
	b.hub.BroadcastToRoom(room, message)

	data, err := json.Marshal(envelope{Origin: b.instanceID, Room: room, Message: message})
	if err != nil {
		b.logger.ErrorContext(ctx, "failed to encode envelope", slog.Any("error", err))
		return
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		b.logger.WarnContext(ctx, "failed to publish event to redis",
			slog.String("type", eventType), slog.Any("error", err))
	}
}

// Close closes the Redis connection.
func (b *RedisBridge) Close() error {
	return b.client.Close()
}
