package distributed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// EventChannel carries rating events between instances.
const EventChannel = "ktladder:events"

// Event is the envelope published on EventChannel.
type Event struct {
	Type      string          `json:"type"`
	Source    string          `json:"source"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// EventBridge Redis Pub/Sub 기반 이벤트 중계
//
// Events published here reach every other subscribed instance; an instance never
// receives its own events back.
type EventBridge struct {
	client     redis.UniversalClient
	logger     *zap.SugaredLogger
	instanceID string
	channel    string
}

// NewEventBridge 이벤트 브리지 생성
func NewEventBridge(client redis.UniversalClient, logger *zap.SugaredLogger) *EventBridge {
	return &EventBridge{
		client:     client,
		logger:     logger,
		instanceID: uuid.NewString(),
		channel:    EventChannel,
	}
}

// Publish sends an event without blocking the caller for long.
// Failures are logged; events are best effort.
func (b *EventBridge) Publish(eventType string, payload interface{}) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := b.PublishContext(ctx, eventType, payload); err != nil {
		b.logger.Warnw("Failed to publish event", "type", eventType, "error", err)
	}
}

// PublishContext 이벤트 발행
func (b *EventBridge) PublishContext(ctx context.Context, eventType string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	data, err := json.Marshal(Event{
		Type:      eventType,
		Source:    b.instanceID,
		Payload:   raw,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debugw("Published event", "type", eventType)
	return nil
}

// Run forwards events from other instances to handler until ctx is done.
func (b *EventBridge) Run(ctx context.Context, handler func(Event)) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	b.logger.Infow("Event bridge started", "instanceId", b.instanceID, "channel", b.channel)

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.logger.Errorw("Failed to unmarshal event", "error", err)
				continue
			}
			if event.Source == b.instanceID {
				continue
			}

			handler(event)

		case <-ctx.Done():
			b.logger.Infow("Event bridge stopped")
			return ctx.Err()
		}
	}
}
