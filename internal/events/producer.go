package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	UserRegistered = "user.registered"
	UserVerified   = "user.verified"
	UserLoggedIn   = "user.logged_in"
)

// Event is the envelope written to the account events topic.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	UserID     string    `json:"userId"`
	Provider   string    `json:"provider,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Producer writes account lifecycle events. A nil Producer is valid and
// drops everything, so callers never branch on whether Kafka is enabled.
type Producer struct {
	writer *kafkago.Writer
	log    *zap.Logger
}

func NewProducer(brokers []string, topic string, log *zap.Logger) *Producer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireOne,
		Async:        false,
	}
	return &Producer{writer: w, log: log}
}

// Publish emits one event, best effort. Broker failures are logged and
// swallowed so account operations never fail on the event path.
func (p *Producer) Publish(ctx context.Context, eventType, userID, provider string) {
	if p == nil {
		return
	}
	ev := Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		UserID:     userID,
		Provider:   provider,
		OccurredAt: time.Now().UTC(),
	}
	b, err := json.Marshal(ev)
	if err != nil {
		p.log.Error("failed to marshal event", zap.String("type", eventType), zap.Error(err))
		return
	}
	msg := kafkago.Message{
		Key:   []byte(userID),
		Value: b,
		Time:  ev.OccurredAt,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Warn("failed to publish event",
			zap.String("type", eventType), zap.String("userId", userID), zap.Error(err))
	}
}

func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
