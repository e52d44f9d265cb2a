package kafka

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// AuthEvent is published on successful logins and logouts. Delivery is
// best effort: a broker outage never fails the login itself.
type AuthEvent struct {
	Type       string    `json:"type"`
	TelegramID int64     `json:"telegram_id"`
	Flow       string    `json:"flow,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

const (
	EventUserLoggedIn  = "auth.user_logged_in"
	EventUserLoggedOut = "auth.user_logged_out"
)

// Producer wraps a kafka-go writer for auth events.
type Producer struct {
	writer *kafka.Writer
	topic  string
	logger *zap.Logger
}

func NewProducer(brokers []string, topic string, logger *zap.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	}
	return &Producer{writer: writer, topic: topic, logger: logger}
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// PublishAuthEvent serializes and sends one event, keyed by telegram id
// so per-user events stay ordered within a partition.
func (p *Producer) PublishAuthEvent(ctx context.Context, event AuthEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: p.topic,
		Key:   []byte(strconv.FormatInt(event.TelegramID, 10)),
		Value: value,
		Time:  event.Timestamp,
	})
	if err != nil {
		p.logger.Error("Failed to publish auth event",
			zap.Error(err),
			zap.String("event_type", event.Type),
			zap.Int64("telegram_id", event.TelegramID),
		)
		return err
	}
	return nil
}
