package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Handler processes one event. A returned error is logged and the message is
// still committed; handlers that need retries keep their own state.
type Handler func(ctx context.Context, event Event) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ConsumerConfig configures a KafkaConsumer
type ConsumerConfig struct {
	Broker  string
	Topic   string
	GroupID string
}

// KafkaConsumer handles Kafka message consumption
type KafkaConsumer struct {
	reader  messageReader
	backoff time.Duration
	log     *logrus.Entry
}

// NewKafkaConsumer creates a consumer-group reader on the events topic
func NewKafkaConsumer(cfg ConsumerConfig) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        []string{cfg.Broker},
		Topic:          cfg.Topic,
		GroupID:        cfg.GroupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		CommitInterval: time.Second,
	})
	return newConsumer(reader)
}

func newConsumer(reader messageReader) *KafkaConsumer {
	return &KafkaConsumer{
		reader:  reader,
		backoff: time.Second,
		log:     logrus.WithField("component", "kafka-consumer"),
	}
}

// Run consumes events until ctx is cancelled
func (kc *KafkaConsumer) Run(ctx context.Context, handle Handler) error {
	kc.log.Info("Starting event consumer...")

	for {
		msg, err := kc.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			kc.log.WithError(err).Error("Error reading event message")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(kc.backoff):
			}
			continue
		}

		var event Event
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			kc.log.WithError(err).WithField("offset", msg.Offset).Warn("Skipping malformed event")
		} else if err := handle(ctx, event); err != nil {
			kc.log.WithFields(logrus.Fields{
				"event_id":   event.ID,
				"event_type": event.Type,
				"hostel_id":  event.HostelID,
			}).WithError(err).Error("Event handler failed")
		}

		if err := kc.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			kc.log.WithError(err).Warn("Failed to commit event offset")
		}
	}
}

// Close closes the Kafka consumer
func (kc *KafkaConsumer) Close() error {
	if err := kc.reader.Close(); err != nil {
		return fmt.Errorf("failed to close event reader: %w", err)
	}
	return nil
}
