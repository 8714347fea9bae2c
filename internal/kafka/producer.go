package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/subflo/subflo/internal/domain"
	"github.com/subflo/subflo/pkg/logger"
)

// Topics published and consumed by the subscription tracker.
const (
	TopicEmailReceived         = "email_received"
	TopicEmailParsed           = "email_parsed"
	TopicSubscriptionCreated   = "subscription_created"
	TopicSubscriptionCancelled = "subscription_cancelled"
)

// Producer publishes subscription lifecycle events.
type Producer interface {
	// PublishSubscriptionEvent sends one event to the given topic.
	// The subscription id is used as the message key so events for the
	// same subscription land in the same partition.
	PublishSubscriptionEvent(ctx context.Context, topic string, subscription *domain.Subscription) error
	Close() error
}

type kafkaProducer struct {
	writer *kafka.Writer
	log    *logger.Logger
}

// NewKafkaProducer creates a producer connected to the given brokers.
func NewKafkaProducer(brokers []string, log *logger.Logger) (Producer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are not configured")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
	}

	log.Info("Kafka producer initialized, brokers: %v", brokers)

	return &kafkaProducer{writer: writer, log: log}, nil
}

func (k *kafkaProducer) PublishSubscriptionEvent(ctx context.Context, topic string, subscription *domain.Subscription) error {
	messageKey := []byte(strconv.FormatInt(subscription.ID, 10))

	messageValue, err := json.Marshal(subscription)
	if err != nil {
		k.log.Error("Failed to marshal subscription %d for topic %s: %v", subscription.ID, topic, err)
		return fmt.Errorf("kafka: failed to marshal message data: %w", err)
	}

	message := kafka.Message{
		Topic: topic,
		Key:   messageKey,
		Value: messageValue,
		Time:  time.Now(),
	}

	writeCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if err := k.writer.WriteMessages(writeCtx, message); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			k.log.Error("Kafka write timeout, topic: %s, subscription: %d", topic, subscription.ID)
			return fmt.Errorf("kafka: write timeout: %w", err)
		}
		k.log.Error("Failed to write message to topic %s: %v", topic, err)
		return fmt.Errorf("kafka: failed to write message: %w", err)
	}

	k.log.Debug("Published event to %s, subscription: %d", topic, subscription.ID)
	return nil
}

func (k *kafkaProducer) Close() error {
	k.log.Info("Closing Kafka producer writer...")
	if err := k.writer.Close(); err != nil {
		k.log.Error("Failed to close Kafka writer: %v", err)
		return fmt.Errorf("kafka: failed to close writer: %w", err)
	}
	return nil
}

// NopProducer returns a producer that drops every event. It is used when
// Kafka is unavailable and in tests.
func NopProducer() Producer {
	return nopProducer{}
}

type nopProducer struct{}

func (nopProducer) PublishSubscriptionEvent(context.Context, string, *domain.Subscription) error {
	return nil
}

func (nopProducer) Close() error { return nil }
