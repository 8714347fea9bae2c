package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/subflo/subflo/internal/domain"
	"github.com/subflo/subflo/pkg/logger"
)

// EmailIngestor is the part of the email service the consumer drives.
type EmailIngestor interface {
	IngestEmail(ctx context.Context, req domain.IngestEmailRequest) (*domain.EmailMessage, error)
	AttachParsedData(ctx context.Context, messageID string, data domain.ParsedData) (*domain.EmailMessage, error)
}

// parsedEventPayload is the wire shape of an email_parsed event.
type parsedEventPayload struct {
	MessageID  string            `json:"message_id"`
	ParsedData domain.ParsedData `json:"parsed_data"`
}

// Consumer reads email events off Kafka and feeds them to the email service.
type Consumer struct {
	brokers  []string
	groupID  string
	ingestor EmailIngestor
	log      *logger.Logger
}

// NewConsumer creates a consumer for the email topics.
func NewConsumer(brokers []string, groupID string, ingestor EmailIngestor, log *logger.Logger) (*Consumer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are not configured")
	}
	if groupID == "" {
		groupID = "subflo-email-ingest"
	}
	return &Consumer{
		brokers:  brokers,
		groupID:  groupID,
		ingestor: ingestor,
		log:      log,
	}, nil
}

// Run consumes email_received and email_parsed until ctx is canceled.
// It blocks; callers run it in a goroutine.
func (c *Consumer) Run(ctx context.Context) {
	done := make(chan struct{}, 2)

	go func() {
		c.consumeTopic(ctx, TopicEmailReceived, c.handleReceived)
		done <- struct{}{}
	}()
	go func() {
		c.consumeTopic(ctx, TopicEmailParsed, c.handleParsed)
		done <- struct{}{}
	}()

	<-done
	<-done
}

func (c *Consumer) consumeTopic(ctx context.Context, topic string, handle func(context.Context, []byte) error) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        c.brokers,
		GroupID:        c.groupID,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
	})
	defer reader.Close()

	c.log.Info("Kafka consumer started, topic: %s, group: %s", topic, c.groupID)

	for {
		message, err := reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				c.log.Info("Kafka consumer stopping, topic: %s", topic)
				return
			}
			c.log.Error("Failed to read message from %s: %v", topic, err)
			continue
		}

		if err := handle(ctx, message.Value); err != nil {
			// Bad events are logged and skipped, not retried: the offset
			// is already committed and replaying them would fail the same way.
			c.log.Error("Failed to handle message from %s at offset %d: %v", topic, message.Offset, err)
		}
	}
}

func (c *Consumer) handleReceived(ctx context.Context, value []byte) error {
	var req domain.IngestEmailRequest
	if err := json.Unmarshal(value, &req); err != nil {
		return err
	}

	_, err := c.ingestor.IngestEmail(ctx, req)
	if errors.Is(err, domain.ErrDuplicate) {
		// Redelivery of an already stored message is expected.
		c.log.Debug("Skipping already ingested message: %s", req.MessageID)
		return nil
	}
	return err
}

func (c *Consumer) handleParsed(ctx context.Context, value []byte) error {
	var payload parsedEventPayload
	if err := json.Unmarshal(value, &payload); err != nil {
		return err
	}

	_, err := c.ingestor.AttachParsedData(ctx, payload.MessageID, payload.ParsedData)
	return err
}
