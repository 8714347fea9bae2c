package kafka

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subflo/subflo/internal/domain"
	"github.com/subflo/subflo/pkg/logger"
)

type fakeIngestor struct {
	ingested  []domain.IngestEmailRequest
	ingestErr error

	attached map[string]domain.ParsedData
	attachErr error
}

func (f *fakeIngestor) IngestEmail(_ context.Context, req domain.IngestEmailRequest) (*domain.EmailMessage, error) {
	if f.ingestErr != nil {
		return nil, f.ingestErr
	}
	f.ingested = append(f.ingested, req)
	return &domain.EmailMessage{MessageID: req.MessageID}, nil
}

func (f *fakeIngestor) AttachParsedData(_ context.Context, messageID string, data domain.ParsedData) (*domain.EmailMessage, error) {
	if f.attachErr != nil {
		return nil, f.attachErr
	}
	if f.attached == nil {
		f.attached = make(map[string]domain.ParsedData)
	}
	f.attached[messageID] = data
	return &domain.EmailMessage{MessageID: messageID}, nil
}

func newTestConsumer(t *testing.T, ingestor EmailIngestor) *Consumer {
	t.Helper()
	log := logger.New(logger.ERROR)
	log.SetOutput(io.Discard)

	consumer, err := NewConsumer([]string{"localhost:9092"}, "test-group", ingestor, log)
	require.NoError(t, err)
	return consumer
}

func TestNewConsumerRequiresBrokers(t *testing.T) {
	log := logger.New(logger.ERROR)
	log.SetOutput(io.Discard)

	_, err := NewConsumer(nil, "", &fakeIngestor{}, log)
	assert.Error(t, err)
}

func TestHandleReceived(t *testing.T) {
	ctx := context.Background()

	t.Run("valid payload is ingested", func(t *testing.T) {
		ingestor := &fakeIngestor{}
		consumer := newTestConsumer(t, ingestor)

		payload, err := json.Marshal(domain.IngestEmailRequest{
			UserID:       uuid.New(),
			MessageID:    "msg-k-1",
			Subject:      "Receipt",
			ReceivedDate: time.Now().UTC(),
		})
		require.NoError(t, err)

		require.NoError(t, consumer.handleReceived(ctx, payload))
		require.Len(t, ingestor.ingested, 1)
		assert.Equal(t, "msg-k-1", ingestor.ingested[0].MessageID)
	})

	t.Run("duplicate delivery is not an error", func(t *testing.T) {
		ingestor := &fakeIngestor{ingestErr: domain.NewDuplicateError("email message", "message_id", "msg-k-1")}
		consumer := newTestConsumer(t, ingestor)

		payload, err := json.Marshal(domain.IngestEmailRequest{MessageID: "msg-k-1"})
		require.NoError(t, err)

		assert.NoError(t, consumer.handleReceived(ctx, payload))
	})

	t.Run("malformed payload is an error", func(t *testing.T) {
		consumer := newTestConsumer(t, &fakeIngestor{})
		assert.Error(t, consumer.handleReceived(ctx, []byte("{not json")))
	})
}

func TestHandleParsed(t *testing.T) {
	ctx := context.Background()
	ingestor := &fakeIngestor{}
	consumer := newTestConsumer(t, ingestor)

	payload, err := json.Marshal(parsedEventPayload{
		MessageID: "msg-k-2",
		ParsedData: domain.ParsedData{
			"platform_name": "Netflix",
			"price":         "15.99",
		},
	})
	require.NoError(t, err)

	require.NoError(t, consumer.handleParsed(ctx, payload))
	require.Contains(t, ingestor.attached, "msg-k-2")
	assert.Equal(t, "Netflix", ingestor.attached["msg-k-2"]["platform_name"])
}
