package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subflo/subflo/internal/domain"
	"github.com/subflo/subflo/internal/metrics"
	"github.com/subflo/subflo/internal/repository"
	"github.com/subflo/subflo/pkg/logger"
)

func testLogger() *logger.Logger {
	log := logger.New(logger.ERROR)
	log.SetOutput(io.Discard)
	return log
}

// captureProducer records published events instead of writing to Kafka
type captureProducer struct {
	events []capturedEvent
}

type capturedEvent struct {
	topic        string
	subscription domain.Subscription
}

func (p *captureProducer) PublishSubscriptionEvent(_ context.Context, topic string, sub *domain.Subscription) error {
	p.events = append(p.events, capturedEvent{topic: topic, subscription: *sub})
	return nil
}

func (p *captureProducer) Close() error { return nil }

func newTestAccount(t *testing.T, store *repository.InMemoryStore) domain.Account {
	t.Helper()
	account, err := store.CreateAccount(context.Background(), domain.CreateAccountRequest{
		Username: "user-" + uuid.NewString()[:8],
		Email:    "user@example.com",
	})
	require.NoError(t, err)
	return account
}

func newSubscriptionService(store *repository.InMemoryStore, producer *captureProducer) SubscriptionService {
	log := testLogger()
	return NewSubscriptionService(
		store.Subscriptions(),
		store.Accounts(),
		store.Reports(),
		producer,
		metrics.NopMetrics(),
		log,
	)
}

func TestSubscriptionServiceCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("valid request creates and publishes", func(t *testing.T) {
		store := repository.NewInMemoryStore()
		producer := &captureProducer{}
		svc := newSubscriptionService(store, producer)
		account := newTestAccount(t, store)

		sub, err := svc.Create(ctx, domain.CreateSubscriptionRequest{
			UserID:       account.ID,
			PlatformName: "Netflix",
			ServiceName:  "Premium",
			Price:        "15.99",
			EndDate:      "2026-12-31",
		})
		require.NoError(t, err)
		assert.NotZero(t, sub.ID)
		assert.False(t, sub.AlreadyCanceled)

		require.Len(t, producer.events, 1)
		assert.Equal(t, "subscription_created", producer.events[0].topic)
		assert.Equal(t, sub.ID, producer.events[0].subscription.ID)
	})

	t.Run("validation failure reaches neither store nor broker", func(t *testing.T) {
		store := repository.NewInMemoryStore()
		producer := &captureProducer{}
		svc := newSubscriptionService(store, producer)

		_, err := svc.Create(ctx, domain.CreateSubscriptionRequest{
			PlatformName: "Netflix",
		})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		total, err := store.TotalCount(ctx)
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, producer.events)
	})

	t.Run("duplicate tuple conflicts without publishing", func(t *testing.T) {
		store := repository.NewInMemoryStore()
		producer := &captureProducer{}
		svc := newSubscriptionService(store, producer)
		account := newTestAccount(t, store)

		req := domain.CreateSubscriptionRequest{
			UserID:       account.ID,
			PlatformName: "Spotify",
			ServiceName:  "Duo",
			Price:        "12.99",
		}

		_, err := svc.Create(ctx, req)
		require.NoError(t, err)

		_, err = svc.Create(ctx, req)
		assert.ErrorIs(t, err, domain.ErrDuplicate)

		total, err := store.TotalCount(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		assert.Len(t, producer.events, 1)
	})
}

func TestSubscriptionServiceListActive(t *testing.T) {
	ctx := context.Background()
	store := repository.NewInMemoryStore()
	svc := newSubscriptionService(store, &captureProducer{})
	account := newTestAccount(t, store)

	_, err := svc.Create(ctx, domain.CreateSubscriptionRequest{
		UserID:       account.ID,
		PlatformName: "Netflix",
		ServiceName:  "Premium",
		Price:        "15.99",
	})
	require.NoError(t, err)

	t.Run("unknown account is not found", func(t *testing.T) {
		_, err := svc.ListActive(ctx, uuid.NewString())
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("malformed id is invalid input", func(t *testing.T) {
		_, err := svc.ListActive(ctx, "not-a-uuid")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("known account returns its live rows", func(t *testing.T) {
		subs, err := svc.ListActive(ctx, account.ID.String())
		require.NoError(t, err)
		assert.Len(t, subs, 1)
	})
}

func TestSubscriptionServiceListWithCounts(t *testing.T) {
	ctx := context.Background()
	store := repository.NewInMemoryStore()
	svc := newSubscriptionService(store, &captureProducer{})
	account := newTestAccount(t, store)

	inWindow := time.Now().AddDate(0, 0, 3).Format(domain.DateOnly)
	pastEnd := time.Now().AddDate(0, 0, -10).Format(domain.DateOnly)

	mk := func(service, endDate string) {
		t.Helper()
		_, err := svc.Create(ctx, domain.CreateSubscriptionRequest{
			UserID:       account.ID,
			PlatformName: "Netflix",
			ServiceName:  service,
			Price:        "9.99",
			EndDate:      endDate,
		})
		require.NoError(t, err)
	}

	mk("open-ended", "")
	mk("expiring-soon", inWindow)
	mk("expired", pastEnd)

	list, err := svc.List(ctx, domain.SubscriptionFilter{})
	require.NoError(t, err)

	assert.Len(t, list.Subscriptions, 3)
	assert.EqualValues(t, 3, list.Counts.Total)
	assert.EqualValues(t, 2, list.Counts.TotalActive)
	assert.EqualValues(t, 1, list.Counts.SoonToExpire)
}

func TestSubscriptionServiceCancel(t *testing.T) {
	ctx := context.Background()
	store := repository.NewInMemoryStore()
	producer := &captureProducer{}
	svc := newSubscriptionService(store, producer)
	account := newTestAccount(t, store)

	sub, err := svc.Create(ctx, domain.CreateSubscriptionRequest{
		UserID:       account.ID,
		PlatformName: "Hulu",
		ServiceName:  "Basic",
		Price:        "7.99",
	})
	require.NoError(t, err)

	canceled, err := svc.Cancel(ctx, sub.ID)
	require.NoError(t, err)
	assert.True(t, canceled.AlreadyCanceled)

	require.Len(t, producer.events, 2)
	assert.Equal(t, "subscription_cancelled", producer.events[1].topic)
	assert.Equal(t, sub.ID, producer.events[1].subscription.ID)

	_, err = svc.Cancel(ctx, 9999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
