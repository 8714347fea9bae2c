package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/subflo/subflo/internal/domain"
)

// Accessor views exposing the shared store through the repository
// interfaces. Services hold the interfaces; tests and demo wiring hold the
// store.

// Accounts returns the store as an AccountRepository
func (s *InMemoryStore) Accounts() AccountRepository { return inMemoryAccounts{s} }

// Subscriptions returns the store as a SubscriptionRepository
func (s *InMemoryStore) Subscriptions() SubscriptionRepository { return inMemorySubscriptions{s} }

// Emails returns the store as an EmailRepository
func (s *InMemoryStore) Emails() EmailRepository { return inMemoryEmails{s} }

// Reports returns the store as a ReportRepository
func (s *InMemoryStore) Reports() ReportRepository { return s }

type inMemoryAccounts struct{ store *InMemoryStore }

func (a inMemoryAccounts) Create(ctx context.Context, req domain.CreateAccountRequest) (domain.Account, error) {
	return a.store.CreateAccount(ctx, req)
}

func (a inMemoryAccounts) GetByID(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	return a.store.GetAccountByID(ctx, id)
}

func (a inMemoryAccounts) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return a.store.AccountExists(ctx, id)
}

func (a inMemoryAccounts) Delete(ctx context.Context, id uuid.UUID) error {
	return a.store.DeleteAccount(ctx, id)
}

func (a inMemoryAccounts) GetProfile(ctx context.Context, userID uuid.UUID) (domain.UserProfile, error) {
	return a.store.GetProfile(ctx, userID)
}

func (a inMemoryAccounts) SetEmailAccess(ctx context.Context, userID uuid.UUID, granted bool) error {
	return a.store.SetEmailAccess(ctx, userID, granted)
}

func (a inMemoryAccounts) AdvanceWatermark(ctx context.Context, userID uuid.UUID, processed time.Time) error {
	return a.store.AdvanceWatermark(ctx, userID, processed)
}

type inMemorySubscriptions struct{ store *InMemoryStore }

func (r inMemorySubscriptions) Create(ctx context.Context, sub *domain.Subscription) (domain.Subscription, error) {
	return r.store.CreateSubscription(ctx, sub)
}

func (r inMemorySubscriptions) GetByID(ctx context.Context, id int64) (domain.Subscription, error) {
	return r.store.GetSubscriptionByID(ctx, id)
}

func (r inMemorySubscriptions) GetByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Subscription, error) {
	return r.store.GetSubscriptionsByUserID(ctx, userID)
}

func (r inMemorySubscriptions) ListActiveByUserID(ctx context.Context, userID uuid.UUID, today time.Time) ([]domain.Subscription, error) {
	return r.store.ListActiveSubscriptions(ctx, userID, today)
}

func (r inMemorySubscriptions) List(ctx context.Context, filter domain.SubscriptionFilter) ([]domain.Subscription, error) {
	return r.store.ListSubscriptions(ctx, filter)
}

func (r inMemorySubscriptions) Cancel(ctx context.Context, id int64) (domain.Subscription, error) {
	return r.store.CancelSubscription(ctx, id)
}

type inMemoryEmails struct{ store *InMemoryStore }

func (r inMemoryEmails) Create(ctx context.Context, msg *domain.EmailMessage) error {
	return r.store.CreateEmail(ctx, msg)
}

func (r inMemoryEmails) GetByID(ctx context.Context, messageID string) (domain.EmailMessage, error) {
	return r.store.GetEmailByID(ctx, messageID)
}

func (r inMemoryEmails) AttachParsedData(ctx context.Context, messageID string, data domain.ParsedData) error {
	return r.store.AttachParsedData(ctx, messageID, data)
}

func (r inMemoryEmails) Delete(ctx context.Context, messageID string) error {
	return r.store.DeleteEmail(ctx, messageID)
}
