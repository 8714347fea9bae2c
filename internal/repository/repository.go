package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/subflo/subflo/internal/domain"
)

// AccountRepository persists accounts and their one-to-one profiles.
// Create must insert the account and its profile as a single unit.
type AccountRepository interface {
	Create(ctx context.Context, req domain.CreateAccountRequest) (domain.Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Account, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error

	GetProfile(ctx context.Context, userID uuid.UUID) (domain.UserProfile, error)
	SetEmailAccess(ctx context.Context, userID uuid.UUID, granted bool) error
	// AdvanceWatermark moves last_processed_date forward; an older timestamp
	// is a no-op.
	AdvanceWatermark(ctx context.Context, userID uuid.UUID, processed time.Time) error
}

// SubscriptionRepository persists subscriptions. Create relies on the store's
// unique constraint over (user, platform, service, start_date, end_date) and
// reports a violation as domain.ErrDuplicate.
type SubscriptionRepository interface {
	Create(ctx context.Context, sub *domain.Subscription) (domain.Subscription, error)
	GetByID(ctx context.Context, id int64) (domain.Subscription, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Subscription, error)
	ListActiveByUserID(ctx context.Context, userID uuid.UUID, today time.Time) ([]domain.Subscription, error)
	List(ctx context.Context, filter domain.SubscriptionFilter) ([]domain.Subscription, error)
	Cancel(ctx context.Context, id int64) (domain.Subscription, error)
}

// EmailRepository persists inbound email messages
type EmailRepository interface {
	Create(ctx context.Context, msg *domain.EmailMessage) error
	GetByID(ctx context.Context, messageID string) (domain.EmailMessage, error)
	// AttachParsedData stores the parsing output and stamps created_at
	AttachParsedData(ctx context.Context, messageID string, data domain.ParsedData) error
	Delete(ctx context.Context, messageID string) error
}

// ReportRepository answers the aggregation queries behind the dashboard and
// the chart endpoints. An empty result set is valid, never an error.
type ReportRepository interface {
	TotalCount(ctx context.Context) (int64, error)
	TotalActiveCount(ctx context.Context, today time.Time) (int64, error)
	TotalActiveTrialCount(ctx context.Context, today time.Time) (int64, error)
	// SoonToExpireCount counts non-canceled subscriptions with an end date in
	// [today, today+horizon]. A zero userID counts across all accounts.
	SoonToExpireCount(ctx context.Context, userID uuid.UUID, today time.Time, horizonDays int) (int64, error)
	CostByPaymentMethod(ctx context.Context) ([]domain.PaymentMethodCost, error)
	MonthlyCostSeries(ctx context.Context, year int) ([]decimal.Decimal, error)
	SubscriptionCountByPlatform(ctx context.Context) ([]domain.PlatformCount, error)
	MonthlySubscriptionCounts(ctx context.Context, year int) ([]int64, error)
}
