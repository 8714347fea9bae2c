package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/subflo/subflo/internal/domain"
	"github.com/subflo/subflo/pkg/logger"
)

// Default presentation order. DESC puts NULL dates first in Postgres, which
// keeps open-ended subscriptions at the top of every listing.
const subscriptionOrder = `ORDER BY s.user_id, s.end_date DESC, s.start_date DESC, s.platform_name, s.service_name`

const subscriptionColumns = `
	s.id, s.user_id, s.platform_name, s.service_name,
	s.start_date, s.end_date, s.already_canceled, s.is_trial,
	s.price, s.currency, s.payment_method, s.email_message_id,
	s.unsubscribe_link, s.notes, s.created_at, s.updated_at`

// SubscriptionRepository is the PostgreSQL implementation of subscription
// persistence
type SubscriptionRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewSubscriptionRepository creates a new PostgreSQL subscription repository
func NewSubscriptionRepository(db *pgxpool.Pool, log *logger.Logger) *SubscriptionRepository {
	return &SubscriptionRepository{
		db:  db,
		log: log,
	}
}

type subscriptionRow interface {
	Scan(dest ...any) error
}

func scanSubscription(row subscriptionRow) (domain.Subscription, error) {
	var sub domain.Subscription
	var price decimal.NullDecimal

	err := row.Scan(
		&sub.ID,
		&sub.UserID,
		&sub.PlatformName,
		&sub.ServiceName,
		&sub.StartDate,
		&sub.EndDate,
		&sub.AlreadyCanceled,
		&sub.IsTrial,
		&price,
		&sub.Currency,
		&sub.PaymentMethod,
		&sub.EmailMessageID,
		&sub.UnsubscribeLink,
		&sub.Notes,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		return domain.Subscription{}, err
	}

	if price.Valid {
		sub.Price = &price.Decimal
	}
	return sub, nil
}

func collectSubscriptions(rows pgx.Rows) ([]domain.Subscription, error) {
	defer rows.Close()

	var subs []domain.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subscriptions: %w", err)
	}
	return subs, nil
}

// Create inserts a new subscription. The unique constraint over
// (user, platform, service, start_date, end_date) is the arbiter for
// concurrent duplicates; a violation surfaces as ErrDuplicate.
func (r *SubscriptionRepository) Create(ctx context.Context, sub *domain.Subscription) (domain.Subscription, error) {
	query := `
		INSERT INTO subscriptions (
			user_id, platform_name, service_name, start_date, end_date,
			already_canceled, is_trial, price, currency, payment_method,
			email_message_id, unsubscribe_link, notes
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)
		RETURNING id, created_at, updated_at
	`

	var price decimal.NullDecimal
	if sub.Price != nil {
		price = decimal.NullDecimal{Decimal: *sub.Price, Valid: true}
	}

	created := *sub
	err := r.db.QueryRow(ctx, query,
		sub.UserID,
		sub.PlatformName,
		sub.ServiceName,
		sub.StartDate,
		sub.EndDate,
		sub.AlreadyCanceled,
		sub.IsTrial,
		price,
		sub.Currency,
		sub.PaymentMethod,
		sub.EmailMessageID,
		sub.UnsubscribeLink,
		sub.Notes,
	).Scan(&created.ID, &created.CreatedAt, &created.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return domain.Subscription{}, domain.NewDuplicateError(
					"subscription", "platform/service/dates",
					sub.PlatformName+"/"+sub.ServiceName,
				)
			case "23503":
				return domain.Subscription{}, domain.NewNotFoundError("account", sub.UserID.String())
			}
		}
		return domain.Subscription{}, fmt.Errorf("failed to create subscription: %w", err)
	}

	r.log.Debug("Created subscription %d for user %s", created.ID, created.UserID)
	return created, nil
}

// GetByID returns a subscription by ID
func (r *SubscriptionRepository) GetByID(ctx context.Context, id int64) (domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions s WHERE s.id = $1`

	sub, err := scanSubscription(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Subscription{}, domain.NewNotFoundError("subscription", strconv.FormatInt(id, 10))
		}
		return domain.Subscription{}, fmt.Errorf("failed to get subscription: %w", err)
	}
	return sub, nil
}

// GetByUserID returns all subscriptions for an account in default order
func (r *SubscriptionRepository) GetByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + `
		FROM subscriptions s
		WHERE s.user_id = $1 ` + subscriptionOrder

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	return collectSubscriptions(rows)
}

// ListActiveByUserID returns subscriptions that are not canceled and either
// open-ended or ending today or later
func (r *SubscriptionRepository) ListActiveByUserID(ctx context.Context, userID uuid.UUID, today time.Time) ([]domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + `
		FROM subscriptions s
		WHERE s.user_id = $1
		  AND s.already_canceled = FALSE
		  AND (s.end_date IS NULL OR s.end_date >= $2) ` + subscriptionOrder

	rows, err := r.db.Query(ctx, query, userID, today)
	if err != nil {
		return nil, fmt.Errorf("failed to query active subscriptions: %w", err)
	}
	return collectSubscriptions(rows)
}

// List returns subscriptions matching the filter across all accounts.
// TextQuery matches platform, service or the linked message's sender;
// NotesQuery matches notes. Empty queries apply no filter.
func (r *SubscriptionRepository) List(ctx context.Context, filter domain.SubscriptionFilter) ([]domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + `
		FROM subscriptions s
		LEFT JOIN email_messages m ON m.message_id = s.email_message_id
		WHERE 1=1`

	var args []any
	if filter.TextQuery != "" {
		args = append(args, "%"+filter.TextQuery+"%")
		n := strconv.Itoa(len(args))
		query += ` AND (s.platform_name ILIKE $` + n +
			` OR s.service_name ILIKE $` + n +
			` OR m.sender ILIKE $` + n + `)`
	}
	if filter.NotesQuery != "" {
		args = append(args, "%"+filter.NotesQuery+"%")
		query += ` AND s.notes ILIKE $` + strconv.Itoa(len(args))
	}
	query += " " + subscriptionOrder

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	return collectSubscriptions(rows)
}

// Cancel marks a subscription as canceled and returns the updated row
func (r *SubscriptionRepository) Cancel(ctx context.Context, id int64) (domain.Subscription, error) {
	query := `
		UPDATE subscriptions s
		SET already_canceled = TRUE, updated_at = now()
		WHERE s.id = $1
		RETURNING ` + subscriptionColumns

	sub, err := scanSubscription(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Subscription{}, domain.NewNotFoundError("subscription", strconv.FormatInt(id, 10))
		}
		return domain.Subscription{}, fmt.Errorf("failed to cancel subscription: %w", err)
	}

	r.log.Debug("Canceled subscription %d", id)
	return sub, nil
}
