package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/subflo/subflo/internal/domain"
	"github.com/subflo/subflo/pkg/logger"
)

// AccountRepository is the PostgreSQL implementation of account and profile
// persistence
type AccountRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewAccountRepository creates a new PostgreSQL account repository
func NewAccountRepository(db *pgxpool.Pool, log *logger.Logger) *AccountRepository {
	return &AccountRepository{
		db:  db,
		log: log,
	}
}

// Create inserts the account and its profile in one transaction. Every
// account gets exactly one profile; nothing else ever inserts into profiles
// for an existing account.
func (r *AccountRepository) Create(ctx context.Context, req domain.CreateAccountRequest) (domain.Account, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return domain.Account{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	account := domain.Account{
		ID:       uuid.New(),
		Username: req.Username,
		Email:    req.Email,
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO accounts (id, username, email) VALUES ($1, $2, $3) RETURNING created_at`,
		account.ID, account.Username, account.Email,
	).Scan(&account.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.Account{}, domain.NewDuplicateError("account", "username", req.Username)
		}
		return domain.Account{}, fmt.Errorf("failed to insert account: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO profiles (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`,
		account.ID,
	)
	if err != nil {
		return domain.Account{}, fmt.Errorf("failed to insert profile: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Account{}, fmt.Errorf("failed to commit account creation: %w", err)
	}

	r.log.Info("Created account %s (%s)", account.ID, account.Username)
	return account, nil
}

// GetByID returns an account by ID
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	var account domain.Account
	err := r.db.QueryRow(ctx,
		`SELECT id, username, email, created_at FROM accounts WHERE id = $1`,
		id,
	).Scan(&account.ID, &account.Username, &account.Email, &account.CreatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Account{}, domain.NewNotFoundError("account", id.String())
		}
		return domain.Account{}, fmt.Errorf("failed to get account: %w", err)
	}

	return account, nil
}

// Exists reports whether the account ID is known
func (r *AccountRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`,
		id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check account existence: %w", err)
	}
	return exists, nil
}

// Delete removes an account; profiles, subscriptions and email messages
// cascade at the schema level
func (r *AccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.NewNotFoundError("account", id.String())
	}
	return nil
}

// GetProfile returns the profile for an account
func (r *AccountRepository) GetProfile(ctx context.Context, userID uuid.UUID) (domain.UserProfile, error) {
	var profile domain.UserProfile
	var lastProcessed *time.Time

	err := r.db.QueryRow(ctx,
		`SELECT user_id, email_access_granted, last_processed_date FROM profiles WHERE user_id = $1`,
		userID,
	).Scan(&profile.UserID, &profile.EmailAccessGranted, &lastProcessed)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.UserProfile{}, domain.NewNotFoundError("profile", userID.String())
		}
		return domain.UserProfile{}, fmt.Errorf("failed to get profile: %w", err)
	}

	profile.LastProcessedDate = lastProcessed
	return profile, nil
}

// SetEmailAccess flips the email access flag on the profile
func (r *AccountRepository) SetEmailAccess(ctx context.Context, userID uuid.UUID, granted bool) error {
	result, err := r.db.Exec(ctx,
		`UPDATE profiles SET email_access_granted = $1 WHERE user_id = $2`,
		granted, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update email access: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.NewNotFoundError("profile", userID.String())
	}
	return nil
}

// AdvanceWatermark moves last_processed_date forward. An older or equal
// timestamp leaves the row untouched so out-of-order ingestion never rewinds
// progress.
func (r *AccountRepository) AdvanceWatermark(ctx context.Context, userID uuid.UUID, processed time.Time) error {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM profiles WHERE user_id = $1)`,
		userID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check profile existence: %w", err)
	}
	if !exists {
		return domain.NewNotFoundError("profile", userID.String())
	}

	_, err = r.db.Exec(ctx,
		`UPDATE profiles
		 SET last_processed_date = $1
		 WHERE user_id = $2
		   AND (last_processed_date IS NULL OR $1 > last_processed_date)`,
		processed, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to advance watermark: %w", err)
	}
	return nil
}
