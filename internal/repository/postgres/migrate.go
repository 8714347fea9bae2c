package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/subflo/subflo/pkg/logger"
)

// Uniqueness over (user_id, platform_name, service_name, start_date, end_date)
// must treat NULL dates as equal, otherwise two open-ended rows for the same
// platform/service would both insert. NULLS NOT DISTINCT requires Postgres 15.
const schema = `
CREATE TABLE IF NOT EXISTS accounts (
    id UUID PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    email TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS profiles (
    user_id UUID PRIMARY KEY REFERENCES accounts(id) ON DELETE CASCADE,
    email_access_granted BOOLEAN NOT NULL DEFAULT FALSE,
    last_processed_date TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS email_messages (
    message_id TEXT PRIMARY KEY,
    user_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
    subject TEXT NOT NULL,
    sender TEXT NOT NULL,
    received_date TIMESTAMPTZ NOT NULL,
    raw_body TEXT NOT NULL,
    parsed_data JSONB,
    created_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_email_messages_user_received
    ON email_messages(user_id, received_date DESC);

CREATE TABLE IF NOT EXISTS subscriptions (
    id BIGSERIAL PRIMARY KEY,
    user_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
    platform_name TEXT NOT NULL,
    service_name TEXT NOT NULL,
    start_date DATE,
    end_date DATE,
    already_canceled BOOLEAN NOT NULL DEFAULT FALSE,
    is_trial BOOLEAN NOT NULL DEFAULT FALSE,
    price NUMERIC(10,2),
    currency TEXT NOT NULL DEFAULT 'USD',
    payment_method TEXT,
    email_message_id TEXT UNIQUE REFERENCES email_messages(message_id) ON DELETE SET NULL,
    unsubscribe_link TEXT,
    notes TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    CONSTRAINT uq_subscription_user_platform_service_dates
        UNIQUE NULLS NOT DISTINCT (user_id, platform_name, service_name, start_date, end_date)
);

CREATE INDEX IF NOT EXISTS idx_subscriptions_user_id ON subscriptions(user_id);
CREATE INDEX IF NOT EXISTS idx_subscriptions_end_date ON subscriptions(end_date);
CREATE INDEX IF NOT EXISTS idx_subscriptions_created_at ON subscriptions(created_at);
`

// Migrate applies the schema. Statements are idempotent so running on every
// startup is safe.
func Migrate(ctx context.Context, pool *pgxpool.Pool, log *logger.Logger) error {
	log.Info("Applying database schema")

	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	log.Info("Database schema up to date")
	return nil
}
