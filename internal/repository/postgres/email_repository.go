package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/subflo/subflo/internal/domain"
	"github.com/subflo/subflo/pkg/logger"
)

// EmailRepository is the PostgreSQL implementation of email message
// persistence
type EmailRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewEmailRepository creates a new PostgreSQL email repository
func NewEmailRepository(db *pgxpool.Pool, log *logger.Logger) *EmailRepository {
	return &EmailRepository{
		db:  db,
		log: log,
	}
}

// Create inserts a new email message. MessageID comes from the mail source
// and is the primary key; a second ingestion of the same message surfaces as
// ErrDuplicate so the caller can treat it as already known.
func (r *EmailRepository) Create(ctx context.Context, msg *domain.EmailMessage) error {
	query := `
		INSERT INTO email_messages (message_id, user_id, subject, sender, received_date, raw_body)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Exec(ctx, query,
		msg.MessageID,
		msg.UserID,
		msg.Subject,
		msg.Sender,
		msg.ReceivedDate,
		msg.RawBody,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return domain.NewDuplicateError("email message", "message_id", msg.MessageID)
			case "23503":
				return domain.NewNotFoundError("account", msg.UserID.String())
			}
		}
		return fmt.Errorf("failed to insert email message: %w", err)
	}

	r.log.Debug("Stored email message %s for user %s", msg.MessageID, msg.UserID)
	return nil
}

// GetByID returns an email message by its message ID
func (r *EmailRepository) GetByID(ctx context.Context, messageID string) (domain.EmailMessage, error) {
	query := `
		SELECT message_id, user_id, subject, sender, received_date, raw_body, parsed_data, created_at
		FROM email_messages
		WHERE message_id = $1
	`

	var msg domain.EmailMessage
	var parsedBytes []byte

	err := r.db.QueryRow(ctx, query, messageID).Scan(
		&msg.MessageID,
		&msg.UserID,
		&msg.Subject,
		&msg.Sender,
		&msg.ReceivedDate,
		&msg.RawBody,
		&parsedBytes,
		&msg.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.EmailMessage{}, domain.NewNotFoundError("email message", messageID)
		}
		return domain.EmailMessage{}, fmt.Errorf("failed to get email message: %w", err)
	}

	if len(parsedBytes) > 0 {
		if err := json.Unmarshal(parsedBytes, &msg.ParsedData); err != nil {
			return domain.EmailMessage{}, fmt.Errorf("failed to decode parsed data: %w", err)
		}
	}
	return msg, nil
}

// AttachParsedData stores the parsing output and stamps created_at, the
// moment the parsing pipeline finished with this message
func (r *EmailRepository) AttachParsedData(ctx context.Context, messageID string, data domain.ParsedData) error {
	parsedBytes, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode parsed data: %w", err)
	}

	result, err := r.db.Exec(ctx,
		`UPDATE email_messages SET parsed_data = $1, created_at = now() WHERE message_id = $2`,
		parsedBytes, messageID,
	)
	if err != nil {
		return fmt.Errorf("failed to attach parsed data: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.NewNotFoundError("email message", messageID)
	}

	r.log.Debug("Attached parsed data to email message %s", messageID)
	return nil
}

// Delete removes an email message. Any subscription pointing at it keeps its
// row; the link column nulls out at the schema level.
func (r *EmailRepository) Delete(ctx context.Context, messageID string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM email_messages WHERE message_id = $1`, messageID)
	if err != nil {
		return fmt.Errorf("failed to delete email message: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.NewNotFoundError("email message", messageID)
	}
	return nil
}
