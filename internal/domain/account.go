package domain

import (
	"time"

	"github.com/google/uuid"
)

// Account is the owning entity for all profile, subscription and email rows.
// Deleting an account cascades through everything it owns.
type Account struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// UserProfile extends an account with email-processing state. There is exactly
// one profile per account, created in the same transaction as the account.
type UserProfile struct {
	UserID             uuid.UUID  `json:"user_id"`
	EmailAccessGranted bool       `json:"email_access_granted"`
	LastProcessedDate  *time.Time `json:"last_processed_date,omitempty"`
}

// CreateAccountRequest is the payload for registering a new account
type CreateAccountRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
}

// AccountDetail is the explicit projection returned by the account detail
// endpoint. Fields are listed deliberately; nothing is serialized by
// introspection.
type AccountDetail struct {
	ID                 uuid.UUID  `json:"id"`
	Username           string     `json:"username"`
	Email              string     `json:"email"`
	EmailAccessGranted bool       `json:"email_access_granted"`
	LastProcessedDate  *time.Time `json:"last_processed_date,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}
