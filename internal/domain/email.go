package domain

import (
	"time"

	"github.com/google/uuid"
)

// ParsedData is the open key/value document produced by the external parsing
// pipeline. Its shape evolves outside this service, so it carries no
// compile-time schema.
type ParsedData map[string]any

// EmailMessage is a raw inbound email owned by an account. MessageID comes
// from the mail source and is globally unique. ParsedData and CreatedAt stay
// empty until the parsing pipeline has processed the message; the raw fields
// are immutable after ingestion.
type EmailMessage struct {
	MessageID    string     `json:"message_id"`
	UserID       uuid.UUID  `json:"user_id"`
	Subject      string     `json:"subject"`
	Sender       string     `json:"sender"`
	ReceivedDate time.Time  `json:"received_date"`
	RawBody      string     `json:"raw_body"`
	ParsedData   ParsedData `json:"parsed_data,omitempty"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
}

// IngestEmailRequest is the payload delivered by the email-ingestion
// collaborator for a newly discovered message
type IngestEmailRequest struct {
	UserID       uuid.UUID `json:"user_id"`
	MessageID    string    `json:"message_id"`
	Subject      string    `json:"subject"`
	Sender       string    `json:"sender"`
	ReceivedDate time.Time `json:"received_date"`
	RawBody      string    `json:"raw_body"`
}

// EmailMessageDetail is the explicit projection returned by the message
// detail endpoint
type EmailMessageDetail struct {
	MessageID    string     `json:"message_id"`
	UserID       uuid.UUID  `json:"user_id"`
	Subject      string     `json:"subject"`
	Sender       string     `json:"sender"`
	ReceivedDate time.Time  `json:"received_date"`
	RawBody      string     `json:"raw_body"`
	ParsedData   ParsedData `json:"parsed_data,omitempty"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
}
