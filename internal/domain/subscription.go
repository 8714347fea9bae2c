package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateOnly is the wire format for start and end dates
const DateOnly = "2006-01-02"

// Subscription is a recurring payment detected in a user's email (or entered
// manually). A user can hold only one subscription to a given platform/service
// pair for a given date range.
type Subscription struct {
	ID              int64            `json:"id"`
	UserID          uuid.UUID        `json:"user_id"`
	PlatformName    string           `json:"platform_name"`
	ServiceName     string           `json:"service_name"`
	StartDate       *time.Time       `json:"start_date,omitempty"`
	EndDate         *time.Time       `json:"end_date,omitempty"`
	AlreadyCanceled bool             `json:"already_canceled"`
	IsTrial         bool             `json:"is_trial"`
	Price           *decimal.Decimal `json:"price,omitempty"`
	Currency        string           `json:"currency"`
	PaymentMethod   *string          `json:"payment_method,omitempty"`
	EmailMessageID  *string          `json:"email_message_id,omitempty"`
	UnsubscribeLink *string          `json:"unsubscribe_link,omitempty"`
	Notes           *string          `json:"notes,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// IsActive reports whether the subscription is live on the given day: not
// explicitly canceled and either open-ended or ending today or later.
func (s *Subscription) IsActive(today time.Time) bool {
	if s.AlreadyCanceled {
		return false
	}
	if s.EndDate == nil {
		return true
	}
	day := today.Truncate(24 * time.Hour)
	return !s.EndDate.Before(day)
}

// CreateSubscriptionRequest is the payload for the manual/demo creation path
// and for subscriptions derived from parsed emails. Price and EndDate arrive
// as strings and are validated before anything touches the store.
type CreateSubscriptionRequest struct {
	UserID          uuid.UUID `json:"user_id"`
	PlatformName    string    `json:"platform_name"`
	ServiceName     string    `json:"service_name"`
	Price           string    `json:"price"`
	Currency        string    `json:"currency"`
	PaymentMethod   string    `json:"payment_method"`
	StartDate       string    `json:"start_date"`
	EndDate         string    `json:"end_date"`
	IsTrial         bool      `json:"is_trial"`
	EmailMessageID  string    `json:"email_message_id"`
	UnsubscribeLink string    `json:"unsubscribe_link"`
	Notes           string    `json:"notes"`
}

// Validate checks required fields and parses price and dates. It returns the
// parsed subscription skeleton, or ValidationErrors naming each rejected
// field. The store's uniqueness constraint is a separate, later line of
// defense.
func (r *CreateSubscriptionRequest) Validate() (*Subscription, error) {
	var verr ValidationErrors

	if r.UserID == uuid.Nil {
		verr.Add("user_id", "is required")
	}
	if r.PlatformName == "" {
		verr.Add("platform_name", "is required")
	}
	if r.ServiceName == "" {
		verr.Add("service_name", "is required")
	}
	if r.Price == "" {
		verr.Add("price", "is required")
	}

	var price *decimal.Decimal
	if r.Price != "" {
		p, err := decimal.NewFromString(r.Price)
		if err != nil {
			verr.Add("price", "is not a valid decimal number")
		} else {
			p = p.Round(2)
			price = &p
		}
	}

	startDate, err := parseOptionalDate(r.StartDate)
	if err != nil {
		verr.Add("start_date", "must be formatted YYYY-MM-DD")
	}
	endDate, err := parseOptionalDate(r.EndDate)
	if err != nil {
		verr.Add("end_date", "must be formatted YYYY-MM-DD")
	}

	if verr.HasErrors() {
		return nil, verr
	}

	currency := r.Currency
	if currency == "" {
		currency = "USD"
	}

	sub := &Subscription{
		UserID:          r.UserID,
		PlatformName:    r.PlatformName,
		ServiceName:     r.ServiceName,
		StartDate:       startDate,
		EndDate:         endDate,
		AlreadyCanceled: false,
		IsTrial:         r.IsTrial,
		Price:           price,
		Currency:        currency,
		PaymentMethod:   optionalString(r.PaymentMethod),
		EmailMessageID:  optionalString(r.EmailMessageID),
		UnsubscribeLink: optionalString(r.UnsubscribeLink),
		Notes:           optionalString(r.Notes),
	}
	return sub, nil
}

func parseOptionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(DateOnly, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// SubscriptionFilter narrows list queries. Empty fields apply no filter.
// TextQuery matches platform, service or linked message sender; NotesQuery
// matches notes. Both are case-insensitive substring matches and combine
// with AND when both are set.
type SubscriptionFilter struct {
	TextQuery  string
	NotesQuery string
}
