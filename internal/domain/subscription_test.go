package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequest() CreateSubscriptionRequest {
	return CreateSubscriptionRequest{
		UserID:       uuid.New(),
		PlatformName: "Netflix",
		ServiceName:  "Premium",
		Price:        "15.99",
	}
}

func TestCreateSubscriptionRequestValidate(t *testing.T) {
	t.Run("valid request parses", func(t *testing.T) {
		req := validRequest()
		req.StartDate = "2026-01-15"
		req.EndDate = "2026-02-15"

		sub, err := req.Validate()
		require.NoError(t, err)

		assert.Equal(t, "Netflix", sub.PlatformName)
		assert.Equal(t, "15.99", sub.Price.String())
		assert.Equal(t, "USD", sub.Currency)
		assert.False(t, sub.AlreadyCanceled)
		require.NotNil(t, sub.StartDate)
		assert.Equal(t, "2026-01-15", sub.StartDate.Format(DateOnly))
		require.NotNil(t, sub.EndDate)
	})

	t.Run("missing required fields are all reported", func(t *testing.T) {
		req := CreateSubscriptionRequest{}

		_, err := req.Validate()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidInput))

		var verr ValidationErrors
		require.True(t, errors.As(err, &verr))
		assert.ElementsMatch(t, []string{"user_id", "platform_name", "service_name", "price"}, verr.Fields())
	})

	t.Run("malformed price names the field", func(t *testing.T) {
		req := validRequest()
		req.Price = "fifteen dollars"

		_, err := req.Validate()
		var verr ValidationErrors
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, []string{"price"}, verr.Fields())
	})

	t.Run("price rounds to two decimal places", func(t *testing.T) {
		req := validRequest()
		req.Price = "9.999"

		sub, err := req.Validate()
		require.NoError(t, err)
		assert.Equal(t, "10", sub.Price.String())
	})

	t.Run("malformed dates name their fields", func(t *testing.T) {
		req := validRequest()
		req.StartDate = "15/01/2026"
		req.EndDate = "not-a-date"

		_, err := req.Validate()
		var verr ValidationErrors
		require.True(t, errors.As(err, &verr))
		assert.ElementsMatch(t, []string{"start_date", "end_date"}, verr.Fields())
	})

	t.Run("empty optional fields stay nil", func(t *testing.T) {
		req := validRequest()

		sub, err := req.Validate()
		require.NoError(t, err)
		assert.Nil(t, sub.StartDate)
		assert.Nil(t, sub.EndDate)
		assert.Nil(t, sub.PaymentMethod)
		assert.Nil(t, sub.EmailMessageID)
		assert.Nil(t, sub.Notes)
	})

	t.Run("explicit currency is kept", func(t *testing.T) {
		req := validRequest()
		req.Currency = "EUR"

		sub, err := req.Validate()
		require.NoError(t, err)
		assert.Equal(t, "EUR", sub.Currency)
	})
}

func TestSubscriptionIsActive(t *testing.T) {
	today := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	date := func(s string) *time.Time {
		d, err := time.Parse(DateOnly, s)
		require.NoError(t, err)
		return &d
	}

	tests := []struct {
		name string
		sub  Subscription
		want bool
	}{
		{"open-ended is active", Subscription{}, true},
		{"canceled is never active", Subscription{AlreadyCanceled: true}, false},
		{"canceled with future end date is not active", Subscription{AlreadyCanceled: true, EndDate: date("2026-12-31")}, false},
		{"ends today is still active", Subscription{EndDate: date("2026-08-29")}, true},
		{"ends tomorrow is active", Subscription{EndDate: date("2026-08-30")}, true},
		{"ended yesterday is not active", Subscription{EndDate: date("2026-08-28")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.sub.IsActive(today))
		})
	}
}
