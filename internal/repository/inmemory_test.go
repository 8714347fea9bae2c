package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subflo/subflo/internal/domain"
)

func date(t *testing.T, s string) *time.Time {
	t.Helper()
	d, err := time.Parse(domain.DateOnly, s)
	require.NoError(t, err)
	return &d
}

func newAccount(t *testing.T, store *InMemoryStore, username string) domain.Account {
	t.Helper()
	account, err := store.CreateAccount(context.Background(), domain.CreateAccountRequest{
		Username: username,
		Email:    username + "@example.com",
	})
	require.NoError(t, err)
	return account
}

func price(s string) *decimal.Decimal {
	p := decimal.RequireFromString(s)
	return &p
}

func strPtr(s string) *string { return &s }

func TestAccountLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	account := newAccount(t, store, "alice")

	t.Run("profile is created with the account", func(t *testing.T) {
		profile, err := store.GetProfile(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, account.ID, profile.UserID)
		assert.False(t, profile.EmailAccessGranted)
		assert.Nil(t, profile.LastProcessedDate)
	})

	t.Run("duplicate username is rejected", func(t *testing.T) {
		_, err := store.CreateAccount(ctx, domain.CreateAccountRequest{Username: "alice", Email: "other@example.com"})
		assert.ErrorIs(t, err, domain.ErrDuplicate)
	})

	t.Run("delete cascades to owned rows", func(t *testing.T) {
		victim := newAccount(t, store, "bob")
		sub, err := store.CreateSubscription(ctx, &domain.Subscription{
			UserID: victim.ID, PlatformName: "Netflix", ServiceName: "Premium",
		})
		require.NoError(t, err)
		require.NoError(t, store.CreateEmail(ctx, &domain.EmailMessage{
			MessageID: "msg-bob-1", UserID: victim.ID, ReceivedDate: time.Now(),
		}))

		require.NoError(t, store.DeleteAccount(ctx, victim.ID))

		_, err = store.GetProfile(ctx, victim.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = store.GetSubscriptionByID(ctx, sub.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = store.GetEmailByID(ctx, "msg-bob-1")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestAdvanceWatermark(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	account := newAccount(t, store, "carol")

	first := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.AdvanceWatermark(ctx, account.ID, first))

	profile, err := store.GetProfile(ctx, account.ID)
	require.NoError(t, err)
	require.NotNil(t, profile.LastProcessedDate)
	assert.True(t, profile.LastProcessedDate.Equal(first))

	// Older timestamps never move the watermark backwards.
	require.NoError(t, store.AdvanceWatermark(ctx, account.ID, first.Add(-time.Hour)))
	profile, err = store.GetProfile(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, profile.LastProcessedDate.Equal(first))

	later := first.Add(48 * time.Hour)
	require.NoError(t, store.AdvanceWatermark(ctx, account.ID, later))
	profile, err = store.GetProfile(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, profile.LastProcessedDate.Equal(later))
}

func TestCreateSubscriptionUniqueness(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	account := newAccount(t, store, "dave")

	base := domain.Subscription{
		UserID:       account.ID,
		PlatformName: "Spotify",
		ServiceName:  "Family",
		StartDate:    date(t, "2026-01-01"),
		EndDate:      date(t, "2026-12-31"),
	}

	_, err := store.CreateSubscription(ctx, &base)
	require.NoError(t, err)

	t.Run("identical tuple conflicts and adds no row", func(t *testing.T) {
		dup := base
		_, err := store.CreateSubscription(ctx, &dup)
		assert.ErrorIs(t, err, domain.ErrDuplicate)

		total, err := store.TotalCount(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
	})

	t.Run("different dates do not conflict", func(t *testing.T) {
		other := base
		other.StartDate = date(t, "2027-01-01")
		other.EndDate = nil
		_, err := store.CreateSubscription(ctx, &other)
		assert.NoError(t, err)
	})

	t.Run("both open-ended conflicts", func(t *testing.T) {
		first := base
		first.ServiceName = "Duo"
		first.StartDate = nil
		first.EndDate = nil
		_, err := store.CreateSubscription(ctx, &first)
		require.NoError(t, err)

		second := first
		_, err = store.CreateSubscription(ctx, &second)
		assert.ErrorIs(t, err, domain.ErrDuplicate)
	})
}

func TestListActiveSubscriptions(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	account := newAccount(t, store, "erin")
	today := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)

	mk := func(service string, endDate *time.Time, canceled bool) {
		t.Helper()
		_, err := store.CreateSubscription(ctx, &domain.Subscription{
			UserID:          account.ID,
			PlatformName:    "Netflix",
			ServiceName:     service,
			EndDate:         endDate,
			AlreadyCanceled: canceled,
		})
		require.NoError(t, err)
	}

	mk("open-ended", nil, false)
	mk("ends-today", date(t, "2026-08-29"), false)
	mk("future-end", date(t, "2026-12-31"), false)
	mk("expired", date(t, "2026-08-28"), false)
	mk("canceled", nil, true)

	subs, err := store.ListActiveSubscriptions(ctx, account.ID, today)
	require.NoError(t, err)

	var services []string
	for _, s := range subs {
		services = append(services, s.ServiceName)
	}
	assert.ElementsMatch(t, []string{"open-ended", "ends-today", "future-end"}, services)
}

func TestListSubscriptionsOrdering(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	account := newAccount(t, store, "frank")

	mk := func(platform, service string, start, end *time.Time) {
		t.Helper()
		_, err := store.CreateSubscription(ctx, &domain.Subscription{
			UserID:       account.ID,
			PlatformName: platform,
			ServiceName:  service,
			StartDate:    start,
			EndDate:      end,
		})
		require.NoError(t, err)
	}

	mk("Zeta", "C", date(t, "2026-01-01"), date(t, "2026-06-30"))
	mk("Alpha", "A", nil, nil)
	mk("Beta", "B", date(t, "2026-03-01"), date(t, "2026-12-31"))
	mk("Alpha", "B", nil, nil)

	subs, err := store.ListSubscriptions(ctx, domain.SubscriptionFilter{})
	require.NoError(t, err)
	require.Len(t, subs, 4)

	// Open-ended rows first, then later end dates, platform breaking ties.
	assert.Equal(t, "Alpha", subs[0].PlatformName)
	assert.Equal(t, "A", subs[0].ServiceName)
	assert.Equal(t, "Alpha", subs[1].PlatformName)
	assert.Equal(t, "B", subs[1].ServiceName)
	assert.Equal(t, "Beta", subs[2].PlatformName)
	assert.Equal(t, "Zeta", subs[3].PlatformName)
}

func TestListSubscriptionsFilter(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	account := newAccount(t, store, "grace")

	require.NoError(t, store.CreateEmail(ctx, &domain.EmailMessage{
		MessageID:    "msg-1",
		UserID:       account.ID,
		Sender:       "billing@netflixco.example.com",
		ReceivedDate: time.Now(),
	}))

	_, err := store.CreateSubscription(ctx, &domain.Subscription{
		UserID:         account.ID,
		PlatformName:   "StreamBox",
		ServiceName:    "Standard",
		EmailMessageID: strPtr("msg-1"),
		Notes:          strPtr("annual renewal, shared with family"),
	})
	require.NoError(t, err)
	_, err = store.CreateSubscription(ctx, &domain.Subscription{
		UserID:       account.ID,
		PlatformName: "Spotify",
		ServiceName:  "Premium",
		Notes:        strPtr("work account"),
	})
	require.NoError(t, err)

	t.Run("text query matches platform", func(t *testing.T) {
		subs, err := store.ListSubscriptions(ctx, domain.SubscriptionFilter{TextQuery: "spot"})
		require.NoError(t, err)
		require.Len(t, subs, 1)
		assert.Equal(t, "Spotify", subs[0].PlatformName)
	})

	t.Run("text query matches linked message sender", func(t *testing.T) {
		subs, err := store.ListSubscriptions(ctx, domain.SubscriptionFilter{TextQuery: "NetflixCo"})
		require.NoError(t, err)
		require.Len(t, subs, 1)
		assert.Equal(t, "StreamBox", subs[0].PlatformName)
	})

	t.Run("notes query matches notes only", func(t *testing.T) {
		subs, err := store.ListSubscriptions(ctx, domain.SubscriptionFilter{NotesQuery: "family"})
		require.NoError(t, err)
		require.Len(t, subs, 1)
		assert.Equal(t, "StreamBox", subs[0].PlatformName)
	})

	t.Run("queries combine with AND", func(t *testing.T) {
		subs, err := store.ListSubscriptions(ctx, domain.SubscriptionFilter{TextQuery: "spotify", NotesQuery: "family"})
		require.NoError(t, err)
		assert.Empty(t, subs)
	})

	t.Run("no filter returns everything", func(t *testing.T) {
		subs, err := store.ListSubscriptions(ctx, domain.SubscriptionFilter{})
		require.NoError(t, err)
		assert.Len(t, subs, 2)
	})
}

func TestDeleteEmailClearsSubscriptionLink(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	account := newAccount(t, store, "heidi")

	require.NoError(t, store.CreateEmail(ctx, &domain.EmailMessage{
		MessageID:    "msg-keep",
		UserID:       account.ID,
		ReceivedDate: time.Now(),
	}))

	sub, err := store.CreateSubscription(ctx, &domain.Subscription{
		UserID:         account.ID,
		PlatformName:   "Hulu",
		ServiceName:    "Basic",
		EmailMessageID: strPtr("msg-keep"),
	})
	require.NoError(t, err)

	require.NoError(t, store.DeleteEmail(ctx, "msg-keep"))

	got, err := store.GetSubscriptionByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Nil(t, got.EmailMessageID)

	_, err = store.GetEmailByID(ctx, "msg-keep")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAttachParsedDataStampsCreatedAt(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	account := newAccount(t, store, "ivan")

	require.NoError(t, store.CreateEmail(ctx, &domain.EmailMessage{
		MessageID:    "msg-parse",
		UserID:       account.ID,
		ReceivedDate: time.Now(),
	}))

	msg, err := store.GetEmailByID(ctx, "msg-parse")
	require.NoError(t, err)
	assert.Nil(t, msg.CreatedAt)
	assert.Nil(t, msg.ParsedData)

	require.NoError(t, store.AttachParsedData(ctx, "msg-parse", domain.ParsedData{"platform_name": "Hulu"}))

	msg, err = store.GetEmailByID(ctx, "msg-parse")
	require.NoError(t, err)
	require.NotNil(t, msg.CreatedAt)
	assert.Equal(t, "Hulu", msg.ParsedData["platform_name"])

	err = store.AttachParsedData(ctx, "no-such-message", domain.ParsedData{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCostByPaymentMethod(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	account := newAccount(t, store, "judy")

	mk := func(service string, p *decimal.Decimal, method *string) {
		t.Helper()
		_, err := store.CreateSubscription(ctx, &domain.Subscription{
			UserID:        account.ID,
			PlatformName:  "Mixed",
			ServiceName:   service,
			Price:         p,
			PaymentMethod: method,
		})
		require.NoError(t, err)
	}

	mk("s1", price("10.00"), strPtr("visa"))
	mk("s2", price("5.50"), strPtr("visa"))
	mk("s3", price("7.25"), strPtr("paypal"))
	mk("s4", price("3.00"), nil)
	mk("s5", nil, strPtr("visa")) // unpriced rows are excluded

	groups, err := store.CostByPaymentMethod(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 3)

	byMethod := make(map[string]decimal.Decimal)
	var nilTotal decimal.Decimal
	var grand decimal.Decimal
	for _, g := range groups {
		grand = grand.Add(g.Total)
		if g.Method == nil {
			nilTotal = g.Total
			continue
		}
		byMethod[*g.Method] = g.Total
	}

	assert.True(t, byMethod["visa"].Equal(decimal.RequireFromString("15.50")))
	assert.True(t, byMethod["paypal"].Equal(decimal.RequireFromString("7.25")))
	assert.True(t, nilTotal.Equal(decimal.RequireFromString("3.00")))

	// The groups partition the priced rows: totals add up to the whole.
	assert.True(t, grand.Equal(decimal.RequireFromString("25.75")))
}

func TestMonthlySeries(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	userID := uuid.New()

	seed := func(id int64, month time.Month, p *decimal.Decimal, trial, canceled bool) {
		store.subscriptions[id] = domain.Subscription{
			ID:              id,
			UserID:          userID,
			PlatformName:    "NetflixCo",
			ServiceName:     "Plan",
			Price:           p,
			IsTrial:         trial,
			AlreadyCanceled: canceled,
			CreatedAt:       time.Date(2026, month, 5, 0, 0, 0, 0, time.UTC),
		}
	}

	seed(1, time.March, price("12.50"), false, false)
	seed(2, time.March, price("17.50"), false, false)
	seed(3, time.March, price("99.99"), true, false)  // trial excluded from cost
	seed(4, time.March, price("42.00"), false, true)  // canceled excluded entirely
	seed(5, time.July, price("8.00"), false, false)
	store.subscriptions[6] = domain.Subscription{ // previous year ignored
		ID: 6, UserID: userID, PlatformName: "NetflixCo", ServiceName: "Old",
		Price: price("50.00"), CreatedAt: time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC),
	}

	t.Run("monthly cost sums non-trial non-canceled priced rows", func(t *testing.T) {
		totals, err := store.MonthlyCostSeries(ctx, 2026)
		require.NoError(t, err)
		require.Len(t, totals, 12)

		assert.True(t, totals[time.March-1].Equal(decimal.RequireFromString("30.00")), "March should sum to 30.00, got %s", totals[time.March-1])
		assert.True(t, totals[time.July-1].Equal(decimal.RequireFromString("8.00")))
		assert.True(t, totals[time.January-1].IsZero())
	})

	t.Run("monthly counts exclude canceled rows", func(t *testing.T) {
		counts, err := store.MonthlySubscriptionCounts(ctx, 2026)
		require.NoError(t, err)
		require.Len(t, counts, 12)

		assert.EqualValues(t, 3, counts[time.March-1])
		assert.EqualValues(t, 1, counts[time.July-1])
		assert.EqualValues(t, 0, counts[time.December-1])
	})
}

func TestSubscriptionCountByPlatform(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	account := newAccount(t, store, "kate")

	mk := func(platform, service string, canceled bool) {
		t.Helper()
		_, err := store.CreateSubscription(ctx, &domain.Subscription{
			UserID:          account.ID,
			PlatformName:    platform,
			ServiceName:     service,
			AlreadyCanceled: canceled,
		})
		require.NoError(t, err)
	}

	mk("Netflix", "a", false)
	mk("Netflix", "b", false)
	mk("Spotify", "a", false)
	mk("Hulu", "a", true) // canceled rows do not count

	counts, err := store.SubscriptionCountByPlatform(ctx)
	require.NoError(t, err)
	require.Len(t, counts, 2)

	assert.Equal(t, domain.PlatformCount{Platform: "Netflix", Count: 2}, counts[0])
	assert.Equal(t, domain.PlatformCount{Platform: "Spotify", Count: 1}, counts[1])
}

func TestSoonToExpireCount(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	alice := newAccount(t, store, "soon-alice")
	bob := newAccount(t, store, "soon-bob")
	today := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)

	mk := func(owner uuid.UUID, service string, end *time.Time, canceled bool) {
		t.Helper()
		_, err := store.CreateSubscription(ctx, &domain.Subscription{
			UserID:          owner,
			PlatformName:    "Expiry",
			ServiceName:     service,
			EndDate:         end,
			AlreadyCanceled: canceled,
		})
		require.NoError(t, err)
	}

	mk(alice.ID, "today", date(t, "2026-08-29"), false)
	mk(alice.ID, "last-day", date(t, "2026-09-05"), false)
	mk(alice.ID, "beyond", date(t, "2026-09-06"), false)
	mk(alice.ID, "canceled", date(t, "2026-09-01"), true)
	mk(alice.ID, "open", nil, false)
	mk(bob.ID, "bob-window", date(t, "2026-09-01"), false)

	count, err := store.SoonToExpireCount(ctx, alice.ID, today, 7)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	// Zero user id widens the window to every account.
	count, err = store.SoonToExpireCount(ctx, uuid.Nil, today, 7)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)
}

func TestGetSubscriptionNotFound(t *testing.T) {
	store := NewInMemoryStore()

	_, err := store.GetSubscriptionByID(context.Background(), 404)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	var nfe *domain.NotFoundError
	require.True(t, errors.As(err, &nfe))
	assert.Equal(t, "subscription", nfe.Entity)
	assert.Equal(t, "404", nfe.ID)
}
