package repository

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/subflo/subflo/internal/domain"
)

// InMemoryStore is a map-backed implementation of every repository interface.
// It mirrors the Postgres behavior closely enough to back service tests and
// local demos without a database: the same uniqueness rules, the same
// set-null behavior when a source email disappears, the same aggregate
// definitions.
type InMemoryStore struct {
	mu sync.RWMutex

	accounts      map[uuid.UUID]domain.Account
	profiles      map[uuid.UUID]domain.UserProfile
	subscriptions map[int64]domain.Subscription
	emails        map[string]domain.EmailMessage

	nextSubID int64
}

// NewInMemoryStore creates an empty in-memory store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		accounts:      make(map[uuid.UUID]domain.Account),
		profiles:      make(map[uuid.UUID]domain.UserProfile),
		subscriptions: make(map[int64]domain.Subscription),
		emails:        make(map[string]domain.EmailMessage),
		nextSubID:     1,
	}
}

// Accounts and profiles

func (s *InMemoryStore) CreateAccount(ctx context.Context, req domain.CreateAccountRequest) (domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.accounts {
		if a.Username == req.Username {
			return domain.Account{}, domain.NewDuplicateError("account", "username", req.Username)
		}
	}

	account := domain.Account{
		ID:        uuid.New(),
		Username:  req.Username,
		Email:     req.Email,
		CreatedAt: time.Now().UTC(),
	}
	s.accounts[account.ID] = account

	// Profile rides along in the same "transaction"
	if _, exists := s.profiles[account.ID]; !exists {
		s.profiles[account.ID] = domain.UserProfile{UserID: account.ID}
	}

	return account, nil
}

func (s *InMemoryStore) GetAccountByID(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, exists := s.accounts[id]
	if !exists {
		return domain.Account{}, domain.NewNotFoundError("account", id.String())
	}
	return account, nil
}

func (s *InMemoryStore) AccountExists(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.accounts[id]
	return exists, nil
}

// DeleteAccount removes the account and cascades through everything it owns
func (s *InMemoryStore) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[id]; !exists {
		return domain.NewNotFoundError("account", id.String())
	}

	delete(s.accounts, id)
	delete(s.profiles, id)
	for subID, sub := range s.subscriptions {
		if sub.UserID == id {
			delete(s.subscriptions, subID)
		}
	}
	for msgID, msg := range s.emails {
		if msg.UserID == id {
			delete(s.emails, msgID)
		}
	}
	return nil
}

func (s *InMemoryStore) GetProfile(ctx context.Context, userID uuid.UUID) (domain.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, exists := s.profiles[userID]
	if !exists {
		return domain.UserProfile{}, domain.NewNotFoundError("profile", userID.String())
	}
	return profile, nil
}

func (s *InMemoryStore) SetEmailAccess(ctx context.Context, userID uuid.UUID, granted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, exists := s.profiles[userID]
	if !exists {
		return domain.NewNotFoundError("profile", userID.String())
	}
	profile.EmailAccessGranted = granted
	s.profiles[userID] = profile
	return nil
}

func (s *InMemoryStore) AdvanceWatermark(ctx context.Context, userID uuid.UUID, processed time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, exists := s.profiles[userID]
	if !exists {
		return domain.NewNotFoundError("profile", userID.String())
	}
	if profile.LastProcessedDate == nil || processed.After(*profile.LastProcessedDate) {
		profile.LastProcessedDate = &processed
		s.profiles[userID] = profile
	}
	return nil
}

// Subscriptions

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func (s *InMemoryStore) CreateSubscription(ctx context.Context, sub *domain.Subscription) (domain.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.subscriptions {
		if existing.UserID == sub.UserID &&
			existing.PlatformName == sub.PlatformName &&
			existing.ServiceName == sub.ServiceName &&
			sameDate(existing.StartDate, sub.StartDate) &&
			sameDate(existing.EndDate, sub.EndDate) {
			return domain.Subscription{}, domain.NewDuplicateError("subscription", "platform/service/dates", sub.PlatformName+"/"+sub.ServiceName)
		}
	}

	created := *sub
	created.ID = s.nextSubID
	s.nextSubID++
	now := time.Now().UTC()
	created.CreatedAt = now
	created.UpdatedAt = now
	s.subscriptions[created.ID] = created

	return created, nil
}

func (s *InMemoryStore) GetSubscriptionByID(ctx context.Context, id int64) (domain.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, exists := s.subscriptions[id]
	if !exists {
		return domain.Subscription{}, domain.NewNotFoundError("subscription", strconv.FormatInt(id, 10))
	}
	return sub, nil
}

func (s *InMemoryStore) GetSubscriptionsByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var subs []domain.Subscription
	for _, sub := range s.subscriptions {
		if sub.UserID == userID {
			subs = append(subs, sub)
		}
	}
	sortSubscriptions(subs)
	return subs, nil
}

func (s *InMemoryStore) ListActiveSubscriptions(ctx context.Context, userID uuid.UUID, today time.Time) ([]domain.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var subs []domain.Subscription
	for _, sub := range s.subscriptions {
		if sub.UserID == userID && sub.IsActive(today) {
			subs = append(subs, sub)
		}
	}
	sortSubscriptions(subs)
	return subs, nil
}

func (s *InMemoryStore) ListSubscriptions(ctx context.Context, filter domain.SubscriptionFilter) ([]domain.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var subs []domain.Subscription
	for _, sub := range s.subscriptions {
		if s.matchesFilter(sub, filter) {
			subs = append(subs, sub)
		}
	}
	sortSubscriptions(subs)
	return subs, nil
}

func (s *InMemoryStore) matchesFilter(sub domain.Subscription, filter domain.SubscriptionFilter) bool {
	if q := strings.ToLower(filter.TextQuery); q != "" {
		sender := ""
		if sub.EmailMessageID != nil {
			if msg, ok := s.emails[*sub.EmailMessageID]; ok {
				sender = msg.Sender
			}
		}
		if !strings.Contains(strings.ToLower(sub.PlatformName), q) &&
			!strings.Contains(strings.ToLower(sub.ServiceName), q) &&
			!strings.Contains(strings.ToLower(sender), q) {
			return false
		}
	}
	if q := strings.ToLower(filter.NotesQuery); q != "" {
		if sub.Notes == nil || !strings.Contains(strings.ToLower(*sub.Notes), q) {
			return false
		}
	}
	return true
}

func (s *InMemoryStore) CancelSubscription(ctx context.Context, id int64) (domain.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, exists := s.subscriptions[id]
	if !exists {
		return domain.Subscription{}, domain.NewNotFoundError("subscription", strconv.FormatInt(id, 10))
	}
	sub.AlreadyCanceled = true
	sub.UpdatedAt = time.Now().UTC()
	s.subscriptions[id] = sub
	return sub, nil
}

// sortSubscriptions applies the default presentation order: user, end date
// descending with open-ended rows first, start date descending, then
// platform and service names.
func sortSubscriptions(subs []domain.Subscription) {
	sort.SliceStable(subs, func(i, j int) bool {
		a, b := subs[i], subs[j]
		if a.UserID != b.UserID {
			return a.UserID.String() < b.UserID.String()
		}
		if c := compareDatesDescNullsFirst(a.EndDate, b.EndDate); c != 0 {
			return c < 0
		}
		if c := compareDatesDescNullsFirst(a.StartDate, b.StartDate); c != 0 {
			return c < 0
		}
		if a.PlatformName != b.PlatformName {
			return a.PlatformName < b.PlatformName
		}
		return a.ServiceName < b.ServiceName
	})
}

func compareDatesDescNullsFirst(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	case a.After(*b):
		return -1
	case a.Before(*b):
		return 1
	default:
		return 0
	}
}

// Email messages

func (s *InMemoryStore) CreateEmail(ctx context.Context, msg *domain.EmailMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.emails[msg.MessageID]; exists {
		return domain.NewDuplicateError("email message", "message_id", msg.MessageID)
	}
	s.emails[msg.MessageID] = *msg
	return nil
}

func (s *InMemoryStore) GetEmailByID(ctx context.Context, messageID string) (domain.EmailMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, exists := s.emails[messageID]
	if !exists {
		return domain.EmailMessage{}, domain.NewNotFoundError("email message", messageID)
	}
	return msg, nil
}

func (s *InMemoryStore) AttachParsedData(ctx context.Context, messageID string, data domain.ParsedData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, exists := s.emails[messageID]
	if !exists {
		return domain.NewNotFoundError("email message", messageID)
	}
	now := time.Now().UTC()
	msg.ParsedData = data
	msg.CreatedAt = &now
	s.emails[messageID] = msg
	return nil
}

// DeleteEmail removes the message; subscriptions keep their row but lose
// their link to it.
func (s *InMemoryStore) DeleteEmail(ctx context.Context, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.emails[messageID]; !exists {
		return domain.NewNotFoundError("email message", messageID)
	}
	delete(s.emails, messageID)

	for id, sub := range s.subscriptions {
		if sub.EmailMessageID != nil && *sub.EmailMessageID == messageID {
			sub.EmailMessageID = nil
			s.subscriptions[id] = sub
		}
	}
	return nil
}

// Reports

func (s *InMemoryStore) TotalCount(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.subscriptions)), nil
}

func (s *InMemoryStore) TotalActiveCount(ctx context.Context, today time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, sub := range s.subscriptions {
		if sub.IsActive(today) {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryStore) TotalActiveTrialCount(ctx context.Context, today time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, sub := range s.subscriptions {
		if sub.IsTrial && sub.IsActive(today) {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryStore) SoonToExpireCount(ctx context.Context, userID uuid.UUID, today time.Time, horizonDays int) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	day := today.Truncate(24 * time.Hour)
	horizon := day.AddDate(0, 0, horizonDays)

	var count int64
	for _, sub := range s.subscriptions {
		if userID != uuid.Nil && sub.UserID != userID {
			continue
		}
		if sub.AlreadyCanceled || sub.EndDate == nil {
			continue
		}
		if !sub.EndDate.Before(day) && !sub.EndDate.After(horizon) {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryStore) CostByPaymentMethod(ctx context.Context) ([]domain.PaymentMethodCost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := make(map[string]decimal.Decimal)
	hasNil := false
	var nilTotal decimal.Decimal

	for _, sub := range s.subscriptions {
		if sub.Price == nil {
			continue
		}
		if sub.PaymentMethod == nil {
			hasNil = true
			nilTotal = nilTotal.Add(*sub.Price)
			continue
		}
		totals[*sub.PaymentMethod] = totals[*sub.PaymentMethod].Add(*sub.Price)
	}

	methods := make([]string, 0, len(totals))
	for m := range totals {
		methods = append(methods, m)
	}
	sort.Strings(methods)

	var result []domain.PaymentMethodCost
	for _, m := range methods {
		method := m
		result = append(result, domain.PaymentMethodCost{Method: &method, Total: totals[m]})
	}
	if hasNil {
		result = append(result, domain.PaymentMethodCost{Method: nil, Total: nilTotal})
	}
	return result, nil
}

func (s *InMemoryStore) MonthlyCostSeries(ctx context.Context, year int) ([]decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := make([]decimal.Decimal, 12)
	for _, sub := range s.subscriptions {
		if sub.AlreadyCanceled || sub.IsTrial || sub.Price == nil {
			continue
		}
		if sub.CreatedAt.Year() != year {
			continue
		}
		m := int(sub.CreatedAt.Month()) - 1
		totals[m] = totals[m].Add(*sub.Price)
	}
	return totals, nil
}

func (s *InMemoryStore) SubscriptionCountByPlatform(ctx context.Context) ([]domain.PlatformCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int64)
	for _, sub := range s.subscriptions {
		if sub.AlreadyCanceled {
			continue
		}
		counts[sub.PlatformName]++
	}

	result := make([]domain.PlatformCount, 0, len(counts))
	for platform, count := range counts {
		result = append(result, domain.PlatformCount{Platform: platform, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Platform < result[j].Platform
	})
	return result, nil
}

func (s *InMemoryStore) MonthlySubscriptionCounts(ctx context.Context, year int) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make([]int64, 12)
	for _, sub := range s.subscriptions {
		if sub.AlreadyCanceled || sub.CreatedAt.Year() != year {
			continue
		}
		counts[int(sub.CreatedAt.Month())-1]++
	}
	return counts, nil
}
