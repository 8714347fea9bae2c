package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/subflo/subflo/internal/domain"
	"github.com/subflo/subflo/internal/kafka"
	"github.com/subflo/subflo/internal/metrics"
	"github.com/subflo/subflo/internal/repository"
	"github.com/subflo/subflo/pkg/logger"
)

// soonToExpireHorizonDays is the dashboard's lookahead window
const soonToExpireHorizonDays = 7

// SubscriptionList is a filtered page of subscriptions together with the
// dashboard counters shown above it
type SubscriptionList struct {
	Subscriptions []domain.Subscription  `json:"subscriptions"`
	Counts        domain.DashboardCounts `json:"counts"`
}

// SubscriptionService handles subscription lifecycle and queries
type SubscriptionService interface {
	Create(ctx context.Context, req domain.CreateSubscriptionRequest) (domain.Subscription, error)
	GetByID(ctx context.Context, id int64) (domain.Subscription, error)
	// ListActive returns the account's live subscriptions, NotFound when the
	// account itself does not exist.
	ListActive(ctx context.Context, accountID string) ([]domain.Subscription, error)
	List(ctx context.Context, filter domain.SubscriptionFilter) (SubscriptionList, error)
	Cancel(ctx context.Context, id int64) (domain.Subscription, error)
}

type subscriptionService struct {
	repo        repository.SubscriptionRepository
	accountRepo repository.AccountRepository
	reportRepo  repository.ReportRepository
	producer    kafka.Producer
	metrics     metrics.TrackerMetrics
	log         *logger.Logger
}

// NewSubscriptionService creates a new subscription service
func NewSubscriptionService(
	repo repository.SubscriptionRepository,
	accountRepo repository.AccountRepository,
	reportRepo repository.ReportRepository,
	producer kafka.Producer,
	m metrics.TrackerMetrics,
	log *logger.Logger,
) SubscriptionService {
	return &subscriptionService{
		repo:        repo,
		accountRepo: accountRepo,
		reportRepo:  reportRepo,
		producer:    producer,
		metrics:     m,
		log:         log,
	}
}

func (s *subscriptionService) Create(ctx context.Context, req domain.CreateSubscriptionRequest) (domain.Subscription, error) {
	s.log.Debug("Creating subscription: %s/%s for user %s", req.PlatformName, req.ServiceName, req.UserID)

	sub, err := req.Validate()
	if err != nil {
		s.log.Warn("Subscription request rejected: %v", err)
		return domain.Subscription{}, err
	}

	created, err := s.repo.Create(ctx, sub)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			s.metrics.IncSubscriptionConflict()
			s.log.Warn("Duplicate subscription: %s/%s for user %s", req.PlatformName, req.ServiceName, req.UserID)
		}
		return domain.Subscription{}, err
	}

	s.metrics.IncSubscriptionCreated(created.PlatformName)

	// Event delivery is best effort; the subscription is already committed.
	if err := s.producer.PublishSubscriptionEvent(ctx, kafka.TopicSubscriptionCreated, &created); err != nil {
		s.log.Error("Failed to publish subscription_created for %d: %v", created.ID, err)
	}

	return created, nil
}

func (s *subscriptionService) GetByID(ctx context.Context, id int64) (domain.Subscription, error) {
	s.log.Debug("Getting subscription: %d", id)
	return s.repo.GetByID(ctx, id)
}

func (s *subscriptionService) ListActive(ctx context.Context, accountID string) ([]domain.Subscription, error) {
	s.log.Debug("Listing active subscriptions for account: %s", accountID)

	userID, err := parseAccountID(accountID)
	if err != nil {
		s.log.Warn("Invalid account id format: %s", accountID)
		return nil, err
	}

	exists, err := s.accountRepo.Exists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.NewNotFoundError("account", accountID)
	}

	return s.repo.ListActiveByUserID(ctx, userID, time.Now())
}

func (s *subscriptionService) List(ctx context.Context, filter domain.SubscriptionFilter) (SubscriptionList, error) {
	s.log.Debug("Listing subscriptions, text: %q, notes: %q", filter.TextQuery, filter.NotesQuery)

	subs, err := s.repo.List(ctx, filter)
	if err != nil {
		return SubscriptionList{}, err
	}

	counts, err := s.dashboardCounts(ctx)
	if err != nil {
		return SubscriptionList{}, err
	}

	return SubscriptionList{Subscriptions: subs, Counts: counts}, nil
}

func (s *subscriptionService) dashboardCounts(ctx context.Context) (domain.DashboardCounts, error) {
	now := time.Now()

	total, err := s.reportRepo.TotalCount(ctx)
	if err != nil {
		return domain.DashboardCounts{}, err
	}
	active, err := s.reportRepo.TotalActiveCount(ctx, now)
	if err != nil {
		return domain.DashboardCounts{}, err
	}
	soon, err := s.reportRepo.SoonToExpireCount(ctx, uuid.Nil, now, soonToExpireHorizonDays)
	if err != nil {
		return domain.DashboardCounts{}, err
	}

	return domain.DashboardCounts{
		Total:        total,
		TotalActive:  active,
		SoonToExpire: soon,
	}, nil
}

func (s *subscriptionService) Cancel(ctx context.Context, id int64) (domain.Subscription, error) {
	s.log.Debug("Canceling subscription: %d", id)

	canceled, err := s.repo.Cancel(ctx, id)
	if err != nil {
		return domain.Subscription{}, err
	}

	s.metrics.IncSubscriptionCanceled()

	if err := s.producer.PublishSubscriptionEvent(ctx, kafka.TopicSubscriptionCancelled, &canceled); err != nil {
		s.log.Error("Failed to publish subscription_cancelled for %d: %v", canceled.ID, err)
	}

	return canceled, nil
}
