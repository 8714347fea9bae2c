package service

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"

	"github.com/subflo/subflo/internal/domain"
	"github.com/subflo/subflo/internal/metrics"
	"github.com/subflo/subflo/internal/repository"
	"github.com/subflo/subflo/pkg/logger"
)

// EmailService stores inbound messages and applies parsing results
type EmailService interface {
	// IngestEmail stores a newly discovered message and advances the owner's
	// processing watermark. A redelivered message returns ErrDuplicate.
	IngestEmail(ctx context.Context, req domain.IngestEmailRequest) (*domain.EmailMessage, error)
	// AttachParsedData records the parsing output. When the parsed document
	// carries subscription fields, a subscription is created through the
	// regular validated path; an already known one is not an error.
	AttachParsedData(ctx context.Context, messageID string, data domain.ParsedData) (*domain.EmailMessage, error)
	GetDetail(ctx context.Context, messageID string) (domain.EmailMessageDetail, error)
	Delete(ctx context.Context, messageID string) error
}

type emailService struct {
	repo          repository.EmailRepository
	accountRepo   repository.AccountRepository
	subscriptions SubscriptionService
	metrics       metrics.TrackerMetrics
	log           *logger.Logger
}

// NewEmailService creates a new email service
func NewEmailService(
	repo repository.EmailRepository,
	accountRepo repository.AccountRepository,
	subscriptions SubscriptionService,
	m metrics.TrackerMetrics,
	log *logger.Logger,
) EmailService {
	return &emailService{
		repo:          repo,
		accountRepo:   accountRepo,
		subscriptions: subscriptions,
		metrics:       m,
		log:           log,
	}
}

func (s *emailService) IngestEmail(ctx context.Context, req domain.IngestEmailRequest) (*domain.EmailMessage, error) {
	s.log.Debug("Ingesting email: %s for user %s", req.MessageID, req.UserID)

	var verr domain.ValidationErrors
	if req.MessageID == "" {
		verr.Add("message_id", "is required")
	}
	if req.UserID == uuid.Nil {
		verr.Add("user_id", "is required")
	}
	if req.ReceivedDate.IsZero() {
		verr.Add("received_date", "is required")
	}
	if verr.HasErrors() {
		return nil, verr
	}

	msg := &domain.EmailMessage{
		MessageID:    req.MessageID,
		UserID:       req.UserID,
		Subject:      req.Subject,
		Sender:       req.Sender,
		ReceivedDate: req.ReceivedDate,
		RawBody:      req.RawBody,
	}

	if err := s.repo.Create(ctx, msg); err != nil {
		return nil, err
	}

	s.metrics.IncEmailIngested()

	// The watermark only moves forward; out-of-order delivery is harmless.
	if err := s.accountRepo.AdvanceWatermark(ctx, req.UserID, req.ReceivedDate); err != nil {
		s.log.Error("Failed to advance watermark for user %s: %v", req.UserID, err)
	}

	return msg, nil
}

func (s *emailService) AttachParsedData(ctx context.Context, messageID string, data domain.ParsedData) (*domain.EmailMessage, error) {
	s.log.Debug("Attaching parsed data to message: %s", messageID)

	if messageID == "" {
		var verr domain.ValidationErrors
		verr.Add("message_id", "is required")
		return nil, verr
	}

	if err := s.repo.AttachParsedData(ctx, messageID, data); err != nil {
		return nil, err
	}

	s.metrics.IncEmailParsed()

	msg, err := s.repo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}

	s.createDetectedSubscription(ctx, &msg)

	return &msg, nil
}

// createDetectedSubscription turns parsed subscription fields into a
// subscription row. Parsing output is advisory: missing fields mean no
// subscription was detected, and a duplicate means we already know it.
func (s *emailService) createDetectedSubscription(ctx context.Context, msg *domain.EmailMessage) {
	platform := stringField(msg.ParsedData, "platform_name")
	service := stringField(msg.ParsedData, "service_name")
	price := stringField(msg.ParsedData, "price")
	if platform == "" || service == "" || price == "" {
		return
	}

	req := domain.CreateSubscriptionRequest{
		UserID:          msg.UserID,
		PlatformName:    platform,
		ServiceName:     service,
		Price:           price,
		Currency:        stringField(msg.ParsedData, "currency"),
		PaymentMethod:   stringField(msg.ParsedData, "payment_method"),
		StartDate:       stringField(msg.ParsedData, "start_date"),
		EndDate:         stringField(msg.ParsedData, "end_date"),
		IsTrial:         boolField(msg.ParsedData, "is_trial"),
		EmailMessageID:  msg.MessageID,
		UnsubscribeLink: stringField(msg.ParsedData, "unsubscribe_link"),
		Notes:           stringField(msg.ParsedData, "notes"),
	}

	created, err := s.subscriptions.Create(ctx, req)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			s.log.Debug("Detected subscription already known, message: %s", msg.MessageID)
			return
		}
		s.log.Error("Failed to create subscription from message %s: %v", msg.MessageID, err)
		return
	}

	s.log.Info("Created subscription %d from message %s", created.ID, msg.MessageID)
}

func (s *emailService) GetDetail(ctx context.Context, messageID string) (domain.EmailMessageDetail, error) {
	s.log.Debug("Getting email message: %s", messageID)

	msg, err := s.repo.GetByID(ctx, messageID)
	if err != nil {
		return domain.EmailMessageDetail{}, err
	}

	return domain.EmailMessageDetail{
		MessageID:    msg.MessageID,
		UserID:       msg.UserID,
		Subject:      msg.Subject,
		Sender:       msg.Sender,
		ReceivedDate: msg.ReceivedDate,
		RawBody:      msg.RawBody,
		ParsedData:   msg.ParsedData,
		CreatedAt:    msg.CreatedAt,
	}, nil
}

func (s *emailService) Delete(ctx context.Context, messageID string) error {
	s.log.Debug("Deleting email message: %s", messageID)
	return s.repo.Delete(ctx, messageID)
}

// stringField reads a key from parsed data, accepting strings and JSON
// numbers. Anything else reads as absent.
func stringField(data domain.ParsedData, key string) string {
	switch v := data[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func boolField(data domain.ParsedData, key string) bool {
	v, _ := data[key].(bool)
	return v
}
