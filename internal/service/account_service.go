package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/subflo/subflo/internal/domain"
	"github.com/subflo/subflo/internal/repository"
	"github.com/subflo/subflo/pkg/logger"
)

// AccountService handles accounts and their email-processing profiles
type AccountService interface {
	Create(ctx context.Context, req domain.CreateAccountRequest) (domain.Account, error)
	GetDetail(ctx context.Context, id string) (domain.AccountDetail, error)
	// Verify reports whether the account exists. Used by collaborators that
	// only need a yes/no answer.
	Verify(ctx context.Context, id string) (bool, error)
	SetEmailAccess(ctx context.Context, id string, granted bool) error
	Delete(ctx context.Context, id string) error
}

type accountService struct {
	repo repository.AccountRepository
	log  *logger.Logger
}

// NewAccountService creates a new account service
func NewAccountService(repo repository.AccountRepository, log *logger.Logger) AccountService {
	return &accountService{
		repo: repo,
		log:  log,
	}
}

func (s *accountService) Create(ctx context.Context, req domain.CreateAccountRequest) (domain.Account, error) {
	s.log.Debug("Creating account: %s", req.Username)

	var verr domain.ValidationErrors
	if req.Username == "" {
		verr.Add("username", "is required")
	}
	if req.Email == "" {
		verr.Add("email", "is required")
	}
	if verr.HasErrors() {
		return domain.Account{}, verr
	}

	return s.repo.Create(ctx, req)
}

func (s *accountService) GetDetail(ctx context.Context, id string) (domain.AccountDetail, error) {
	s.log.Debug("Getting account detail: %s", id)

	userID, err := parseAccountID(id)
	if err != nil {
		s.log.Warn("Invalid account id format: %s", id)
		return domain.AccountDetail{}, err
	}

	account, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return domain.AccountDetail{}, err
	}

	profile, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return domain.AccountDetail{}, err
	}

	return domain.AccountDetail{
		ID:                 account.ID,
		Username:           account.Username,
		Email:              account.Email,
		EmailAccessGranted: profile.EmailAccessGranted,
		LastProcessedDate:  profile.LastProcessedDate,
		CreatedAt:          account.CreatedAt,
	}, nil
}

func (s *accountService) Verify(ctx context.Context, id string) (bool, error) {
	userID, err := parseAccountID(id)
	if err != nil {
		s.log.Warn("Invalid account id format: %s", id)
		return false, err
	}
	return s.repo.Exists(ctx, userID)
}

func (s *accountService) SetEmailAccess(ctx context.Context, id string, granted bool) error {
	s.log.Debug("Setting email access for account %s to %t", id, granted)

	userID, err := parseAccountID(id)
	if err != nil {
		s.log.Warn("Invalid account id format: %s", id)
		return err
	}
	return s.repo.SetEmailAccess(ctx, userID, granted)
}

func (s *accountService) Delete(ctx context.Context, id string) error {
	s.log.Debug("Deleting account: %s", id)

	userID, err := parseAccountID(id)
	if err != nil {
		s.log.Warn("Invalid account id format: %s", id)
		return err
	}
	return s.repo.Delete(ctx, userID)
}

func parseAccountID(id string) (uuid.UUID, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: account id must be a UUID", domain.ErrInvalidInput)
	}
	return userID, nil
}
