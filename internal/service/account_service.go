package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"account-api/internal/domain"
	"account-api/internal/repository"
)

// AccountService describes the account operations available to transports.
type AccountService interface {
	Find(ctx context.Context, user string) (*domain.Account, error)
	FindAll(ctx context.Context) ([]domain.Account, error)
	Insert(ctx context.Context, account domain.Account) (*domain.Account, error)
}

type accountService struct {
	accounts repository.AccountRepository
	validate *validator.Validate
}

func NewAccountService(accounts repository.AccountRepository) AccountService {
	validate := validator.New(validator.WithRequiredStructEnabled())
	// registration only fails on an empty tag or nil func
	_ = validate.RegisterValidation("notblank", validators.NotBlank)

	return &accountService{
		accounts: accounts,
		validate: validate,
	}
}

func (s *accountService) Find(ctx context.Context, user string) (*domain.Account, error) {
	account, err := s.accounts.Load(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &domain.AccountNotFoundError{User: user}
		}
		return nil, fmt.Errorf("load account: %w", err)
	}
	return account, nil
}

func (s *accountService) FindAll(ctx context.Context) ([]domain.Account, error) {
	accounts, err := s.accounts.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	if accounts == nil {
		accounts = []domain.Account{}
	}
	return accounts, nil
}

func (s *accountService) Insert(ctx context.Context, account domain.Account) (*domain.Account, error) {
	if err := s.validateAccount(account); err != nil {
		return nil, err
	}

	saved, err := s.accounts.Save(ctx, account)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, &domain.AccountExistsError{User: account.User}
		}
		return nil, fmt.Errorf("save account: %w", err)
	}
	return saved, nil
}

// validateAccount reports the first failing field, in declaration order.
func (s *accountService) validateAccount(account domain.Account) error {
	err := s.validate.Struct(account)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("validate account: %w", err)
	}
	return &domain.InvalidArgumentError{
		Message: fmt.Sprintf("%s cannot be empty.", fieldErrs[0].Field()),
	}
}
