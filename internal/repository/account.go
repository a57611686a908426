package repository

import (
	"context"
	"errors"

	"account-api/internal/domain"
)

var (
	// ErrNotFound is returned by Load when no account exists for the handle.
	ErrNotFound = errors.New("account not found")
	// ErrDuplicate is returned by Save when the handle is already stored.
	ErrDuplicate = errors.New("account already exists")
)

// AccountRepository exposes persistence operations for accounts.
type AccountRepository interface {
	Init(ctx context.Context) error
	Load(ctx context.Context, user string) (*domain.Account, error)
	LoadAll(ctx context.Context) ([]domain.Account, error)
	Save(ctx context.Context, account domain.Account) (*domain.Account, error)
}
