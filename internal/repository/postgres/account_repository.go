package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"account-api/internal/domain"
	"account-api/internal/repository"
)

const createAccountsTable = `
CREATE TABLE IF NOT EXISTS accounts (
	id BIGSERIAL PRIMARY KEY,
	handle TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// uniqueViolation is the postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) repository.AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createAccountsTable); err != nil {
		return fmt.Errorf("create accounts table: %w", err)
	}
	return nil
}

func (r *AccountRepository) Load(ctx context.Context, user string) (*domain.Account, error) {
	var account domain.Account
	err := r.db.QueryRowContext(ctx,
		`SELECT handle, name FROM accounts WHERE handle = $1`, user,
	).Scan(&account.User, &account.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return &account, nil
}

func (r *AccountRepository) LoadAll(ctx context.Context) ([]domain.Account, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT handle, name FROM accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]domain.Account, 0)
	for rows.Next() {
		var account domain.Account
		if err := rows.Scan(&account.User, &account.Name); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return accounts, nil
}

func (r *AccountRepository) Save(ctx context.Context, account domain.Account) (*domain.Account, error) {
	var saved domain.Account
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO accounts (handle, name) VALUES ($1, $2) RETURNING handle, name`,
		account.User, account.Name,
	).Scan(&saved.User, &saved.Name)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, fmt.Errorf("save account %q: %w", account.User, repository.ErrDuplicate)
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}
	return &saved, nil
}

var _ repository.AccountRepository = (*AccountRepository)(nil)
