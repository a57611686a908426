package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"account-api/internal/domain"
	"account-api/internal/repository"
)

const createAccountsTable = `
CREATE TABLE IF NOT EXISTS accounts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	handle TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
`

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
	row := r.db.QueryRowContext(ctx, `
SELECT handle, name
FROM accounts
WHERE handle = ?`,
		user,
	)

	var account domain.Account
	if err := row.Scan(&account.User, &account.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return &account, nil
}

func (r *AccountRepository) LoadAll(ctx context.Context) ([]domain.Account, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT handle, name
FROM accounts
ORDER BY id`)
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
	_, err := r.db.ExecContext(ctx, `
INSERT INTO accounts (handle, name, created_at)
VALUES (?, ?, ?)`,
		account.User,
		account.Name,
		time.Now().UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("save account %q: %w", account.User, repository.ErrDuplicate)
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}

	return r.Load(ctx, account.User)
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch code := sqliteErr.Code(); {
	case code == sqlite3.SQLITE_CONSTRAINT_UNIQUE, code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	case code&0xff == sqlite3.SQLITE_CONSTRAINT:
		// extended result codes disabled
		return strings.Contains(sqliteErr.Error(), "UNIQUE")
	}
	return false
}

var _ repository.AccountRepository = (*AccountRepository)(nil)
