package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"account-api/internal/domain"
	"account-api/internal/repository"
)

func newTestRepository(t *testing.T) repository.AccountRepository {
	t.Helper()
	ctx := context.Background()

	db, err := Open(ctx, filepath.Join(t.TempDir(), "accounts.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo := NewAccountRepository(db)
	if err := repo.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	return repo
}

func TestAccountRepositorySaveAndLoad(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	saved, err := repo.Save(ctx, domain.Account{User: "user", Name: "name"})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if *saved != (domain.Account{User: "user", Name: "name"}) {
		t.Fatalf("unexpected saved account: %+v", saved)
	}

	loaded, err := repo.Load(ctx, "user")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if *loaded != *saved {
		t.Fatalf("got %+v, want %+v", loaded, saved)
	}
}

func TestAccountRepositoryLoadMissing(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.Load(context.Background(), "missing")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAccountRepositoryDuplicate(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	if _, err := repo.Save(ctx, domain.Account{User: "user", Name: "first"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	_, err := repo.Save(ctx, domain.Account{User: "user", Name: "second"})
	if !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	loaded, err := repo.Load(ctx, "user")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Name != "first" {
		t.Fatalf("duplicate save overwrote record: %+v", loaded)
	}
}

func TestAccountRepositoryLoadAll(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	accounts, err := repo.LoadAll(ctx)
	if err != nil {
		t.Fatalf("load all: %v", err)
	}
	if accounts == nil || len(accounts) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", accounts)
	}

	want := []domain.Account{
		{User: "user1", Name: "name1"},
		{User: "user2", Name: "name2"},
		{User: "user3", Name: "name3"},
	}
	for _, a := range want {
		if _, err := repo.Save(ctx, a); err != nil {
			t.Fatalf("save %s: %v", a.User, err)
		}
	}

	accounts, err = repo.LoadAll(ctx)
	if err != nil {
		t.Fatalf("load all: %v", err)
	}
	if len(accounts) != len(want) {
		t.Fatalf("got %d accounts, want %d", len(accounts), len(want))
	}
	for i := range want {
		if accounts[i] != want[i] {
			t.Fatalf("accounts[%d] = %+v, want %+v", i, accounts[i], want[i])
		}
	}
}
