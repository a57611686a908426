package redis

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"account-api/internal/domain"
	"account-api/internal/repository"
)

type mockAccountRepository struct {
	loadCalls    int
	loadAllCalls int
	loadFn       func(string) (*domain.Account, error)
	loadAllFn    func() ([]domain.Account, error)
	saveFn       func(domain.Account) (*domain.Account, error)
}

func (m *mockAccountRepository) Init(ctx context.Context) error { return nil }

func (m *mockAccountRepository) Load(ctx context.Context, user string) (*domain.Account, error) {
	m.loadCalls++
	if m.loadFn != nil {
		return m.loadFn(user)
	}
	return nil, repository.ErrNotFound
}

func (m *mockAccountRepository) LoadAll(ctx context.Context) ([]domain.Account, error) {
	m.loadAllCalls++
	if m.loadAllFn != nil {
		return m.loadAllFn()
	}
	return []domain.Account{}, nil
}

func (m *mockAccountRepository) Save(ctx context.Context, account domain.Account) (*domain.Account, error) {
	if m.saveFn != nil {
		return m.saveFn(account)
	}
	return &account, nil
}

func newCachedRepository(t *testing.T, next repository.AccountRepository) (*CachedAccountRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewCachedAccountRepository(next, client, time.Minute, logger), mr
}

func TestCachedLoadServesSecondReadFromCache(t *testing.T) {
	ctx := context.Background()
	next := &mockAccountRepository{
		loadFn: func(user string) (*domain.Account, error) {
			return &domain.Account{User: user, Name: "name"}, nil
		},
	}
	repo, mr := newCachedRepository(t, next)

	for i := 0; i < 2; i++ {
		account, err := repo.Load(ctx, "user")
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if *account != (domain.Account{User: "user", Name: "name"}) {
			t.Fatalf("unexpected account: %+v", account)
		}
	}
	if next.loadCalls != 1 {
		t.Fatalf("expected 1 backing load, got %d", next.loadCalls)
	}
	if !mr.Exists("account:user") {
		t.Fatalf("expected account:user to be cached")
	}
}

func TestCachedLoadDoesNotCacheMisses(t *testing.T) {
	ctx := context.Background()
	next := &mockAccountRepository{}
	repo, _ := newCachedRepository(t, next)

	for i := 0; i < 2; i++ {
		if _, err := repo.Load(ctx, "missing"); !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	}
	if next.loadCalls != 2 {
		t.Fatalf("expected 2 backing loads, got %d", next.loadCalls)
	}
}

func TestCachedSaveInvalidatesList(t *testing.T) {
	ctx := context.Background()
	stored := []domain.Account{{User: "user1", Name: "name1"}}
	next := &mockAccountRepository{
		loadAllFn: func() ([]domain.Account, error) { return stored, nil },
		saveFn: func(a domain.Account) (*domain.Account, error) {
			stored = append(stored, a)
			return &a, nil
		},
	}
	repo, mr := newCachedRepository(t, next)

	if _, err := repo.LoadAll(ctx); err != nil {
		t.Fatalf("load all: %v", err)
	}
	if !mr.Exists(listKey(0)) {
		t.Fatalf("expected list to be cached under generation 0")
	}
	if ttl := mr.TTL(listKey(0)); ttl <= 0 || ttl > maxListTTL {
		t.Fatalf("expected bounded list ttl, got %s", ttl)
	}

	if _, err := repo.Save(ctx, domain.Account{User: "user2", Name: "name2"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if mr.Exists(listKey(0)) {
		t.Fatalf("expected previous generation to be deleted")
	}

	accounts, err := repo.LoadAll(ctx)
	if err != nil {
		t.Fatalf("load all: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(accounts))
	}
	if next.loadAllCalls != 2 {
		t.Fatalf("expected 2 backing list calls, got %d", next.loadAllCalls)
	}
	if !mr.Exists(listKey(1)) {
		t.Fatalf("expected list to be cached under generation 1")
	}
}

func TestCachedListReadRacingSave(t *testing.T) {
	ctx := context.Background()
	var stored []domain.Account
	taken := make(chan struct{})
	release := make(chan struct{})
	first := true
	next := &mockAccountRepository{
		loadAllFn: func() ([]domain.Account, error) {
			snapshot := append([]domain.Account{}, stored...)
			if first {
				first = false
				close(taken)
				<-release
			}
			return snapshot, nil
		},
		saveFn: func(a domain.Account) (*domain.Account, error) {
			stored = append(stored, a)
			return &a, nil
		},
	}
	repo, _ := newCachedRepository(t, next)

	done := make(chan error, 1)
	go func() {
		_, err := repo.LoadAll(ctx)
		done <- err
	}()

	<-taken
	if _, err := repo.Save(ctx, domain.Account{User: "user", Name: "name"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("racing load all: %v", err)
	}

	accounts, err := repo.LoadAll(ctx)
	if err != nil {
		t.Fatalf("load all: %v", err)
	}
	if len(accounts) != 1 || accounts[0].User != "user" {
		t.Fatalf("committed account missing from list: %+v", accounts)
	}
}

func TestCachedFallsBackWhenRedisIsDown(t *testing.T) {
	ctx := context.Background()
	next := &mockAccountRepository{
		loadFn: func(user string) (*domain.Account, error) {
			return &domain.Account{User: user, Name: "name"}, nil
		},
	}
	repo, mr := newCachedRepository(t, next)
	mr.Close()

	account, err := repo.Load(ctx, "user")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if account.User != "user" {
		t.Fatalf("unexpected account: %+v", account)
	}
}
