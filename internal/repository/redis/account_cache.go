package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"account-api/internal/domain"
	"account-api/internal/repository"
)

const (
	accountKeyPrefix  = "account:"
	listKeyPrefix     = "accounts:all:"
	listGenerationKey = "accounts:gen"

	// list entries always expire so a list written under a stale generation cannot linger
	maxListTTL = time.Hour
)

// CachedAccountRepository is a read-through cache in front of another AccountRepository.
// Cache failures are logged and never fail the call; the backing store stays authoritative.
type CachedAccountRepository struct {
	next   repository.AccountRepository
	client *goredis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

// NewCachedAccountRepository wraps next. A ttl of 0 keeps account entries until
// evicted; list entries expire after at most maxListTTL.
func NewCachedAccountRepository(next repository.AccountRepository, client *goredis.Client, ttl time.Duration, logger *logrus.Logger) *CachedAccountRepository {
	if logger == nil {
		logger = logrus.New()
	}
	return &CachedAccountRepository{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (r *CachedAccountRepository) Init(ctx context.Context) error {
	return r.next.Init(ctx)
}

func (r *CachedAccountRepository) Load(ctx context.Context, user string) (*domain.Account, error) {
	key := accountKeyPrefix + user

	var cached domain.Account
	if r.get(ctx, key, &cached) {
		return &cached, nil
	}

	account, err := r.next.Load(ctx, user)
	if err != nil {
		return nil, err
	}
	r.set(ctx, key, account)
	return account, nil
}

// LoadAll caches the list under the generation read before querying the store.
// Save bumps the generation, so a list read before a concurrent Save lands under
// a key no later reader asks for.
func (r *CachedAccountRepository) LoadAll(ctx context.Context) ([]domain.Account, error) {
	gen, ok := r.listGeneration(ctx)
	if !ok {
		return r.next.LoadAll(ctx)
	}
	key := listKey(gen)

	var cached []domain.Account
	if r.get(ctx, key, &cached) && cached != nil {
		return cached, nil
	}

	accounts, err := r.next.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	r.setWithTTL(ctx, key, accounts, r.listTTL())
	return accounts, nil
}

func (r *CachedAccountRepository) Save(ctx context.Context, account domain.Account) (*domain.Account, error) {
	saved, err := r.next.Save(ctx, account)
	if err != nil {
		return nil, err
	}
	r.set(ctx, accountKeyPrefix+saved.User, saved)

	gen, err := r.client.Incr(ctx, listGenerationKey).Result()
	if err != nil {
		r.logger.WithError(err).WithField("key", listGenerationKey).Warn("account cache: generation bump failed")
		return saved, nil
	}
	if err := r.client.Del(ctx, listKey(gen-1)).Err(); err != nil {
		r.logger.WithError(err).WithField("key", listKey(gen-1)).Warn("account cache: delete failed")
	}
	return saved, nil
}

func (r *CachedAccountRepository) listGeneration(ctx context.Context) (int64, bool) {
	gen, err := r.client.Get(ctx, listGenerationKey).Int64()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return 0, true
		}
		r.logger.WithError(err).WithField("key", listGenerationKey).Warn("account cache: read failed")
		return 0, false
	}
	return gen, true
}

func (r *CachedAccountRepository) listTTL() time.Duration {
	if r.ttl <= 0 || r.ttl > maxListTTL {
		return maxListTTL
	}
	return r.ttl
}

func listKey(gen int64) string {
	return listKeyPrefix + strconv.FormatInt(gen, 10)
}

func (r *CachedAccountRepository) get(ctx context.Context, key string, dst any) bool {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			r.logger.WithError(err).WithField("key", key).Warn("account cache: read failed")
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		r.logger.WithError(err).WithField("key", key).Warn("account cache: decode failed")
		return false
	}
	return true
}

func (r *CachedAccountRepository) set(ctx context.Context, key string, value any) {
	r.setWithTTL(ctx, key, value, r.ttl)
}

func (r *CachedAccountRepository) setWithTTL(ctx context.Context, key string, value any, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		r.logger.WithError(err).WithField("key", key).Warn("account cache: encode failed")
		return
	}
	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		r.logger.WithError(err).WithField("key", key).Warn("account cache: write failed")
	}
}

var _ repository.AccountRepository = (*CachedAccountRepository)(nil)
