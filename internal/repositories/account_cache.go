package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prudhvinik1/authcore/internal/models"
	"github.com/redis/go-redis/v9"
)

const accountCachePrefix = "account:"

// CachedAccountRepository puts a Redis read-through cache in front of
// GetByID. Only the public profile is cached: accounts returned from the
// cache carry an empty PasswordHash. Credential lookups (by email or
// username) always go to the underlying store.
type CachedAccountRepository struct {
	AccountRepository
	client *redis.Client
	ttl    time.Duration
	onErr  func(ctx context.Context, op string, err error)
}

func NewCachedAccountRepository(next AccountRepository, client *redis.Client, ttl time.Duration) *CachedAccountRepository {
	return &CachedAccountRepository{
		AccountRepository: next,
		client:            client,
		ttl:               ttl,
		onErr:             func(context.Context, string, error) {},
	}
}

// OnCacheError registers a hook for cache failures. Cache errors never fail
// the request; the store result is used instead.
func (r *CachedAccountRepository) OnCacheError(fn func(ctx context.Context, op string, err error)) {
	if fn != nil {
		r.onErr = fn
	}
}

func (r *CachedAccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	data, err := r.client.Get(ctx, accountCacheKey(id)).Bytes()
	if err == nil {
		var account models.Account
		if err := json.Unmarshal(data, &account); err == nil {
			return &account, nil
		}
		r.onErr(ctx, "decode", fmt.Errorf("failed to unmarshal cached account: %w", err))
	} else if !errors.Is(err, redis.Nil) {
		r.onErr(ctx, "get", fmt.Errorf("failed to get cached account: %w", err))
	}

	account, err := r.AccountRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.store(ctx, account)
	return account, nil
}

func (r *CachedAccountRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	if err := r.AccountRepository.UpdateLastLogin(ctx, id, at); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

func (r *CachedAccountRepository) UpdateProfile(ctx context.Context, id string, update models.ProfileUpdate) (*models.Account, error) {
	account, err := r.AccountRepository.UpdateProfile(ctx, id, update)
	if err != nil {
		return nil, err
	}
	r.store(ctx, account)
	return account, nil
}

func (r *CachedAccountRepository) store(ctx context.Context, account *models.Account) {
	data, err := json.Marshal(account)
	if err != nil {
		r.onErr(ctx, "encode", fmt.Errorf("failed to marshal account: %w", err))
		return
	}
	if err := r.client.Set(ctx, accountCacheKey(account.ID), data, r.ttl).Err(); err != nil {
		r.onErr(ctx, "set", fmt.Errorf("failed to cache account: %w", err))
	}
}

func (r *CachedAccountRepository) invalidate(ctx context.Context, id string) {
	if err := r.client.Del(ctx, accountCacheKey(id)).Err(); err != nil {
		r.onErr(ctx, "del", fmt.Errorf("failed to invalidate cached account: %w", err))
	}
}

func accountCacheKey(id string) string {
	return accountCachePrefix + id
}
