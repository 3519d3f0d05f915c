package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"rentai-booking-backend/internal/domain"
)

var (
	ErrCacheMiss = errors.New("cache miss")
	// ErrStaleFill is returned by Set when the renter's cart was invalidated after
	// the caller read its version.
	ErrStaleFill = errors.New("cart invalidated during fill")
)

// CartCache stores the draft-cart projection per renter. Every Delete bumps the
// renter's version; Set only writes when the version still matches the one the
// caller read before loading from storage.
type CartCache interface {
	Get(ctx context.Context, renterID string) (*domain.CartView, error)
	Version(ctx context.Context, renterID string) (int64, error)
	Set(ctx context.Context, renterID string, version int64, cart *domain.CartView) error
	Delete(ctx context.Context, renterID string) error
}

// versionTTL outlives any cart entry so a fill can never see a reset counter.
const versionTTL = 24 * time.Hour

type RedisCache struct {
	client  redis.UniversalClient
	baseTTL time.Duration
	jitter  time.Duration
}

// NewRedisCache builds a cache whose entries live for ttl plus up to jitter, so
// keys filled together do not expire together.
func NewRedisCache(client redis.UniversalClient, ttl, jitter time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisCache{client: client, baseTTL: ttl, jitter: jitter}
}

func (r *RedisCache) Get(ctx context.Context, renterID string) (*domain.CartView, error) {
	data, err := r.client.Get(ctx, cacheKey(renterID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var cart domain.CartView
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	return &cart, nil
}

func (r *RedisCache) Version(ctx context.Context, renterID string) (int64, error) {
	v, err := r.client.Get(ctx, versionKey(renterID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get version failed: %w", err)
	}
	return v, nil
}

func (r *RedisCache) Set(ctx context.Context, renterID string, version int64, cart *domain.CartView) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	vKey := versionKey(renterID)
	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, vKey).Int64()
		if errors.Is(err, redis.Nil) {
			current = 0
		} else if err != nil {
			return err
		}
		if current != version {
			return ErrStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, cacheKey(renterID), data, r.ttl())
			return nil
		})
		return err
	}, vKey)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrStaleFill), errors.Is(err, redis.TxFailedErr):
		return ErrStaleFill
	default:
		return fmt.Errorf("redis set failed: %w", err)
	}
}

// Delete drops the cached cart and bumps the renter's version in one transaction.
func (r *RedisCache) Delete(ctx context.Context, renterID string) error {
	vKey := versionKey(renterID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, cacheKey(renterID))
		pipe.Incr(ctx, vKey)
		pipe.Expire(ctx, vKey, versionTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (r *RedisCache) ttl() time.Duration {
	if r.jitter <= 0 {
		return r.baseTTL
	}
	return r.baseTTL + time.Duration(rand.Int63n(int64(r.jitter)))
}

func cacheKey(renterID string) string {
	return "cart:" + renterID
}

func versionKey(renterID string) string {
	return "cart:" + renterID + ":version"
}
