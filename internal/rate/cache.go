package rate

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/momentos-dulces/api/internal/database"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	cacheKey = "exchange_rate"
	cacheTTL = 12 * time.Hour
)

// ErrNotSet is returned when no exchange rate has been configured yet.
var ErrNotSet = errors.New("exchange rate not set")

// Rate is the BCV reference rate exposed to clients and cached in Redis.
type Rate struct {
	UsdToBs   string    `json:"usd_to_bs"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is the database side of the rate service.
type Store interface {
	GetExchangeRate(ctx context.Context) (database.ExchangeRate, error)
	UpdateExchangeRate(ctx context.Context, arg database.UpdateExchangeRateParams) (database.ExchangeRate, error)
}

// Cache is the subset of redis commands the service needs.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// RedisCache adapts a go-redis client to the Cache interface.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.client.Get(ctx, key).Result()
}

func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Del(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// Service serves the USD→Bs rate with a read-through Redis cache. Cache
// failures are logged and degrade to the database; they never fail a request.
type Service struct {
	store Store
	cache Cache
}

func NewService(store Store, cache Cache) *Service {
	return &Service{store: store, cache: cache}
}

// Get returns the current rate, preferring the cache.
func (s *Service) Get(ctx context.Context) (Rate, error) {
	if cached, err := s.cache.Get(ctx, cacheKey); err == nil {
		var r Rate
		if err := json.Unmarshal([]byte(cached), &r); err == nil {
			return r, nil
		}
		// Corrupt entry: fall through to the database and overwrite it.
	} else if !errors.Is(err, redis.Nil) {
		zap.L().Warn("exchange rate cache read failed", zap.Error(err))
	}

	row, err := s.store.GetExchangeRate(ctx)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Rate{}, ErrNotSet
		}
		return Rate{}, err
	}

	r := toRate(row)
	if payload, err := json.Marshal(r); err == nil {
		if err := s.cache.Set(ctx, cacheKey, string(payload), cacheTTL); err != nil {
			zap.L().Warn("exchange rate cache write failed", zap.Error(err))
		}
	}
	return r, nil
}

// Update persists a new rate and invalidates the cache. The next Get
// repopulates it from the database.
func (s *Service) Update(ctx context.Context, usdToBs decimal.Decimal, updatedBy pgtype.UUID) (Rate, error) {
	var value pgtype.Numeric
	if err := value.Scan(usdToBs.StringFixed(2)); err != nil {
		return Rate{}, err
	}

	row, err := s.store.UpdateExchangeRate(ctx, database.UpdateExchangeRateParams{
		UsdToBs:   value,
		UpdatedBy: updatedBy,
	})
	if err != nil {
		return Rate{}, err
	}

	if err := s.cache.Del(ctx, cacheKey); err != nil {
		zap.L().Warn("exchange rate cache invalidation failed", zap.Error(err))
	}
	return toRate(row), nil
}

func toRate(row database.ExchangeRate) Rate {
	var usdToBs string
	if v, err := row.UsdToBs.Value(); err == nil && v != nil {
		usdToBs = v.(string)
	}
	return Rate{UsdToBs: usdToBs, UpdatedAt: row.UpdatedAt}
}
