package rate

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/momentos-dulces/api/internal/database"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

type mockStore struct {
	getExchangeRate    func(ctx context.Context) (database.ExchangeRate, error)
	updateExchangeRate func(ctx context.Context, arg database.UpdateExchangeRateParams) (database.ExchangeRate, error)
}

func (m *mockStore) GetExchangeRate(ctx context.Context) (database.ExchangeRate, error) {
	return m.getExchangeRate(ctx)
}

func (m *mockStore) UpdateExchangeRate(ctx context.Context, arg database.UpdateExchangeRateParams) (database.ExchangeRate, error) {
	return m.updateExchangeRate(ctx, arg)
}

// memCache is an in-process Cache used by the tests; failing=true makes every
// call error like an unreachable redis.
type memCache struct {
	data    map[string]string
	failing bool
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string]string)}
}

func (c *memCache) Get(ctx context.Context, key string) (string, error) {
	if c.failing {
		return "", errors.New("connection refused")
	}
	v, ok := c.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (c *memCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if c.failing {
		return errors.New("connection refused")
	}
	c.data[key] = value
	return nil
}

func (c *memCache) Del(ctx context.Context, key string) error {
	if c.failing {
		return errors.New("connection refused")
	}
	delete(c.data, key)
	return nil
}

func numeric(t *testing.T, s string) pgtype.Numeric {
	t.Helper()
	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		t.Fatalf("numeric(%q): %v", s, err)
	}
	return n
}

func TestGetPopulatesCacheOnMiss(t *testing.T) {
	dbCalls := 0
	store := &mockStore{
		getExchangeRate: func(ctx context.Context) (database.ExchangeRate, error) {
			dbCalls++
			return database.ExchangeRate{
				UsdToBs:   numeric(t, "36.50"),
				UpdatedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
			}, nil
		},
	}
	cache := newMemCache()
	svc := NewService(store, cache)

	first, err := svc.Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if first.UsdToBs != "36.50" {
		t.Errorf("UsdToBs = %q, want 36.50", first.UsdToBs)
	}
	if _, ok := cache.data[cacheKey]; !ok {
		t.Fatal("cache was not populated after miss")
	}

	// Second read is served from cache.
	second, err := svc.Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if second.UsdToBs != "36.50" {
		t.Errorf("cached UsdToBs = %q, want 36.50", second.UsdToBs)
	}
	if dbCalls != 1 {
		t.Errorf("db calls = %d, want 1 (second read from cache)", dbCalls)
	}
}

func TestGetDegradesWhenCacheDown(t *testing.T) {
	store := &mockStore{
		getExchangeRate: func(ctx context.Context) (database.ExchangeRate, error) {
			return database.ExchangeRate{UsdToBs: numeric(t, "37.10")}, nil
		},
	}
	svc := NewService(store, &memCache{failing: true})

	got, err := svc.Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v, want fallback to db", err)
	}
	if got.UsdToBs != "37.10" {
		t.Errorf("UsdToBs = %q, want 37.10", got.UsdToBs)
	}
}

func TestGetIgnoresCorruptCacheEntry(t *testing.T) {
	store := &mockStore{
		getExchangeRate: func(ctx context.Context) (database.ExchangeRate, error) {
			return database.ExchangeRate{UsdToBs: numeric(t, "36.00")}, nil
		},
	}
	cache := newMemCache()
	cache.data[cacheKey] = "{not json"
	svc := NewService(store, cache)

	got, err := svc.Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.UsdToBs != "36.00" {
		t.Errorf("UsdToBs = %q, want 36.00 from db", got.UsdToBs)
	}
}

func TestGetNotSet(t *testing.T) {
	store := &mockStore{
		getExchangeRate: func(ctx context.Context) (database.ExchangeRate, error) {
			return database.ExchangeRate{}, pgx.ErrNoRows
		},
	}
	svc := NewService(store, newMemCache())

	_, err := svc.Get(context.Background())
	if !errors.Is(err, ErrNotSet) {
		t.Errorf("Get() error = %v, want ErrNotSet", err)
	}
}

func TestUpdateInvalidatesCache(t *testing.T) {
	store := &mockStore{
		updateExchangeRate: func(ctx context.Context, arg database.UpdateExchangeRateParams) (database.ExchangeRate, error) {
			return database.ExchangeRate{UsdToBs: arg.UsdToBs, UpdatedAt: time.Now()}, nil
		},
	}
	cache := newMemCache()
	stale, _ := json.Marshal(Rate{UsdToBs: "30.00"})
	cache.data[cacheKey] = string(stale)

	svc := NewService(store, cache)
	got, err := svc.Update(context.Background(), decimal.RequireFromString("38.25"), pgtype.UUID{})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got.UsdToBs != "38.25" {
		t.Errorf("UsdToBs = %q, want 38.25", got.UsdToBs)
	}
	if _, ok := cache.data[cacheKey]; ok {
		t.Error("cache entry not invalidated after update")
	}
}
