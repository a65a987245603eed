package geocode

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"robotfleet/internal/logging"
)

// ErrCacheMiss is returned by a Store that holds no entry for a key.
var ErrCacheMiss = errors.New("geocode cache miss")

// Store is a key/value backend for cached place names.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Cache wraps a Locator and remembers successful lookups.
type Cache struct {
	next  Locator
	store Store
	ttl   time.Duration
}

// NewCache returns a caching Locator in front of next.
func NewCache(next Locator, store Store, ttl time.Duration) *Cache {
	return &Cache{next: next, store: store, ttl: ttl}
}

// Key rounds coordinates to four decimals (about 11m).
func Key(lat, lon float64) string {
	return fmt.Sprintf("geocode:%.4f:%.4f", lat, lon)
}

// Reverse serves from the store when possible. Store failures are logged and
// the lookup falls through to the wrapped locator. Errors are never cached.
func (c *Cache) Reverse(ctx context.Context, lat, lon float64) (string, error) {
	log := logging.FromContext(ctx)
	key := Key(lat, lon)
	name, err := c.store.Get(ctx, key)
	if err == nil {
		return name, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		log.Warn("geocode cache read failed", "key", key, "err", err)
	}

	name, err = c.next.Reverse(ctx, lat, lon)
	if err != nil {
		return "", err
	}
	if err := c.store.Set(ctx, key, name, c.ttl); err != nil {
		log.Warn("geocode cache write failed", "key", key, "err", err)
	}
	return name, nil
}

type memoryEntry struct {
	value   string
	expires time.Time
}

// MemoryStore is an in-process Store with per-entry expiry.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	max     int
	now     func() time.Time
}

// NewMemoryStore creates a store holding at most max entries; expired
// entries are evicted first when full, then the store is reset.
func NewMemoryStore(max int) *MemoryStore {
	if max <= 0 {
		max = 1024
	}
	return &MemoryStore{entries: make(map[string]memoryEntry), max: max, now: time.Now}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return "", ErrCacheMiss
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		delete(m.entries, key)
		return "", ErrCacheMiss
	}
	return e.value, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[key]; !ok && len(m.entries) >= m.max {
		m.evictLocked()
	}
	var exp time.Time
	if ttl > 0 {
		exp = m.now().Add(ttl)
	}
	m.entries[key] = memoryEntry{value: value, expires: exp}
	return nil
}

// Len returns the number of stored entries, expired or not.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *MemoryStore) evictLocked() {
	now := m.now()
	for k, e := range m.entries {
		if !e.expires.IsZero() && !now.Before(e.expires) {
			delete(m.entries, k)
		}
	}
	if len(m.entries) >= m.max {
		m.entries = make(map[string]memoryEntry)
	}
}

// RedisStore keeps cached place names in Redis.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to addr and verifies the connection.
func NewRedisStore(ctx context.Context, addr, password string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return &RedisStore{client: client}, nil
}

func (r *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	return v, err
}

func (r *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// Close releases the underlying connection pool.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
