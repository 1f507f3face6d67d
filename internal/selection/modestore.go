package selection

import (
	"context"
	"errors"
	"sync"

	"github.com/redis/go-redis/v9"
)

// MemoryModeStore keeps modes in process memory. Used by tests and by
// deployments without redis configured.
type MemoryModeStore struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryModeStore() *MemoryModeStore {
	return &MemoryModeStore{values: make(map[string]string)}
}

func (m *MemoryModeStore) Load(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key], nil
}

func (m *MemoryModeStore) Save(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// RedisModeStore persists modes under prefix+key. A missing key loads as
// the empty string, which ParseMode treats as include.
type RedisModeStore struct {
	client *redis.Client
	prefix string
}

func NewRedisModeStore(client *redis.Client, prefix string) *RedisModeStore {
	if prefix == "" {
		prefix = "blocks:mode:"
	}
	return &RedisModeStore{client: client, prefix: prefix}
}

func (r *RedisModeStore) Load(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

func (r *RedisModeStore) Save(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, r.prefix+key, value, 0).Err()
}

// OpenRedis returns nil when no address is configured, which disables
// durable mode storage rather than failing startup.
func OpenRedis(addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
}
