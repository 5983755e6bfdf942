package cartpersist

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/frutaseca/cart-backend/pkg/redis"
)

// Storage is the persistence surface the session host consumes. Absent
// keys return (nil, nil); the caller decides the fallback chain.
type Storage interface {
	LoadSnapshot(ctx context.Context, sessionID string) ([]byte, error)
	LoadLegacy(ctx context.Context, sessionID string) ([]byte, error)
	SaveSnapshot(ctx context.Context, sessionID string, data []byte) error
}

// RedisStorage persists snapshots under the namespaced v1 key and reads
// the unnamespaced legacy key. The legacy key is never written.
type RedisStorage struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStorage wires snapshot storage to Redis. A zero ttl keeps
// snapshots forever.
func NewRedisStorage(client *redis.Client, ttl time.Duration) (*RedisStorage, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return &RedisStorage{client: client, ttl: ttl}, nil
}

func (s *RedisStorage) LoadSnapshot(ctx context.Context, sessionID string) ([]byte, error) {
	return s.load(ctx, s.client.CartSnapshotKey(sessionID))
}

func (s *RedisStorage) LoadLegacy(ctx context.Context, sessionID string) ([]byte, error) {
	return s.load(ctx, s.client.LegacyCartKey(sessionID))
}

func (s *RedisStorage) load(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, key)
	if err != nil {
		if redis.IsNil(err) {
			return nil, nil
		}
		return nil, err
	}
	return []byte(value), nil
}

func (s *RedisStorage) SaveSnapshot(ctx context.Context, sessionID string, data []byte) error {
	return s.client.Set(ctx, s.client.CartSnapshotKey(sessionID), string(data), s.ttl)
}

// MemoryStorage is an in-process Storage for tests and local development.
type MemoryStorage struct {
	mu        sync.Mutex
	snapshots map[string][]byte
	legacy    map[string][]byte

	SaveCalls int
	SaveErr   error
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		snapshots: map[string][]byte{},
		legacy:    map[string][]byte{},
	}
}

func (m *MemoryStorage) LoadSnapshot(_ context.Context, sessionID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshots[sessionID], nil
}

func (m *MemoryStorage) LoadLegacy(_ context.Context, sessionID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.legacy[sessionID], nil
}

func (m *MemoryStorage) SaveSnapshot(_ context.Context, sessionID string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalls++
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.snapshots[sessionID] = data
	return nil
}

// SeedSnapshot installs a snapshot payload for a session (test helper).
func (m *MemoryStorage) SeedSnapshot(sessionID string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[sessionID] = data
}

// SeedLegacy installs a legacy payload for a session (test helper).
func (m *MemoryStorage) SeedLegacy(sessionID string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.legacy[sessionID] = data
}

// Snapshot returns the stored snapshot bytes for a session (test helper).
func (m *MemoryStorage) Snapshot(sessionID string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshots[sessionID]
}
