package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Storage persists cart snapshots between sessions. Implementations must
// treat a missing snapshot as (Snapshot{}, false, nil), not as an error.
type Storage interface {
	Load(ctx context.Context, cartID string) (Snapshot, bool, error)
	Save(ctx context.Context, cartID string, snap Snapshot) error
	Delete(ctx context.Context, cartID string) error
}

// RedisStorage stores snapshots as JSON values with a TTL.
type RedisStorage struct {
	Client *redis.Client
	Prefix string
	TTL    time.Duration
}

func (s RedisStorage) key(cartID string) string {
	prefix := s.Prefix
	if prefix == "" {
		prefix = "storefront:"
	}
	return prefix + "cart:" + cartID
}

func (s RedisStorage) ttl() time.Duration {
	if s.TTL <= 0 {
		return 30 * 24 * time.Hour
	}
	return s.TTL
}

// Load implements Storage.
func (s RedisStorage) Load(ctx context.Context, cartID string) (Snapshot, bool, error) {
	if s.Client == nil || cartID == "" {
		return Snapshot{}, false, nil
	}
	data, err := s.Client.Get(ctx, s.key(cartID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, fmt.Errorf("cart storage: load: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("cart storage: decode: %w", err)
	}
	return snap, true, nil
}

// Save implements Storage.
func (s RedisStorage) Save(ctx context.Context, cartID string, snap Snapshot) error {
	if s.Client == nil || cartID == "" {
		return nil
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("cart storage: encode: %w", err)
	}
	if err := s.Client.Set(ctx, s.key(cartID), data, s.ttl()).Err(); err != nil {
		return fmt.Errorf("cart storage: save: %w", err)
	}
	return nil
}

// Delete implements Storage.
func (s RedisStorage) Delete(ctx context.Context, cartID string) error {
	if s.Client == nil || cartID == "" {
		return nil
	}
	if err := s.Client.Del(ctx, s.key(cartID)).Err(); err != nil {
		return fmt.Errorf("cart storage: delete: %w", err)
	}
	return nil
}

// MemoryStorage keeps snapshots in a map. Used when Redis is not configured
// and in tests.
type MemoryStorage struct {
	mu    sync.Mutex
	snaps map[string]Snapshot
}

// NewMemoryStorage constructs an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{snaps: make(map[string]Snapshot)}
}

// Load implements Storage.
func (m *MemoryStorage) Load(_ context.Context, cartID string) (Snapshot, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.snaps[cartID]
	return snap, ok, nil
}

// Save implements Storage.
func (m *MemoryStorage) Save(_ context.Context, cartID string, snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps[cartID] = snap
	return nil
}

// Delete implements Storage.
func (m *MemoryStorage) Delete(_ context.Context, cartID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snaps, cartID)
	return nil
}
