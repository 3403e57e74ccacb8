package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/integrityos/risk-engine/internal/cache"
)

// DefaultSnapshotKey is where the trained model is kept in the cache.
const DefaultSnapshotKey = "risk-engine:classifier:model"

// SnapshotStore persists trained models through a cache provider so a restarted
// process can serve the last model before the next import.
type SnapshotStore struct {
	provider cache.Provider
	key      string
	ttl      time.Duration
}

// NewSnapshotStore creates a store. A nil provider disables persistence.
func NewSnapshotStore(provider cache.Provider, key string, ttl time.Duration) *SnapshotStore {
	if provider == nil {
		provider = cache.NoopProvider{}
	}
	if key == "" {
		key = DefaultSnapshotKey
	}
	return &SnapshotStore{provider: provider, key: key, ttl: ttl}
}

// Save serialises the model.
func (s *SnapshotStore) Save(ctx context.Context, m *Model) error {
	if m == nil {
		return s.provider.Del(ctx, s.key)
	}
	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	if err := s.provider.Set(ctx, s.key, payload, s.ttl); err != nil {
		return fmt.Errorf("store model %s: %w", m.Version, err)
	}
	return nil
}

// Load returns the stored model, or an error wrapping cache.ErrCacheMiss.
func (s *SnapshotStore) Load(ctx context.Context) (*Model, error) {
	payload, err := s.provider.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	var m Model
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	return &m, nil
}
