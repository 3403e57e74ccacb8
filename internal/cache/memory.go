package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryProvider is an in-process Provider with LRU eviction. Entries share a
// single TTL; the ttl argument of Set only decides whether the key is kept at all.
type MemoryProvider struct {
	lru *expirable.LRU[string, []byte]
}

// NewMemoryProvider creates a MemoryProvider holding at most size entries for ttl.
// A zero ttl disables expiry.
func NewMemoryProvider(size int, ttl time.Duration) *MemoryProvider {
	if size <= 0 {
		size = 128
	}
	return &MemoryProvider{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

// Get returns a copy of the stored bytes or ErrCacheMiss.
func (p *MemoryProvider) Get(_ context.Context, key string) ([]byte, error) {
	value, ok := p.lru.Get(key)
	if !ok {
		return nil, ErrCacheMiss
	}
	return append([]byte(nil), value...), nil
}

// Set stores a copy of value.
func (p *MemoryProvider) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		return nil
	}
	p.lru.Add(key, append([]byte(nil), value...))
	return nil
}

// Del removes key.
func (p *MemoryProvider) Del(_ context.Context, key string) error {
	p.lru.Remove(key)
	return nil
}

// Len reports the number of live entries.
func (p *MemoryProvider) Len() int {
	return p.lru.Len()
}

// Close drops all entries.
func (p *MemoryProvider) Close() error {
	p.lru.Purge()
	return nil
}
