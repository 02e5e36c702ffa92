package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// Memory is an in-process Store backed by ttlcache.
type Memory struct {
	mu    sync.Mutex
	items *ttlcache.Cache[string, []byte]
}

// NewMemory creates an in-process store and starts its expiry loop.
func NewMemory() *Memory {
	items := ttlcache.New[string, []byte](
		// Reads must not extend a cooldown.
		ttlcache.WithDisableTouchOnHit[string, []byte](),
	)
	go items.Start()
	return &Memory{items: items}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	item := m.items.Get(key)
	if item == nil {
		return nil, false, nil
	}
	return item.Value(), true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items.Set(key, value, ttl)
	return nil
}

func (m *Memory) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item := m.items.Get(key); item != nil {
		return false, nil
	}
	m.items.Set(key, value, ttl)
	return true, nil
}

func (m *Memory) SetIf(_ context.Context, key string, value []byte, ttl time.Duration, replace func([]byte) bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item := m.items.Get(key); item != nil && !replace(item.Value()) {
		return false, nil
	}
	m.items.Set(key, value, ttl)
	return true, nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.items.Delete(key)
	return nil
}

func (m *Memory) Close() error {
	m.items.Stop()
	return nil
}
