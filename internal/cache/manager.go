package cache

import (
	"errors"
	"sync"
	"time"

	"github.com/zuru-melon/assistant/internal/store"
)

// Manager hands out one QueryCache per namespace so callers share a
// connection pool per partition instead of reopening the database. It is
// owned by the composition root and passed to whatever needs a cache;
// lifecycle is tied to process start/stop.
type Manager struct {
	storeCfg store.Config
	ttl      time.Duration

	mu     sync.Mutex
	caches map[string]*QueryCache
}

// NewManager builds a Manager that opens caches against the given store
// with one shared TTL.
func NewManager(storeCfg store.Config, ttl time.Duration) *Manager {
	return &Manager{
		storeCfg: storeCfg,
		ttl:      ttl,
		caches:   map[string]*QueryCache{},
	}
}

// Cache returns the QueryCache for namespace, creating it on first request.
func (m *Manager) Cache(namespace string) *QueryCache {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.caches[namespace]; ok {
		return c
	}
	c := New(Config{Store: m.storeCfg, Namespace: namespace, TTL: m.ttl})
	m.caches[namespace] = c
	return c
}

// Close releases every cache the manager has handed out.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var errs []error
	for namespace, c := range m.caches {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(m.caches, namespace)
	}
	return errors.Join(errs...)
}
