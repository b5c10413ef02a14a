// Package claim records one-shot keys so that work observed more than once
// is acted on only the first time.
package claim

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Store claims keys. Claim returns true only for the first caller of a key
// within ttl. Release forgets a key so it can be claimed again.
type Store interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// Memory is a process-local Store bounded in size. Keys expire after the
// TTL given to NewMemory; the per-call ttl is ignored.
type Memory struct {
	mu   sync.Mutex
	seen *expirable.LRU[string, struct{}]
}

// NewMemory creates a Memory store holding at most size keys for ttl.
func NewMemory(size int, ttl time.Duration) *Memory {
	return &Memory{seen: expirable.NewLRU[string, struct{}](size, nil, ttl)}
}

// Claim implements Store.
func (m *Memory) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.seen.Contains(key) {
		return false, nil
	}
	m.seen.Add(key, struct{}{})
	return true, nil
}

// Release implements Store.
func (m *Memory) Release(ctx context.Context, key string) error {
	m.mu.Lock()
	m.seen.Remove(key)
	m.mu.Unlock()
	return nil
}
