// Package dedupe remembers download click ids for a short window so repeated
// requests for the same click are counted once.
package dedupe

import (
	"context"
	"sync"
	"time"
)

// DefaultWindow is how long a click id is remembered.
const DefaultWindow = 10 * time.Minute

// Guard remembers claimed keys for a window. FirstSeen reports whether key is
// new and claims it when it is. Seen only looks. Forget releases a claim.
type Guard interface {
	FirstSeen(ctx context.Context, key string) (bool, error)
	Seen(ctx context.Context, key string) (bool, error)
	Forget(ctx context.Context, key string) error
}

// Memory is an in-process Guard. It is enough for a single server instance.
type Memory struct {
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	seen map[string]time.Time
}

func NewMemory(window time.Duration) *Memory {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Memory{
		window: window,
		now:    time.Now,
		seen:   make(map[string]time.Time),
	}
}

func (m *Memory) FirstSeen(_ context.Context, key string) (bool, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if exp, ok := m.seen[key]; ok && now.Before(exp) {
		return false, nil
	}
	m.seen[key] = now.Add(m.window)
	if len(m.seen)%256 == 0 {
		m.sweep(now)
	}
	return true, nil
}

func (m *Memory) Seen(_ context.Context, key string) (bool, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	exp, ok := m.seen[key]
	return ok && now.Before(exp), nil
}

func (m *Memory) Forget(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.seen, key)
	return nil
}

func (m *Memory) sweep(now time.Time) {
	for k, exp := range m.seen {
		if !now.Before(exp) {
			delete(m.seen, k)
		}
	}
}
