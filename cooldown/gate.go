package cooldown

import (
	"context"
	"sync"
	"time"
)

// Store persists per-key last-fired timestamps. TryFire must perform its
// read-modify-write as a single atomic unit per key, so two near-simultaneous
// attempts for the same key cannot both be allowed.
type Store interface {
	TryFire(ctx context.Context, key string, window time.Duration) (allowed bool, remaining time.Duration, err error)
}

// Gate rate-limits a side-effecting action to once per window per key. A
// denied fire is expected control flow, not an error; the remaining duration
// is surfaced for countdown display.
type Gate struct {
	store  Store
	window time.Duration
}

func NewGate(store Store, window time.Duration) *Gate {
	return &Gate{store: store, window: window}
}

// TryFire reports whether the action keyed by key may fire now, recording the
// fire time when allowed. On store failure the gate fails closed.
func (g *Gate) TryFire(ctx context.Context, key string) (bool, time.Duration, error) {
	allowed, remaining, err := g.store.TryFire(ctx, key, g.window)
	if err != nil {
		return false, 0, err
	}
	return allowed, remaining, nil
}

// Window returns the fixed cooldown window.
func (g *Gate) Window() time.Duration {
	return g.window
}

// MemoryStore is a process-local Store for tests and single-node development.
type MemoryStore struct {
	mu    sync.Mutex
	fired map[string]time.Time
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{fired: make(map[string]time.Time), now: time.Now}
}

// NewMemoryStoreWithClock lets tests control time.
func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{fired: make(map[string]time.Time), now: now}
}

func (s *MemoryStore) TryFire(ctx context.Context, key string, window time.Duration) (bool, time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return false, 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if last, ok := s.fired[key]; ok {
		elapsed := now.Sub(last)
		if elapsed < window {
			return false, window - elapsed, nil
		}
	}
	s.fired[key] = now
	return true, 0, nil
}
