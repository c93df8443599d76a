package cooldown

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGateAllowsThenDenies(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	gate := NewGate(NewMemoryStoreWithClock(clock), 15*time.Minute)
	ctx := context.Background()

	allowed, _, err := gate.TryFire(ctx, "ORD-1")
	assert.NoError(t, err)
	assert.True(t, allowed)

	// Second attempt 3 minutes later is denied with ~12 minutes remaining.
	now = now.Add(3 * time.Minute)
	allowed, remaining, err := gate.TryFire(ctx, "ORD-1")
	assert.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 12*time.Minute, remaining)
}

func TestGateReopensAfterWindow(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	gate := NewGate(NewMemoryStoreWithClock(clock), 15*time.Minute)
	ctx := context.Background()

	allowed, _, _ := gate.TryFire(ctx, "ORD-1")
	assert.True(t, allowed)

	now = now.Add(15 * time.Minute)
	allowed, remaining, err := gate.TryFire(ctx, "ORD-1")
	assert.NoError(t, err)
	assert.True(t, allowed)
	assert.Zero(t, remaining)

	// And the window restarts from the new fire.
	now = now.Add(time.Minute)
	allowed, remaining, _ = gate.TryFire(ctx, "ORD-1")
	assert.False(t, allowed)
	assert.Equal(t, 14*time.Minute, remaining)
}

func TestGateKeysAreIndependent(t *testing.T) {
	gate := NewGate(NewMemoryStore(), 15*time.Minute)
	ctx := context.Background()

	allowed, _, _ := gate.TryFire(ctx, "ORD-1")
	assert.True(t, allowed)

	allowed, _, _ = gate.TryFire(ctx, "ORD-2")
	assert.True(t, allowed, "a fire on one key must not throttle another")
}

func TestGateSingleWinnerUnderConcurrency(t *testing.T) {
	gate := NewGate(NewMemoryStore(), 15*time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	var allowedCount int64
	var mu sync.Mutex

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed, _, err := gate.TryFire(ctx, "ORD-1")
			assert.NoError(t, err)
			if allowed {
				mu.Lock()
				allowedCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), allowedCount, "exactly one near-simultaneous attempt may fire")
}

func TestGateFailsClosedOnStoreError(t *testing.T) {
	gate := NewGate(NewMemoryStore(), 15*time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	allowed, _, err := gate.TryFire(ctx, "ORD-1")
	assert.Error(t, err)
	assert.False(t, allowed)
}
