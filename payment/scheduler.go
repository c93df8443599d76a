package payment

import (
	"context"
	"sync"
	"time"
)

// Scheduler runs one periodic task per verification channel. Channels tick
// independently: a slow or failing query on one never delays the other. Each
// channel can be stopped on its own, and StopAll is used when the session
// reaches a terminal state.
type Scheduler struct {
	mu      sync.Mutex
	cancels map[Channel]context.CancelFunc
	wg      sync.WaitGroup
}

func NewScheduler() *Scheduler {
	return &Scheduler{cancels: make(map[Channel]context.CancelFunc)}
}

// Start begins periodic invocation of tick for the channel. Starting an
// already-running channel is a no-op.
func (s *Scheduler) Start(ctx context.Context, ch Channel, interval time.Duration, tick func(context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, running := s.cancels[ch]; running {
		return
	}

	tickCtx, cancel := context.WithCancel(ctx)
	s.cancels[ch] = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-tickCtx.Done():
				return
			case <-ticker.C:
				tick(tickCtx)
			}
		}
	}()
}

// Stop cancels the channel's periodic task.
func (s *Scheduler) Stop(ch Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cancel, ok := s.cancels[ch]; ok {
		cancel()
		delete(s.cancels, ch)
	}
}

// StopAll cancels every running channel.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch, cancel := range s.cancels {
		cancel()
		delete(s.cancels, ch)
	}
}

// Wait blocks until all stopped channels have exited. Used by tests.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
