package newsletter

import (
	"context"
	"sync"
	"time"
)

var _ CounterStore = (*MemoryCounterStore)(nil)

// MemoryCounterStore is an in-process CounterStore keeping a timestamp list
// per key. A background sweep evicts keys whose newest timestamp has aged
// out, so abandoned keys do not accumulate.
type MemoryCounterStore struct {
	mu     sync.Mutex
	stamps map[string][]time.Time
	maxAge time.Duration
}

// NewMemoryCounterStore creates a store whose sweep discards timestamps
// older than maxAge.
func NewMemoryCounterStore(maxAge time.Duration) *MemoryCounterStore {
	return &MemoryCounterStore{
		stamps: make(map[string][]time.Time),
		maxAge: maxAge,
	}
}

// Count returns the number of recorded attempts for key within the window
// ending at now.
func (s *MemoryCounterStore) Count(key string, now time.Time, window time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-window)
	n := 0
	for _, ts := range s.stamps[key] {
		if ts.After(cutoff) {
			n++
		}
	}
	return n
}

// Add records one attempt for key at now.
func (s *MemoryCounterStore) Add(key string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stamps[key] = append(s.stamps[key], now)
}

// Sweep drops timestamps older than maxAge and deletes emptied keys.
func (s *MemoryCounterStore) Sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-s.maxAge)
	for key, stamps := range s.stamps {
		kept := stamps[:0]
		for _, ts := range stamps {
			if ts.After(cutoff) {
				kept = append(kept, ts)
			}
		}
		if len(kept) == 0 {
			delete(s.stamps, key)
			continue
		}
		s.stamps[key] = kept
	}
}

// StartSweep runs Sweep on a ticker until ctx is cancelled.
func (s *MemoryCounterStore) StartSweep(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.Sweep(now)
			}
		}
	}()
}
