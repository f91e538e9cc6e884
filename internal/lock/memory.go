package lock

import (
	"context"
	"sync"
	"time"
)

// MemorySlotLocker is the in-process fallback used when redis is
// unavailable. Correct within a single process only.
type MemorySlotLocker struct {
	mu    sync.Mutex
	locks map[string]time.Time
}

func NewMemorySlotLocker() *MemorySlotLocker {
	return &MemorySlotLocker{locks: make(map[string]time.Time)}
}

func (m *MemorySlotLocker) Acquire(ctx context.Context, coachID, date, slot string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := slotKey(coachID, date, slot)
	now := time.Now()
	if expiry, ok := m.locks[key]; ok && now.Before(expiry) {
		return false, nil
	}
	m.locks[key] = now.Add(ttl)
	return true, nil
}

func (m *MemorySlotLocker) Release(ctx context.Context, coachID, date, slot string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, slotKey(coachID, date, slot))
	return nil
}
