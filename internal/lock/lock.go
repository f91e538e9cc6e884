// Package lock provides short-lived advisory locks scoped to a
// (coach, date, time) slot key. The booking path acquires the lock
// before its transactional conflict check so two concurrent requests
// for the same slot serialize instead of racing.
package lock

import (
	"context"
	"fmt"
	"time"
)

// SlotLocker guards a single slot key for the duration of a booking
// attempt.
type SlotLocker interface {
	Acquire(ctx context.Context, coachID, date, slot string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, coachID, date, slot string) error
}

func slotKey(coachID, date, slot string) string {
	return fmt.Sprintf("slot_lock:%s:%s:%s", coachID, date, slot)
}
