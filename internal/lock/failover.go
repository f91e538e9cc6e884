package lock

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// FailoverSlotLocker uses the primary locker until it fails, then
// degrades to the fallback and probes the primary every minute.
type FailoverSlotLocker struct {
	primary   SlotLocker
	fallback  SlotLocker
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

func NewFailoverSlotLocker(primary, fallback SlotLocker, logger *zerolog.Logger) *FailoverSlotLocker {
	return &FailoverSlotLocker{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (f *FailoverSlotLocker) Acquire(ctx context.Context, coachID, date, slot string, ttl time.Duration) (bool, error) {
	if !f.isDown.Load() {
		ok, err := f.primary.Acquire(ctx, coachID, date, slot, ttl)
		if err == nil {
			return ok, nil
		}
		f.logger.Error().Err(err).Msg("Primary slot locker failed, falling back to memory")
		f.isDown.Store(true)
		f.lastCheck.Store(time.Now().UnixNano())
	}

	// Try to recover after 1 minute
	if f.isDown.Load() && time.Since(time.Unix(0, f.lastCheck.Load())) > time.Minute {
		ok, err := f.primary.Acquire(ctx, coachID, date, slot, ttl)
		if err == nil {
			f.isDown.Store(false)
			return ok, nil
		}
		f.lastCheck.Store(time.Now().UnixNano())
	}

	return f.fallback.Acquire(ctx, coachID, date, slot, ttl)
}

func (f *FailoverSlotLocker) Release(ctx context.Context, coachID, date, slot string) error {
	if !f.isDown.Load() {
		err := f.primary.Release(ctx, coachID, date, slot)
		if err == nil {
			return nil
		}
		f.logger.Error().Err(err).Msg("Primary slot locker failed, falling back to memory")
		f.isDown.Store(true)
		f.lastCheck.Store(time.Now().UnixNano())
	}

	return f.fallback.Release(ctx, coachID, date, slot)
}
