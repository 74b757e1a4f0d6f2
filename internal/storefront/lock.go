package storefront

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	cartLockTTL  = 5 * time.Second
	cartLockWait = 2 * time.Second
)

func cartLockKey(userID int64) string {
	return fmt.Sprintf("cart:%d", userID)
}

// withUserLock runs fn while holding the user's cart lock, waiting briefly
// for a concurrent holder before giving up. Cart mutations and checkout
// share the same key, so a user's cart has one writer at a time.
func withUserLock(ctx context.Context, locks Locker, logger *zap.Logger, userID int64, fn func() error) error {
	key := cartLockKey(userID)
	deadline := time.Now().Add(cartLockWait)
	for {
		ok, err := locks.AcquireLock(ctx, key, cartLockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire cart lock: %w", err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("cart is busy: %w", ErrStoreUnavailable)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(20 * time.Millisecond):
		}
	}
	defer func() {
		if err := locks.ReleaseLock(ctx, key); err != nil {
			logger.Warn("Failed to release cart lock", zap.String("key", key), zap.Error(err))
		}
	}()
	return fn()
}
