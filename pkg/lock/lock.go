// Package lock provides the per-key mutual exclusion that keeps two deployments of the
// same template from interleaving.
package lock

import (
	"context"
	"errors"
)

// ErrLocked is returned when the key is already held. Acquire never waits.
var ErrLocked = errors.New("lock already held")

// Unlock releases a held key.
type Unlock func(ctx context.Context) error

type Locker interface {
	// Acquire takes the key or fails immediately with ErrLocked.
	Acquire(ctx context.Context, key string) (Unlock, error)
}
