// Package lock serializes booking commits that touch the same calendar day.
package lock

import "context"

// Release gives the lock back. Calling it more than once is a no-op.
type Release func()

type Locker interface {
	// Acquire blocks until key is held or ctx is done.
	Acquire(ctx context.Context, key string) (Release, error)
}
