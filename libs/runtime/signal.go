package runtime

import (
	"context"
	"os/signal"
	"syscall"
)

// SignalContext is canceled on SIGINT or SIGTERM, or when parent is.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
