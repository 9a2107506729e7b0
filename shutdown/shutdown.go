// Package shutdown ties a context to the process termination signals.
package shutdown

import (
	"context"
	"os/signal"
)

// Context is cancelled on the first termination signal.
func Context(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, signals...)
}
