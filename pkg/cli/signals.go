package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// ShutdownSignals are the signals that stop a running flowgate.
var ShutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// SetupSignalHandler returns a context cancelled on the first SIGINT or
// SIGTERM. After that signal handling reverts to the default, so a second
// signal kills the process. Call stop to release the handler early.
func SetupSignalHandler(parent context.Context) (ctx context.Context, stop context.CancelFunc) {
	ctx, cancel := signal.NotifyContext(parent, ShutdownSignals...)
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return ctx, cancel
}
