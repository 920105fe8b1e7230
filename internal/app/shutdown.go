package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// GracefulShutdown watches for SIGINT/SIGTERM and returns a context that
// is cancelled when one arrives, so the run stops between steps and the
// browser gets released.
func GracefulShutdown(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	}()

	return ctx, cancel
}
