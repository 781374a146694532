package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/drstein77/grocerystore/internal/app"
	"go.uber.org/zap"
)

func main() {
	// Create a root context with the possibility of cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create a channel for signal handling
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)

	server := app.NewServer(ctx)
	go func() {
		// Wait for a signal
		sig := <-signalCh
		server.Log.Info(fmt.Sprintf("Received signal: %+v", sig))

		// Perform graceful server shutdown
		server.Shutdown(app.ShutdownTimeout)

		// Cancel the context
		cancel()
	}()

	// Start the server
	if err := server.Serve(); err != nil {
		server.Log.Error("Server failed", zap.Error(err))
		_ = server.Log.Sync()
		os.Exit(1)
	}
}
