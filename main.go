package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"cryptoarb/internal/app"
)

func main() {
	slog.Info("Starting cryptoarb...")

	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Start(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "cryptoarb: %v\n", err)
		os.Exit(1)
	}
}
