package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"cryptoarb/internal/config"
	"cryptoarb/internal/server"
)

const defaultCfgPath = "./config/config.json"

// Start loads configuration, serves until ctx is cancelled and then shuts
// the application down.
func Start(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("cryptoarb", flag.ContinueOnError)
	var (
		port     = fs.Int("port", 0, "Port number")
		cfgPath  = fs.String("config", defaultCfgPath, "Path to the JSON or YAML configuration file")
		helpFlag = fs.Bool("help", false, "Show help message")
	)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  cryptoarb [--port <N>] [--config <path>]\n")
		fmt.Fprintf(os.Stderr, "  cryptoarb --help\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fmt.Fprintf(os.Stderr, "  --port N         Port number\n")
		fmt.Fprintf(os.Stderr, "  --config PATH    Configuration file (default %s)\n", defaultCfgPath)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *helpFlag {
		fs.Usage()
		return nil
	}

	slog.Info("Loading configuration...", "path", *cfgPath)
	cfg, err := config.GetConfig(*cfgPath)
	if err != nil {
		slog.Error("failed to get config", "error", err)
		return fmt.Errorf("failed to get config: %w", err)
	}

	if *port > 0 {
		cfg.App.Port = *port
	}
	server.SetupLogger(cfg.App)
	slog.Info("Configuration loaded", "port", cfg.App.Port, "venues", len(cfg.Venues.Enabled))

	app := server.NewApp(cfg)
	if err := app.Initialize(); err != nil {
		return errors.Join(fmt.Errorf("failed to initialize app: %w", err), app.Shutdown())
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- app.Run()
	}()

	select {
	case err := <-errChan:
		return errors.Join(err, app.Shutdown())
	case <-ctx.Done():
		slog.Info("Shutdown requested")
	}

	if err := app.Shutdown(); err != nil {
		return err
	}
	<-errChan

	slog.Info("Server stopped")
	return nil
}
