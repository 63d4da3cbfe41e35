package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	var (
		port1    = flag.Int("port1", 50101, "Port for sim1")
		port2    = flag.Int("port2", 50102, "Port for sim2")
		port3    = flag.Int("port3", 50103, "Port for sim3")
		interval = flag.Duration("interval", time.Second, "Price update interval")
		helpFlag = flag.Bool("help", false, "Show help message")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  venue-simulator [--port1 <N>] [--port2 <N>] [--port3 <N>] [--interval <D>]\n")
		fmt.Fprintf(os.Stderr, "  venue-simulator --help\n\n")
		fmt.Fprintf(os.Stderr, "Serves GET /ticker?symbol=BTCUSDT on every port with an independent random walk.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fmt.Fprintf(os.Stderr, "  --port1 N       Port for sim1 (default: 50101)\n")
		fmt.Fprintf(os.Stderr, "  --port2 N       Port for sim2 (default: 50102)\n")
		fmt.Fprintf(os.Stderr, "  --port3 N       Port for sim3 (default: 50103)\n")
		fmt.Fprintf(os.Stderr, "  --interval D    Price update interval (default: 1s)\n")
	}

	flag.Parse()

	if *helpFlag {
		flag.Usage()
		os.Exit(0)
	}

	slog.Info("Starting venue simulator...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ports := []int{*port1, *port2, *port3}
	var venues []*Venue
	for i, port := range ports {
		venue := NewVenue(fmt.Sprintf("sim%d", i+1), port, DefaultSymbols(), time.Now().UnixNano()+int64(port))
		if err := venue.Start(ctx, *interval); err != nil {
			slog.Error("Failed to start venue", "name", venue.Name, "port", port, "error", err)
			os.Exit(1)
		}
		venues = append(venues, venue)
	}

	slog.Info("Venue simulator started", "ports", ports)
	fmt.Printf("Venue simulator running on ports: %v\n", ports)
	fmt.Printf("Press Ctrl+C to stop...\n\n")

	<-ctx.Done()
	slog.Info("Shutting down...")

	for _, venue := range venues {
		venue.Shutdown()
	}
	slog.Info("Venue simulator stopped")
}
