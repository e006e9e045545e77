// ABOUTME: Simulated editing-app panel for E2E testing. Connects via WebSocket
// ABOUTME: and answers CREATE_PROJECT and PING commands.

package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/framegate/framegate/internal/hostagent"
)

func main() {
	url := flag.String("url", "ws://localhost:3001/ws", "relay WebSocket URL")
	preset := flag.String("preset", "1080p25", "preset reported as the fallback default")
	failPreset := flag.String("fail-preset", "", "preset name whose load is simulated to fail")
	failAll := flag.Bool("fail", false, "report every creation as failed")
	reconnect := flag.Duration("reconnect", 5*time.Second, "redial interval after disconnect")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	creator := &hostagent.SimulatedCreator{
		DefaultPreset: *preset,
		FailPreset:    *failPreset,
		FailAll:       *failAll,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	connector := hostagent.NewConnector(*url, creator, *reconnect, logger)
	if err := connector.Run(ctx); err != nil {
		logger.Error("panel stopped", "error", err)
		os.Exit(1)
	}
}
