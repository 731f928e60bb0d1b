// Package main is the entry point for the whiteboard server.
//
// MAIN PACKAGE IN GO:
// The main package should be kept minimal. Its job is to:
// 1. Read configuration (from a .env file, env vars and flags)
// 2. Create dependencies (logger, clock)
// 3. Start the application
//
// All actual logic lives in imported packages (internal/server, internal/service, etc.).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/sakif/whiteboard/internal/clock"
	"github.com/sakif/whiteboard/internal/discovery"
	"github.com/sakif/whiteboard/internal/server"
)

func main() {
	// === 1. LOAD .env ===
	// A missing .env file is normal in production; anything else
	// (a malformed file) is worth stopping for.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "error: loading .env: %v\n", err)
		os.Exit(1)
	}

	// === 2. READ CONFIGURATION ===
	// Precedence, lowest to highest: defaults, environment, flags.
	opts, err := loadConfig(os.Args[1:], os.Getenv)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	// === 3. SET UP LOGGING ===
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: opts.Level,
	}))
	slog.SetDefault(logger)

	if opts.Discover > 0 {
		if err := discover(opts.Discover); err != nil {
			logger.Error("discovery failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		return
	}

	// === 4. CREATE AND START THE SERVER ===
	srv := server.New(opts.Server, logger, clock.Real())

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// discover prints every whiteboard server that answers within timeout.
func discover(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout+time.Second)
	defer cancel()

	peers, err := discovery.Browse(ctx, timeout)
	if err != nil {
		return err
	}
	if len(peers) == 0 {
		fmt.Println("no whiteboard servers found")
		return nil
	}
	for _, p := range peers {
		fmt.Printf("%s\t%s\n", p.Addr, p.Instance)
	}
	return nil
}
