// Package main is the entry point for the blog platform API server.
//
// MAIN PACKAGE IN GO:
// main() should stay small. Its job is to:
// 1. Read configuration
// 2. Create the logger
// 3. Start the application
//
// All actual logic lives in imported packages (internal/server, internal/service, ...).
package main

import (
	"log/slog"
	"os"

	"github.com/sakif/blog-platform/internal/config"
	"github.com/sakif/blog-platform/internal/server"
)

func main() {
	// === 1. READ CONFIGURATION ===
	// Every setting comes from the environment; see config.Load for the list.
	cfg := config.Load()

	// === 2. SET UP LOGGING ===
	// slog.NewTextHandler writes human-readable key=value lines.
	// Levels (least to most severe): Debug → Info → Warn → Error.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 3. CREATE AND START THE SERVER ===
	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM).
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
