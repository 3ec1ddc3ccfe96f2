// Convoscand serves conversation analyses over HTTP.
//
// Configuration is loaded from ~/.config/convoscan/config.yaml and
// CONVOSCAN_* environment variables. See internal/config for details.
//
// Usage:
//
//	# Start server with defaults (heuristics only)
//	convoscand
//
//	# Configure via environment
//	CONVOSCAN_LLM_PROVIDER=anthropic CONVOSCAN_LLM_API_KEY=... convoscand
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fyrsmithlabs/convoscan/internal/app"
	"github.com/fyrsmithlabs/convoscan/internal/config"
	"github.com/fyrsmithlabs/convoscan/internal/http"
	"go.uber.org/zap"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default ~/.config/convoscan/config.yaml)")
	flag.Parse()
	args := flag.Args()

	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  convoscand           Start the convoscan daemon\n")
			fmt.Fprintf(os.Stderr, "  convoscand version   Show version information\n")
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func printVersion() {
	fmt.Printf("convoscand by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run builds the stack, serves HTTP, and shuts down gracefully once ctx is cancelled.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	a, err := app.New(ctx, cfg, app.Options{Version: version})
	if err != nil {
		return err
	}
	logger := a.Logger

	srv, err := http.NewServer(a.Orchestrator, logger, &http.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		RequestTimeout: cfg.Server.RequestTimeout,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		Version:        version,
	})
	if err != nil {
		_ = a.Close(context.Background())
		return fmt.Errorf("failed to create http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	logger.Info(ctx, "convoscand started",
		zap.String("version", version),
		zap.String("health_endpoint", fmt.Sprintf("http://%s:%d/health", cfg.Server.Host, cfg.Server.Port)),
		zap.String("metrics_endpoint", "/metrics"),
	)

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, nethttp.ErrServerClosed) {
			runErr = fmt.Errorf("http server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn(shutdownCtx, "http shutdown incomplete", zap.Error(err))
	}
	if err := a.Close(shutdownCtx); err != nil {
		logger.Warn(shutdownCtx, "shutdown incomplete", zap.Error(err))
	}
	logger.Info(shutdownCtx, "server shutdown complete")
	return runErr
}
