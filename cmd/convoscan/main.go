// Package main implements the convoscan CLI.
//
// By default analyses run in-process. With --server the CLI talks to a
// running convoscand instead.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fyrsmithlabs/convoscan/internal/app"
	"github.com/fyrsmithlabs/convoscan/internal/config"
	"github.com/spf13/cobra"
)

var (
	// serverURL selects remote mode when non-empty
	serverURL string
	// configPath overrides the default config file location
	configPath string
	verbose    bool

	version = "dev"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "convoscan",
	Short: "Scan conversations for manipulation and safety red flags",
	Long: `convoscan analyzes a pasted conversation or chat export for scam,
manipulation and safety red flags, healthy green flags, risk and trust
scores, and suggested replies.

Analyses run locally unless --server points at a convoscand instance.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "convoscand URL (e.g. http://localhost:9191); local analysis when empty")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/convoscan/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at info level to stderr")
	rootCmd.AddCommand(analyzeCmd, sendersCmd, serveMCPCmd, healthCmd, versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "convoscan %s\n", version)
	},
}

// loadApp builds the in-process stack. Logs always go to stderr.
func loadApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if !verbose {
		cfg.Observability.LogLevel = "warn"
	}
	return app.New(ctx, cfg, app.Options{Version: version, LogToStderr: true})
}

// readInput reads the named file, or stdin for "-" or no argument.
func readInput(stdin io.Reader, args []string) (string, error) {
	var (
		content []byte
		err     error
	)
	if len(args) == 0 || args[0] == "-" {
		content, err = io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read from stdin: %w", err)
		}
	} else {
		content, err = os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("failed to read file %s: %w", args[0], err)
		}
	}
	if len(content) == 0 {
		return "", fmt.Errorf("no conversation to analyze")
	}
	return string(content), nil
}
