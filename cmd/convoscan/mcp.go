package main

import (
	"context"

	"github.com/fyrsmithlabs/convoscan/internal/mcp"
	"github.com/spf13/cobra"
)

var serveMCPCmd = &cobra.Command{
	Use:   "serve-mcp",
	Short: "Serve analysis tools over MCP stdio",
	Long: `Run an MCP server on stdin/stdout exposing analyze_conversation and
list_senders. Logs go to stderr.

Example MCP client configuration:
  {"command": "convoscan", "args": ["serve-mcp"]}`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		a, err := loadApp(ctx)
		if err != nil {
			return err
		}
		defer func() {
			_ = a.Close(context.Background())
		}()

		srv, err := mcp.NewServer(&mcp.Config{
			Name:    "convoscan",
			Version: version,
			Logger:  a.Logger,
		}, a.Orchestrator)
		if err != nil {
			return err
		}
		return srv.Run(ctx)
	},
}
