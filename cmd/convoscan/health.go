package main

import (
	"errors"
	"fmt"
	"time"

	convohttp "github.com/fyrsmithlabs/convoscan/internal/http"
	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check convoscand health",
	Long: `Check the health status of a convoscand server.

Examples:
  convoscan health --server http://localhost:9191`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if serverURL == "" {
			return errors.New("--server is required")
		}
		var resp convohttp.HealthResponse
		if err := newRemote(serverURL, 5*time.Second).do(cmd.Context(), "/health", nil, &resp); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Server Status: %s\n", resp.Status)
		if resp.Version != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "Version:       %s\n", resp.Version)
		}
		return nil
	},
}
