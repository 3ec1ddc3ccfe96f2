package main

import (
	"fmt"
	"time"

	"github.com/fyrsmithlabs/convoscan/internal/conversation"
	convohttp "github.com/fyrsmithlabs/convoscan/internal/http"
	"github.com/spf13/cobra"
)

var sendersCmd = &cobra.Command{
	Use:   "senders [file]",
	Short: "List the senders in a chat export",
	Long: `List the distinct senders in a dated chat export, in the order they
first appear. Use one of them as --as for analyze.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSenders,
}

func runSenders(cmd *cobra.Command, args []string) error {
	text, err := readInput(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	var names []string
	if serverURL != "" {
		var resp convohttp.SendersResponse
		if err := newRemote(serverURL, 30*time.Second).do(cmd.Context(), "/api/v1/senders", convohttp.SendersRequest{Transcript: text}, &resp); err != nil {
			return err
		}
		names = resp.Senders
	} else {
		names, err = conversation.SenderNames(text)
		if err != nil {
			return err
		}
	}

	if len(names) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "no dated-log senders found")
		return nil
	}
	for _, name := range names {
		fmt.Fprintln(cmd.OutOrStdout(), name)
	}
	return nil
}
