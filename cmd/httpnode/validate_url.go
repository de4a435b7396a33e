package main

import (
	"fmt"

	"github.com/spf13/cobra"

	httprequest "advanced-http-worker/internal/workers/http/http-request"
)

func newValidateURLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-url <url>",
		Short: "Check whether a URL would be accepted by the node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !httprequest.IsValidURL(args[0]) {
				return fmt.Errorf("invalid URL: %s", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), "valid")
			return nil
		},
	}
}
