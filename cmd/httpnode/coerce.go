package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"advanced-http-worker/internal/common/coerce"
)

func newCoerceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "coerce [file]",
		Short: "Resolve {type, value} descriptors in a JSON document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if len(args) == 0 || args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return err
			}

			var doc interface{}
			if err := json.Unmarshal(data, &doc); err != nil {
				return fmt.Errorf("input is not valid JSON: %w", err)
			}

			out, err := coerce.Coerce(doc)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
}
