package main

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	httprequest "advanced-http-worker/internal/workers/http/http-request"
	"advanced-http-worker/pkg/registry"
)

func newDescribeCmd() *cobra.Command {
	var registryPath string

	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Print the activity registry entry of the node",
		RunE: func(cmd *cobra.Command, args []string) error {
			activity := httprequest.Activity()

			if registryPath != "" {
				reg, err := registry.LoadRegistry(registryPath)
				if errors.Is(err, fs.ErrNotExist) {
					reg, err = &registry.ActivityRegistry{Version: "1.0.0"}, nil
				}
				if err != nil {
					return err
				}
				reg.Upsert(activity, time.Now())
				if err := reg.Save(registryPath); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "updated %s in %s\n", activity.ID, registryPath)
				return nil
			}

			out, err := yaml.Marshal(activity)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().StringVar(&registryPath, "write", "", "upsert the entry into this registry file instead of printing it")
	return cmd
}
