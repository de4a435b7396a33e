package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"advanced-http-worker/internal/common/config"
	httpclient "advanced-http-worker/internal/common/http"
	"advanced-http-worker/internal/common/logger"
	httprequest "advanced-http-worker/internal/workers/http/http-request"
)

func newRunCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute the node for a list of input items",
		Long: `Reads node parameters (YAML or JSON) and a JSON array of input items,
executes one request per item and prints the output records as JSON.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := loadParameters(v.GetString("params"))
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("continue-on-fail") {
				cof := v.GetBool("continue_on_fail")
				params.ContinueOnFail = &cof
			}

			items, err := loadItems(cmd.InOrStdin(), v.GetString("items"))
			if err != nil {
				return err
			}

			var appCfg *config.Config
			httpCfg := config.HTTPConfig{UserAgent: "httpnode"}
			if path := v.GetString("config"); path != "" {
				appCfg, err = config.LoadFromFile(path)
				if err != nil {
					return err
				}
				httpCfg = appCfg.HTTP
			}
			workerCfg := httprequest.NewConfig(appCfg)

			log := logger.NewStructured(v.GetString("log_level"), "console")
			svc := httprequest.NewService(httprequest.ServiceDependencies{
				Logger:   log,
				Executor: httprequest.NewRestyExecutor(httpclient.NewFactory(httpCfg), log),
			}, workerCfg)

			ctx, cancel := context.WithTimeout(cmd.Context(), workerCfg.Timeout)
			defer cancel()

			records, err := svc.Run(ctx, 0, params, items)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(records)
		},
	}

	cmd.Flags().String("params", "", "node parameter file (YAML or JSON)")
	cmd.Flags().String("items", "-", "JSON array of input items, - for stdin")
	cmd.Flags().Bool("continue-on-fail", false, "emit error records instead of aborting on the first failed item")
	cmd.Flags().String("config", "", "application config file for outbound HTTP defaults")
	_ = cmd.MarkFlagRequired("params")

	_ = v.BindPFlag("params", cmd.Flags().Lookup("params"))
	_ = v.BindPFlag("items", cmd.Flags().Lookup("items"))
	_ = v.BindPFlag("continue_on_fail", cmd.Flags().Lookup("continue-on-fail"))
	_ = v.BindPFlag("config", cmd.Flags().Lookup("config"))

	return cmd
}

func loadParameters(path string) (*httprequest.NodeParameters, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read params: %w", err)
	}

	var params httprequest.NodeParameters
	if err := yaml.Unmarshal(data, &params); err != nil {
		return nil, fmt.Errorf("decode params %s: %w", path, err)
	}
	if params.Method == "" {
		params.Method = "GET"
	}
	if err := httprequest.ValidateParameters(&params); err != nil {
		return nil, err
	}
	return &params, nil
}

func loadItems(stdin io.Reader, path string) ([]httprequest.InputItem, error) {
	var (
		data []byte
		err  error
	)
	if path == "" || path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read items: %w", err)
	}

	var objs []map[string]interface{}
	if err := json.Unmarshal(data, &objs); err != nil {
		return nil, fmt.Errorf("items must be a JSON array of objects: %w", err)
	}

	items := make([]httprequest.InputItem, len(objs))
	for i, obj := range objs {
		items[i] = httprequest.InputItem{JSON: obj}
	}
	return items, nil
}
