package cmd

import (
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"

	"github.com/armadaproject/resourcequery/internal/common"
	"github.com/armadaproject/resourcequery/internal/resourcequery/loader"
	"github.com/armadaproject/resourcequery/internal/resourcequeryctl"
)

func queryCmd(a *resourcequeryctl.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Finds the slots in which a query could run",
		Long: `Evaluates a query against a cluster snapshot and prints, per partition,
the start times at which its requests could run and the nodes they would get.

Both files are YAML or JSON. Exits with a non-zero status if no slot is found.`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}
			a.Params.Config = config

			profilesPath, err := cmd.Flags().GetString("profiles")
			if err != nil {
				return err
			}
			if profilesPath != "" {
				extra, err := loader.LoadProfiles(profilesPath)
				if err != nil {
					return err
				}
				a.Params.ExtraProfiles = extra
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshotPath, err := expandedFlag(cmd, "snapshot")
			if err != nil {
				return err
			}
			queryPath, err := expandedFlag(cmd, "query")
			if err != nil {
				return err
			}
			output, err := cmd.Flags().GetString("output")
			if err != nil {
				return err
			}
			format, err := resourcequeryctl.ParseOutputFormat(output)
			if err != nil {
				return err
			}
			if port := a.Params.Config.MetricsPort; port != 0 {
				shutdown := common.ServeMetrics(port)
				defer shutdown()
			}
			return a.Query(cmd.Context(), snapshotPath, queryPath, format)
		},
	}
	cmd.Flags().String("snapshot", "", "Cluster snapshot file")
	cmd.Flags().String("query", "", "Query file")
	cmd.Flags().String("profiles", "", "File of profiles available to the query in addition to the configured ones")
	cmd.Flags().StringP("output", "o", string(resourcequeryctl.OutputTable), "Output format: table or yaml")
	if err := cmd.MarkFlagRequired("snapshot"); err != nil {
		panic(err)
	}
	if err := cmd.MarkFlagRequired("query"); err != nil {
		panic(err)
	}
	return cmd
}

func expandedFlag(cmd *cobra.Command, name string) (string, error) {
	value, err := cmd.Flags().GetString(name)
	if err != nil {
		return "", err
	}
	return homedir.Expand(value)
}
