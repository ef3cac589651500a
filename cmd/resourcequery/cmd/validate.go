package cmd

import (
	"github.com/spf13/cobra"

	"github.com/armadaproject/resourcequery/internal/resourcequeryctl"
)

func validateCmd(a *resourcequeryctl.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Checks a cluster snapshot and prints a summary of its partitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshotPath, err := expandedFlag(cmd, "snapshot")
			if err != nil {
				return err
			}
			return a.Validate(snapshotPath)
		},
	}
	cmd.Flags().String("snapshot", "", "Cluster snapshot file")
	if err := cmd.MarkFlagRequired("snapshot"); err != nil {
		panic(err)
	}
	return cmd
}
