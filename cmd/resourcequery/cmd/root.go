package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/armadaproject/resourcequery/internal/common"
	commonconfig "github.com/armadaproject/resourcequery/internal/common/config"
	"github.com/armadaproject/resourcequery/internal/resourcequery/configuration"
	"github.com/armadaproject/resourcequery/internal/resourcequeryctl"
)

const (
	CustomConfigLocation string = "config"
)

// RootCmd is the root Cobra command that gets called from the main func.
func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "resourcequery",
		SilenceUsage: true,
		Short:        "Answers when, where, and on how many nodes jobs could run in a cluster",
	}

	cmd.PersistentFlags().StringSlice(
		CustomConfigLocation,
		[]string{},
		"Fully qualified path to application configuration file (for multiple config files repeat this arg or separate paths with commas)")
	if err := viper.BindPFlag(CustomConfigLocation, cmd.PersistentFlags().Lookup(CustomConfigLocation)); err != nil {
		panic(err)
	}

	cmd.AddCommand(
		queryCmd(resourcequeryctl.New()),
		validateCmd(resourcequeryctl.New()),
	)

	return cmd
}

func loadConfig() (configuration.Configuration, error) {
	config := configuration.Default()
	userSpecifiedConfigs := viper.GetStringSlice(CustomConfigLocation)

	common.LoadConfig(&config, "./config/resourcequery", userSpecifiedConfigs)

	err := commonconfig.Validate(config)
	if err != nil {
		commonconfig.LogValidationErrors(err)
	}
	return config, err
}
