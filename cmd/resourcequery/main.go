package main

import (
	"os"

	"github.com/armadaproject/resourcequery/cmd/resourcequery/cmd"
	"github.com/armadaproject/resourcequery/internal/common"
)

func main() {
	common.ConfigureLogging()
	common.BindCommandlineArguments()
	err := cmd.RootCmd().Execute()
	if err != nil {
		os.Exit(1)
	}
}
