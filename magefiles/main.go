//go:build mage

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/magefile/mage/mg"
	"sigs.k8s.io/yaml"
)

// BootstrapTools installs all tools needed to build and test resourcequery.
// For the list of tools this will install, see tools.yaml in the root directory
func BootstrapTools() error {
	mg.Deps(goCheck)
	type ToolsList struct {
		Tools []string
	}

	tools := &ToolsList{}
	err := readYaml("tools.yaml", tools)
	if err != nil {
		return err
	}

	for _, tool := range tools.Tools {
		err := goRun("install", tool)
		if err != nil {
			return err
		}
	}
	return nil
}

// Build the resourcequery binary into ./bin.
func Build() error {
	mg.Deps(goCheck, makeLocalBin)
	timeTaken := time.Now()
	err := goRun("build", "-o", binaryWithExt(LocalBin+"/resourcequery"), "./cmd/resourcequery")
	if err != nil {
		return err
	}
	fmt.Println("Time to build:", time.Since(timeTaken))
	return nil
}

// Regenerate the mocks of the collaborator interfaces.
func Mocks() error {
	mg.Deps(goCheck)
	return goRun("generate", "./internal/resourcequery/mocks/...")
}

// Remove build and test outputs.
func Clean() {
	fmt.Println("Cleaning...")
	for _, path := range []string{"bin", "test_reports"} {
		os.RemoveAll(path)
	}
}

// readYaml reads a yaml file and unmarshalls the result into out
func readYaml(filename string, out interface{}) error {
	bytes, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	err = yaml.Unmarshal(bytes, out)
	return err
}
