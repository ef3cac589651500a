//go:build mage

package main

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

var Gotestsum string

var LocalBin = filepath.Join(os.Getenv("PWD"), "/bin")

func makeLocalBin() error {
	if _, err := os.Stat(LocalBin); os.IsNotExist(err) {
		err = os.MkdirAll(LocalBin, os.ModePerm)
		if err != nil {
			return err
		}
	}
	return nil
}

// Gotestsum downloads gotestsum locally if necessary
func gotestsum() error {
	mg.Deps(makeLocalBin)
	Gotestsum = filepath.Join(LocalBin, "/gotestsum")

	if _, err := os.Stat(Gotestsum); os.IsNotExist(err) {
		fmt.Println(Gotestsum)
		cmd := exec.Command("go", "install", "gotest.tools/gotestsum@v1.8.2")
		cmd.Env = append(os.Environ(), "GOBIN="+LocalBin)
		return cmd.Run()
	}
	return nil
}

// Tests runs all unit tests and writes a coverage report to test_reports.
// Redis is provided by miniredis, so no external services are needed.
func Tests() error {
	mg.Deps(gotestsum)
	timeTaken := time.Now()
	if err := os.MkdirAll("test_reports", os.ModePerm); err != nil {
		return err
	}

	packages, err := sh.Output("go", "list", "./...")
	if err != nil {
		return err
	}
	err = runtest("test_reports/coverage.out", "unit-tests.txt", filterPackages(strings.Fields(packages), "/magefiles")...)
	fmt.Println("Time to run tests:", time.Since(timeTaken))
	return err
}

func runtest(coverageFileName, outputFileName string, directories ...string) error {
	args := []string{"--", "-v"}
	if coverageFileName != "" {
		args = append(args, "-coverprofile", coverageFileName)
	}
	args = append(args, directories...)

	cmd := exec.Command(Gotestsum, args...)

	file, err := os.OpenFile(filepath.Join("test_reports", outputFileName), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	cmd.Stdout = io.MultiWriter(os.Stdout, file)
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func filterPackages(packages []string, filter string) []string {
	var filtered []string
	for _, pkg := range packages {
		if !strings.Contains(pkg, filter) {
			filtered = append(filtered, pkg)
		}
	}
	return filtered
}
