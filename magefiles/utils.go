//go:build mage

package main

import (
	"fmt"
	"runtime"
	"strings"

	semver "github.com/Masterminds/semver/v3"
	"github.com/magefile/mage/sh"
	"github.com/pkg/errors"
)

const GO_VERSION_CONSTRAINT = ">= 1.18.0"

func binaryWithExt(name string) string {
	if runtime.GOOS == "windows" {
		return fmt.Sprintf("%s.exe", name)
	}
	return name
}

func goRun(args ...string) error {
	return sh.RunV("go", args...)
}

// Check the installed go toolchain is recent enough to build the module.
func goCheck() error {
	output, err := sh.Output("go", "env", "GOVERSION")
	if err != nil {
		return errors.Errorf("error running go env: %v", err)
	}
	version, err := semver.NewVersion(strings.TrimPrefix(strings.TrimSpace(output), "go"))
	if err != nil {
		return errors.Errorf("error parsing go version %q: %v", output, err)
	}
	return checkVersion("go", version, GO_VERSION_CONSTRAINT)
}

func checkVersion(tool string, version *semver.Version, constraint string) error {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return errors.Errorf("error parsing constraint: %v", err)
	}
	if !c.Check(version) {
		return errors.Errorf("found %s version %v but it failed constraint %v", tool, version, c)
	}
	return nil
}
