//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Default target when mage runs without arguments.
var Default = Test

// Test runs the unit tests with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Lint runs go vet.
func Lint() error {
	return sh.RunV("go", "vet", "./...")
}

// Build compiles the extbuild command into bin/.
func Build() error {
	mg.Deps(Lint)
	return sh.RunV("go", "build", "-o", "bin/extbuild", "./cmd/extbuild")
}

// Clean removes build output.
func Clean() error {
	return sh.Rm("bin")
}
