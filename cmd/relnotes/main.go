// Package main is the relnotes command.
package main

import (
	"os"

	"relnotes/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
