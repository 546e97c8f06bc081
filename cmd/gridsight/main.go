// Package main provides the gridsight CLI.
package main

import (
	"os"

	"github.com/gridsight-labs/gridsight/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
