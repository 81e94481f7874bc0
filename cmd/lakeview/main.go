// Package main is the entry point for the lakeview CLI tool.
package main

import (
	"os"

	"github.com/hugr-lab/lakeview/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
