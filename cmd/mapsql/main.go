// Package main is the entry point of the mapsql CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/mapsql/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
