// Package main provides the gork command.
package main

import (
	"os"

	"github.com/gork-labs/gork/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
