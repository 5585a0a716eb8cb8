// Package main provides the entry point for the guessgame CLI.
package main

import (
	"os"

	"github.com/adrianmcphee/ninjadb/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
