// Package main is the entry point for the qc CLI binary.
package main

import (
	"os"

	"github.com/alexhail/quickcontroller/internal/cli"
	"github.com/alexhail/quickcontroller/internal/config"
)

func main() {
	config.ConfigureLogging(config.New())
	os.Exit(cli.Execute())
}
