package main

import (
	"os"

	"github.com/mamadbah2/lineplan/internal/cli"
)

func main() {
	if err := cli.BuildCLI().Execute(); err != nil {
		os.Exit(1)
	}
}
