package main

import (
	"os"

	"github.com/lgxpkg/lgx/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
