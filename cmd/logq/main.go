package main

import (
	"os"

	"github.com/log-viewer/backend/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
