package main

import (
	"os"

	"github.com/okian/killwatch/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
