package main

import (
	"os"

	"github.com/demusis/rev-textos/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
