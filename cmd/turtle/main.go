package main

import (
	"os"

	"github.com/rustyeddy/turtle/cmd/turtle/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
