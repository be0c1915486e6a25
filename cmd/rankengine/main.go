package main

import (
	"os"

	"github.com/aegis/rankengine/cmd/rankengine/commands"
)

// main is the entry point for the rankengine CLI.
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
