package main

import (
	"os"

	"github.com/t2dlabs/pulse/cmd/pulse/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
