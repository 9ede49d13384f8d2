package main

import (
	"os"

	"github.com/mindthegap/govdata/cmd/govdata/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
