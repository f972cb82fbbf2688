package main

import (
	"os"

	"github.com/rustyeddy/paperstock/cmd/paperstock/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
