package main

import (
	"os"

	"github.com/sol-strategies/hookrunner/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
