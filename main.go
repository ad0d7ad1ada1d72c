package main

import (
	"os"

	"github.com/spigell/gigboard/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
