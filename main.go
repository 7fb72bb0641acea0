package main

import (
	"os"

	"github.com/osmtools/mapsplit-go/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
