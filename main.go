package main

import (
	"os"

	"github.com/chirag127/TinyImage/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
