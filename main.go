package main

import (
	"os"

	"github.com/leynos/baton/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
