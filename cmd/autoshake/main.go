package main

import (
	"os"

	"jordanella.com/auto-shake-go/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
