package main

import (
	"os"

	"clickpredict/internal/commander"
)

func main() {
	if err := commander.Execute(); err != nil {
		os.Exit(1)
	}
}
