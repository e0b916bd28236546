// Command train is the offline trainer: it runs the pipeline once and writes
// the model bundle and importance table. Flags match "clickpredict train".
package main

import (
	"os"

	"clickpredict/internal/commander"
)

func main() {
	args := append([]string{"train"}, os.Args[1:]...)
	if err := commander.ExecuteArgs(args); err != nil {
		os.Exit(1)
	}
}
