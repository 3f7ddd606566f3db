package main

import (
	"fmt"
	"os"

	"github.com/vctt94/pokertourney/internal/mtt/cmd"
)

func main() {
	root := cmd.Root()
	root.SetArgs(os.Args[1:])
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "mtt: %v\n", err)
		os.Exit(1)
	}
}
