package main

import (
	"fmt"
	"os"

	"github.com/progsnap2/progsnap2-go/internal/cli"
)

func main() {
	// Execute the root command. Cobra handles parsing the arguments.
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "progsnap2: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
