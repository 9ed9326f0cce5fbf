// Command exhibit runs, validates and tests the climate exhibit controller.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/exhibit/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
