package main

import (
	"fmt"
	"os"

	"github.com/StanzaFlow/StanzaFlow/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		// Detailed output is already on stdout/stderr in the chosen
		// format; this is just the summary line and the exit code.
		fmt.Fprintln(os.Stderr, "stanzaflow:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
