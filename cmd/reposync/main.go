// Command reposync keeps repositories holding the same project in sync.
package main

import (
	"fmt"
	"os"

	"github.com/google/MOE-sub001/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	cmd.SilenceErrors = true
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
