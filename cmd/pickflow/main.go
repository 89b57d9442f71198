// Command pickflow runs and inspects the editor's interactive workflows.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/pickflow/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "pickflow:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
