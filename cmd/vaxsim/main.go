package main

import (
	"os"

	"github.com/rangelab/vaxsim/internal/cli"
)

func main() {
	// Commands print their own formatted error output; here we only
	// translate the error into the process exit code.
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(cli.GetExitCode(err))
	}
}
