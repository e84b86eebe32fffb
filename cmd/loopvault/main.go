package main

import (
	"os"

	"github.com/loopvault/loopvault/internal/cli"
)

var version = "dev"

func main() {
	cli.SetVersion(version)

	if err := cli.Execute(); err != nil {
		cli.PrintError(err.Error())
		os.Exit(cli.ExitCode(err))
	}
}
