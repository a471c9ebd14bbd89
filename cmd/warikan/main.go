// Command warikan settles shared expenses recorded in a JSON ledger.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
	"github.com/susu3304/warikanbot/internal/cli"
)

func main() {
	// Exits when invoked by the shell for completion.
	cli.Completion().Complete("warikan")

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	cli.Register(commander)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
