package main

import (
	"os"

	"github.com/grovetools/hermes/cli"
	"github.com/grovetools/hermes/cmd"
	"github.com/grovetools/hermes/pkg/profiling"
)

func main() {
	rootCmd := cli.NewStandardCommand(
		"hermes",
		"Real-time ticket synchronization for the triage backend",
	)
	cmd.AddCommands(rootCmd)
	profiling.NewCobraProfiler().Attach(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		opts := cli.GetOptions(rootCmd)
		cli.NewErrorHandler(opts.Verbose, os.Stderr).Handle(err)
		os.Exit(1)
	}
}
