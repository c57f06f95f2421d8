// Package cmd implements the hermes subcommands.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/grovetools/hermes/cli"
	"github.com/grovetools/hermes/config"
	"github.com/grovetools/hermes/internal/core/engine"
	"github.com/grovetools/hermes/internal/core/stream"
	"github.com/spf13/cobra"
)

// AddCommands registers every hermes subcommand on root.
func AddCommands(root *cobra.Command) {
	root.AddCommand(
		NewRunCmd(),
		NewWatchCmd(),
		NewTicketsCmd(),
		NewSubmitCmd(),
		NewDiagnoseCmd(),
		NewDecisionCmd(true),
		NewDecisionCmd(false),
		NewMockServerCmd(),
		NewConfigCmd(),
		NewPathsCmd(),
		cli.NewVersionCommand("hermes"),
	)
}

// setup loads the configuration and applies its logging section.
func setup(cmd *cobra.Command) (*config.Config, string, error) {
	cfg, path, err := cli.LoadConfig(cmd)
	if err != nil {
		return nil, path, err
	}
	if err := cli.ConfigureLogging(cmd, cfg); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// newEngine builds a sync engine from the configuration.
func newEngine(cfg *config.Config, noStream, noMetrics bool) (*engine.Engine, error) {
	opts := engine.Options{
		BaseURL:    cfg.BaseURL,
		StreamURL:  cfg.StreamURL,
		OperatorID: cfg.OperatorID,
		NoStream:   noStream,
		NoMetrics:  noMetrics,
	}
	if r := cfg.Reconnect; r != nil {
		delay, err := r.Delay()
		if err != nil {
			return nil, err
		}
		opts.Policy = stream.Policy{BaseDelay: delay, Factor: r.Multiplier, MaxAttempts: r.MaxAttempts}
	}
	return engine.New(opts)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
