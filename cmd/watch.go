package cmd

import (
	"github.com/grovetools/hermes/tui/dashboard"
	"github.com/spf13/cobra"
)

func NewWatchCmd() *cobra.Command {
	var noStream bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Show live tickets in a terminal view",
		Long: `Opens a full-screen view of the synchronized tickets, the agent panel and
the stream connection state. j/k move the selection, r restarts the
stream after it gave up, q quits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup(cmd)
			if err != nil {
				return err
			}
			e, err := newEngine(cfg, noStream, false)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			e.Start(ctx)
			defer e.Stop()

			return dashboard.Run(e.Store(), e.Reconnect)
		},
	}

	cmd.Flags().BoolVar(&noStream, "no-stream", false, "Poll only; do not open the push stream")
	return cmd
}
