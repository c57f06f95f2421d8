package cmd

import (
	"github.com/grovetools/hermes/cli"
	"github.com/grovetools/hermes/config"
	"github.com/grovetools/hermes/internal/core/store"
	"github.com/grovetools/hermes/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func NewRunCmd() *cobra.Command {
	var noStream, noMetrics bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Keep a local ticket view in sync and log every change",
		Long: `Connects to the backend stream, polls tickets and metrics, and logs each
store change. Runs until interrupted. Edits to the configuration file's
logging section take effect without a restart.`,
		Example: "hermes run\nhermes run --no-stream --json",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := setup(cmd)
			if err != nil {
				return err
			}
			logger := logging.NewLogger("hermes")

			e, err := newEngine(cfg, noStream, noMetrics)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			if path != "" {
				w, err := config.NewWatcher(path, 0, logger, func(next *config.Config) {
					if err := cli.ConfigureLogging(cmd, next); err != nil {
						logger.WithError(err).Warn("Ignoring logging settings from reloaded config")
						return
					}
					logger.WithField("path", path).Info("Configuration reloaded")
				})
				if err != nil {
					logger.WithError(err).Warn("Config file will not be watched")
				} else {
					defer w.Close()
					go w.Start(ctx)
				}
			}

			unsubscribe := e.Store().Subscribe(func(s store.Snapshot) {
				logChange(logger, s)
			})
			defer unsubscribe()

			return e.Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&noStream, "no-stream", false, "Poll only; do not open the push stream")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "Do not poll the metrics endpoint")
	return cmd
}

func logChange(logger *logrus.Entry, s store.Snapshot) {
	entry := logger.WithField("change", string(s.Change))
	switch s.Change {
	case store.ChangeTicketUpserted:
		for _, t := range s.Tickets {
			if t.ID != s.TicketID {
				continue
			}
			entry.WithFields(logrus.Fields{
				"ticket":     t.ID,
				"status":     t.Status,
				"confidence": t.Confidence,
				"total":      len(s.Tickets),
			}).Info("Ticket updated")
		}
	case store.ChangeTicketsReplaced:
		entry.WithField("total", len(s.Tickets)).Debug("Tickets reconciled")
	case store.ChangeConnection:
		entry.WithFields(logrus.Fields{
			"state":     s.Connection.State.String(),
			"attempt":   s.Connection.Attempt,
			"exhausted": s.Connection.Exhausted,
		}).Info("Stream connection changed")
	default:
		entry.Debug("Store changed")
	}
}
