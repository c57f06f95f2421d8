package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/grovetools/hermes/internal/mockserver"
	"github.com/grovetools/hermes/logging"
	"github.com/spf13/cobra"
)

func NewMockServerCmd() *cobra.Command {
	var addr, emit string
	var noSeed bool

	cmd := &cobra.Command{
		Use:   "mock-server",
		Short: "Serve an in-memory triage backend for local development",
		Long: `Serves the tickets, diagnosis, decision, metrics and health endpoints
under /api/v1, an SSE stream at /api/v1/stream and a WebSocket stream at
/ws. With an emit interval it keeps inventing tickets and advancing old
ones so a client sees live traffic.`,
		Example: "hermes mock-server\nhermes mock-server --addr :9000 --emit-interval 5s",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup(cmd)
			if err != nil {
				return err
			}
			ms := cfg.MockServer
			if cmd.Flags().Changed("addr") {
				ms.Addr = addr
			}
			if cmd.Flags().Changed("emit-interval") {
				ms.EmitInterval = emit
			}
			every, err := ms.EmitEvery()
			if err != nil {
				return err
			}

			logger := logging.NewLogger("mock-server")
			backend := mockserver.NewBackend()
			if *ms.Seed && !noSeed {
				backend.Seed()
			}
			srv := mockserver.New(backend, logger)

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			if every > 0 {
				go mockserver.NewEmitter(backend, every, logger).Run(ctx)
			}

			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe(ms.Addr) }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
			defer stop()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8002", "Listen address")
	cmd.Flags().StringVar(&emit, "emit-interval", "", "Invent a ticket this often (e.g. 5s); empty disables")
	cmd.Flags().BoolVar(&noSeed, "no-seed", false, "Start without demo tickets")
	return cmd
}
