package cmd

import (
	"fmt"
	"strings"

	"github.com/grovetools/hermes/cli"
	"github.com/grovetools/hermes/pkg/api"
	"github.com/spf13/cobra"
)

func NewSubmitCmd() *cobra.Command {
	var merchant, channel string

	cmd := &cobra.Command{
		Use:     "submit <text>...",
		Short:   "Submit a new support ticket for triage",
		Example: `hermes submit --merchant test_merchant_001 "Webhooks fail signature checks"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup(cmd)
			if err != nil {
				return err
			}
			t, err := api.New(cfg.BaseURL).CreateTicket(cmd.Context(), api.TicketCreate{
				MerchantID: merchant,
				RawText:    strings.Join(args, " "),
				Channel:    channel,
			})
			if err != nil {
				return err
			}
			if cli.GetOptions(cmd).JSONOutput {
				return printJSON(cmd, t)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s, %.0f%%)\n", t.ID, t.Classification, t.Confidence*100)
			return nil
		},
	}

	cmd.Flags().StringVar(&merchant, "merchant", "test_merchant_001", "Merchant id")
	cmd.Flags().StringVar(&channel, "channel", "", "Intake channel (default api)")
	return cmd
}
