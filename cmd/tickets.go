package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/grovetools/hermes/cli"
	"github.com/grovetools/hermes/pkg/api"
	"github.com/grovetools/hermes/pkg/models"
	"github.com/grovetools/hermes/tui/theme"
	"github.com/spf13/cobra"
)

func NewTicketsCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "tickets",
		Short: "List the backend's tickets once",
		Example: `hermes tickets
# only tickets waiting for an operator
hermes tickets --status diagnosed --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup(cmd)
			if err != nil {
				return err
			}
			tickets, err := api.New(cfg.BaseURL).ListTickets(cmd.Context())
			if err != nil {
				return err
			}
			if status != "" {
				tickets = filterStatus(tickets, models.Status(status))
			}

			if cli.GetOptions(cmd).JSONOutput {
				return printJSON(cmd, tickets)
			}
			printTickets(cmd.OutOrStdout(), tickets)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Only show tickets with this status")
	return cmd
}

func filterStatus(ts []models.Ticket, status models.Status) []models.Ticket {
	out := ts[:0:0]
	for _, t := range ts {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out
}

func printTickets(w io.Writer, ts []models.Ticket) {
	t := theme.DefaultTheme
	if len(ts) == 0 {
		fmt.Fprintln(w, t.Muted.Render("No tickets."))
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tMERCHANT\tCLASS\tCONF\tPRIO\tSTATUS")
	for _, tk := range ts {
		merchant := tk.MerchantName
		if merchant == "" {
			merchant = tk.MerchantID
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.0f%%\t%d\t%s\n",
			tk.ID, merchant, tk.Classification, tk.Confidence*100, tk.Priority, tk.Status)
	}
	tw.Flush()
}
