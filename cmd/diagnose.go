package cmd

import (
	"fmt"
	"io"

	"github.com/grovetools/hermes/cli"
	"github.com/grovetools/hermes/pkg/api"
	"github.com/grovetools/hermes/pkg/diagnosis"
	"github.com/grovetools/hermes/pkg/models"
	"github.com/grovetools/hermes/tui/theme"
	"github.com/spf13/cobra"
)

func NewDiagnoseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diagnose <ticket-id>",
		Short: "Show the diagnosis of a ticket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup(cmd)
			if err != nil {
				return err
			}
			d, err := diagnosis.New(api.New(cfg.BaseURL)).Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if cli.GetOptions(cmd).JSONOutput {
				return printJSON(cmd, d)
			}
			printDiagnosis(cmd.OutOrStdout(), args[0], d)
			return nil
		},
	}
}

func printDiagnosis(w io.Writer, id string, d *models.Diagnosis) {
	t := theme.DefaultTheme
	if d.Pending() {
		msg := d.Message
		if msg == "" {
			msg = "Diagnosis is still being produced."
		}
		fmt.Fprintln(w, t.Warning.Render(msg))
		return
	}

	fmt.Fprintf(w, "%s %s\n", t.Header.Render("Ticket"), id)
	fmt.Fprintf(w, "Class:      %s (%.0f%%)\n", d.Classification, d.Confidence*100)
	if d.RootCause != "" {
		fmt.Fprintf(w, "Root cause: %s\n", d.RootCause)
	}
	for _, h := range d.Hypotheses {
		fmt.Fprintf(w, "  %s %s %s\n", t.Accent.Render(fmt.Sprintf("%3.0f%%", h.Confidence*100)), h.Description, t.Muted.Render(h.ID))
	}
	if d.RecommendedAction != "" {
		fmt.Fprintf(w, "Action:     %s", d.RecommendedAction)
		if d.RiskLevel != "" {
			fmt.Fprintf(w, " %s", t.Muted.Render("(risk "+d.RiskLevel+")"))
		}
		fmt.Fprintln(w)
	}
}
