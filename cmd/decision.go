package cmd

import (
	"fmt"

	"github.com/grovetools/hermes/cli"
	"github.com/spf13/cobra"
)

// NewDecisionCmd creates "approve" when approved is true and "reject"
// otherwise.
func NewDecisionCmd(approved bool) *cobra.Command {
	var justification string

	use, short, outcome := "reject", "Reject the proposed action and escalate the ticket", "escalated"
	if approved {
		use, short, outcome = "approve", "Approve the proposed action and resolve the ticket", "resolved"
	}

	cmd := &cobra.Command{
		Use:   use + " <ticket-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup(cmd)
			if err != nil {
				return err
			}
			e, err := newEngine(cfg, true, true)
			if err != nil {
				return err
			}
			res, err := e.Decide(cmd.Context(), args[0], approved, justification)
			if err != nil {
				return err
			}
			if cli.GetOptions(cmd).JSONOutput {
				return printJSON(cmd, res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Ticket %s %s (operator %s)\n", args[0], outcome, e.OperatorID())
			return nil
		},
	}

	cmd.Flags().StringVarP(&justification, "justification", "m", "", "Reason recorded with the decision")
	return cmd
}
