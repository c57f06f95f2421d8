package cmd

import (
	"fmt"

	"github.com/grovetools/hermes/pkg/paths"
	"github.com/spf13/cobra"
)

// PathsOutput lists the directories hermes reads and writes.
type PathsOutput struct {
	ConfigDir  string `json:"config_dir"`
	ConfigFile string `json:"config_file"`
	StateDir   string `json:"state_dir"`
	LogDir     string `json:"log_dir"`
}

func NewPathsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print the directories used by hermes",
		Long: `Prints the configuration, state and log directories as JSON. HERMES_HOME
moves all of them under one root; otherwise the XDG variables apply.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := PathsOutput{
				ConfigDir:  paths.ConfigDir(),
				ConfigFile: paths.GlobalConfigFile(),
				StateDir:   paths.StateDir(),
				LogDir:     paths.LogDir(),
			}
			if err := printJSON(cmd, out); err != nil {
				return fmt.Errorf("failed to print paths: %w", err)
			}
			return nil
		},
	}
}
