package cmd

import (
	"fmt"

	"github.com/grovetools/hermes/cli"
	"github.com/grovetools/hermes/config"
	"github.com/grovetools/hermes/logging"
	"github.com/grovetools/hermes/schema"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Display the effective configuration",
		Long: `Prints the configuration after file discovery, environment overrides
and defaults, preceded by the file it came from.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			if cli.GetOptions(cmd).JSONOutput {
				return printJSON(cmd, cfg)
			}
			if path == "" {
				path = "(defaults)"
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# Source: %s\n%s", path, data)
			return nil
		},
	}
	cmd.AddCommand(newConfigSchemaCmd())
	return cmd
}

func newConfigSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of hermes.yml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := ComposedSchema()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}

// ComposedSchema returns the configuration schema with every extension
// section folded in.
func ComposedSchema() ([]byte, error) {
	base, err := config.GenerateSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to generate config schema: %w", err)
	}
	logSchema, err := logging.GenerateSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to generate logging schema: %w", err)
	}
	return schema.Compose(base, map[string][]byte{"logging": logSchema}, "Hermes Configuration")
}
