// Package cli holds the pieces shared by hermes' cobra commands: the
// standard flags, config discovery, styled help and error reporting.
package cli

import (
	"os"

	"github.com/grovetools/hermes/config"
	"github.com/grovetools/hermes/errors"
	"github.com/spf13/cobra"
)

// CommandOptions holds the flags every hermes command accepts.
type CommandOptions struct {
	ConfigFile string
	BaseURL    string
	Verbose    bool
	JSONOutput bool
}

// NewStandardCommand creates a root command with the standard flags.
func NewStandardCommand(use, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           use,
		Short:         short,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	cmd.PersistentFlags().StringP("config", "c", "", "Path to hermes.yml config file")
	cmd.PersistentFlags().String("base-url", "", "Backend API root (overrides base_url)")

	SetStyledHelp(cmd)
	return cmd
}

// GetOptions extracts the standard flags from a command.
func GetOptions(cmd *cobra.Command) CommandOptions {
	configFile, _ := cmd.Flags().GetString("config")
	baseURL, _ := cmd.Flags().GetString("base-url")
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	return CommandOptions{
		ConfigFile: configFile,
		BaseURL:    baseURL,
		Verbose:    verbose,
		JSONOutput: jsonOutput,
	}
}

// InitConfig resolves the configuration file path. An empty path with a
// nil error means no file exists and defaults apply.
func InitConfig(configFile string) (string, error) {
	if configFile != "" {
		return configFile, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	found, err := config.FindConfigFile(cwd)
	if err != nil {
		if errors.Is(err, errors.ErrCodeConfigNotFound) {
			return "", nil
		}
		return "", err
	}
	return found, nil
}

// LoadConfig loads the configuration selected by the flags and applies
// the --base-url override. It also returns the file path, empty when the
// defaults were used.
func LoadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	opts := GetOptions(cmd)
	path, err := InitConfig(opts.ConfigFile)
	if err != nil {
		return nil, "", err
	}

	var cfg *config.Config
	if path == "" {
		cfg, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(path)
	}
	if err != nil {
		return nil, path, err
	}

	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
		cfg.SetDefaults()
		if err := cfg.Validate(); err != nil {
			return nil, path, err
		}
	}
	return cfg, path, nil
}
