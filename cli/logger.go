package cli

import (
	"github.com/grovetools/hermes/config"
	"github.com/grovetools/hermes/logging"
	"github.com/spf13/cobra"
)

// ConfigureLogging applies the logging section of cfg, then the
// --verbose and --json flags on top of it.
func ConfigureLogging(cmd *cobra.Command, cfg *config.Config) error {
	var logCfg logging.Config
	if cfg != nil {
		if err := cfg.UnmarshalExtension("logging", &logCfg); err != nil {
			return err
		}
	}

	opts := GetOptions(cmd)
	if opts.Verbose {
		logCfg.Level = "debug"
	}
	if opts.JSONOutput {
		logCfg.Format.Preset = "json"
	}
	logging.Configure(logCfg)
	return nil
}
