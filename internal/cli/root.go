// Package cli implements the galahad command line.
package cli

import (
	"log/slog"

	"github.com/me/galahad/internal/config"
	"github.com/me/galahad/internal/logging"
	"github.com/me/galahad/pkg/galaxy"
	"github.com/spf13/cobra"
)

var (
	flagGalaxy    string
	flagConfig    string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	cfg    config.Config
	logger *slog.Logger
	client *galaxy.Client
)

// NewRootCmd creates the root cobra command for the galahad CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "galahad",
		Short: "galahad - Galaxy tool form compiler",
		Long: `galahad turns Galaxy tool input schemas into flat form specs with
conditional visibility, and can run the resulting jobs on a Galaxy server.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Load(flagConfig)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("galaxy") {
				c.Galaxy.URL = flagGalaxy
			}
			if flags.Changed("log-level") {
				c.Log.Level = flagLogLevel
			}
			if flags.Changed("log-format") {
				c.Log.Format = flagLogFormat
			}
			if flagDebug {
				c.Log.Level = "debug"
			}
			if err := c.Validate(); err != nil {
				return err
			}

			logger = logging.NewLogger(logging.ParseLevel(c.Log.Level), c.Log.Format)
			if c.Galaxy.APIKey == "" {
				if key, err := galaxy.ResolveAPIKey(c.Galaxy.URL); err == nil {
					c.Galaxy.APIKey = key
				}
			}
			client = galaxy.NewClient(c.GalaxyClient(), logger)
			cfg = c
			return nil
		},
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flagGalaxy, "galaxy", galaxy.DefaultURL, "Galaxy server URL (or GALAXY_URL env)")
	pf.StringVar(&flagConfig, "config", "", "Config file (default ~/.galahad/config.yaml)")
	pf.BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	pf.StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newCompileCmd(),
		newVisibilityCmd(),
		newToolsCmd(),
		newLoginCmd(),
		newCacheCmd(),
		newRunCmd(),
		newUploadCmd(),
	)

	return root
}
