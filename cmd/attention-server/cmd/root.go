package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/attention-check/internal/config"
	"github.com/oshokin/attention-check/internal/service/autostart"
	"github.com/oshokin/attention-check/internal/service/server"
	"github.com/oshokin/attention-check/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// logLevel is the minimum level written to the logs.
	logLevel string

	// rootCmd represents the base command for running the attention server.
	rootCmd = &cobra.Command{
		Use:   "attention-server [listen-address]",
		Short: "Show randomized attention checks and report how they are answered.",
		Long: `Runs the attention check server.

Inside the configured daily window the server shows alerts at random moments
and reports whether each one was acknowledged in time. Manual alerts queued
with attention-trigger are shown one at a time after the current alert.
The settings file is watched and changes apply without a restart.
Listen address can be provided as argument to override the control address.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			return server.Run(ctx, &server.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
				LogLevel:      logLevel,
			})
		},
	}

	// autostartCmd registers the server to start at login.
	autostartCmd = &cobra.Command{
		Use:       "autostart enable|disable",
		Short:     "Start the server automatically at login.",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"enable", "disable"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return autostart.Set(cmd.Context(), args[0] == "enable", configPath)
		},
	}
)

// Execute runs the attention-server CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)
	rootCmd.AddCommand(autostartCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "info", "log level: debug, info, warn or error")
}
