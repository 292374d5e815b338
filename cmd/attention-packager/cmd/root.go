package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/attention-check/internal/logger"
	"github.com/oshokin/attention-check/internal/service/packager"
	"github.com/oshokin/attention-check/internal/version"
)

var (
	// configPath is the settings file to pin the release in.
	configPath string
	// dir holds the release binaries.
	dir string
	// logLevel is the minimum level written to the console.
	logLevel string

	// rootCmd represents the base command for preparing update metadata.
	rootCmd = &cobra.Command{
		Use:   "attention-packager [update-folder]",
		Short: "Prepare update metadata for distribution",
		Long: `Writes the update manifest for the binaries in --dir.

Upload the binaries together with the manifest to the update folder.
With --config the settings file is pointed at the folder and pinned to the
checksum of the packaged server.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			level, ok := logger.ParseLogLevel(logLevel)
			if !ok {
				return fmt.Errorf("unknown log level %q", logLevel)
			}

			logger.SetLevel(level)

			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return packager.Run(ctx, &packager.Options{
				Dir:          dir,
				UpdateFolder: args[0],
				ConfigPath:   configPath,
			})
		},
	}
)

// Execute runs the attention-packager CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "settings file to update, skipped when empty")
	rootCmd.Flags().StringVarP(&dir, "dir", "d", ".", "directory holding the release binaries")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "info", "log level: debug, info, warn or error")
}
