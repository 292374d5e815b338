package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/attention-check/internal/api/grpc/control"
	"github.com/oshokin/attention-check/internal/config"
	"github.com/oshokin/attention-check/internal/domain/alert"
	"github.com/oshokin/attention-check/internal/logger"
	"github.com/oshokin/attention-check/internal/presenter/remote"
	"github.com/oshokin/attention-check/internal/service/client"
	"github.com/oshokin/attention-check/internal/version"
)

var (
	// cfgPath stores the configuration file path.
	cfgPath string
	// serverAddress overrides the control address from the settings.
	serverAddress string
	// alertID selects the alert answered by ack, answer and dismiss.
	alertID string
	// logLevel is the minimum level written to the console.
	logLevel string

	// params collects the enqueue flags.
	params = control.EnqueueParams{MessageIndex: control.NoMessageIndex}
	// question and answer form a custom challenge.
	question, answer string

	// rootCmd represents the base command for queueing a manual alert.
	rootCmd = &cobra.Command{
		Use:   "attention-trigger [message]",
		Short: "Queue a manual attention check.",
		Long: `Queues a manual alert on the attention server.

The alert is shown after the alert currently on screen is resolved.
The message defaults to the configured alert message; --index picks one of
the predefined messages instead. While the server is unreachable the request
is retried until it is accepted or the command is interrupted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			request := params
			if len(args) > 0 {
				request.Message = args[0]
			}

			if question != "" || answer != "" {
				request.Challenge = &alert.Challenge{Question: question, Answer: answer}
			}

			return run(cmd, func(ctx context.Context, t *client.Trigger) error {
				return t.Enqueue(ctx, &request)
			})
		},
	}

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show the alert on screen, queue sizes and recent notifications.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(ctx context.Context, t *client.Trigger) error {
				return t.Status(ctx)
			})
		},
	}

	ackCmd = &cobra.Command{
		Use:   "ack",
		Short: "Acknowledge the alert on screen.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return respond(cmd, remote.ActionAcknowledge, "")
		},
	}

	answerCmd = &cobra.Command{
		Use:   "answer <answer>",
		Short: "Answer the challenge of the alert on screen.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return respond(cmd, remote.ActionAnswer, args[0])
		},
	}

	dismissCmd = &cobra.Command{
		Use:   "dismiss",
		Short: "Close the alert on screen without acknowledging it.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return respond(cmd, remote.ActionDismiss, "")
		},
	}

	shutdownCmd = &cobra.Command{
		Use:   "shutdown",
		Short: "Stop the attention server.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(ctx context.Context, t *client.Trigger) error {
				return t.Shutdown(ctx)
			})
		},
	}
)

func respond(cmd *cobra.Command, action remote.Action, text string) error {
	return run(cmd, func(ctx context.Context, t *client.Trigger) error {
		return t.Respond(ctx, strings.TrimSpace(alertID), action, text)
	})
}

func run(cmd *cobra.Command, fn func(ctx context.Context, t *client.Trigger) error) error {
	level, ok := logger.ParseLogLevel(logLevel)
	if !ok {
		return fmt.Errorf("unknown log level %q", logLevel)
	}

	logger.SetLevel(level)

	// Setup graceful shutdown handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	return client.Run(ctx, &client.Options{
		ConfigPath:    cfgPath,
		ServerAddress: serverAddress,
		Output:        cmd.OutOrStdout(),
	}, fn)
}

// Execute runs the attention-trigger CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)
	rootCmd.AddCommand(statusCmd, ackCmd, answerCmd, dismissCmd, shutdownCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	flags.StringVarP(&serverAddress, "server", "s", "", "control address, overrides the settings")
	flags.StringVarP(&logLevel, "log-level", "l", "warn", "log level: debug, info, warn or error")

	rootCmd.Flags().IntVarP(&params.MessageIndex, "index", "i", control.NoMessageIndex, "predefined message index")
	rootCmd.Flags().BoolVar(&params.PlaySound, "sound", true, "loop the alert sound while the alert is shown")
	rootCmd.Flags().BoolVar(&params.Math, "math", false, "require an arithmetic answer to acknowledge")
	rootCmd.Flags().StringVar(&question, "question", "", "custom challenge question")
	rootCmd.Flags().StringVar(&answer, "answer", "", "answer to the custom challenge question")

	for _, c := range []*cobra.Command{ackCmd, answerCmd, dismissCmd} {
		c.Flags().StringVar(&alertID, "id", "", "alert id, defaults to the alert on screen")
	}
}
