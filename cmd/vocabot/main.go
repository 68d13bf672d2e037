// Vocabot - daily vocabulary drills over Telegram
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	slog.SetDefault(newLogger(false))

	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "vocabot",
		Short:         "Telegram bot that drills English vocabulary every day",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if err := godotenv.Load(envFile); err != nil {
				slog.Info("No .env file found, using environment variables", "path", envFile)
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional dotenv file to load")

	root.AddCommand(
		newServeCmd(),
		newBroadcastCmd(),
		newHistoryCmd(),
	)
	return root
}

// newLogger returns a JSON logger on stdout, or a human-readable debug logger.
func newLogger(debug bool) *slog.Logger {
	return newLoggerTo(os.Stdout, debug)
}

func newLoggerTo(w io.Writer, debug bool) *slog.Logger {
	if debug {
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func printf(cmd *cobra.Command, format string, args ...any) {
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
