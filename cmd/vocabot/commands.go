package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ashureev/vocabot/internal/config"
	"github.com/ashureev/vocabot/internal/history"
)

func newBroadcastCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "broadcast",
		Short: "Send the daily invitation once and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.broadcaster.Run(ctx)
		},
	}
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect or reset the word history",
	}

	var limit int
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Print the word count and most recent words",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withLedger(cmd.Context(), func(l *history.Ledger) error {
				total, recent := l.Stats(limit)
				printf(cmd, "words: %d\n", total)
				for i, e := range recent {
					printf(cmd, "%d. %s (%s, attempt %d)\n", i+1, e.Word, e.Date.Format("2006-01-02 15:04"), e.Attempt)
				}
				return nil
			})
		},
	}
	statsCmd.Flags().IntVarP(&limit, "limit", "n", 5, "number of recent words to show")

	var yes bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Forget every issued word",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("refusing to clear history without --yes")
			}
			return withLedger(cmd.Context(), func(l *history.Ledger) error {
				before := l.Len()
				l.Clear(cmd.Context())
				printf(cmd, "cleared %d words\n", before)
				return nil
			})
		},
	}
	clearCmd.Flags().BoolVar(&yes, "yes", false, "confirm clearing the history")

	cmd.AddCommand(statsCmd, clearCmd)
	return cmd
}

// withLedger opens the configured history for a one-shot command. Logs go to
// stderr so command output stays clean.
func withLedger(ctx context.Context, fn func(*history.Ledger) error) error {
	cfg, err := config.LoadStorage()
	if err != nil {
		return err
	}
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := s.Close(); closeErr != nil {
			slog.Error("Failed to close history store", "error", closeErr)
		}
	}()

	return fn(history.Open(ctx, s, newLoggerTo(os.Stderr, cfg.Debug)))
}
