package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ashureev/vocabot/internal/agent"
	"github.com/ashureev/vocabot/internal/api"
	"github.com/ashureev/vocabot/internal/broadcast"
	"github.com/ashureev/vocabot/internal/config"
	"github.com/ashureev/vocabot/internal/history"
	"github.com/ashureev/vocabot/internal/metrics"
	"github.com/ashureev/vocabot/internal/poller"
	"github.com/ashureev/vocabot/internal/session"
	"github.com/ashureev/vocabot/internal/store"
	"github.com/ashureev/vocabot/internal/telegram"
	"github.com/ashureev/vocabot/internal/vocab"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the poller, daily scheduler and ops server (default)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

// app holds the wired core shared by serve and broadcast.
type app struct {
	cfg         *config.Config
	logger      *slog.Logger
	registry    *prometheus.Registry
	metrics     *metrics.Metrics
	store       store.LedgerStore
	ledger      *history.Ledger
	bot         *telegram.Bot
	sessions    *session.Store
	broadcaster *broadcast.Broadcaster
	loc         *time.Location
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := newLogger(cfg.Debug)
	slog.SetDefault(logger)

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	ledgerStore, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	ledger := history.Open(ctx, ledgerStore, logger)

	bot, err := telegram.New(ctx, telegram.Config{Token: cfg.TelegramToken}, logger)
	if err != nil {
		_ = ledgerStore.Close()
		return nil, err
	}

	sessions := session.NewStore(m)
	return &app{
		cfg:         cfg,
		logger:      logger,
		registry:    reg,
		metrics:     m,
		store:       ledgerStore,
		ledger:      ledger,
		bot:         bot,
		sessions:    sessions,
		broadcaster: broadcast.New(sessions, bot, cfg.ChatID, m, logger),
		loc:         loc,
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error("Failed to close history store", "error", err)
	}
}

func openStore(cfg *config.Config) (store.LedgerStore, error) {
	s, err := store.Open(store.Options{
		Backend:  cfg.HistoryBackend,
		JSONPath: cfg.HistoryPath,
		DBPath:   cfg.DBPath,
	})
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}
	return s, nil
}

func runServe(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	cfg, logger := a.cfg, a.logger

	client, err := agent.NewClient(agent.Config{
		BaseURL:   cfg.BaseURL,
		APIKey:    cfg.APIKey,
		ModelName: cfg.Model,
		Timeout:   cfg.LLMTimeout,
	}, logger)
	if err != nil {
		return err
	}
	generator := agent.NewService(client, a.metrics, logger)

	acquirer := vocab.NewAcquirer(generator, a.ledger, vocab.Config{
		RetryDelay: cfg.LLMRetryDelay,
		Metrics:    a.metrics,
		Logger:     logger,
	})

	engine := session.NewEngine(a.sessions, a.bot, acquirer, a.ledger, session.EngineConfig{
		Acquire:  vocab.Options{AvoidRepetition: true, MaxAttempts: cfg.LLMMaxAttempts},
		Metrics:  a.metrics,
		Logger:   logger,
		Location: a.loc,
	})

	p := poller.New(a.bot, engine, poller.Config{
		Timeout:      cfg.PollTimeout,
		IdleInterval: cfg.PollIdleInterval,
		ErrorBackoff: cfg.PollErrorBackoff,
		Metrics:      a.metrics,
		Logger:       logger,
	})

	scheduler, err := broadcast.NewScheduler(a.broadcaster, broadcast.SchedulerConfig{
		DailyTime: cfg.DailyTime,
		Location:  a.loc,
		Debug:     cfg.Debug,
	}, logger)
	if err != nil {
		return err
	}

	logger.Info("Starting vocabot",
		"bot", a.bot.Username(),
		"chat_id", cfg.ChatID,
		"model", client.Model(),
		"daily_time", cfg.DailyTime,
		"timezone", a.loc.String(),
		"history_backend", cfg.HistoryBackend,
		"words_in_history", a.ledger.Len(),
		"debug", cfg.Debug)
	if cfg.Debug {
		logger.Warn("Debug mode: broadcasting every 2 minutes", "schedule", broadcast.DebugSchedule)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.Run(gctx) })
	g.Go(func() error { return scheduler.Start(gctx) })

	if cfg.HTTPEnabled() {
		health := api.NewHealthHandler(a.ledger, p, 3*cfg.PollTimeout)
		srv := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           api.NewRouter(health, a.registry),
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
		}
		g.Go(func() error {
			logger.Info("Ops server listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("ops server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	logger.Info("Vocabot stopped", "reason", context.Cause(ctx))
	return err
}
