package broadcast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ashureev/vocabot/internal/config"
)

// DebugSchedule fires the broadcast frequently for manual testing.
const DebugSchedule = "@every 2m"

// Job is the work a Scheduler triggers.
type Job interface {
	Run(ctx context.Context) error
}

// SchedulerConfig selects when the job fires.
type SchedulerConfig struct {
	DailyTime string // "HH:MM" in Location
	Location  *time.Location
	Debug     bool
}

// Scheduler triggers a Job on a daily wall-clock time using cron.
type Scheduler struct {
	cron    *cron.Cron
	job     Job
	spec    string
	logger  *slog.Logger
	mu      sync.Mutex
	entryID cron.EntryID
	started bool
}

// CronSpec converts cfg into a cron schedule expression.
func CronSpec(cfg SchedulerConfig) (string, error) {
	if cfg.Debug {
		return DebugSchedule, nil
	}
	hour, minute, err := config.ParseDailyTime(cfg.DailyTime)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}

// NewScheduler validates cfg and prepares a stopped scheduler.
func NewScheduler(job Job, cfg SchedulerConfig, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	spec, err := CronSpec(cfg)
	if err != nil {
		return nil, err
	}

	cl := cronLogger{logger: logger}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(
		cron.WithParser(parser),
		cron.WithLocation(cfg.Location),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	return &Scheduler{
		cron:   c,
		job:    job,
		spec:   spec,
		logger: logger,
	}, nil
}

// Start runs the schedule until ctx is canceled, then waits for a running
// job to finish.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("scheduler already started")
	}
	id, err := s.cron.AddFunc(s.spec, func() {
		if err := s.job.Run(ctx); err != nil {
			s.logger.Warn("Scheduled broadcast failed", "error", err)
		}
	})
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("register schedule %q: %w", s.spec, err)
	}
	s.entryID = id
	s.started = true
	s.cron.Start()
	s.mu.Unlock()

	s.logger.Info("Broadcast scheduler started", "schedule", s.spec, "next", s.Next())

	<-ctx.Done()
	stopped := s.cron.Stop()
	<-stopped.Done()
	s.logger.Info("Broadcast scheduler stopped", "reason", ctx.Err())
	return nil
}

// Next returns the next activation time, or the zero time before Start.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}

// cronLogger routes cron's logging into slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
