package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/marwane019/board-report-generator/internal/common"
	"github.com/marwane019/board-report-generator/internal/interfaces"
)

// RunFunc is one full pipeline run, executed at every scheduled trigger.
type RunFunc func(ctx context.Context) error

// Service triggers pipeline runs on a cron schedule. Runs are serialized:
// a trigger firing while the previous run is still in flight is skipped.
// Failed runs are retried up to the configured limit.
type Service struct {
	cfg    *common.Config
	run    RunFunc
	cron   *cron.Cron
	health *healthServer
	logger arbor.ILogger

	mu        sync.Mutex
	isRunning bool
	running   bool

	state runState
}

var _ interfaces.SchedulerService = (*Service)(nil)

// runState is what the health endpoint reports.
type runState struct {
	mu         sync.RWMutex
	lastRun    time.Time
	lastStatus string
	runs       int
	failures   int
}

func NewService(cfg *common.Config, run RunFunc) *Service {
	return &Service{
		cfg:    cfg,
		run:    run,
		logger: common.GetLogger(),
	}
}

// Start validates the schedule, starts the cron loop and the health
// endpoint, and blocks until the context is cancelled.
func (s *Service) Start(ctx context.Context) error {
	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	if err := common.ValidateSchedule(s.cfg.Scheduler.Schedule); err != nil {
		return err
	}

	location := time.UTC
	if tz := s.cfg.Scheduler.Timezone; tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return fmt.Errorf("loading timezone %q: %w", tz, err)
		}
		location = loc
	}

	s.cron = cron.New(cron.WithLocation(location))
	if _, err := s.cron.AddFunc(s.cfg.Scheduler.Schedule, func() {
		s.trigger(ctx)
	}); err != nil {
		return fmt.Errorf("registering schedule: %w", err)
	}

	if s.cfg.Scheduler.HealthPort > 0 {
		s.health = newHealthServer(s.cfg.Scheduler.HealthPort, &s.state)
		s.health.start()
	}

	s.cron.Start()
	s.running = true
	s.logger.Info().
		Str("schedule", s.cfg.Scheduler.Schedule).
		Str("timezone", location.String()).
		Int("max_retries", s.cfg.Scheduler.MaxRetries).
		Msg("Scheduler started")

	<-ctx.Done()
	s.Stop()
	return nil
}

// Stop halts the cron loop and the health endpoint, waiting for an
// in-flight run to finish.
func (s *Service) Stop() {
	if !s.running {
		return
	}
	s.running = false

	stopCtx := s.cron.Stop()
	<-stopCtx.Done()

	if s.health != nil {
		s.health.stop()
	}
	s.logger.Info().Msg("Scheduler stopped")
}

// trigger executes one scheduled run with overlap suppression, panic
// recovery and retries.
func (s *Service) trigger(ctx context.Context) {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		s.logger.Warn().Msg("Previous run still in progress, skipping trigger")
		return
	}
	s.isRunning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
	}()

	err := s.runWithRetries(ctx)

	s.state.mu.Lock()
	s.state.lastRun = time.Now()
	s.state.runs++
	if err != nil {
		s.state.lastStatus = "failed"
		s.state.failures++
	} else {
		s.state.lastStatus = "ok"
	}
	s.state.mu.Unlock()
}

func (s *Service) runWithRetries(ctx context.Context) error {
	attempts := s.cfg.Scheduler.MaxRetries + 1
	delay := s.cfg.RetryDelayDuration()

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = s.runOnce(ctx, attempt)
		if lastErr == nil {
			return nil
		}
		s.logger.Error().
			Err(lastErr).
			Int("attempt", attempt).
			Int("max_attempts", attempts).
			Msg("Scheduled run failed")

		if attempt < attempts {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return lastErr
}

// runOnce isolates one attempt so a panic inside the pipeline is
// converted into an error instead of killing the scheduler.
func (s *Service) runOnce(ctx context.Context, attempt int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("run panicked: %v", r)
		}
	}()

	s.logger.Info().Int("attempt", attempt).Msg("Scheduled run starting")
	return s.run(ctx)
}
