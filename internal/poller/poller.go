package poller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

// Cycle is one full sync: discovery, currency check and the worker pool run.
type Cycle interface {
	RunCycle(ctx context.Context) error
}

// CycleFunc is a function adapter for Cycle.
type CycleFunc func(context.Context) error

func (f CycleFunc) RunCycle(ctx context.Context) error {
	return f(ctx)
}

// Config holds poller configuration.
type Config struct {
	Schedule   string        // Standard 5-field cron expression (default: 0 18 * * 1-5)
	RunOnStart bool          // Run a cycle immediately on Start
	Timeout    time.Duration // Upper bound per cycle, 0 for none
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Schedule: "0 18 * * 1-5",
	}
}

// Poller triggers sync cycles on a schedule.
type Poller struct {
	cfg    Config
	cycle  Cycle
	logger *slog.Logger
	cron   *cron.Cron

	running atomic.Bool
	runs    atomic.Int64
	skipped atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Poller. The schedule is parsed here so a bad expression
// fails before anything starts.
func New(cfg Config, cycle Cycle, logger *slog.Logger) (*Poller, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultConfig().Schedule
	}

	p := &Poller{
		cfg:    cfg,
		cycle:  cycle,
		logger: logger,
		cron:   cron.New(),
	}
	if _, err := p.cron.AddFunc(cfg.Schedule, p.tick); err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", cfg.Schedule, err)
	}
	return p, nil
}

// Start begins the schedule.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	if p.cfg.RunOnStart {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.Trigger()
		}()
	}
	p.cron.Start()

	p.logger.Info("sync poller started",
		"schedule", p.cfg.Schedule,
		"run_on_start", p.cfg.RunOnStart,
	)

	return nil
}

// Stop halts the schedule, cancels a running cycle and waits for it.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	cronDone := p.cron.Stop()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		<-cronDone.Done()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("sync poller stopped",
			"runs", p.runs.Load(),
			"skipped", p.skipped.Load(),
		)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Running reports whether a cycle is in progress.
func (p *Poller) Running() bool {
	return p.running.Load()
}

func (p *Poller) tick() {
	p.wg.Add(1)
	defer p.wg.Done()
	p.Trigger()
}

// Trigger runs one cycle now unless one is already running. It reports
// whether a cycle ran.
func (p *Poller) Trigger() bool {
	if !p.running.CompareAndSwap(false, true) {
		p.skipped.Add(1)
		p.logger.Warn("previous sync cycle still running, skipping")
		return false
	}
	defer p.running.Store(false)

	ctx := p.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	p.runs.Add(1)
	if err := p.cycle.RunCycle(ctx); err != nil {
		p.logger.Error("sync cycle failed",
			"err", err,
			"duration", time.Since(start),
		)
		return true
	}

	p.logger.Info("sync cycle complete", "duration", time.Since(start))
	return true
}
