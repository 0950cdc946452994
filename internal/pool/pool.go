package pool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/mse-history/internal/config"
	"github.com/rickgao/mse-history/internal/metrics"
	"github.com/rickgao/mse-history/internal/model"
)

const tracerName = "github.com/rickgao/mse-history/internal/pool"

// ErrNoRunner is returned when a pool is started without a job runner.
var ErrNoRunner = errors.New("pool: no job runner")

// Runner syncs one issuer. syncjob.Job satisfies it.
type Runner interface {
	Run(ctx context.Context, req model.SyncRequest) model.Outcome
}

// RunnerFunc is a function adapter for Runner.
type RunnerFunc func(context.Context, model.SyncRequest) model.Outcome

func (f RunnerFunc) Run(ctx context.Context, req model.SyncRequest) model.Outcome {
	return f(ctx, req)
}

// Config holds pool configuration.
type Config struct {
	MaxWorkers int // Upper bound on concurrent jobs (default: 200)
}

// Pool fans sync requests out to a fixed number of workers.
type Pool struct {
	cfg     Config
	runner  Runner
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// Option configures a Pool.
type Option func(*Pool)

// WithMetrics records run metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pool) {
		p.metrics = m
	}
}

// WithTracerProvider sets the provider spans are created from.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(p *Pool) {
		p.tracer = tp.Tracer(tracerName)
	}
}

// New creates a Pool. Worker counts below 1 or above the limit fall back to
// the default.
func New(cfg Config, runner Runner, logger *slog.Logger, opts ...Option) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.MaxWorkers = config.NormalizeWorkers(cfg.MaxWorkers)
	p := &Pool{
		cfg:    cfg,
		runner: runner,
		logger: logger,
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Workers returns the number of workers a run over n issuers uses.
func (p *Pool) Workers(n int) int {
	return min(p.cfg.MaxWorkers, n)
}

// Requests turns an issuer to last-known date mapping into requests,
// ordered by issuer code.
func Requests(lastKnown map[string]*time.Time) []model.SyncRequest {
	reqs := make([]model.SyncRequest, 0, len(lastKnown))
	for code, d := range lastKnown {
		reqs = append(reqs, model.SyncRequest{Issuer: code, LastKnown: d})
	}
	sort.Slice(reqs, func(i, j int) bool {
		return reqs[i].Issuer < reqs[j].Issuer
	})
	return reqs
}

// Run processes every request exactly once and blocks until all have a
// terminal outcome. Issuer failures are reported in the Report, not as an
// error. The error is reserved for a pool that cannot start.
func (p *Pool) Run(ctx context.Context, reqs []model.SyncRequest) (*Report, error) {
	if p.runner == nil {
		return nil, ErrNoRunner
	}

	started := time.Now()
	p.metrics.RunStarted()

	ctx, span := p.tracer.Start(ctx, "pool.Run", trace.WithAttributes(
		attribute.Int("issuers", len(reqs)),
	))
	defer span.End()

	workers := p.Workers(len(reqs))
	p.logger.Info("sync run started",
		"issuers", len(reqs),
		"workers", workers,
	)

	queue := make(chan model.SyncRequest, len(reqs))
	for _, req := range reqs {
		queue <- req
	}
	close(queue)

	outcomes := make(chan model.Outcome, workers)
	collected := make(chan []model.Outcome, 1)
	go func() {
		all := make([]model.Outcome, 0, len(reqs))
		for o := range outcomes {
			all = append(all, o)
		}
		collected <- all
	}()

	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for req := range queue {
				outcomes <- p.process(ctx, req)
			}
			return nil
		})
	}
	_ = g.Wait()
	close(outcomes)

	report := newReport(started, <-collected)
	report.Duration = time.Since(started)

	span.SetAttributes(
		attribute.String("run_id", report.RunID.String()),
		attribute.Int("updated", report.Updated),
		attribute.Int("failed", len(report.Failures)),
	)
	p.logger.Info("sync run complete",
		"run_id", report.RunID,
		"issuers", len(report.Outcomes),
		"updated", report.Updated,
		"current", report.Current,
		"failed", len(report.Failures),
		"rows", report.RowsSaved,
		"duration", report.Duration,
	)

	return report, nil
}

// process runs one issuer and converts a panic or cancellation into a
// failed outcome.
func (p *Pool) process(ctx context.Context, req model.SyncRequest) (out model.Outcome) {
	if err := ctx.Err(); err != nil {
		return model.Outcome{
			Issuer:  req.Issuer,
			Status:  model.StatusFailed,
			Err:     err,
			Message: fmt.Sprintf("error fetching %s: %v", req.Issuer, err),
		}
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("sync job panicked",
				"issuer", req.Issuer,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			out = model.Outcome{
				Issuer:  req.Issuer,
				Status:  model.StatusFailed,
				Err:     fmt.Errorf("panic: %v", r),
				Message: fmt.Sprintf("panic processing %s: %v", req.Issuer, r),
			}
		}
	}()

	out = p.runner.Run(ctx, req)
	out.Issuer = req.Issuer
	if !out.Status.Terminal() {
		out.Message = fmt.Sprintf("error processing %s: job ended in state %q", req.Issuer, out.Status)
		out.Status = model.StatusFailed
	}
	return out
}
