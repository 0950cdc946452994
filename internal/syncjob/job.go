package syncjob

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/rickgao/mse-history/internal/metrics"
	"github.com/rickgao/mse-history/internal/model"
)

const tracerName = "github.com/rickgao/mse-history/internal/syncjob"

// Fetcher retrieves the raw rows of one issuer for one year window.
type Fetcher interface {
	FetchWindow(ctx context.Context, issuer string, w model.YearWindow) ([]model.RawRow, error)
}

// Saver persists records for one issuer. It must be safe for concurrent
// calls with different issuers.
type Saver interface {
	Save(ctx context.Context, issuer string, records []model.Record) error
}

// Policy decides what a failed window does to its issuer.
type Policy string

const (
	PolicyContinue Policy = "continue" // Skip the window, fail only if all fail
	PolicyAbort    Policy = "abort"    // Stop at the first failed window
)

// ParsePolicy validates a policy name. Empty means PolicyContinue.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyContinue:
		return PolicyContinue, nil
	case PolicyAbort:
		return PolicyAbort, nil
	default:
		return "", fmt.Errorf("unknown window failure policy %q", s)
	}
}

// Config holds sync job settings.
type Config struct {
	HorizonYears int           // Lookback for never-synced issuers (default: 10)
	Policy       Policy        // Window failure policy (default: continue)
	Pacing       time.Duration // Minimum gap between window requests of one job
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		HorizonYears: DefaultHorizonYears,
		Policy:       PolicyContinue,
	}
}

// Job syncs issuers one at a time. A Job holds no per-issuer state, so one
// value can serve every worker of a pool.
type Job struct {
	cfg     Config
	fetcher Fetcher
	saver   Saver
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	now     func() time.Time
}

// Option configures a Job.
type Option func(*Job)

// WithMetrics records job and window metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(j *Job) {
		j.metrics = m
	}
}

// WithClock overrides the source of "today".
func WithClock(now func() time.Time) Option {
	return func(j *Job) {
		j.now = now
	}
}

// WithTracerProvider sets the provider spans are created from.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(j *Job) {
		j.tracer = tp.Tracer(tracerName)
	}
}

// New creates a Job.
func New(cfg Config, fetcher Fetcher, saver Saver, logger *slog.Logger, opts ...Option) *Job {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.HorizonYears < 1 {
		cfg.HorizonYears = DefaultHorizonYears
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicyContinue
	}
	j := &Job{
		cfg:     cfg,
		fetcher: fetcher,
		saver:   saver,
		logger:  logger,
		tracer:  otel.Tracer(tracerName),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Run syncs one issuer and returns its terminal outcome. Failures are
// reported in the outcome. A panic in the fetcher or saver propagates to the caller.
func (j *Job) Run(ctx context.Context, req model.SyncRequest) model.Outcome {
	start := j.now()
	j.metrics.JobStarted()

	// A panic below leaves status failed so the gauge still drops.
	status := model.StatusFailed
	defer func() {
		j.metrics.JobFinished(string(status), j.now().Sub(start))
	}()

	ctx, span := j.tracer.Start(ctx, "syncjob.Run", trace.WithAttributes(
		attribute.String("issuer", req.Issuer),
	))
	defer span.End()

	out := j.run(ctx, req, start)
	out.Duration = j.now().Sub(start)

	span.SetAttributes(
		attribute.String("status", string(out.Status)),
		attribute.Int("rows", out.Rows),
	)
	if out.Failed() {
		span.SetStatus(codes.Error, out.Message)
	}
	status = out.Status

	return out
}

func (j *Job) run(ctx context.Context, req model.SyncRequest, today time.Time) model.Outcome {
	horizon := HorizonYears(today, req.LastKnown, j.cfg.HorizonYears)
	windows := Span(today, req.LastKnown, horizon)

	logger := j.logger.With("issuer", req.Issuer)
	logger.Debug("sync job started",
		"first_year", windows[0].Year,
		"last_year", windows[len(windows)-1].Year,
	)

	results := j.fetchAll(ctx, req.Issuer, windows, logger)

	folded := Fold(req.Issuer, results, req.LastKnown, j.cfg.Policy)
	out := model.Outcome{
		Issuer:        req.Issuer,
		Status:        folded.Status,
		Windows:       len(results),
		FailedWindows: folded.FailedWindows,
		Err:           folded.Err,
		Message:       folded.Message,
	}

	if folded.Stats.BadDates > 0 || folded.Stats.Conflicts > 0 {
		logger.Warn("dropped rows while normalizing",
			"bad_dates", folded.Stats.BadDates,
			"conflicts", folded.Stats.Conflicts,
		)
	}

	switch folded.Status {
	case model.StatusFailed:
		logger.Warn("sync failed", "err", folded.Message)
		return out
	case model.StatusCurrent:
		logger.Debug("no new rows")
		return out
	}

	if folded.FailedWindows > 0 {
		logger.Warn("partial windows failed, saving the rest",
			"failed", folded.FailedWindows,
			"windows", len(results),
		)
	}

	if err := j.saver.Save(ctx, req.Issuer, folded.Records); err != nil {
		out.Status = model.StatusFailed
		out.Err = err
		out.Message = fmt.Sprintf("error saving %s: %v", req.Issuer, err)
		logger.Error("save failed", "err", err)
		return out
	}

	out.Rows = len(folded.Records)
	j.metrics.RowsSaved(out.Rows)
	logger.Info("issuer updated",
		"rows", out.Rows,
		"newest", folded.Records[0].Date.Format(model.DateLayout),
	)
	return out
}

// fetchAll requests windows oldest first. Under PolicyAbort it stops after
// the first failure. Cancellation fails the remaining windows.
func (j *Job) fetchAll(ctx context.Context, issuer string, windows []model.YearWindow, logger *slog.Logger) []WindowResult {
	var limiter *rate.Limiter
	if j.cfg.Pacing > 0 {
		limiter = rate.NewLimiter(rate.Every(j.cfg.Pacing), 1)
	}

	results := make([]WindowResult, 0, len(windows))
	for _, w := range windows {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				results = append(results, WindowResult{Window: w, Err: err})
				j.metrics.Window(metrics.WindowError)
				break
			}
		}

		rows, err := j.fetcher.FetchWindow(ctx, issuer, w)
		results = append(results, WindowResult{Window: w, Rows: rows, Err: err})

		switch {
		case err != nil:
			j.metrics.Window(metrics.WindowError)
			logger.Debug("window failed", "year", w.Year, "err", err)
		case len(rows) == 0:
			j.metrics.Window(metrics.WindowEmpty)
		default:
			j.metrics.Window(metrics.WindowOK)
		}

		if err != nil && (j.cfg.Policy == PolicyAbort || ctx.Err() != nil) {
			break
		}
	}
	return results
}
