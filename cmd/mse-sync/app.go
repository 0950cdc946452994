package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/rickgao/mse-history/internal/api"
	"github.com/rickgao/mse-history/internal/browser"
	"github.com/rickgao/mse-history/internal/config"
	"github.com/rickgao/mse-history/internal/metrics"
	"github.com/rickgao/mse-history/internal/pool"
	"github.com/rickgao/mse-history/internal/store"
	"github.com/rickgao/mse-history/internal/syncjob"
	"github.com/rickgao/mse-history/internal/version"
)

// app wires the components for one process.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	client  *api.Client
	fetcher syncjob.Fetcher
	store   store.Store
	metrics *metrics.Metrics
	tp      trace.TracerProvider
	now     func() time.Time

	closers []io.Closer

	mu         sync.Mutex
	lastReport *pool.Report
}

func newApp(ctx context.Context, cfg *config.Config, tp trace.TracerProvider, logger *slog.Logger) (*app, error) {
	a := &app{
		cfg:    cfg,
		logger: logger,
		tp:     tp,
		now:    time.Now,
	}
	if cfg.Metrics.Enabled {
		a.metrics = metrics.New()
	}

	userAgent := cfg.Source.UserAgent
	if userAgent == "" {
		userAgent = version.UserAgent()
	}
	a.client = api.NewClient(cfg.Source.BaseURL,
		api.WithTimeout(cfg.Source.Timeout),
		api.WithLogger(logger),
		api.WithUserAgent(userAgent),
		api.WithTracerProvider(tp),
	)

	var fetcher api.WindowFetcher = a.client
	if cfg.Source.Transport == "browser" {
		bf, err := browser.New(ctx, browser.Config{
			BaseURL:     cfg.Source.BaseURL,
			Headful:     cfg.Source.Headful,
			ChromePath:  cfg.Source.ChromePath,
			UserAgent:   userAgent,
			Timeout:     cfg.Source.Timeout,
			SettleDelay: cfg.Source.SettleDelay,
		}, logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, bf)
		fetcher = bf
	}
	a.fetcher = api.WithRetry(fetcher, cfg.Source.MaxRetries, cfg.Source.RetryBackoff, logger)

	st, err := store.Open(ctx, cfg.Store, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.store = st
	a.closers = append(a.closers, st)

	return a, nil
}

// Close releases the browser and store.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// discover lists issuer codes from the listing pages, falling back to the
// dropdown when every listing page fails and a seed is configured.
func (a *app) discover(ctx context.Context) ([]string, error) {
	codes, err := a.client.ListIssuerCodes(ctx, a.cfg.Source.ListingPaths)
	if err != nil {
		if !errors.Is(err, api.ErrNoListings) || a.cfg.Source.DropdownSeed == "" {
			return nil, err
		}
		a.logger.Warn("listing pages unavailable, using dropdown", "err", err)
		if codes, err = a.client.DropdownCodes(ctx, a.cfg.Source.DropdownSeed); err != nil {
			return nil, err
		}
	}
	return api.FilterCodes(codes, a.cfg.Source.ExcludedCodes), nil
}

// runCycle is one full sync: discovery (unless codes are given), the
// currency check and the pool run. Errors are batch-fatal.
func (a *app) runCycle(ctx context.Context, codes []string) (*pool.Report, error) {
	if len(codes) == 0 {
		var err error
		if codes, err = a.discover(ctx); err != nil {
			return nil, fmt.Errorf("discover issuers: %w", err)
		}
	}
	if len(codes) == 0 {
		return nil, errors.New("discover issuers: no issuer codes found")
	}

	dates, err := a.store.LastKnownDates(ctx, codes)
	if err != nil {
		return nil, fmt.Errorf("check currency: %w", err)
	}
	due, upToDate := store.NeedsUpdate(dates, a.now())
	for range upToDate {
		a.metrics.Outcome("up_to_date")
	}
	a.logger.Info("currency check complete",
		"issuers", len(codes),
		"due", len(due),
		"up_to_date", len(upToDate),
	)

	policy, err := syncjob.ParsePolicy(a.cfg.Sync.WindowFailurePolicy)
	if err != nil {
		return nil, err
	}
	job := syncjob.New(syncjob.Config{
		HorizonYears: a.cfg.Sync.HorizonYears,
		Policy:       policy,
		Pacing:       a.cfg.Source.Pacing,
	}, a.fetcher, a.store, a.logger,
		syncjob.WithMetrics(a.metrics),
		syncjob.WithTracerProvider(a.tp),
		syncjob.WithClock(a.now),
	)

	p := pool.New(pool.Config{MaxWorkers: a.cfg.Sync.MaxWorkers}, job, a.logger,
		pool.WithMetrics(a.metrics),
		pool.WithTracerProvider(a.tp),
	)
	report, err := p.Run(ctx, pool.Requests(due))
	if err != nil {
		return nil, fmt.Errorf("run pool: %w", err)
	}
	report.UpToDate = upToDate

	a.mu.Lock()
	a.lastReport = report
	a.mu.Unlock()

	return report, nil
}

func (a *app) syncOnce(ctx context.Context, codes []string, w io.Writer) error {
	report, err := a.runCycle(ctx, codes)
	if err != nil {
		return err
	}
	printReport(w, report)
	return nil
}

// printReport writes the failure list and the updated count.
func printReport(w io.Writer, r *pool.Report) {
	if len(r.Failures) > 0 {
		fmt.Fprintf(w, "Failures (%d):\n", len(r.Failures))
		for _, msg := range r.FailureMessages() {
			fmt.Fprintf(w, "  %s\n", msg)
		}
	}
	fmt.Fprintf(w, "Updated %d issuers (%d rows), %d already current, %d up to date, %d failed in %s\n",
		r.Updated, r.RowsSaved, r.Current, len(r.UpToDate), len(r.Failures), r.Duration.Round(time.Millisecond))
}

func (a *app) printIssuers(ctx context.Context, dropdown bool, w io.Writer) error {
	var (
		codes []string
		err   error
	)
	if dropdown {
		seed := a.cfg.Source.DropdownSeed
		if seed == "" {
			return errors.New("source.dropdown_seed is not set")
		}
		codes, err = a.client.DropdownCodes(ctx, seed)
		codes = api.FilterCodes(codes, a.cfg.Source.ExcludedCodes)
	} else {
		codes, err = a.discover(ctx)
	}
	if err != nil {
		return err
	}

	for _, code := range codes {
		fmt.Fprintln(w, code)
	}
	return nil
}

// splitCodes parses a comma-separated code list, dropping blanks and repeats.
func splitCodes(s string) []string {
	var codes []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.ToUpper(strings.TrimSpace(c)); c != "" {
			codes = append(codes, c)
		}
	}
	return api.UniqueCodes(codes)
}

func (a *app) report() *pool.Report {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastReport
}
