// Package browser fetches issuer history by driving the search form in a
// headless Chrome. It is the fallback transport for when the site rejects
// plain form posts.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/rickgao/mse-history/internal/api"
	"github.com/rickgao/mse-history/internal/model"
)

// Form selectors on the symbol history page.
const (
	fromDateSelector = `#FromDate`
	toDateSelector   = `#ToDate`
	findSelector     = `input.btn.btn-primary-sm[value='Find']`
)

// DefaultTableWait bounds the wait for the result table after a search.
const DefaultTableWait = 20 * time.Second

// ErrTableMissing is returned when the result table never renders.
var ErrTableMissing = errors.New("result table did not render")

// Config holds browser transport settings.
type Config struct {
	BaseURL     string
	Headful     bool          // Show the window
	ChromePath  string        // Empty uses the default lookup
	UserAgent   string
	Timeout     time.Duration // Per window
	SettleDelay time.Duration // Wait after clicking Find
	TableWait   time.Duration // Upper bound for the result table to appear (default: 20s)
}

func (c Config) withDefaults() Config {
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.TableWait <= 0 {
		c.TableWait = DefaultTableWait
	}
	return c
}

// Fetcher runs one browser and opens a tab per window request.
// It is safe for concurrent use.
type Fetcher struct {
	cfg    Config
	logger *slog.Logger

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// New launches the browser. Close must be called to stop it.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Fetcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocatorOptions(cfg)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// An empty Run starts the browser so later tabs share it.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	logger.Info("browser started", "headful", cfg.Headful)

	return &Fetcher{
		cfg:           cfg,
		logger:        logger,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

func allocatorOptions(cfg Config) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption(nil), chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts, chromedp.Flag("headless", !cfg.Headful))
	if cfg.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ChromePath))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	return opts
}

// FetchWindow loads the history page in a new tab, submits the window's date
// range and parses the rendered result table.
func (f *Fetcher) FetchWindow(ctx context.Context, issuer string, w model.YearWindow) ([]model.RawRow, error) {
	tabCtx, cancel := chromedp.NewContext(f.browserCtx)
	defer cancel()
	if f.cfg.Timeout > 0 {
		var cancelTimeout context.CancelFunc
		tabCtx, cancelTimeout = context.WithTimeout(tabCtx, f.cfg.Timeout)
		defer cancelTimeout()
	}
	// Tabs hang off the browser, so the caller's cancellation is bridged in.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var html string
	if err := chromedp.Run(tabCtx, searchTasks(f.cfg, issuer, w, &html)); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("fetch %s %d: %w", issuer, w.Year, ctx.Err())
		}
		return nil, fmt.Errorf("fetch %s %d: %w", issuer, w.Year, err)
	}

	rows, err := api.ParseHistoryTableHTML(html)
	if err != nil {
		return nil, fmt.Errorf("fetch %s %d: %w", issuer, w.Year, err)
	}

	f.logger.Debug("fetched window via browser",
		"issuer", issuer,
		"year", w.Year,
		"rows", len(rows),
	)
	return rows, nil
}

func searchTasks(cfg Config, issuer string, w model.YearWindow, html *string) chromedp.Tasks {
	return chromedp.Tasks{
		chromedp.Navigate(cfg.BaseURL + api.HistoryPath(issuer)),
		chromedp.WaitVisible(fromDateSelector, chromedp.ByQuery),
		chromedp.SetValue(fromDateSelector, w.Start().Format(api.FormDateLayout), chromedp.ByQuery),
		chromedp.SetValue(toDateSelector, w.End().Format(api.FormDateLayout), chromedp.ByQuery),
		chromedp.Click(findSelector, chromedp.ByQuery),
		chromedp.Sleep(cfg.SettleDelay),
		waitTable(cfg.TableWait),
		chromedp.OuterHTML(api.ResultTableSelector, html, chromedp.ByQuery),
	}
}

func waitTable(d time.Duration) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		waitCtx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		err := chromedp.WaitReady(api.ResultTableSelector, chromedp.ByQuery).Do(waitCtx)
		if err != nil && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w after %s", ErrTableMissing, d)
		}
		return err
	})
}

// Close shuts the browser down.
func (f *Fetcher) Close() error {
	f.browserCancel()
	f.allocCancel()
	return nil
}
