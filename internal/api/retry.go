package api

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/rickgao/mse-history/internal/model"
)

// WindowFetcher retrieves the raw rows of one issuer for one year window.
// Client and the browser fetcher both satisfy it.
type WindowFetcher interface {
	FetchWindow(ctx context.Context, issuer string, w model.YearWindow) ([]model.RawRow, error)
}

// Retryable reports whether a failed fetch may succeed when repeated.
// Parse errors, oversized pages and cancellation are permanent. HTTP errors defer to
// APIError.IsRetryable. Other transport failures are retryable.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrSchemaMismatch) || errors.Is(err, ErrResponseTooLarge) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsRetryable()
	}
	return true
}

type retryFetcher struct {
	next       WindowFetcher
	maxRetries int
	initial    time.Duration
	logger     *slog.Logger
}

// WithRetry wraps next with exponential backoff for retryable errors.
// maxRetries <= 0 returns next unchanged.
func WithRetry(next WindowFetcher, maxRetries int, initial time.Duration, logger *slog.Logger) WindowFetcher {
	if maxRetries <= 0 {
		return next
	}
	if initial <= 0 {
		initial = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &retryFetcher{
		next:       next,
		maxRetries: maxRetries,
		initial:    initial,
		logger:     logger,
	}
}

func (r *retryFetcher) FetchWindow(ctx context.Context, issuer string, w model.YearWindow) ([]model.RawRow, error) {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = r.initial
	expo.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(expo, uint64(r.maxRetries)), ctx)

	var rows []model.RawRow
	op := func() error {
		got, err := r.next.FetchWindow(ctx, issuer, w)
		if err != nil {
			if !Retryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		rows = got
		return nil
	}
	notify := func(err error, wait time.Duration) {
		r.logger.Debug("retrying window",
			"issuer", issuer,
			"year", w.Year,
			"backoff", wait,
			"err", err,
		)
	}

	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return nil, err
	}
	return rows, nil
}
