package api

import (
	"bytes"
	"context"
	"fmt"
	"net/url"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rickgao/mse-history/internal/model"
)

// FormDateLayout is the date format of the FromDate and ToDate form fields.
const FormDateLayout = "01/02/2006"

// HistoryPath returns the symbol history page path for an issuer.
func HistoryPath(issuer string) string {
	return "/en/stats/symbolhistory/" + url.PathEscape(issuer)
}

// WindowForm builds the search form for one year window.
func WindowForm(issuer string, w model.YearWindow) url.Values {
	return url.Values{
		"FromDate": {w.Start().Format(FormDateLayout)},
		"ToDate":   {w.End().Format(FormDateLayout)},
		"Code":     {issuer},
	}
}

// FetchWindow retrieves the raw history rows of one issuer for one year.
// An empty result is not an error.
func (c *Client) FetchWindow(ctx context.Context, issuer string, w model.YearWindow) ([]model.RawRow, error) {
	ctx, span := c.tracer.Start(ctx, "api.FetchWindow", trace.WithAttributes(
		attribute.String("issuer", issuer),
		attribute.Int("year", w.Year),
	))
	defer span.End()

	body, err := c.post(ctx, HistoryPath(issuer), WindowForm(issuer, w))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return nil, fmt.Errorf("fetch %s %d: %w", issuer, w.Year, err)
	}

	rows, err := ParseHistoryTable(bytes.NewReader(body))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse failed")
		return nil, fmt.Errorf("fetch %s %d: %w", issuer, w.Year, err)
	}

	span.SetAttributes(attribute.Int("rows", len(rows)))
	c.logger.Debug("fetched window",
		"issuer", issuer,
		"year", w.Year,
		"rows", len(rows),
	)

	return rows, nil
}
