package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"
)

// ListingTableSelector locates the issuer table on a listing page.
const ListingTableSelector = "#otherlisting-table"

// DropdownSelector locates the issuer dropdown on a symbol history page.
const DropdownSelector = "select#Code option"

// ErrNoListings is returned when no listing page could be read.
var ErrNoListings = errors.New("no issuer listing page could be read")

// ListingCodes returns the issuer codes of one listing page in page order.
func (c *Client) ListingCodes(ctx context.Context, path string) ([]string, error) {
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("fetch listing %s: %w", path, err)
	}
	return ParseListing(body)
}

// ParseListing extracts the first column of every row of the listing table.
func ParseListing(body []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var codes []string
	doc.Find(ListingTableSelector).Find("tr").Each(func(_ int, tr *goquery.Selection) {
		first := tr.ChildrenFiltered("td").First()
		if first.Length() == 0 {
			return
		}
		if code := strings.TrimSpace(first.Text()); code != "" {
			codes = append(codes, code)
		}
	})
	return codes, nil
}

// ListIssuerCodes fetches all listing pages concurrently and returns their
// codes de-duplicated, in page order then row order. An unreachable page is
// logged and skipped. Only all pages failing is an error.
func (c *Client) ListIssuerCodes(ctx context.Context, paths []string) ([]string, error) {
	results := make([][]string, len(paths))
	errs := make([]error, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			codes, err := c.ListingCodes(gctx, path)
			if err != nil {
				errs[i] = err
				c.logger.Warn("listing page unavailable", "path", path, "err", err)
				return nil
			}
			results[i] = codes
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		all []string
		ok  int
	)
	for i := range paths {
		if errs[i] != nil {
			continue
		}
		ok++
		all = append(all, results[i]...)
	}
	if ok == 0 && len(paths) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrNoListings, errors.Join(errs...))
	}

	return UniqueCodes(all), nil
}

// DropdownCodes reads issuer codes from the dropdown on a history page.
// Any issuer's page carries the full list; seed picks which one to load.
func (c *Client) DropdownCodes(ctx context.Context, seed string) ([]string, error) {
	body, err := c.get(ctx, HistoryPath(seed))
	if err != nil {
		return nil, fmt.Errorf("fetch dropdown: %w", err)
	}
	return ParseDropdown(body)
}

// ParseDropdown extracts option values from the issuer dropdown.
func ParseDropdown(body []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var codes []string
	doc.Find(DropdownSelector).Each(func(_ int, opt *goquery.Selection) {
		v, ok := opt.Attr("value")
		if !ok {
			v = opt.Text()
		}
		if v = strings.TrimSpace(v); v != "" {
			codes = append(codes, v)
		}
	})
	return UniqueCodes(codes), nil
}

// UniqueCodes drops repeated codes, keeping the first occurrence.
func UniqueCodes(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out
}

// FilterCodes drops codes that contain a digit (bonds and similar
// instruments) and codes listed in excluded, compared case-insensitively.
func FilterCodes(codes, excluded []string) []string {
	skip := make(map[string]struct{}, len(excluded))
	for _, e := range excluded {
		skip[strings.ToUpper(strings.TrimSpace(e))] = struct{}{}
	}

	out := make([]string, 0, len(codes))
	for _, code := range codes {
		if strings.IndexFunc(code, unicode.IsDigit) >= 0 {
			continue
		}
		if _, ok := skip[strings.ToUpper(code)]; ok {
			continue
		}
		out = append(out, code)
	}
	return out
}
