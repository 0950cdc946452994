package api

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/rickgao/mse-history/internal/model"
)

// Result table columns, in page order.
const (
	ColDate = iota
	ColLastPrice
	ColMaxPrice
	ColMinPrice
	ColAvgPrice
	ColChangePct
	ColVolume
	ColTurnoverBest
	ColTotalTurnover

	NumColumns
)

// ResultTableSelector locates the history table on a symbol history page.
const ResultTableSelector = "#resultsTable"

// ErrSchemaMismatch is wrapped by every ParseError.
var ErrSchemaMismatch = errors.New("result table schema mismatch")

// ParseError reports a data row whose cell count is not NumColumns.
type ParseError struct {
	Row     int // 1-based data row
	Columns int
	Want    int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse result table: row %d has %d columns, want %d", e.Row, e.Columns, e.Want)
}

func (e *ParseError) Unwrap() error {
	return ErrSchemaMismatch
}

// ParseHistoryTable extracts raw rows from a symbol history page.
// A page without a result table, or with a table holding no data rows, yields
// no rows and no error. Only the date, last price, max, min, volume and
// BEST turnover cells are kept.
func ParseHistoryTable(r io.Reader) ([]model.RawRow, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return historyRows(doc.Selection)
}

// ParseHistoryTableHTML is ParseHistoryTable for an HTML fragment already in memory.
func ParseHistoryTableHTML(html string) ([]model.RawRow, error) {
	return ParseHistoryTable(strings.NewReader(html))
}

func historyRows(root *goquery.Selection) ([]model.RawRow, error) {
	table := root.Find(ResultTableSelector).First()
	if table.Length() == 0 {
		return nil, nil
	}

	var (
		rows    []model.RawRow
		dataRow int
		perr    error
	)
	table.Find("tr").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		cells := tr.ChildrenFiltered("td")
		if cells.Length() == 0 {
			return true // header
		}
		if isPlaceholder(cells) {
			return true
		}

		dataRow++
		if cells.Length() != NumColumns {
			perr = &ParseError{Row: dataRow, Columns: cells.Length(), Want: NumColumns}
			return false
		}

		text := func(i int) string {
			return strings.TrimSpace(cells.Eq(i).Text())
		}
		rows = append(rows, model.RawRow{
			Date:         text(ColDate),
			LastPrice:    text(ColLastPrice),
			MaxPrice:     text(ColMaxPrice),
			MinPrice:     text(ColMinPrice),
			Volume:       text(ColVolume),
			TurnoverBest: text(ColTurnoverBest),
		})
		return true
	})
	if perr != nil {
		return nil, perr
	}

	return rows, nil
}

// isPlaceholder matches the single spanning cell the site renders when a
// window has no trades.
func isPlaceholder(cells *goquery.Selection) bool {
	if cells.Length() != 1 {
		return false
	}
	_, spans := cells.Attr("colspan")
	return spans
}
