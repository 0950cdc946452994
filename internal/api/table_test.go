package api

import (
	"errors"
	"strings"
	"testing"
)

func TestParseHistoryTable(t *testing.T) {
	t.Run("keeps six of nine columns", func(t *testing.T) {
		rows, err := ParseHistoryTableHTML(historyPage(
			fullRow("3/14/2024", "23,950.00"),
			fullRow("3/13/2024", "23,800.00"),
		))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(rows) != 2 {
			t.Fatalf("len(rows) = %d, want 2", len(rows))
		}

		r := rows[0]
		if r.Date != "3/14/2024" {
			t.Errorf("Date = %q, want %q", r.Date, "3/14/2024")
		}
		if r.LastPrice != "23,950.00" {
			t.Errorf("LastPrice = %v, want %q", r.LastPrice, "23,950.00")
		}
		if r.MaxPrice != "24,100.00" || r.MinPrice != "23,500.00" {
			t.Errorf("Max/Min = %v/%v", r.MaxPrice, r.MinPrice)
		}
		if r.Volume != "1,215" {
			t.Errorf("Volume = %v, want %q", r.Volume, "1,215")
		}
		if r.TurnoverBest != "28,917,050" {
			t.Errorf("TurnoverBest = %v, want %q", r.TurnoverBest, "28,917,050")
		}
	})

	t.Run("no table is empty not error", func(t *testing.T) {
		rows, err := ParseHistoryTableHTML(`<html><body><p>Nothing here</p></body></html>`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(rows) != 0 {
			t.Errorf("len(rows) = %d, want 0", len(rows))
		}
	})

	t.Run("header only table is empty", func(t *testing.T) {
		rows, err := ParseHistoryTableHTML(historyPage())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(rows) != 0 {
			t.Errorf("len(rows) = %d, want 0", len(rows))
		}
	})

	t.Run("no data placeholder is empty", func(t *testing.T) {
		page := strings.Replace(historyPage(), "<tbody>", `<tbody><tr><td colspan="9">No data</td></tr>`, 1)
		rows, err := ParseHistoryTableHTML(page)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(rows) != 0 {
			t.Errorf("len(rows) = %d, want 0", len(rows))
		}
	})

	t.Run("wrong column count is a parse error", func(t *testing.T) {
		_, err := ParseHistoryTableHTML(historyPage(
			fullRow("3/14/2024", "1.00"),
			[]string{"3/13/2024", "1.00", "1.00"},
		))
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if !errors.Is(err, ErrSchemaMismatch) {
			t.Errorf("error should wrap ErrSchemaMismatch, got %v", err)
		}
		var perr *ParseError
		if !errors.As(err, &perr) {
			t.Fatalf("expected *ParseError, got %T", err)
		}
		if perr.Row != 2 || perr.Columns != 3 || perr.Want != NumColumns {
			t.Errorf("ParseError = %+v", perr)
		}
	})
}
