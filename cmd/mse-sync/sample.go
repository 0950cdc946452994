package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/guregu/null/v6"

	"github.com/rickgao/mse-history/internal/model"
	"github.com/rickgao/mse-history/internal/store"
)

func (a *app) printSample(ctx context.Context, issuer string, limit int, w io.Writer) error {
	rows, err := a.store.Sample(ctx, issuer, limit)
	if err != nil {
		return err
	}
	writeSample(w, rows)
	return nil
}

// writeSample prints rows as an aligned table. Absent values print as "-".
func writeSample(w io.Writer, rows []store.Row) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "ISSUER\tDATE\tLAST\tMAX\tMIN\tVOLUME\tTURNOVER BEST\t")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			r.Issuer,
			r.Date.Format(model.DateLayout),
			cell(r.LastPrice, 2),
			cell(r.MaxPrice, 2),
			cell(r.MinPrice, 2),
			cell(r.Volume, 0),
			cell(r.TurnoverBest, 0),
		)
	}
	tw.Flush()
	fmt.Fprintf(w, "%d rows\n", len(rows))
}

func cell(f null.Float, prec int) string {
	if !f.Valid {
		return "-"
	}
	return strconv.FormatFloat(f.Float64, 'f', prec, 64)
}
