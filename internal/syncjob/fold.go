package syncjob

import (
	"errors"
	"fmt"
	"time"

	"github.com/rickgao/mse-history/internal/model"
	"github.com/rickgao/mse-history/internal/normalize"
)

// ErrNoData is wrapped when no window of the span returned a usable row.
var ErrNoData = errors.New("no data retrieved")

// WindowResult is what one year window request produced.
type WindowResult struct {
	Window model.YearWindow
	Rows   []model.RawRow
	Err    error
}

// Failed reports whether the request failed.
func (r WindowResult) Failed() bool {
	return r.Err != nil
}

// Folded is an issuer's combined window results. Exactly one of Records
// and Err is set, unless the issuer is current.
type Folded struct {
	Status        model.Status // Persisted (pending save), Current or Failed
	Records       []model.Record
	Stats         normalize.Stats
	FailedWindows int
	Err           error
	Message       string
}

// Fold combines window results into an issuer result without side effects.
//
// With PolicyContinue the issuer fails on fetch only when every window
// failed. With PolicyAbort any failed window fails the issuer. Rows of the
// successful windows are normalized, and only those strictly after
// lastKnown are kept.
func Fold(issuer string, results []WindowResult, lastKnown *time.Time, policy Policy) Folded {
	var (
		raw      []model.RawRow
		failed   int
		firstErr error
	)
	for _, r := range results {
		if r.Failed() {
			failed++
			if firstErr == nil {
				firstErr = r.Err
			}
			continue
		}
		raw = append(raw, r.Rows...)
	}

	if failed > 0 && (policy == PolicyAbort || failed == len(results)) {
		msg := fmt.Sprintf("error fetching %s: %v (%d of %d windows failed)", issuer, firstErr, failed, len(results))
		return Folded{
			Status:        model.StatusFailed,
			FailedWindows: failed,
			Err:           firstErr,
			Message:       msg,
		}
	}

	records, st := normalize.Rows(raw)
	records, dst := normalize.Normalize(records)
	st = st.Add(dst)

	if len(records) == 0 {
		return Folded{
			Status:        model.StatusFailed,
			Stats:         st,
			FailedWindows: failed,
			Err:           fmt.Errorf("%w for %s", ErrNoData, issuer),
			Message:       fmt.Sprintf("no data retrieved for %s", issuer),
		}
	}

	fresh := normalize.After(records, lastKnown)
	if len(fresh) == 0 {
		return Folded{
			Status:        model.StatusCurrent,
			Stats:         st,
			FailedWindows: failed,
		}
	}

	return Folded{
		Status:        model.StatusPersisted,
		Records:       fresh,
		Stats:         st,
		FailedWindows: failed,
	}
}
