package model

import (
	"time"

	"github.com/guregu/null/v6"
)

// DateLayout is the canonical text form of a trade date.
const DateLayout = "2006-01-02"

// -----------------------------------------------------------------------------
// Sync Inputs
// -----------------------------------------------------------------------------

// SyncRequest asks for one issuer to be brought up to date.
type SyncRequest struct {
	Issuer    string     // Exchange code
	LastKnown *time.Time // Newest trade date already stored, nil if never synced
}

// YearWindow is the calendar year [Jan 1, Dec 31] fetched by one remote request.
type YearWindow struct {
	Year int
}

// Start returns January 1st of the window's year.
func (w YearWindow) Start() time.Time {
	return time.Date(w.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
}

// End returns December 31st of the window's year.
func (w YearWindow) End() time.Time {
	return time.Date(w.Year, time.December, 31, 0, 0, 0, 0, time.UTC)
}

// Years returns contiguous windows from first through last inclusive, ascending.
func Years(first, last int) []YearWindow {
	if last < first {
		return nil
	}
	windows := make([]YearWindow, 0, last-first+1)
	for y := first; y <= last; y++ {
		windows = append(windows, YearWindow{Year: y})
	}
	return windows
}

// -----------------------------------------------------------------------------
// Historical Data
// -----------------------------------------------------------------------------

// RawRow is one row of the source result table before cleaning.
// Cell values are either strings (scraped text) or numbers.
type RawRow struct {
	Date         string
	LastPrice    any
	MaxPrice     any
	MinPrice     any
	Volume       any
	TurnoverBest any
}

// Record is one trading day for an issuer.
type Record struct {
	Date         time.Time  // Trade date (midnight UTC)
	LastPrice    null.Float // Last trade price
	MaxPrice     null.Float // Session high
	MinPrice     null.Float // Session low
	Volume       null.Float // Shares traded
	TurnoverBest null.Float // Turnover in BEST (denars)
}

// Day truncates t to its calendar date in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// -----------------------------------------------------------------------------
// Outcomes
// -----------------------------------------------------------------------------

// Status is the lifecycle state of one issuer within a run.
//
//	Pending -> Running -> {Persisted | Current | Failed}
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusPersisted Status = "persisted" // New rows handed to storage
	StatusCurrent   Status = "current"   // Fetched fine, nothing newer than last-known
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusPersisted || s == StatusCurrent || s == StatusFailed
}

// Outcome is the terminal result of syncing one issuer.
type Outcome struct {
	Issuer        string
	Status        Status
	Rows          int    // Rows handed to storage (Persisted only)
	Windows       int    // Year windows requested
	FailedWindows int    // Windows that returned an error
	Err           error  // Underlying cause (Failed only)
	Message       string // Human-readable failure (Failed only)
	Duration      time.Duration
}

// Failed reports whether the outcome is a failure.
func (o Outcome) Failed() bool {
	return o.Status == StatusFailed
}
