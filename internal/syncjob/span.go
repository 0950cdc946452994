package syncjob

import (
	"time"

	"github.com/rickgao/mse-history/internal/model"
)

// DefaultHorizonYears is the lookback for an issuer never synced before.
const DefaultHorizonYears = 10

// HorizonYears returns how many calendar years back a sync must reach.
// Without a last-known date it is def. Otherwise it is the whole years
// elapsed since the last-known date plus one, never less than one.
func HorizonYears(today time.Time, lastKnown *time.Time, def int) int {
	if def < 1 {
		def = DefaultHorizonYears
	}
	if lastKnown == nil {
		return def
	}
	days := int(model.Day(today).Sub(model.Day(*lastKnown)).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return days/365 + 1
}

// Span returns the ascending year windows ending at today's year.
// When a last-known date falls before the first window, the span is widened
// back to its year so rows just after it are not skipped.
func Span(today time.Time, lastKnown *time.Time, horizon int) []model.YearWindow {
	last := today.Year()
	first := last - horizon + 1
	if lastKnown != nil && lastKnown.Year() < first {
		first = lastKnown.Year()
	}
	return model.Years(first, last)
}
