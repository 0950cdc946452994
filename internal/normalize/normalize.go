// Package normalize turns scraped history rows into typed, de-duplicated,
// newest-first records.
package normalize

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/cespare/xxhash/v2"
	"github.com/guregu/null/v6"

	"github.com/rickgao/mse-history/internal/model"
)

// ErrBadDate is returned when a trade date matches none of the accepted layouts.
var ErrBadDate = errors.New("unrecognized trade date")

// dateLayouts are tried in order. The exchange renders M/D/YYYY on the English site.
var dateLayouts = []string{
	"1/2/2006",
	"01/02/2006",
	"2.1.2006",
	"02.01.2006",
	model.DateLayout,
}

// Stats counts rows removed during normalization.
type Stats struct {
	BadDates   int // Rows dropped for an unparseable date
	Duplicates int // Identical records collapsed
	Conflicts  int // Same date, different values; the first occurrence was kept
}

// ParseDate parses a trade date in any accepted layout.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return model.Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrBadDate, s)
}

// Numeric cleans a single cell. Numbers pass through unchanged; text has
// thousands separators and whitespace stripped before parsing. Anything that
// still does not parse becomes an invalid (absent) value.
func Numeric(v any) null.Float {
	switch n := v.(type) {
	case nil:
		return null.Float{}
	case float64:
		return finite(n)
	case float32:
		return finite(float64(n))
	case int:
		return null.FloatFrom(float64(n))
	case int64:
		return null.FloatFrom(float64(n))
	case null.Float:
		return n
	case string:
		return parseText(n)
	default:
		return null.Float{}
	}
}

func parseText(s string) null.Float {
	cleaned := strings.Map(func(r rune) rune {
		if r == ',' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if cleaned == "" {
		return null.Float{}
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return null.Float{}
	}
	return finite(f)
}

func finite(f float64) null.Float {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return null.Float{}
	}
	return null.FloatFrom(f)
}

// Row converts one raw row. ok is false when the date cannot be parsed.
func Row(raw model.RawRow) (rec model.Record, ok bool) {
	date, err := ParseDate(raw.Date)
	if err != nil {
		return model.Record{}, false
	}
	return model.Record{
		Date:         date,
		LastPrice:    Numeric(raw.LastPrice),
		MaxPrice:     Numeric(raw.MaxPrice),
		MinPrice:     Numeric(raw.MinPrice),
		Volume:       Numeric(raw.Volume),
		TurnoverBest: Numeric(raw.TurnoverBest),
	}, true
}

// Rows converts a window's raw rows, dropping rows with bad dates.
func Rows(raw []model.RawRow) ([]model.Record, Stats) {
	var st Stats
	out := make([]model.Record, 0, len(raw))
	for _, r := range raw {
		rec, ok := Row(r)
		if !ok {
			st.BadDates++
			continue
		}
		out = append(out, rec)
	}
	return out, st
}

// Fingerprint hashes a record's date and field values.
func Fingerprint(r model.Record) uint64 {
	var buf [8 + 5*9]byte
	binary.LittleEndian.PutUint64(buf[0:], uint64(r.Date.Unix()))
	off := 8
	for _, f := range []null.Float{r.LastPrice, r.MaxPrice, r.MinPrice, r.Volume, r.TurnoverBest} {
		if f.Valid {
			buf[off] = 1
			binary.LittleEndian.PutUint64(buf[off+1:], math.Float64bits(f.Float64))
		}
		off += 9
	}
	return xxhash.Sum64(buf[:])
}

// Dedup keeps one record per trade date. Identical repeats are counted as
// duplicates; differing repeats as conflicts. The first occurrence wins.
func Dedup(records []model.Record) ([]model.Record, Stats) {
	var st Stats
	seen := make(map[time.Time]uint64, len(records))
	out := make([]model.Record, 0, len(records))

	for _, r := range records {
		fp := Fingerprint(r)
		if prev, ok := seen[r.Date]; ok {
			if prev == fp {
				st.Duplicates++
			} else {
				st.Conflicts++
			}
			continue
		}
		seen[r.Date] = fp
		out = append(out, r)
	}
	return out, st
}

// SortNewestFirst orders records by trade date, descending.
func SortNewestFirst(records []model.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date.After(records[j].Date)
	})
}

// Normalize de-duplicates records gathered across windows and sorts them newest first.
func Normalize(records []model.Record) ([]model.Record, Stats) {
	out, st := Dedup(records)
	SortNewestFirst(out)
	return out, st
}

// After returns the records strictly newer than cutoff. A nil cutoff keeps everything.
func After(records []model.Record, cutoff *time.Time) []model.Record {
	if cutoff == nil {
		return records
	}
	day := model.Day(*cutoff)
	out := make([]model.Record, 0, len(records))
	for _, r := range records {
		if r.Date.After(day) {
			out = append(out, r)
		}
	}
	return out
}

// Add merges counters.
func (s Stats) Add(o Stats) Stats {
	return Stats{
		BadDates:   s.BadDates + o.BadDates,
		Duplicates: s.Duplicates + o.Duplicates,
		Conflicts:  s.Conflicts + o.Conflicts,
	}
}
