package pool

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/mse-history/internal/model"
)

// Report summarizes one run.
type Report struct {
	RunID     uuid.UUID
	Started   time.Time
	Duration  time.Duration
	Outcomes  []model.Outcome // One per scheduled issuer, sorted by issuer
	Failures  []model.Outcome // Failed outcomes, sorted by issuer
	Updated   int             // Issuers with rows handed to storage
	Current   int             // Issuers fetched with nothing new
	RowsSaved int
	UpToDate  []string // Issuers skipped by the currency check
}

func newReport(started time.Time, outcomes []model.Outcome) *Report {
	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].Issuer < outcomes[j].Issuer
	})

	r := &Report{
		RunID:    uuid.New(),
		Started:  started,
		Outcomes: outcomes,
	}
	for _, o := range outcomes {
		switch o.Status {
		case model.StatusPersisted:
			r.Updated++
			r.RowsSaved += o.Rows
		case model.StatusCurrent:
			r.Current++
		case model.StatusFailed:
			r.Failures = append(r.Failures, o)
		}
	}
	return r
}

// FailureMessages returns the failure list in issuer order.
func (r *Report) FailureMessages() []string {
	msgs := make([]string, 0, len(r.Failures))
	for _, o := range r.Failures {
		msgs = append(msgs, o.Message)
	}
	return msgs
}
