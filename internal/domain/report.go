package domain

import "time"

// Error categories counted in RunReport.Errors.
const (
	ErrCategoryInvalidInput      = "invalid_input"
	ErrCategorySourceFailed      = "source_failed"
	ErrCategoryScorerFailed      = "scorer_failed"
	ErrCategoryScorerUnparseable = "scorer_unparseable"
)

// RunReport summarizes one pipeline run for logging and dashboards.
type RunReport struct {
	RunID            string         `json:"run_id"`
	StartedAt        time.Time      `json:"started_at"`
	TotalIn          int            `json:"total_in"`
	Deduped          int            `json:"deduped"`
	FilteredAccepted int            `json:"filtered_accepted"`
	FilteredRejected int            `json:"filtered_rejected"`
	Ranked           int            `json:"ranked"`
	TopNIDs          []int64        `json:"top_n_ids"`
	Errors           map[string]int `json:"errors"`
	Duration         time.Duration  `json:"duration"`
}

// AddError bumps the counter for one error category.
func (r *RunReport) AddError(category string) {
	if r.Errors == nil {
		r.Errors = make(map[string]int)
	}
	r.Errors[category]++
}
