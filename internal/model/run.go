package model

import "time"

// RunStatus represents the current state of a collection run.
type RunStatus string

const (
	RunStatusQueued      RunStatus = "queued"
	RunStatusFetching    RunStatus = "fetching"
	RunStatusProfiling   RunStatus = "profiling"
	RunStatusAggregating RunStatus = "aggregating"
	RunStatusWriting     RunStatus = "writing"
	RunStatusComplete    RunStatus = "complete"
	RunStatusFailed      RunStatus = "failed"
)

// RunRequest is what the caller asked for.
type RunRequest struct {
	Years      []int  `json:"years"`
	PapersOnly bool   `json:"papers_only,omitempty"`
	Shape      string `json:"shape,omitempty"` // forced API shape for papers-only runs, empty = by year
}

// YearCount holds the per-year tallies surfaced to the caller. Failed
// marks a year whose fetch failed outright, distinguishing it from a
// year that genuinely had no submissions.
type YearCount struct {
	Year          int  `json:"year"`
	TotalPapers   int  `json:"total_papers"`
	TotalReviews  int  `json:"total_reviews"`
	SkippedPapers int  `json:"skipped_papers"`
	Failed        bool `json:"failed,omitempty"`
}

// RunResult is the final outcome of a collection run. Skipped counts are
// aggregate tallies of contained failures, not individual errors.
type RunResult struct {
	Years           []YearCount `json:"years"`
	FailedYears     int         `json:"failed_years,omitempty"`
	TotalAuthors    int         `json:"total_authors"`
	SkippedProfiles int         `json:"skipped_profiles"`
	PapersFiles     []string    `json:"papers_files,omitempty"`
	ReviewsFiles    []string    `json:"reviews_files,omitempty"`
	AuthorsFile     string      `json:"authors_file,omitempty"`
	Error           string      `json:"error,omitempty"`
}

// Run is one recorded collection run.
type Run struct {
	ID        string     `json:"id"`
	Request   RunRequest `json:"request"`
	Status    RunStatus  `json:"status"`
	Result    *RunResult `json:"result,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
