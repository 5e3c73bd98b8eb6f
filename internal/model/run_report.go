package model

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// ExtractStats counts what the extraction engine saw in one or more logs.
type ExtractStats struct {
	// Markers is the number of command marker lines encountered.
	Markers int `json:"markers"`

	// Records is the number of OutputRecords yielded.
	Records int `json:"records"`

	// Duplicates counts markers skipped because the command was already processed.
	Duplicates int `json:"duplicates"`

	// NoJSON counts markers with no complete JSON block after them.
	NoJSON int `json:"no_json"`

	// Malformed counts blocks that failed to parse after normalization.
	Malformed int `json:"malformed"`

	// BadVersion counts markers whose version line was missing or too short.
	BadVersion int `json:"bad_version"`
}

// Add accumulates other into s.
func (s *ExtractStats) Add(other ExtractStats) {
	s.Markers += other.Markers
	s.Records += other.Records
	s.Duplicates += other.Duplicates
	s.NoJSON += other.NoJSON
	s.Malformed += other.Malformed
	s.BadVersion += other.BadVersion
}

// LogResult is the outcome of processing one log file.
type LogResult struct {
	// URL is the log's URL (or local path for offline parsing).
	URL string `json:"url"`

	// Hash is the SHA3-256 digest of the downloaded body.
	Hash string `json:"hash,omitempty"`

	// Size is the body size in bytes.
	Size int64 `json:"size"`

	// Lines is the number of lines scanned.
	Lines int `json:"lines"`

	// Stats holds the extraction counters for this log.
	Stats ExtractStats `json:"stats"`

	// Error is set when the download failed. Failed logs yield no records.
	Error string `json:"error,omitempty"`

	// Elapsed is the download plus parse time.
	Elapsed time.Duration `json:"elapsed"`
}

// Failed reports whether the log could not be processed.
func (r LogResult) Failed() bool {
	return r.Error != ""
}

// RunReport describes one crawl run from discovery to persistence.
// Pipeline steps fill it in order.
type RunReport struct {
	// ID uniquely identifies the run in the history database.
	ID string `json:"id"`

	// BaseURL is the directory the run crawled.
	BaseURL string `json:"base_url"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the last step completed.
	FinishedAt time.Time `json:"finished_at"`

	// Listing is the crawl result.
	Listing *Listing `json:"listing,omitempty"`

	// Logs holds one result per processed log, in processing order.
	Logs []LogResult `json:"logs"`

	// Records holds every record yielded during the run.
	Records []OutputRecord `json:"records,omitempty"`

	// Stats aggregates the per-log extraction counters.
	Stats ExtractStats `json:"stats"`

	// Categories maps category names to the number of records appended.
	Categories map[string]int `json:"categories"`

	// OutputFiles lists the category files written by the sink.
	OutputFiles []string `json:"output_files,omitempty"`

	// Uncategorized counts records the sink dropped for lack of a subcommand.
	Uncategorized int `json:"uncategorized"`

	// PerformedSteps lists the pipeline steps that ran.
	PerformedSteps []string `json:"performed_steps"`

	// TimedOut is true when the run was cancelled before finishing.
	TimedOut bool `json:"timed_out"`

	// Error holds the message of the step failure that stopped the run.
	Error string `json:"error,omitempty"`
}

// NewRunReport creates an empty report for a crawl of baseURL.
func NewRunReport(baseURL string) *RunReport {
	return &RunReport{
		ID:             uuid.NewString(),
		BaseURL:        baseURL,
		StartedAt:      time.Now(),
		Logs:           make([]LogResult, 0),
		Records:        make([]OutputRecord, 0),
		Categories:     make(map[string]int),
		PerformedSteps: make([]string, 0),
	}
}

// AddLogResult appends a per-log result and folds its stats into the totals.
func (r *RunReport) AddLogResult(result LogResult, records []OutputRecord) {
	r.Logs = append(r.Logs, result)
	r.Records = append(r.Records, records...)
	r.Stats.Add(result.Stats)
}

// FailedLogs returns the number of logs whose download failed.
func (r *RunReport) FailedLogs() int {
	n := 0
	for _, l := range r.Logs {
		if l.Failed() {
			n++
		}
	}
	return n
}

// SortedCategories returns category names in lexical order.
func (r *RunReport) SortedCategories() []string {
	names := make([]string, 0, len(r.Categories))
	for name := range r.Categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Duration returns how long the run took. Zero if it has not finished.
func (r *RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
