package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/rgwscan/internal/model"
)

// JSONWriter outputs run reports as JSON.
//
// Records and the crawl listing can be large for a full results tree, so they
// are left out unless WithRecords is set. Counters, categories and per-log
// results are always written.
type JSONWriter struct {
	baseWriter

	// indent is the per-level indentation; empty means compact output.
	indent string

	// records keeps Records and Listing in the output.
	records bool
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithPrettyPrint enables two-space indentation.
func WithPrettyPrint() JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = "  "
	}
}

// WithRecords includes every extracted record and the crawl listing.
func WithRecords(include bool) JSONWriterOption {
	return func(w *JSONWriter) {
		w.records = include
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the run report.
func (w *JSONWriter) Write(report *model.RunReport) (int, error) {
	return w.encode(w.view(report))
}

// view returns the report as it should be serialized. The caller's report
// is never modified.
func (w *JSONWriter) view(report *model.RunReport) *model.RunReport {
	if w.records || report == nil {
		return report
	}
	trimmed := *report
	trimmed.Records = nil
	trimmed.Listing = nil
	return &trimmed
}

// encode writes v followed by a newline.
func (w *JSONWriter) encode(v any) (int, error) {
	var (
		data []byte
		err  error
	)
	if w.indent != "" {
		data, err = json.MarshalIndent(v, "", w.indent)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}
	return w.output.Write(append(data, '\n'))
}

// JSONReport is the document written by FullJSONWriter.
type JSONReport struct {
	// Version is the rgwscan version that generated this report.
	Version string `json:"version"`

	// Status is the one-line outcome, as shown in the text report.
	Status string `json:"status"`

	// DurationSeconds is the wall time of the run.
	DurationSeconds float64 `json:"duration_seconds"`

	// Report is the run report.
	Report *model.RunReport `json:"report"`
}

// FullJSONWriter wraps run reports with the tool version and run status.
type FullJSONWriter struct {
	*JSONWriter

	version string
}

// NewFullJSONWriter creates a writer for wrapped reports.
func NewFullJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *FullJSONWriter {
	return &FullJSONWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
	}
}

// Write outputs the wrapped report.
func (w *FullJSONWriter) Write(report *model.RunReport) (int, error) {
	return w.encode(&JSONReport{
		Version:         w.version,
		Status:          statusText(report),
		DurationSeconds: report.Duration().Seconds(),
		Report:          w.view(report),
	})
}
