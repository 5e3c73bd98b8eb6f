package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/rgwscan/internal/model"
)

// SimpleWriter outputs a plain text run summary for terminal display.
type SimpleWriter struct {
	baseWriter

	// verbose lists every log and failed directory instead of only counts.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the run summary.
func (w *SimpleWriter) Write(report *model.RunReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeExtraction(&sb, report)
	w.writeCategories(&sb, report)
	w.writeFailures(&sb, report)
	if w.verbose {
		w.writeLogs(&sb, report)
	}
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

func section(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title + "\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

// writeHeader writes the run identification block.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.RunReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                         RGWSCAN RUN REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Run ID:     %s\n", report.ID))
	sb.WriteString(fmt.Sprintf("Base URL:   %s\n", report.BaseURL))
	sb.WriteString(fmt.Sprintf("Started:    %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Duration:   %s\n", report.Duration().Round(time.Millisecond)))
	sb.WriteString(fmt.Sprintf("Status:     %s\n", statusText(report)))
	sb.WriteString("\n")
}

// writeExtraction writes the extraction counters.
func (w *SimpleWriter) writeExtraction(sb *strings.Builder, report *model.RunReport) {
	section(sb, "EXTRACTION SUMMARY")

	s := report.Stats
	sb.WriteString(fmt.Sprintf("  Logs:          %d (%d failed)\n", len(report.Logs), report.FailedLogs()))
	sb.WriteString(fmt.Sprintf("  Markers:       %d\n", s.Markers))
	sb.WriteString(fmt.Sprintf("  Records:       %d\n", s.Records))
	sb.WriteString(fmt.Sprintf("  Duplicates:    %d\n", s.Duplicates))
	sb.WriteString(fmt.Sprintf("  No JSON:       %d\n", s.NoJSON))
	sb.WriteString(fmt.Sprintf("  Malformed:     %d\n", s.Malformed))
	sb.WriteString(fmt.Sprintf("  Bad version:   %d\n", s.BadVersion))
	if report.Uncategorized > 0 {
		sb.WriteString(fmt.Sprintf("  Uncategorized: %d\n", report.Uncategorized))
	}
	sb.WriteString("\n")
}

// writeCategories writes per-category counts and the files written.
func (w *SimpleWriter) writeCategories(sb *strings.Builder, report *model.RunReport) {
	section(sb, "CATEGORIES")

	names := report.SortedCategories()
	if len(names) == 0 {
		sb.WriteString("  No records extracted\n\n")
		return
	}
	for _, name := range names {
		sb.WriteString(fmt.Sprintf("  %-20s %d\n", name, report.Categories[name]))
	}
	sb.WriteString("\n")

	if len(report.OutputFiles) > 0 {
		sb.WriteString("  Files written:\n")
		for _, path := range report.OutputFiles {
			sb.WriteString(fmt.Sprintf("    %s\n", path))
		}
		sb.WriteString("\n")
	}
}

// writeFailures lists directories and logs that could not be fetched.
func (w *SimpleWriter) writeFailures(sb *strings.Builder, report *model.RunReport) {
	var dirs []model.Directory
	if report.Listing != nil {
		dirs = report.Listing.FailedDirectories()
	}
	if len(dirs) == 0 && report.FailedLogs() == 0 {
		return
	}

	section(sb, "FAILURES")
	for _, d := range dirs {
		sb.WriteString(fmt.Sprintf("  [dir] %s\n        %s\n", d.URL, d.Error))
	}
	for _, l := range report.Logs {
		if l.Failed() {
			sb.WriteString(fmt.Sprintf("  [log] %s\n        %s\n", l.URL, l.Error))
		}
	}
	sb.WriteString("\n")
}

// writeLogs lists every processed log with its counters.
func (w *SimpleWriter) writeLogs(sb *strings.Builder, report *model.RunReport) {
	section(sb, "LOGS")
	for _, l := range report.Logs {
		if l.Failed() {
			continue
		}
		sb.WriteString(fmt.Sprintf("  %s\n", l.URL))
		sb.WriteString(fmt.Sprintf("    lines=%d records=%d duplicates=%d malformed=%d\n",
			l.Lines, l.Stats.Records, l.Stats.Duplicates, l.Stats.Malformed))
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
