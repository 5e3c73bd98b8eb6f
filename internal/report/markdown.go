package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/rgwscan/internal/model"
)

// MarkdownWriter outputs run reports in Markdown format, suitable for
// attaching to a CI job.
type MarkdownWriter struct {
	baseWriter

	// title renders category names as headings ("zonegroup" -> "Zonegroup").
	title cases.Caser
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
		title:      cases.Title(language.English),
	}
}

// Write outputs the run report in Markdown format.
func (w *MarkdownWriter) Write(report *model.RunReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writeCategories(md, report)
	w.writeFailures(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the run information table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.RunReport) {
	md.H1("rgwscan Run Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run ID", "`" + report.ID + "`"},
			{"Base URL", "`" + report.BaseURL + "`"},
			{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", report.Duration().String()},
			{"Status", statusText(report)},
		},
	})
	md.PlainText("")
}

// writeSummary writes the extraction counters and an overall alert.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.RunReport) {
	md.H2("Extraction Summary")
	md.PlainText("")

	s := report.Stats
	md.Table(markdown.TableSet{
		Header: []string{"Counter", "Value"},
		Rows: [][]string{
			{"Logs processed", strconv.Itoa(len(report.Logs))},
			{"Logs failed", strconv.Itoa(report.FailedLogs())},
			{"Command markers", strconv.Itoa(s.Markers)},
			{"Records", strconv.Itoa(s.Records)},
			{"Duplicates skipped", strconv.Itoa(s.Duplicates)},
			{"Markers without JSON", strconv.Itoa(s.NoJSON)},
			{"Malformed blocks", strconv.Itoa(s.Malformed)},
			{"Bad version lines", strconv.Itoa(s.BadVersion)},
			{"Uncategorized", strconv.Itoa(report.Uncategorized)},
		},
	})
	md.PlainText("")

	switch {
	case report.Error != "":
		md.Cautionf("The run stopped with an error: %s", report.Error)
	case report.FailedLogs() > 0:
		md.Warningf("%d log(s) could not be downloaded; their commands are missing from the output.", report.FailedLogs())
	case s.Malformed > 0:
		md.Importantf("%d JSON block(s) could not be parsed after normalization.", s.Malformed)
	case s.Records == 0:
		md.Note("No records were extracted.")
	default:
		md.Tip("All logs were processed.")
	}
	md.PlainText("")
}

// writeCategories writes a pie chart and one section per category.
func (w *MarkdownWriter) writeCategories(md *markdown.Markdown, report *model.RunReport) {
	md.H2("Categories")
	md.PlainText("")

	names := report.SortedCategories()
	if len(names) == 0 {
		md.PlainText("No categories.")
		md.PlainText("")
		return
	}

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Records per Category"),
		piechart.WithShowData(true),
	)
	for _, name := range names {
		chart.LabelAndIntValue(name, uint64(report.Categories[name])) //nolint:gosec // counts are non-negative
	}
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")

	commands := make(map[string][]string)
	for _, r := range report.Records {
		if name, ok := r.Category(); ok {
			commands[name] = append(commands[name], r.Command)
		}
	}

	for _, name := range names {
		md.H3(w.title.String(name))
		md.PlainText("")
		if len(commands[name]) > 0 {
			items := make([]string, len(commands[name]))
			for i, c := range commands[name] {
				items[i] = "`" + truncateString(c, 100) + "`"
			}
			md.BulletList(items...)
			md.PlainText("")
		}
	}

	if len(report.OutputFiles) > 0 {
		md.H3("Files Written")
		md.PlainText("")
		md.BulletList(report.OutputFiles...)
		md.PlainText("")
	}
}

// writeFailures writes a table of unreachable directories and logs.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, report *model.RunReport) {
	rows := make([][]string, 0)
	if report.Listing != nil {
		for _, d := range report.Listing.FailedDirectories() {
			rows = append(rows, []string{"directory", truncateString(d.URL, 80), truncateString(d.Error, 60)})
		}
	}
	for _, l := range report.Logs {
		if l.Failed() {
			rows = append(rows, []string{"log", truncateString(l.URL, 80), truncateString(l.Error, 60)})
		}
	}
	if len(rows) == 0 {
		return
	}

	md.H2("Failures")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Kind", "URL", "Error"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [rgwscan](https://github.com/nao1215/rgwscan)*")
}
