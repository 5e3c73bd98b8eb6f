package extract

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/nao1215/rgwscan/internal/model"
)

// Parser turns a log's lines into OutputRecords.
// A Parser holds no per-log state and may be reused across logs; the
// run-wide deduplication state lives in the CommandSet passed to Parse.
type Parser struct {
	// logger receives per-marker diagnostics.
	logger *slog.Logger

	// lenientVersion emits records with an empty version instead of
	// skipping markers whose version token is unusable.
	lenientVersion bool
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		p.logger = logger
	}
}

// WithLenientVersion keeps markers whose version line is missing or too
// short. Their records carry an empty CephVersion.
func WithLenientVersion(lenient bool) Option {
	return func(p *Parser) {
		p.lenientVersion = lenient
	}
}

// NewParser creates a Parser with the given options.
func NewParser(opts ...Option) *Parser {
	p := &Parser{}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// ParseLines runs a default Parser over lines.
func ParseLines(lines []string, seen *CommandSet) ([]model.OutputRecord, model.ExtractStats) {
	return NewParser().Parse("", lines, seen)
}

// Parse scans lines for command markers and returns the records found,
// in line order, together with extraction counters.
//
// For each marker the version token is read first; a missing or short token
// skips the marker unless the parser is lenient. Commands already in seen are
// skipped. The JSON block after the marker is extracted, normalized and
// decoded; only a successful decode yields a record and adds the command to
// seen. Scanning never backtracks: after a block is consumed it resumes on
// the line following the block.
//
// source labels the records and log messages. A nil seen is treated as an
// empty set private to this call.
func (p *Parser) Parse(source string, lines []string, seen *CommandSet) ([]model.OutputRecord, model.ExtractStats) {
	if seen == nil {
		seen = NewCommandSet()
	}

	records := make([]model.OutputRecord, 0)
	var stats model.ExtractStats

	i := 0
	for i < len(lines) {
		if !IsMarker(lines[i]) {
			i++
			continue
		}
		stats.Markers++
		marker := i

		version, err := versionAt(lines, marker)
		if err != nil {
			stats.BadVersion++
			p.logger.Warn("unusable version token",
				"source", source,
				"line", marker,
				"error", err,
			)
			if !p.lenientVersion {
				i++
				continue
			}
			version = ""
		}

		command, ok := ExtractCommand(lines[marker])
		if !ok {
			i++
			continue
		}
		if seen.Contains(command) {
			stats.Duplicates++
			i++
			continue
		}

		block, next, found := ExtractBlock(lines, marker)
		if !found {
			stats.NoJSON++
			p.logger.Debug("no JSON output for command",
				"source", source,
				"line", marker,
				"command", command,
			)
			i = next
			continue
		}
		i = next

		output, err := Decode(block.Text)
		if err != nil {
			stats.Malformed++
			p.logger.Debug("skipping malformed JSON block",
				"source", source,
				"line", block.StartLine,
				"command", command,
				"error", err,
			)
			continue
		}

		if !seen.Add(command) {
			stats.Duplicates++
			continue
		}

		records = append(records, model.OutputRecord{
			Command:     command,
			Output:      output,
			CephVersion: version,
			Source:      source,
			Line:        marker,
		})
		stats.Records++
	}

	return records, stats
}

// ParseReader reads a whole log from r and parses it.
func (p *Parser) ParseReader(source string, r io.Reader, seen *CommandSet) ([]model.OutputRecord, model.ExtractStats, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, model.ExtractStats{}, fmt.Errorf("failed to read %s: %w", source, err)
	}
	records, stats := p.Parse(source, model.SplitLines(string(data)), seen)
	return records, stats, nil
}
