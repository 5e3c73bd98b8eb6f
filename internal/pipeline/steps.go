package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/rgwscan/internal/crawler"
	"github.com/nao1215/rgwscan/internal/database"
	"github.com/nao1215/rgwscan/internal/extract"
	"github.com/nao1215/rgwscan/internal/model"
	"github.com/nao1215/rgwscan/internal/sink"
)

// DiscoverStep crawls the report's base URL and stores the listing.
type DiscoverStep struct {
	discoverer *crawler.Discoverer
	logger     *slog.Logger
}

// NewDiscoverStep creates a discovery step.
func NewDiscoverStep(discoverer *crawler.Discoverer, logger *slog.Logger) *DiscoverStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &DiscoverStep{discoverer: discoverer, logger: logger}
}

// Name returns the step name.
func (s *DiscoverStep) Name() string {
	return "discover"
}

// Do executes the discovery step.
func (s *DiscoverStep) Do(ctx context.Context, report *model.RunReport) error {
	listing, err := s.discoverer.Discover(ctx, report.BaseURL)
	if listing != nil {
		report.Listing = listing
		report.BaseURL = listing.BaseURL
	}
	if err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}

	s.logger.Info("discovery complete",
		"directories", len(listing.Directories),
		"failed_directories", len(listing.FailedDirectories()),
		"logs", len(listing.LogURLs()),
	)
	return nil
}

// FileListStep uses a fixed list of local files as the listing.
// It replaces DiscoverStep for offline parsing.
type FileListStep struct {
	paths []string
}

// NewFileListStep creates a step that lists the given paths.
func NewFileListStep(paths []string) *FileListStep {
	return &FileListStep{paths: paths}
}

// Name returns the step name.
func (s *FileListStep) Name() string {
	return "list_files"
}

// Do stores the file list as a single-directory listing.
func (s *FileListStep) Do(_ context.Context, report *model.RunReport) error {
	logs := make([]string, len(s.paths))
	copy(logs, s.paths)

	report.Listing = &model.Listing{
		BaseURL:     report.BaseURL,
		Directories: []model.Directory{{URL: report.BaseURL, Logs: logs}},
	}
	return nil
}

// ExtractStep downloads every listed log and runs the extraction engine on it.
// Records are appended to the sink as soon as their log is parsed.
type ExtractStep struct {
	batch  *BatchProcessor
	parser *extract.Parser
	store  *sink.Store
	logger *slog.Logger
}

// NewExtractStep creates an extraction step.
func NewExtractStep(batch *BatchProcessor, parser *extract.Parser, store *sink.Store, logger *slog.Logger) *ExtractStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractStep{
		batch:  batch,
		parser: parser,
		store:  store,
		logger: logger,
	}
}

// Name returns the step name.
func (s *ExtractStep) Name() string {
	return "extract"
}

// Do processes the listing's logs in order with one command set for the whole run.
func (s *ExtractStep) Do(ctx context.Context, report *model.RunReport) error {
	if report.Listing == nil {
		return ErrNoListing
	}

	targets := report.Listing.LogURLs()
	seen := extract.NewCommandSet()

	err := s.batch.ProcessInOrder(ctx, targets, func(res FetchResult) error {
		return s.handle(report, res, seen)
	})
	if err != nil {
		return err
	}

	s.logger.Info("extraction complete",
		"logs", len(report.Logs),
		"failed_logs", report.FailedLogs(),
		"records", report.Stats.Records,
		"duplicates", report.Stats.Duplicates,
	)
	return nil
}

// handle parses one loaded log and hands its records to the sink.
func (s *ExtractStep) handle(report *model.RunReport, res FetchResult, seen *extract.CommandSet) error {
	result := model.LogResult{
		URL:     res.Target,
		Elapsed: res.Elapsed,
	}

	if res.Err != nil {
		s.logger.Warn("failed to download log", "url", res.Target, "error", res.Err)
		result.Error = res.Err.Error()
		report.AddLogResult(result, nil)
		return nil
	}

	start := time.Now()
	lines := res.File.Lines()
	records, stats := s.parser.Parse(res.Target, lines, seen)

	result.Hash = res.File.Hash
	result.Size = res.File.Size
	result.Lines = len(lines)
	result.Stats = stats
	result.Elapsed += time.Since(start)

	for _, record := range records {
		if err := s.store.Append(record); err != nil {
			if errors.Is(err, sink.ErrNoCategory) {
				s.logger.Warn("dropping record without category", "command", record.Command, "url", res.Target)
				report.Uncategorized++
				continue
			}
			return err
		}
		category, _ := record.Category()
		report.Categories[category]++
	}

	report.AddLogResult(result, records)
	s.logger.Debug("processed log",
		"url", res.Target,
		"lines", result.Lines,
		"records", stats.Records,
	)
	return nil
}

// FlushStep writes the sink's category files.
type FlushStep struct {
	store *sink.Store
}

// NewFlushStep creates a flush step.
func NewFlushStep(store *sink.Store) *FlushStep {
	return &FlushStep{store: store}
}

// Name returns the step name.
func (s *FlushStep) Name() string {
	return "flush"
}

// Do flushes the sink. A write failure is fatal for the run.
func (s *FlushStep) Do(_ context.Context, report *model.RunReport) error {
	paths, err := s.store.Flush()
	report.OutputFiles = append(report.OutputFiles, paths...)
	if err != nil {
		return fmt.Errorf("failed to write outputs: %w", err)
	}
	return nil
}

// PersistStep stores the run in the history database.
type PersistStep struct {
	db *database.RunDB
}

// NewPersistStep creates a persist step.
func NewPersistStep(db *database.RunDB) *PersistStep {
	return &PersistStep{db: db}
}

// Name returns the step name.
func (s *PersistStep) Name() string {
	return "persist"
}

// Do saves the report. FinishedAt is set here so the stored copy has it.
func (s *PersistStep) Do(ctx context.Context, report *model.RunReport) error {
	if report.FinishedAt.IsZero() {
		report.FinishedAt = time.Now()
	}
	if err := s.db.SaveRun(ctx, report); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// Components holds what DefaultPipeline wires together.
type Components struct {
	// Source produces the listing: a DiscoverStep or a FileListStep.
	Source Step

	// Loader downloads or reads each log.
	Loader Loader

	// Parser is the extraction engine.
	Parser *extract.Parser

	// Store receives records and writes category files.
	Store *sink.Store

	// DB is optional; when nil the run is not persisted.
	DB *database.RunDB

	// Concurrency is the number of parallel downloads.
	Concurrency int

	// Logger is used by every step.
	Logger *slog.Logger
}

// DefaultPipeline builds source -> extract, with flush and persist deferred.
func DefaultPipeline(c Components) *Pipeline {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}

	batch := NewBatchProcessor(c.Loader,
		WithConcurrency(c.Concurrency),
		WithBatchLogger(logger),
	)

	p := New(WithLogger(logger))
	p.AddSteps(
		c.Source,
		NewExtractStep(batch, c.Parser, c.Store, logger),
	)
	p.AddDeferredStep(NewFlushStep(c.Store))
	if c.DB != nil {
		p.AddDeferredStep(NewPersistStep(c.DB))
	}
	return p
}
