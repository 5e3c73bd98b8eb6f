package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/rgwscan/internal/model"
)

// Loader retrieves one log file. crawler.Fetcher and FileLoader implement it.
type Loader interface {
	Fetch(ctx context.Context, target string) (*model.LogFile, error)
}

// FetchResult is the outcome of loading one target.
type FetchResult struct {
	// Index is the target's position in the input slice.
	Index int

	// Target is the URL or path that was loaded.
	Target string

	// File is the loaded log; nil when Err is set.
	File *model.LogFile

	// Err is the load failure, if any.
	Err error

	// Elapsed is the time spent loading.
	Elapsed time.Duration
}

// BatchProcessor loads many targets concurrently and delivers the results
// in input order.
type BatchProcessor struct {
	// loader performs each download.
	loader Loader

	// concurrency is the maximum number of loads in flight.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent loads.
// Default is 4 if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(loader Loader, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		loader:      loader,
		concurrency: 4,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessInOrder loads targets with up to concurrency loads in flight and
// calls handle once per target, in input order, from the calling goroutine.
//
// A load failure is passed to handle in FetchResult.Err; it does not stop
// the batch. If handle returns an error, outstanding loads are cancelled and
// that error is returned. A loader holds its concurrency slot until handle
// has taken its result, so at most concurrency bodies are held in memory.
func (bp *BatchProcessor) ProcessInOrder(
	ctx context.Context,
	targets []string,
	handle func(FetchResult) error,
) error {
	bp.logger.Info("starting batch download",
		"total", len(targets),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	slots := make([]chan FetchResult, len(targets))
	for i := range slots {
		slots[i] = make(chan FetchResult)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	launched := make(chan struct{})
	go func() {
		defer close(launched)
		for i, target := range targets {
			if gctx.Err() != nil {
				return
			}
			g.Go(func() error {
				start := time.Now()
				file, err := bp.loader.Fetch(gctx, target)
				res := FetchResult{
					Index:   i,
					Target:  target,
					File:    file,
					Err:     err,
					Elapsed: time.Since(start),
				}
				select {
				case slots[i] <- res:
				case <-gctx.Done():
				}
				return nil
			})
		}
	}()

	var handleErr error
	for i := range targets {
		var res FetchResult
		select {
		case res = <-slots[i]:
		case <-ctx.Done():
			handleErr = ctx.Err()
		}
		if handleErr != nil {
			break
		}
		if err := handle(res); err != nil {
			handleErr = err
			break
		}
	}

	cancel()
	<-launched
	_ = g.Wait() //nolint:errcheck // loaders never return errors

	bp.logger.Info("batch download complete",
		"total", len(targets),
		"elapsed", time.Since(startTime),
	)

	return handleErr
}
