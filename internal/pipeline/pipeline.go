package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/rgwscan/internal/model"
)

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, with each step receiving the accumulated
// report from previous steps.
type Step interface {
	// Do executes the pipeline step.
	// Returns an error if the step fails critically; non-critical errors
	// (a log that could not be downloaded) are recorded in the report.
	Do(ctx context.Context, report *model.RunReport) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// deferred run after steps, whatever their outcome.
	deferred []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// continueOnError determines whether to continue executing steps
	// after one fails. If false, the pipeline stops on first error.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to continue execution
// even when a step fails.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps:    make([]Step, 0),
		deferred: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// AddDeferredStep appends a step that runs after the regular steps even if
// one of them failed or the context was cancelled. Deferred steps receive a
// context that is not cancelled with the caller's.
func (p *Pipeline) AddDeferredStep(step Step) {
	p.deferred = append(p.deferred, step)
}

// Execute runs all pipeline steps in sequence, then the deferred steps.
//
// It returns the first error encountered (a regular step's error when
// continueOnError is false, otherwise the first deferred step failure).
// The error message is recorded in report.Error and report.FinishedAt is set.
func (p *Pipeline) Execute(ctx context.Context, report *model.RunReport) error {
	firstErr := p.run(ctx, p.steps, report)

	// Deferred steps must still be able to write after a timeout.
	deferredCtx := context.WithoutCancel(ctx)
	if err := p.runAll(deferredCtx, p.deferred, report); err != nil && firstErr == nil {
		firstErr = err
	}

	if report.FinishedAt.IsZero() {
		report.FinishedAt = time.Now()
	}
	return firstErr
}

// run executes steps in order, stopping at the first failure unless
// continueOnError is set.
func (p *Pipeline) run(ctx context.Context, steps []Step, report *model.RunReport) error {
	var firstErr error

	for _, step := range steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"reason", ctx.Err(),
			)
			report.TimedOut = true
			p.recordError(report, ctx.Err())
			if firstErr == nil {
				firstErr = ctx.Err()
			}
			return firstErr
		default:
		}

		if err := p.do(ctx, step, report); err != nil {
			if ctx.Err() != nil {
				report.TimedOut = true
			}
			if firstErr == nil {
				firstErr = err
			}
			if !p.continueOnError {
				return firstErr
			}
		}
	}

	return firstErr
}

// runAll executes every step regardless of failures.
func (p *Pipeline) runAll(ctx context.Context, steps []Step, report *model.RunReport) error {
	var firstErr error
	for _, step := range steps {
		if err := p.do(ctx, step, report); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// do executes a single step with logging and bookkeeping.
func (p *Pipeline) do(ctx context.Context, step Step, report *model.RunReport) error {
	p.logger.Info("executing step",
		"step", step.Name(),
		"run", report.ID,
	)

	err := step.Do(ctx, report)
	report.PerformedSteps = append(report.PerformedSteps, step.Name())

	if err != nil {
		p.logger.Error("step failed",
			"step", step.Name(),
			"run", report.ID,
			"error", err,
		)
		p.recordError(report, err)
		return err
	}

	p.logger.Debug("step completed",
		"step", step.Name(),
		"run", report.ID,
	)
	return nil
}

// recordError keeps the first failure message in the report.
func (p *Pipeline) recordError(report *model.RunReport, err error) {
	if report.Error == "" {
		report.Error = err.Error()
	}
}

// StepCount returns the number of steps in the pipeline, deferred ones included.
func (p *Pipeline) StepCount() int {
	return len(p.steps) + len(p.deferred)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, 0, p.StepCount())
	for _, step := range p.steps {
		names = append(names, step.Name())
	}
	for _, step := range p.deferred {
		names = append(names, step.Name())
	}
	return names
}
