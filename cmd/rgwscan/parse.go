package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nao1215/rgwscan/internal/config"
	"github.com/nao1215/rgwscan/internal/model"
	"github.com/nao1215/rgwscan/internal/pipeline"
)

// localBaseURL labels runs that read local files.
const localBaseURL = "file://local"

// NewParseCmd creates the parse command.
func NewParseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <log-file>...",
		Short: "Extract radosgw-admin output from local log files",
		Long: `Parse runs the same extraction as scan over log files already on disk,
without any network access. Files are processed in the order given, so the
first file that holds a command wins.

Examples:
  # Extract from downloaded logs
  rgwscan parse test_multisite.log test_bucket_ops.log

  # Write into a scratch directory, replacing earlier results
  rgwscan parse -O /tmp/outputs --overwrite logs/*.log`,
		Args: cobra.MinimumNArgs(1),
		RunE: runParseCmd,
	}

	addOutputFlags(cmd)

	return cmd
}

func runParseCmd(cmd *cobra.Command, args []string) error {
	cfg := config.NewConfig()
	if err := readOutputFlags(cmd, cfg); err != nil {
		return err
	}
	if _, err := loadConfigFile(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd, cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	run, runErr := runParse(ctx, cfg, args, logger)
	if run != nil {
		if err := writeRunReport(cmd, cfg, run); err != nil {
			logger.Error("failed to write report", "error", err)
			if runErr == nil {
				runErr = err
			}
		}
	}
	return runErr
}

// runParse extracts records from local files.
func runParse(ctx context.Context, cfg *config.Config, paths []string, logger *slog.Logger) (*model.RunReport, error) {
	db, err := openHistory(cfg, logger)
	if err != nil {
		return nil, err
	}
	if db != nil {
		defer db.Close()
	}

	p := pipeline.DefaultPipeline(pipeline.Components{
		Source:      pipeline.NewFileListStep(paths),
		Loader:      pipeline.FileLoader{},
		Parser:      newParser(cfg, logger),
		Store:       newStore(cfg, logger),
		DB:          db,
		Concurrency: cfg.Concurrency,
		Logger:      logger,
	})

	run := model.NewRunReport(localBaseURL)
	if err := p.Execute(ctx, run); err != nil {
		return run, fmt.Errorf("parse failed: %w", err)
	}
	return run, nil
}
