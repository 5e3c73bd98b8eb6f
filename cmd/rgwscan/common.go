package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/rgwscan/internal/config"
	"github.com/nao1215/rgwscan/internal/database"
	rgwlog "github.com/nao1215/rgwscan/internal/log"
	"github.com/nao1215/rgwscan/internal/model"
	"github.com/nao1215/rgwscan/internal/report"
)

// addOutputFlags registers the flags shared by scan and parse.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output-dir", "O", config.DefaultOutputDir,
		"Directory for <category>_outputs.json files")
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Number of logs processed in parallel")
	cmd.Flags().Bool("overwrite", false,
		"Replace existing category files instead of merging into them")
	cmd.Flags().Bool("lenient-version", false,
		"Keep commands whose version line is missing or short (empty ceph_version)")

	cmd.Flags().Bool("no-db", false, "Do not store the run in the history database")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")

	cmd.Flags().StringP("format", "f", config.DefaultReportFormat,
		"Run summary format: text, markdown or json")
	cmd.Flags().StringP("report-file", "o", "",
		"Write the run summary to this file (a text summary is still printed)")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .rgwscan in current or home directory)")
}

// readOutputFlags copies the shared flags into cfg.
func readOutputFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	var err error

	if cfg.OutputDir, err = flags.GetString("output-dir"); err != nil {
		return err
	}
	if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
		return err
	}
	if cfg.Overwrite, err = flags.GetBool("overwrite"); err != nil {
		return err
	}
	if cfg.LenientVersion, err = flags.GetBool("lenient-version"); err != nil {
		return err
	}

	noDB, err := flags.GetBool("no-db")
	if err != nil {
		return err
	}
	cfg.SaveToDB = !noDB

	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir != "" {
		cfg.DBDir = dbDir
	}

	if cfg.ReportFormat, err = flags.GetString("format"); err != nil {
		return err
	}
	if cfg.ReportFile, err = flags.GetString("report-file"); err != nil {
		return err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return err
	}

	cfg.Verbose = getVerboseFlag(cmd)
	return nil
}

// loadConfigFile applies the configuration file to cfg and returns the
// settings for cfg.BaseURL's host. An explicit --config that does not
// exist is an error; a missing implicit file is not.
func loadConfigFile(cmd *cobra.Command, cfg *config.Config) (config.SiteConfig, error) {
	path := config.FindConfigFile(cfg.ConfigFilePath)
	if path == "" {
		if cfg.ConfigFilePath != "" {
			return config.SiteConfig{}, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
		}
		return config.SiteConfig{}, nil
	}

	file, err := config.LoadConfigFile(path)
	if err != nil {
		return config.SiteConfig{}, fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	return cfg.ApplyFile(file, cmd.Flags().Changed), nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return false
	}
	return verbose
}

// setupLogger creates the stderr logger: Warn level, Debug when verbose,
// with credentials masked.
func setupLogger(cmd *cobra.Command, verbose bool) *slog.Logger {
	jsonLogs, err := cmd.Flags().GetBool("log-json")
	if err == nil && jsonLogs {
		return rgwlog.NewSecureJSONLogger(cmd.ErrOrStderr(), verbose)
	}
	return rgwlog.NewSecureLogger(cmd.ErrOrStderr(), verbose)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// openHistory opens the history database when cfg asks for it.
// It returns nil when history is disabled.
func openHistory(cfg *config.Config, logger *slog.Logger) (*database.RunDB, error) {
	if !cfg.SaveToDB {
		return nil, nil
	}
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	logger.Debug("history database opened", "path", db.Path())
	return db, nil
}

// writeRunReport prints the text summary to stdout and, when a report file
// is configured, writes the summary in the configured format there as well.
// Without a report file the configured format goes to stdout.
func writeRunReport(cmd *cobra.Command, cfg *config.Config, run *model.RunReport) error {
	stdout := cmd.OutOrStdout()

	if cfg.ReportFile == "" {
		w, err := report.NewWriter(cfg.ReportFormat, stdout, getVersion(), cfg.Verbose)
		if err != nil {
			return err
		}
		_, err = w.Write(run)
		return err
	}

	f, err := createReportFile(cfg.ReportFile)
	if err != nil {
		return err
	}
	defer f.Close()

	fileWriter, err := report.NewWriter(cfg.ReportFormat, f, getVersion(), cfg.Verbose)
	if err != nil {
		return err
	}
	stdoutWriter, err := report.NewWriter(report.FormatText, stdout, getVersion(), cfg.Verbose)
	if err != nil {
		return err
	}

	if _, err := report.NewMultiWriter(stdoutWriter, fileWriter).Write(run); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return f.Sync()
}

// createReportFile creates path and its parent directories.
func createReportFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // user-provided report path
	if err != nil {
		return nil, fmt.Errorf("failed to create report file: %w", err)
	}
	return f, nil
}
