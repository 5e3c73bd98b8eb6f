package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nao1215/rgwscan/internal/config"
	"github.com/nao1215/rgwscan/internal/crawler"
	"github.com/nao1215/rgwscan/internal/extract"
	"github.com/nao1215/rgwscan/internal/model"
	"github.com/nao1215/rgwscan/internal/pipeline"
	"github.com/nao1215/rgwscan/internal/sink"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Crawl a results directory and extract radosgw-admin output",
		Long: `Scan lists the results directory, downloads every .log file it links to
(and those of its subdirectories), and extracts each
"Execute cephadm shell -- radosgw-admin <args>" command with the JSON block
that follows it. A command is kept once per run, from the first log that
has it with valid JSON.

Records are written to <output-dir>/<category>_outputs.json, where the
category is the first word after "radosgw-admin". Existing files are merged
unless --overwrite is given.

Logs that cannot be downloaded are reported and skipped; they never stop
the run.

Examples:
  # Crawl the default results directory
  rgwscan scan

  # Crawl another build, eight downloads at a time
  rgwscan scan --base-url http://lab.example/results/19.2.1-3/rgw/ -n 8

  # Reach the lab through a SOCKS5 jump host
  rgwscan scan --proxy 127.0.0.1:1080

  # Write a Markdown summary next to the outputs
  rgwscan scan -f markdown -o radosgw_admin_outputs/SUMMARY.md`,
		Args: cobra.NoArgs,
		RunE: runScanCmd,
	}

	cmd.Flags().StringP("base-url", "u", config.DefaultBaseURL,
		"Results directory to crawl")
	cmd.Flags().IntP("depth", "d", config.DefaultMaxDepth,
		"Directory levels below the base URL to visit")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each HTTP request, including the body")
	cmd.Flags().Int("retries", config.DefaultRetries,
		"Retries after a transient download failure")
	cmd.Flags().Duration("retry-backoff", config.DefaultRetryBackoff,
		"Wait before the first retry; doubles per attempt")
	cmd.Flags().Duration("crawl-delay", 0,
		"Delay between directory listing requests")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum bytes read per log; longer logs are truncated")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy address (host:port)")

	addOutputFlags(cmd)

	return cmd
}

func runScanCmd(cmd *cobra.Command, _ []string) error {
	cfg, site, err := buildScanConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd, cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	run, runErr := runScan(ctx, cfg, site, logger)
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

// buildScanConfig creates a Config from flags and the configuration file.
func buildScanConfig(cmd *cobra.Command) (*config.Config, config.SiteConfig, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()
	var err error

	if cfg.BaseURL, err = flags.GetString("base-url"); err != nil {
		return nil, config.SiteConfig{}, err
	}
	if cfg.MaxDepth, err = flags.GetInt("depth"); err != nil {
		return nil, config.SiteConfig{}, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, config.SiteConfig{}, err
	}
	if cfg.Retries, err = flags.GetInt("retries"); err != nil {
		return nil, config.SiteConfig{}, err
	}
	if cfg.RetryBackoff, err = flags.GetDuration("retry-backoff"); err != nil {
		return nil, config.SiteConfig{}, err
	}
	if cfg.CrawlDelay, err = flags.GetDuration("crawl-delay"); err != nil {
		return nil, config.SiteConfig{}, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, config.SiteConfig{}, err
	}
	if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
		return nil, config.SiteConfig{}, err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, config.SiteConfig{}, err
	}
	if err := readOutputFlags(cmd, cfg); err != nil {
		return nil, config.SiteConfig{}, err
	}

	site, err := loadConfigFile(cmd, cfg)
	if err != nil {
		return nil, config.SiteConfig{}, err
	}
	return cfg, site, nil
}

// runScan crawls cfg.BaseURL and runs the extraction pipeline.
// The returned report is non-nil whenever the pipeline ran, even if it failed.
func runScan(ctx context.Context, cfg *config.Config, site config.SiteConfig, logger *slog.Logger) (*model.RunReport, error) {
	client, err := crawler.NewHTTPClient(cfg.Timeout, cfg.ProxyAddress)
	if err != nil {
		return nil, err
	}

	fetcher := crawler.NewFetcher(client,
		crawler.WithUserAgent(cfg.UserAgent),
		crawler.WithHeaders(site.Headers),
		crawler.WithMaxBodySize(cfg.MaxBodySize),
		crawler.WithRetries(cfg.Retries),
		crawler.WithBackoff(cfg.RetryBackoff),
		crawler.WithFetcherLogger(logger),
	)

	discoverer := crawler.NewDiscoverer(fetcher,
		crawler.WithMaxDepth(cfg.MaxDepth),
		crawler.WithDelay(cfg.CrawlDelay),
		crawler.WithIgnorePatterns(site.IgnorePatterns),
		crawler.WithFollowPatterns(site.FollowPatterns),
		crawler.WithDiscovererLogger(logger),
	)

	db, err := openHistory(cfg, logger)
	if err != nil {
		return nil, err
	}
	if db != nil {
		defer db.Close()
	}

	logger.Info("starting scan",
		"baseURL", cfg.BaseURL,
		"outputDir", cfg.OutputDir,
		"concurrency", cfg.Concurrency,
		"depth", cfg.MaxDepth,
	)

	p := pipeline.DefaultPipeline(pipeline.Components{
		Source:      pipeline.NewDiscoverStep(discoverer, logger),
		Loader:      fetcher,
		Parser:      newParser(cfg, logger),
		Store:       newStore(cfg, logger),
		DB:          db,
		Concurrency: cfg.Concurrency,
		Logger:      logger,
	})

	run := model.NewRunReport(cfg.BaseURL)
	if err := p.Execute(ctx, run); err != nil {
		return run, fmt.Errorf("scan failed: %w", err)
	}
	return run, nil
}

// newParser creates the extraction engine for cfg.
func newParser(cfg *config.Config, logger *slog.Logger) *extract.Parser {
	return extract.NewParser(
		extract.WithLogger(logger),
		extract.WithLenientVersion(cfg.LenientVersion),
	)
}

// newStore creates the category file sink for cfg.
func newStore(cfg *config.Config, logger *slog.Logger) *sink.Store {
	return sink.NewStore(cfg.OutputDir,
		sink.WithOverwrite(cfg.Overwrite),
		sink.WithLogger(logger),
	)
}
