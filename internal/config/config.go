package config

import (
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultBaseURL is the cephci results directory the tool was first written for.
	DefaultBaseURL = "http://magna002.ceph.redhat.com/cephci-jenkins/results/openstack/RH/8.0/rhel-9/Regression/19.2.0-12/rgw/36/"

	// DefaultOutputDir is where category files are written.
	DefaultOutputDir = "radosgw_admin_outputs"

	// DefaultTimeout applies to each HTTP request, including reading the body.
	// Test logs can be tens of megabytes, so this is generous.
	DefaultTimeout = 60 * time.Second

	// DefaultConcurrency is the number of logs downloaded in parallel.
	DefaultConcurrency = 4

	// DefaultRetries is the number of extra attempts after a transient failure.
	DefaultRetries = 2

	// DefaultRetryBackoff is the wait before the first retry.
	DefaultRetryBackoff = 500 * time.Millisecond

	// DefaultMaxDepth visits the base directory and its direct subdirectories.
	DefaultMaxDepth = 1

	// AppName is the application name used for XDG directory paths.
	AppName = "rgwscan"

	// DefaultUserAgent identifies rgwscan in HTTP requests.
	DefaultUserAgent = "rgwscan/1.0 (+https://github.com/nao1215/rgwscan)"

	// DefaultMaxBodySize limits the response body size read per log.
	DefaultMaxBodySize = 64 * 1024 * 1024 // 64MB

	// DefaultReportFormat is the run summary format.
	DefaultReportFormat = "text"
)

// Config holds all configuration options for rgwscan.
// It is populated from CLI flags and the config file, then passed down
// explicitly rather than kept in global state.
type Config struct {
	// BaseURL is the directory listing to crawl.
	BaseURL string

	// OutputDir is the directory category files are written to.
	OutputDir string

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// Concurrency is the number of parallel log downloads.
	Concurrency int

	// Retries is the number of retries after a transient download failure.
	Retries int

	// RetryBackoff is the initial retry wait; it doubles per attempt.
	RetryBackoff time.Duration

	// CrawlDelay is the delay between directory listing requests.
	CrawlDelay time.Duration

	// MaxDepth is how many directory levels below BaseURL are visited.
	MaxDepth int

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	// Larger logs are truncated and the truncation is logged.
	MaxBodySize int64

	// ProxyAddress is an optional SOCKS5 proxy ("host:port") for reaching
	// lab hosts that are not directly routable.
	ProxyAddress string

	// LenientVersion emits records whose version line is missing or short,
	// with an empty version, instead of skipping them.
	LenientVersion bool

	// Overwrite replaces existing category files instead of merging into them.
	Overwrite bool

	// SaveToDB stores each run in the history database.
	SaveToDB bool

	// DBDir is the directory holding the history database.
	// Defaults to the XDG data directory (~/.local/share/rgwscan on Linux).
	DBDir string

	// ReportFormat is "text", "markdown" or "json".
	ReportFormat string

	// ReportFile is the output file for the run summary. Empty means stdout.
	ReportFile string

	// Verbose enables debug logging and detailed summaries.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, .rgwscan is searched in the current directory and then in
	// the user's home directory.
	ConfigFilePath string

	// File holds the loaded configuration file, if any.
	File *File
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		BaseURL:      DefaultBaseURL,
		OutputDir:    DefaultOutputDir,
		Timeout:      DefaultTimeout,
		Concurrency:  DefaultConcurrency,
		Retries:      DefaultRetries,
		RetryBackoff: DefaultRetryBackoff,
		MaxDepth:     DefaultMaxDepth,
		UserAgent:    DefaultUserAgent,
		MaxBodySize:  DefaultMaxBodySize,
		SaveToDB:     true,
		DBDir:        XDGDataDir(),
		ReportFormat: DefaultReportFormat,
	}
}

// XDGDataDir returns the XDG data directory for rgwscan.
// On Linux: ~/.local/share/rgwscan
// On macOS: ~/Library/Application Support/rgwscan
// On Windows: %LOCALAPPDATA%\rgwscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for rgwscan.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// ApplyFile copies settings from f that the user did not set explicitly.
// isSet reports whether a flag was given on the command line; file values
// never override flags. The host-specific section for BaseURL is merged
// into the result and returned for the crawler.
func (c *Config) ApplyFile(f *File, isSet func(flag string) bool) SiteConfig {
	if f == nil {
		return SiteConfig{}
	}
	c.File = f

	if f.BaseURL != "" && !isSet("base-url") {
		c.BaseURL = f.BaseURL
	}
	if f.OutputDir != "" && !isSet("output-dir") {
		c.OutputDir = f.OutputDir
	}
	if f.Concurrency > 0 && !isSet("concurrency") {
		c.Concurrency = f.Concurrency
	}

	site := f.GetSiteConfig(hostOf(c.BaseURL))
	if site.Depth > 0 && !isSet("depth") {
		c.MaxDepth = site.Depth
	}
	return site
}

// Validate checks if the configuration is valid.
// It returns the first problem found.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidBaseURL
	}

	if strings.TrimSpace(c.OutputDir) == "" {
		return ErrNoOutputDir
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if c.Retries < 0 {
		return ErrInvalidRetries
	}

	if c.RetryBackoff < 0 || c.CrawlDelay < 0 {
		return ErrInvalidDelay
	}

	if c.MaxDepth < 0 {
		return ErrInvalidDepth
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	switch strings.ToLower(c.ReportFormat) {
	case "", "text", "markdown", "md", "json":
	default:
		return ErrInvalidReportFormat
	}

	if c.SaveToDB && c.DBDir == "" {
		return ErrNoDBDir
	}

	return nil
}

// hostOf returns the host of rawURL, or "" if it does not parse.
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
