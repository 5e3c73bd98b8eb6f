package crawler

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/nao1215/rgwscan/internal/model"
)

// Discoverer finds log files under a base directory listing.
// It fetches the base directory, collects its .log links, and descends
// into each subdirectory link up to maxDepth levels (one by default).
type Discoverer struct {
	// fetcher performs the listing downloads.
	fetcher *Fetcher

	// maxDepth is how many directory levels below the base are visited.
	maxDepth int

	// delay is the time to wait between listing requests.
	delay time.Duration

	// ignorePatterns are URL path globs to skip (logs and directories).
	ignorePatterns []string

	// followPatterns are URL path globs a log must match to be kept.
	// Empty means every log is kept (subject to ignorePatterns).
	followPatterns []string

	// logger receives fetch failures.
	logger *slog.Logger
}

// DiscovererOption configures a Discoverer.
type DiscovererOption func(*Discoverer)

// WithMaxDepth sets how many directory levels below the base are visited.
// 0 = only the base directory, 1 = base plus its subdirectories.
func WithMaxDepth(depth int) DiscovererOption {
	return func(d *Discoverer) {
		if depth >= 0 {
			d.maxDepth = depth
		}
	}
}

// WithDelay sets the delay between listing requests.
func WithDelay(delay time.Duration) DiscovererOption {
	return func(d *Discoverer) {
		d.delay = delay
	}
}

// WithIgnorePatterns sets URL path globs to skip.
// Patterns use doublestar syntax (e.g. "**/teardown/**", "**/*debug*.log").
func WithIgnorePatterns(patterns []string) DiscovererOption {
	return func(d *Discoverer) {
		d.ignorePatterns = patterns
	}
}

// WithFollowPatterns sets URL path globs a log must match to be kept.
func WithFollowPatterns(patterns []string) DiscovererOption {
	return func(d *Discoverer) {
		d.followPatterns = patterns
	}
}

// WithDiscovererLogger sets the logger.
func WithDiscovererLogger(logger *slog.Logger) DiscovererOption {
	return func(d *Discoverer) {
		d.logger = logger
	}
}

// NewDiscoverer creates a Discoverer that downloads listings with fetcher.
func NewDiscoverer(fetcher *Fetcher, opts ...DiscovererOption) *Discoverer {
	d := &Discoverer{
		fetcher:  fetcher,
		maxDepth: 1,
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.logger == nil {
		d.logger = slog.Default()
	}

	return d
}

// Discover crawls baseURL and returns the directories it visited.
//
// A directory that cannot be fetched is recorded with its error and its
// subtree is skipped; the crawl continues. Only subdirectories below the
// base URL are visited, so parent-directory and sort links are ignored.
// The error return is reserved for an invalid base URL and cancellation.
func (d *Discoverer) Discover(ctx context.Context, baseURL string) (*model.Listing, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, baseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	w := &walk{
		discoverer: d,
		base:       base,
		visited:    make(map[string]bool),
		listing: &model.Listing{
			BaseURL:     base.String(),
			Directories: make([]model.Directory, 0),
		},
	}

	if err := w.visit(ctx, base.String(), 0); err != nil {
		return w.listing, err
	}
	return w.listing, nil
}

// walk holds the state of one Discover call.
type walk struct {
	discoverer *Discoverer
	base       *url.URL
	visited    map[string]bool
	listing    *model.Listing
	requests   int
}

// visit fetches one directory, records its logs, then descends.
func (w *walk) visit(ctx context.Context, dirURL string, depth int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.visited[dirURL] = true

	if w.requests > 0 && w.discoverer.delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.discoverer.delay):
		}
	}
	w.requests++

	dir := model.Directory{URL: dirURL, Depth: depth, Logs: make([]string, 0)}

	result, err := w.fetchListing(ctx, dirURL)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.discoverer.logger.Warn("failed to fetch directory", "url", dirURL, "error", err)
		dir.Error = err.Error()
		w.listing.Directories = append(w.listing.Directories, dir)
		return nil
	}

	for _, link := range result.Logs {
		if w.discoverer.keepLog(link) {
			dir.Logs = append(dir.Logs, link)
		}
	}
	w.listing.Directories = append(w.listing.Directories, dir)

	if depth >= w.discoverer.maxDepth {
		return nil
	}

	for _, sub := range result.Directories {
		if w.visited[sub] || !w.isBelowBase(sub) || w.discoverer.isIgnored(sub) {
			continue
		}
		if err := w.visit(ctx, sub, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// fetchListing downloads and parses one listing page.
func (w *walk) fetchListing(ctx context.Context, dirURL string) (*ParseResult, error) {
	page, err := w.discoverer.fetcher.Fetch(ctx, dirURL)
	if err != nil {
		return nil, err
	}

	parser, err := NewParser(dirURL)
	if err != nil {
		return nil, err
	}
	return parser.Parse(bytes.NewReader(page.Raw))
}

// isBelowBase reports whether target is a strict descendant of the base directory.
func (w *walk) isBelowBase(target string) bool {
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	if !strings.EqualFold(u.Host, w.base.Host) || u.RawQuery != "" {
		return false
	}
	return len(u.Path) > len(w.base.Path) && strings.HasPrefix(u.Path, w.base.Path)
}

// keepLog applies ignore and follow patterns to a log URL.
func (d *Discoverer) keepLog(target string) bool {
	if d.isIgnored(target) {
		return false
	}
	if len(d.followPatterns) == 0 {
		return true
	}
	return matchAny(d.followPatterns, urlPath(target))
}

// isIgnored reports whether target matches an ignore pattern.
func (d *Discoverer) isIgnored(target string) bool {
	return matchAny(d.ignorePatterns, urlPath(target))
}

// matchAny reports whether path matches any glob pattern.
// Invalid patterns never match.
func matchAny(patterns []string, path string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, path); err == nil && ok {
			return true
		}
	}
	return false
}

// urlPath returns the path component of target, or target itself if it
// does not parse.
func urlPath(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	if u.Path == "" {
		return "/"
	}
	return u.Path
}
