package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/nao1215/rgwscan/internal/model"
)

// Fetcher downloads listings and log files.
// It is safe for concurrent use; the pipeline shares one Fetcher across
// download workers.
type Fetcher struct {
	// client is the underlying HTTP client.
	client *http.Client

	// userAgent is the User-Agent header to use.
	userAgent string

	// headers are extra request headers (e.g. Authorization for protected labs).
	headers map[string]string

	// maxBodySize limits the number of body bytes read per response.
	maxBodySize int64

	// retries is the number of extra attempts after a transient failure.
	retries int

	// backoff is the wait before the first retry; it doubles per attempt.
	backoff time.Duration

	// logger receives retry diagnostics.
	logger *slog.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithHeaders sets extra headers sent with every request.
func WithHeaders(headers map[string]string) FetcherOption {
	return func(f *Fetcher) {
		f.headers = headers
	}
}

// WithMaxBodySize sets the maximum response body size.
func WithMaxBodySize(size int64) FetcherOption {
	return func(f *Fetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// WithRetries sets how many times a transient failure is retried.
func WithRetries(n int) FetcherOption {
	return func(f *Fetcher) {
		if n >= 0 {
			f.retries = n
		}
	}
}

// WithBackoff sets the initial retry backoff.
func WithBackoff(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.backoff = d
	}
}

// WithFetcherLogger sets the logger used for retry diagnostics.
func WithFetcherLogger(logger *slog.Logger) FetcherOption {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// NewFetcher creates a Fetcher using client.
func NewFetcher(client *http.Client, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:      client,
		userAgent:   "rgwscan",
		maxBodySize: 64 * 1024 * 1024, // 64MB
		retries:     2,
		backoff:     500 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.logger == nil {
		f.logger = slog.Default()
	}

	return f
}

// Fetch downloads target and returns it as a LogFile with its hash computed.
// Non-2xx responses return an error wrapping ErrUnexpectedStatus.
// Transient failures are retried with exponential backoff.
func (f *Fetcher) Fetch(ctx context.Context, target string) (*model.LogFile, error) {
	var lastErr error
	wait := f.backoff

	for attempt := 0; attempt <= f.retries; attempt++ {
		if attempt > 0 {
			f.logger.Debug("retrying request",
				"url", target,
				"attempt", attempt,
				"wait", wait,
				"error", lastErr,
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
			wait *= 2
		}

		file, retryable, err := f.fetchOnce(ctx, target)
		if err == nil {
			return file, nil
		}
		lastErr = err
		if !retryable || ctx.Err() != nil {
			break
		}
	}

	return nil, lastErr
}

// fetchOnce performs a single GET. The boolean reports whether the failure is transient.
func (f *Fetcher) fetchOnce(ctx context.Context, target string) (*model.LogFile, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to build request for %s: %w", target, err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, !errors.Is(err, context.Canceled), fmt.Errorf("failed to fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck // best effort
		return nil, isRetryableStatus(resp.StatusCode),
			fmt.Errorf("%w: %s returned %d", ErrUnexpectedStatus, target, resp.StatusCode)
	}

	// Read one byte past the limit to detect truncation.
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		return nil, true, fmt.Errorf("failed to read %s: %w", target, err)
	}

	file := &model.LogFile{
		URL:         target,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
	}
	if int64(len(body)) > f.maxBodySize {
		body = body[:f.maxBodySize]
		file.Truncated = true
		f.logger.Warn("response truncated", "url", target, "limit", f.maxBodySize)
	}
	file.Raw = body
	file.ComputeHash()

	return file, false, nil
}

// isRetryableStatus reports whether a status code indicates a transient failure.
func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}
