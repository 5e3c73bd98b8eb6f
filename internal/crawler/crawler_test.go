package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// discardLogger returns a logger that drops everything.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// listingPage renders a minimal autoindex page with the given hrefs.
func listingPage(title string, hrefs ...string) string {
	var sb strings.Builder
	sb.WriteString("<html><head><title>" + title + "</title></head><body><pre>")
	for _, h := range hrefs {
		fmt.Fprintf(&sb, "<a href=%q>%s</a>\n", h, h)
	}
	sb.WriteString("</pre></body></html>")
	return sb.String()
}

// newListingServer serves a small results tree:
//
//	/results/            a.log, c.log, sub1/, sub2/ (plus noise links)
//	/results/sub1/       x.log, deeper/
//	/results/sub1/deeper never.log
//	/results/sub2/       500
func newListingServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/results/", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/results/":
			fmt.Fprint(w, listingPage("Index of /results",
				"../", "?C=N;O=D", "a.log", "a.log", "b.txt", "sub1/", "sub2/", "/other/", "c.log", "#top"))
		case "/results/sub1/":
			fmt.Fprint(w, listingPage("Index of /results/sub1", "../", "x.log", "deeper/"))
		case "/results/sub1/deeper/":
			fmt.Fprint(w, listingPage("Index of /results/sub1/deeper", "never.log"))
		case "/results/sub2/":
			http.Error(w, "boom", http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, listingPage("root", "outside.log"))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// TestParser tests listing page parsing.
func TestParser(t *testing.T) {
	t.Parallel()

	t.Run("classifies logs and directories", func(t *testing.T) {
		t.Parallel()

		page := listingPage("Index of /r", "a.log", "sub/", "notes.txt", "a.log", "http://other.example/z.log", "javascript:void(0)")
		parser, err := NewParser("http://lab.example/r/")
		if err != nil {
			t.Fatalf("failed to create parser: %v", err)
		}

		result, err := parser.Parse(strings.NewReader(page))
		if err != nil {
			t.Fatalf("failed to parse: %v", err)
		}

		if result.Title != "Index of /r" {
			t.Errorf("expected title 'Index of /r', got %q", result.Title)
		}
		wantLogs := []string{"http://lab.example/r/a.log", "http://other.example/z.log"}
		if strings.Join(result.Logs, ",") != strings.Join(wantLogs, ",") {
			t.Errorf("expected logs %v, got %v", wantLogs, result.Logs)
		}
		if len(result.Directories) != 1 || result.Directories[0] != "http://lab.example/r/sub/" {
			t.Errorf("unexpected directories %v", result.Directories)
		}
	})

	t.Run("resolves relative links against the page", func(t *testing.T) {
		t.Parallel()

		parser, err := NewParser("http://lab.example/r/sub/")
		if err != nil {
			t.Fatalf("failed to create parser: %v", err)
		}

		result, err := parser.Parse(strings.NewReader(listingPage("x", "../up.log", "/abs/")))
		if err != nil {
			t.Fatalf("failed to parse: %v", err)
		}
		if len(result.Logs) != 1 || result.Logs[0] != "http://lab.example/r/up.log" {
			t.Errorf("unexpected logs %v", result.Logs)
		}
		if len(result.Directories) != 1 || result.Directories[0] != "http://lab.example/abs/" {
			t.Errorf("unexpected directories %v", result.Directories)
		}
	})
}

// TestDiscover tests the one-level directory crawl.
func TestDiscover(t *testing.T) {
	t.Parallel()

	t.Run("collects base and subdirectory logs", func(t *testing.T) {
		t.Parallel()

		server := newListingServer(t)
		fetcher := NewFetcher(server.Client(), WithRetries(0), WithFetcherLogger(discardLogger()))
		d := NewDiscoverer(fetcher, WithDiscovererLogger(discardLogger()))

		listing, err := d.Discover(context.Background(), server.URL+"/results/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(listing.Directories) != 3 {
			t.Fatalf("expected 3 directories, got %d: %+v", len(listing.Directories), listing.Directories)
		}

		base := listing.Directories[0]
		if base.URL != server.URL+"/results/" || base.Depth != 0 {
			t.Errorf("unexpected base directory %+v", base)
		}
		wantBase := []string{server.URL + "/results/a.log", server.URL + "/results/c.log"}
		if strings.Join(base.Logs, ",") != strings.Join(wantBase, ",") {
			t.Errorf("expected base logs %v, got %v", wantBase, base.Logs)
		}

		sub1 := listing.Directories[1]
		if sub1.URL != server.URL+"/results/sub1/" || sub1.Depth != 1 {
			t.Errorf("unexpected sub1 %+v", sub1)
		}
		if len(sub1.Logs) != 1 || sub1.Logs[0] != server.URL+"/results/sub1/x.log" {
			t.Errorf("unexpected sub1 logs %v", sub1.Logs)
		}

		sub2 := listing.Directories[2]
		if sub2.Error == "" {
			t.Error("expected sub2 to record its fetch error")
		}

		all := listing.LogURLs()
		if len(all) != 3 {
			t.Errorf("expected 3 logs in total, got %v", all)
		}
		for _, u := range all {
			if strings.Contains(u, "never.log") || strings.Contains(u, "outside.log") {
				t.Errorf("crawl went too far: %s", u)
			}
		}
		if len(listing.FailedDirectories()) != 1 {
			t.Errorf("expected 1 failed directory, got %d", len(listing.FailedDirectories()))
		}
	})

	t.Run("adds trailing slash to base", func(t *testing.T) {
		t.Parallel()

		server := newListingServer(t)
		fetcher := NewFetcher(server.Client(), WithRetries(0), WithFetcherLogger(discardLogger()))
		d := NewDiscoverer(fetcher, WithMaxDepth(0), WithDiscovererLogger(discardLogger()))

		listing, err := d.Discover(context.Background(), server.URL+"/results")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if listing.BaseURL != server.URL+"/results/" {
			t.Errorf("unexpected base URL %q", listing.BaseURL)
		}
		if len(listing.Directories) != 1 {
			t.Errorf("expected only the base directory at depth 0, got %d", len(listing.Directories))
		}
	})

	t.Run("applies ignore and follow patterns", func(t *testing.T) {
		t.Parallel()

		server := newListingServer(t)
		fetcher := NewFetcher(server.Client(), WithRetries(0), WithFetcherLogger(discardLogger()))
		d := NewDiscoverer(fetcher,
			WithIgnorePatterns([]string{"/results/sub1/", "/results/sub1/**"}),
			WithFollowPatterns([]string{"/**/a.log"}),
			WithDiscovererLogger(discardLogger()),
		)

		listing, err := d.Discover(context.Background(), server.URL+"/results/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, dir := range listing.Directories {
			if strings.HasSuffix(dir.URL, "/sub1/") {
				t.Error("ignored directory was visited")
			}
		}
		all := listing.LogURLs()
		if len(all) != 1 || !strings.HasSuffix(all[0], "/a.log") {
			t.Errorf("expected only a.log, got %v", all)
		}
	})

	t.Run("unreachable base is recorded, not fatal", func(t *testing.T) {
		t.Parallel()

		server := newListingServer(t)
		fetcher := NewFetcher(server.Client(), WithRetries(0), WithFetcherLogger(discardLogger()))
		d := NewDiscoverer(fetcher, WithDiscovererLogger(discardLogger()))

		listing, err := d.Discover(context.Background(), server.URL+"/results/sub2/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(listing.Directories) != 1 || listing.Directories[0].Error == "" {
			t.Errorf("expected one failed directory, got %+v", listing.Directories)
		}
		if len(listing.LogURLs()) != 0 {
			t.Error("expected no logs")
		}
	})

	t.Run("rejects non-HTTP base URL", func(t *testing.T) {
		t.Parallel()

		d := NewDiscoverer(NewFetcher(http.DefaultClient))
		_, err := d.Discover(context.Background(), "ftp://lab.example/results/")
		if !errors.Is(err, ErrInvalidURL) {
			t.Errorf("expected ErrInvalidURL, got %v", err)
		}
	})

	t.Run("respects cancelled context", func(t *testing.T) {
		t.Parallel()

		server := newListingServer(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		d := NewDiscoverer(NewFetcher(server.Client(), WithFetcherLogger(discardLogger())))
		_, err := d.Discover(ctx, server.URL+"/results/")
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

// TestFetcher tests downloads, retries and limits.
func TestFetcher(t *testing.T) {
	t.Parallel()

	t.Run("downloads body and computes hash", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("User-Agent") != "rgwscan-test" || r.Header.Get("Authorization") != "Bearer abc" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.Header().Set("Content-Type", "text/plain")
			fmt.Fprint(w, "line one\nline two\n")
		}))
		defer server.Close()

		f := NewFetcher(server.Client(),
			WithUserAgent("rgwscan-test"),
			WithHeaders(map[string]string{"Authorization": "Bearer abc"}),
		)
		file, err := f.Fetch(context.Background(), server.URL+"/a.log")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if file.StatusCode != http.StatusOK || file.ContentType != "text/plain" {
			t.Errorf("unexpected response metadata %+v", file)
		}
		if len(file.Hash) != 64 {
			t.Errorf("expected 64 hex chars of SHA3-256, got %q", file.Hash)
		}
		if file.Size != int64(len("line one\nline two\n")) {
			t.Errorf("unexpected size %d", file.Size)
		}
		if lines := file.Lines(); len(lines) != 2 || lines[1] != "line two" {
			t.Errorf("unexpected lines %q", lines)
		}
	})

	t.Run("client errors are not retried", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			http.NotFound(w, r)
		}))
		defer server.Close()

		f := NewFetcher(server.Client(), WithRetries(3), WithBackoff(time.Millisecond), WithFetcherLogger(discardLogger()))
		_, err := f.Fetch(context.Background(), server.URL+"/missing.log")
		if !errors.Is(err, ErrUnexpectedStatus) {
			t.Errorf("expected ErrUnexpectedStatus, got %v", err)
		}
		if calls.Load() != 1 {
			t.Errorf("expected 1 call, got %d", calls.Load())
		}
	})

	t.Run("server errors are retried", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			fmt.Fprint(w, "ok")
		}))
		defer server.Close()

		f := NewFetcher(server.Client(), WithRetries(2), WithBackoff(time.Millisecond), WithFetcherLogger(discardLogger()))
		file, err := f.Fetch(context.Background(), server.URL+"/flaky.log")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(file.Raw) != "ok" {
			t.Errorf("unexpected body %q", file.Raw)
		}
		if calls.Load() != 3 {
			t.Errorf("expected 3 calls, got %d", calls.Load())
		}
	})

	t.Run("gives up after retries", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		f := NewFetcher(server.Client(), WithRetries(1), WithBackoff(time.Millisecond), WithFetcherLogger(discardLogger()))
		if _, err := f.Fetch(context.Background(), server.URL+"/down.log"); err == nil {
			t.Fatal("expected error")
		}
		if calls.Load() != 2 {
			t.Errorf("expected 2 calls, got %d", calls.Load())
		}
	})

	t.Run("truncates oversized bodies", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, strings.Repeat("x", 100))
		}))
		defer server.Close()

		f := NewFetcher(server.Client(), WithMaxBodySize(10), WithFetcherLogger(discardLogger()))
		file, err := f.Fetch(context.Background(), server.URL+"/big.log")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !file.Truncated || len(file.Raw) != 10 {
			t.Errorf("expected 10 truncated bytes, got %d (truncated=%v)", len(file.Raw), file.Truncated)
		}
	})
}

// TestNewHTTPClient tests client construction.
func TestNewHTTPClient(t *testing.T) {
	t.Parallel()

	t.Run("direct client", func(t *testing.T) {
		t.Parallel()

		client, err := NewHTTPClient(5*time.Second, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if client.Timeout != 5*time.Second {
			t.Errorf("expected timeout 5s, got %v", client.Timeout)
		}
	})

	t.Run("SOCKS5 proxy client", func(t *testing.T) {
		t.Parallel()

		client, err := NewHTTPClient(time.Second, "127.0.0.1:1080")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		transport, ok := client.Transport.(*http.Transport)
		if !ok {
			t.Fatal("expected *http.Transport")
		}
		if transport.DialContext == nil {
			t.Error("expected proxy dialer to be installed")
		}
	})

	t.Run("invalid proxy addresses", func(t *testing.T) {
		t.Parallel()

		for _, addr := range []string{"localhost", ":1080", "host:0", "host:70000", "host:abc"} {
			if _, err := NewHTTPClient(time.Second, addr); !errors.Is(err, ErrInvalidProxyAddress) {
				t.Errorf("address %q: expected ErrInvalidProxyAddress, got %v", addr, err)
			}
		}
	})
}
