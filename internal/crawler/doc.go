// Package crawler discovers and downloads test logs from web directory listings.
//
// # Architecture
//
// The Discoverer walks an HTML directory listing (the kind Apache or nginx
// autoindex produces). It collects links ending in ".log" and descends one
// level into links ending in "/". The result is an explicit model.Listing
// rather than shared crawl state.
//
// The Fetcher performs every HTTP GET. It applies the configured User-Agent
// and headers, caps the body size, and retries transient failures (network
// errors, 429 and 5xx responses) with exponential backoff.
//
// # Components
//
//   - Discoverer: one-level directory crawl producing a Listing
//   - Parser: HTML anchor extraction and log/directory classification
//   - Fetcher: downloads with timeout, size limit and bounded retry
//   - NewHTTPClient: HTTP client factory with optional SOCKS5 proxy
//
// # Usage
//
//	client, err := crawler.NewHTTPClient(30*time.Second, "")
//	fetcher := crawler.NewFetcher(client, crawler.WithRetries(2))
//	listing, err := crawler.NewDiscoverer(fetcher).Discover(ctx, baseURL)
//	for _, u := range listing.LogURLs() {
//		log, err := fetcher.Fetch(ctx, u)
//		...
//	}
package crawler
