package model

// Listing is the result of crawling a base directory.
// It replaces shared mutable crawl state with an explicit return value:
// the base directory comes first, followed by each subdirectory in the
// order its link appeared.
type Listing struct {
	// BaseURL is the directory the crawl started from.
	BaseURL string `json:"base_url"`

	// Directories holds every directory that was fetched.
	Directories []Directory `json:"directories"`
}

// Directory is one fetched directory listing page.
type Directory struct {
	// URL is the absolute URL of the directory.
	URL string `json:"url"`

	// Depth is 0 for the base directory and 1 for its subdirectories.
	Depth int `json:"depth"`

	// Logs holds the absolute .log URLs found in this directory,
	// deduplicated and in document order.
	Logs []string `json:"logs"`

	// Error is set when the directory could not be fetched or parsed.
	// Its subtree is skipped; the crawl continues.
	Error string `json:"error,omitempty"`
}

// LogURLs flattens the listing into the processing order:
// directory by directory, logs in document order.
func (l *Listing) LogURLs() []string {
	if l == nil {
		return nil
	}
	urls := make([]string, 0)
	for _, d := range l.Directories {
		urls = append(urls, d.Logs...)
	}
	return urls
}

// FailedDirectories returns the directories whose fetch failed.
func (l *Listing) FailedDirectories() []Directory {
	if l == nil {
		return nil
	}
	failed := make([]Directory, 0)
	for _, d := range l.Directories {
		if d.Error != "" {
			failed = append(failed, d)
		}
	}
	return failed
}
