package config

// SiteConfig holds settings for one lab host.
type SiteConfig struct {
	// Headers are custom HTTP headers sent to this host (e.g. Authorization).
	Headers map[string]string `yaml:"headers,omitempty"`

	// Depth overrides the crawl depth for this host. Zero keeps the global value.
	Depth int `yaml:"depth,omitempty"`

	// IgnorePatterns are URL path globs to skip during crawling.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns are URL path globs a log must match to be downloaded.
	// If empty, every .log link is downloaded.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`
}

// File represents the structure of the .rgwscan configuration file.
type File struct {
	// BaseURL replaces the default base URL.
	BaseURL string `yaml:"baseURL,omitempty"`

	// OutputDir replaces the default output directory.
	OutputDir string `yaml:"outputDir,omitempty"`

	// Concurrency replaces the default download concurrency.
	Concurrency int `yaml:"concurrency,omitempty"`

	// Sites maps host names (with port, if any) to host-specific settings.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults applies to every host unless overridden in Sites.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the settings for host, merged over the defaults.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults

	// Copy so that merging never mutates Defaults.Headers.
	if len(cf.Defaults.Headers) > 0 {
		result.Headers = make(map[string]string, len(cf.Defaults.Headers))
		for k, v := range cf.Defaults.Headers {
			result.Headers[k] = v
		}
	}

	siteConfig, ok := cf.Sites[host]
	if !ok {
		return result
	}

	if siteConfig.Depth != 0 {
		result.Depth = siteConfig.Depth
	}
	if len(siteConfig.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string)
		}
		for k, v := range siteConfig.Headers {
			result.Headers[k] = v
		}
	}
	if len(siteConfig.IgnorePatterns) > 0 {
		result.IgnorePatterns = siteConfig.IgnorePatterns
	}
	if len(siteConfig.FollowPatterns) > 0 {
		result.FollowPatterns = siteConfig.FollowPatterns
	}

	return result
}
