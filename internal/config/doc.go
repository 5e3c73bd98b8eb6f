// Package config provides configuration structures and utilities for rgwscan.
// It defines the crawl, extraction, output and history settings, and loads
// the optional .rgwscan YAML file with per-host overrides.
package config
