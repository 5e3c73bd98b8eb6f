package model

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"
)

// LogFile is a downloaded log artifact.
// The raw body is kept only long enough to split it into lines for the
// extraction engine; callers drop the LogFile once parsing finishes.
type LogFile struct {
	// URL is the absolute URL the log was downloaded from.
	URL string `json:"url"`

	// StatusCode is the HTTP response status code.
	StatusCode int `json:"status_code"`

	// ContentType is the MIME type reported by the server.
	ContentType string `json:"content_type,omitempty"`

	// Size is the number of body bytes read.
	Size int64 `json:"size"`

	// Hash is the hex encoded SHA3-256 digest of Raw.
	// It lets the run history tell whether a log changed between runs.
	Hash string `json:"hash"`

	// Truncated is true when the body hit the configured size limit.
	Truncated bool `json:"truncated,omitempty"`

	// Raw is the response body.
	Raw []byte `json:"-"`
}

// ComputeHash fills Hash and Size from Raw.
func (l *LogFile) ComputeHash() {
	sum := sha3.Sum256(l.Raw)
	l.Hash = hex.EncodeToString(sum[:])
	l.Size = int64(len(l.Raw))
}

// Lines splits the body into lines.
// Line terminators are removed; a trailing carriage return is stripped so
// CRLF logs behave like LF logs.
func (l *LogFile) Lines() []string {
	return SplitLines(string(l.Raw))
}

// SplitLines splits text into lines without their terminators.
// A final empty segment after a trailing newline is dropped.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
