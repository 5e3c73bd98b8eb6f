package model

import (
	"encoding/json"
	"regexp"
)

// CommandProgram is the program name every extracted command starts with.
const CommandProgram = "radosgw-admin"

// categoryRegex captures the subcommand that follows the program name.
var categoryRegex = regexp.MustCompile(`radosgw-admin (\w+)`)

// OutputRecord is one command invocation paired with its parsed JSON output.
// It is the unit handed to the persistence sink.
type OutputRecord struct {
	// Command is the command text starting at the program name,
	// e.g. "radosgw-admin realm list".
	Command string `json:"command"`

	// Output is the command's JSON output, validated and compacted.
	// RawMessage keeps the key order the tool printed.
	Output json.RawMessage `json:"output"`

	// CephVersion is the version token read two lines below the marker.
	// Empty when the record was emitted in lenient mode without a version.
	CephVersion string `json:"ceph_version,omitempty"`

	// Source is the URL or path of the log the record came from.
	Source string `json:"source,omitempty"`

	// Line is the zero-based index of the marker line in the source log.
	Line int `json:"line"`
}

// Category returns the subcommand name used to group persisted records
// ("realm" for "radosgw-admin realm list"). The second return value is
// false when the command has no word-like subcommand, e.g. "radosgw-admin --help".
func (r OutputRecord) Category() (string, bool) {
	return CommandCategory(r.Command)
}

// CommandCategory extracts the category of a command string.
func CommandCategory(command string) (string, bool) {
	m := categoryRegex.FindStringSubmatch(command)
	if m == nil {
		return "", false
	}
	return m[1], true
}
