package extract

import (
	"fmt"
	"strings"

	"github.com/nao1215/rgwscan/internal/model"
)

// TriggerPhrase marks a line that launches a radosgw-admin command.
// Matching is exact and case-sensitive.
const TriggerPhrase = "Execute cephadm shell -- radosgw-admin"

// Version token layout: the sixth whitespace field of the line two below
// the marker, segments 7 to 9 (1-indexed) of its dot split.
const (
	versionLineOffset = 2
	versionFieldIndex = 5
	versionSegStart   = 6
	versionSegEnd     = 9
)

// IsMarker reports whether line contains the trigger phrase.
func IsMarker(line string) bool {
	return strings.Contains(line, TriggerPhrase)
}

// ExtractCommand returns the command on a marker line, starting at the
// first occurrence of the program name with the line terminator removed.
func ExtractCommand(line string) (string, bool) {
	idx := strings.Index(line, model.CommandProgram)
	if idx < 0 {
		return "", false
	}
	return strings.TrimRight(line[idx:], "\r\n"), true
}

// ExtractVersion reads the version token from a version line.
func ExtractVersion(line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) <= versionFieldIndex {
		return "", fmt.Errorf("%w: line has %d fields, need %d", ErrShortVersionToken, len(fields), versionFieldIndex+1)
	}

	segments := strings.Split(fields[versionFieldIndex], ".")
	if len(segments) < versionSegEnd {
		return "", fmt.Errorf("%w: %q has %d segments, need %d",
			ErrShortVersionToken, fields[versionFieldIndex], len(segments), versionSegEnd)
	}
	return strings.Join(segments[versionSegStart:versionSegEnd], "."), nil
}

// versionAt reads the version token for the marker at lines[i].
func versionAt(lines []string, i int) (string, error) {
	j := i + versionLineOffset
	if j >= len(lines) {
		return "", fmt.Errorf("%w: marker at line %d, log has %d lines", ErrMissingVersionLine, i, len(lines))
	}
	return ExtractVersion(lines[j])
}
