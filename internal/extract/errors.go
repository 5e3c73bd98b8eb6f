package extract

import "errors"

var (
	// ErrMissingVersionLine is returned when a marker has no line two
	// positions below it to read the version token from.
	ErrMissingVersionLine = errors.New("version line missing")

	// ErrShortVersionToken is returned when the version line has fewer than
	// six fields or its sixth field has fewer than nine dot-separated segments.
	ErrShortVersionToken = errors.New("version token too short")

	// ErrMalformedBlock is returned when a normalized block is not valid JSON.
	ErrMalformedBlock = errors.New("malformed JSON block")
)
