package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	trueToken  = regexp.MustCompile(`\bTrue\b`)
	falseToken = regexp.MustCompile(`\bFalse\b`)
)

// Normalize converts a Python-repr style fragment into JSON text.
// Every single quote becomes a double quote, standalone True and False
// become true and false, and surrounding whitespace is trimmed.
//
// The pass does not track string boundaries; see the package documentation
// for the apostrophe limitation. Applying Normalize twice yields the same
// text as applying it once.
func Normalize(raw string) string {
	s := strings.ReplaceAll(raw, "'", `"`)
	s = trueToken.ReplaceAllString(s, "true")
	s = falseToken.ReplaceAllString(s, "false")
	return strings.TrimSpace(s)
}

// Decode normalizes raw and parses it as JSON.
// The returned value is compacted JSON text preserving the original key order.
// Errors wrap ErrMalformedBlock.
func Decode(raw string) (json.RawMessage, error) {
	text := Normalize(raw)
	if text == "" {
		return nil, fmt.Errorf("%w: empty block", ErrMalformedBlock)
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(text)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedBlock, err)
	}
	return json.RawMessage(buf.Bytes()), nil
}
