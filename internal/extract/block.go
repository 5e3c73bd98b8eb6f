package extract

import "strings"

// Block is one balanced-brace object captured from a log.
type Block struct {
	// Text is the captured object, from the opening '{' to its matching '}'.
	// Lines inside the object are joined with '\n'.
	Text string

	// StartLine is the index of the line holding the opening brace.
	StartLine int

	// EndLine is the index of the line holding the closing brace.
	EndLine int
}

// ExtractBlock isolates the first top-level object after the marker at
// lines[start]. Scanning begins at lines[start+1] and stops as soon as
// the brace depth returns to zero.
//
// It returns the block, the index where line scanning should resume and
// whether a complete block was found. Without a block:
//   - a following marker line reached before any '{' ends the search and
//     next points at that marker so it is processed in turn;
//   - an object left open at end of input is discarded and next is
//     start+1, so markers swallowed by the open object are still visited.
//
// A '}' seen at depth zero is ignored.
func ExtractBlock(lines []string, start int) (Block, int, bool) {
	var buf strings.Builder
	depth := 0
	startLine := -1

	for j := start + 1; j < len(lines); j++ {
		line := lines[j]
		if depth == 0 && IsMarker(line) {
			return Block{}, j, false
		}

		for _, ch := range line {
			switch {
			case ch == '{':
				if depth == 0 {
					startLine = j
				}
				depth++
				buf.WriteRune(ch)
			case ch == '}' && depth > 0:
				buf.WriteRune(ch)
				depth--
				if depth == 0 {
					return Block{Text: buf.String(), StartLine: startLine, EndLine: j}, j + 1, true
				}
			case depth > 0:
				buf.WriteRune(ch)
			}
		}

		if depth > 0 {
			buf.WriteByte('\n')
		}
	}

	if depth > 0 {
		return Block{}, start + 1, false
	}
	return Block{}, len(lines), false
}
