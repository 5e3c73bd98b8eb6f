// Package extract pulls structured command output out of free-form test logs.
//
// The logs interleave shell command markers, version banners and JSON-like
// dumps printed by radosgw-admin. The engine has three parts:
//
//   - ExtractBlock scans forward from a marker line, tracking brace depth,
//     and isolates the first complete top-level object.
//   - Normalize rewrites Python-style fragments (single quotes, True/False)
//     into JSON text; Decode validates and compacts the result.
//   - Parser walks a log's lines, pairs each marker with its version token
//     and JSON block, and yields model.OutputRecord values.
//
// # Known limitation
//
// Normalize is a blind textual pass. An apostrophe inside a double-quoted
// string value ("it's") becomes a double quote and corrupts the value,
// usually making the block unparseable. Such blocks are skipped like any
// other malformed block.
//
// # Usage
//
//	seen := extract.NewCommandSet()
//	p := extract.NewParser(extract.WithLogger(logger))
//	records, stats := p.Parse(url, lines, seen)
package extract
