// Package report renders a RunReport for people and tools.
//
// This package contains writers for different output formats:
//   - SimpleWriter: plain text for terminal display
//   - MarkdownWriter: Markdown with a category pie chart, for CI artifacts
//   - JSONWriter / FullJSONWriter: structured JSON for tool integration
//
// Writers implement the Writer interface, so they can be composed with
// MultiWriter. NewWriter picks one by format name.
package report
