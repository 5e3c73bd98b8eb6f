// Package database provides SQLite-based run history for rgwscan.
//
// RunDB stores:
//   - One row per crawl run with its counters and the full report as JSON
//   - The log files each run processed, with their content hash
//   - Every extracted record, indexed by run and category
//
// The database lives in a single file (rgwscan.db) under the XDG data
// directory by default. It uses modernc.org/sqlite, so no cgo toolchain is
// needed to build the binary.
package database
