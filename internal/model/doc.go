// Package model defines the data passed between rgwscan's packages.
//
//   - LogFile: a downloaded (or locally read) test log
//   - OutputRecord: one radosgw-admin command with its JSON output and the
//     Ceph version under test
//   - Listing and Directory: what the crawler found below the base URL
//   - RunReport, LogResult and ExtractStats: the outcome of one run, filled
//     in by the pipeline steps and stored in the history database
//
// Keeping these types here lets crawler, extract, sink, pipeline, report
// and database share them without import cycles. Every type serializes to
// JSON for reports and the run history.
package model
