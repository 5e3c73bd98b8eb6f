// Package pipeline runs a crawl as a sequence of steps over a RunReport.
//
// The default pipeline is:
//
//	discover -> extract -> flush -> persist
//
// discover walks the directory listing (or, for offline parsing, takes a
// fixed list of files), extract downloads every log and feeds it through the
// extraction engine, flush writes the category files, and persist stores the
// run in the history database. flush and persist are deferred steps: they run
// even when an earlier step fails or the run is cancelled, so records already
// extracted are not lost.
//
// Downloads run concurrently through BatchProcessor, but results are handed
// to the parser strictly in discovery order. The command set that suppresses
// duplicate commands is therefore consulted in the same order a sequential
// crawl would use, and the output is deterministic for a given listing.
package pipeline
