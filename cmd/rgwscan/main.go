// Package main provides the entry point for the rgwscan CLI.
//
// rgwscan crawls cephci test result directories, finds every
// "Execute cephadm shell -- radosgw-admin" command in the test logs and
// collects the JSON each command printed into one file per subcommand
// (realm_outputs.json, zone_outputs.json, ...).
//
// Usage:
//
//	rgwscan scan [--base-url URL]
//	rgwscan parse <log-file>...
//	rgwscan history [run-id]
//
// See --help for all available options.
package main

func main() {
	Execute()
}
