package sink

import "errors"

var (
	// ErrNoCategory is returned by Append for a command without a subcommand word.
	ErrNoCategory = errors.New("command has no subcommand category")

	// ErrCorruptFile is returned by Flush when an existing category file cannot be merged.
	ErrCorruptFile = errors.New("existing category file is not valid")
)
