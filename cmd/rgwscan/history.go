package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/nao1215/rgwscan/internal/config"
	"github.com/nao1215/rgwscan/internal/database"
	"github.com/nao1215/rgwscan/internal/report"
)

// dateLayout formats run timestamps in listings.
const dateLayout = "2006-01-02 15:04:05"

// errRunNotFound is returned when a run ID is not in the history database.
var errRunNotFound = errors.New("run not found")

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show stored scan and parse runs",
		Long: `History reads the runs stored by scan and parse.

Without arguments it lists the most recent runs. With a run ID it prints
that run's summary, its records, or the commands that differ from another run.

Examples:
  # List the last 20 runs
  rgwscan history

  # Show one run as Markdown
  rgwscan history 3f0c6a1e-... -f markdown

  # List the zone records of a run
  rgwscan history 3f0c6a1e-... --records --category zone

  # Commands found in one run but not the other
  rgwscan history 3f0c6a1e-... --compare 91be2d40-...`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().String("db-dir", "", "History database directory (default: XDG data directory)")
	cmd.Flags().IntP("limit", "n", 20, "Number of runs to list (0 lists all)")
	cmd.Flags().StringP("format", "f", config.DefaultReportFormat, "Run summary format: text, markdown or json")
	cmd.Flags().BoolP("records", "r", false, "List the run's records instead of its summary")
	cmd.Flags().String("category", "", "Only list records of this category")
	cmd.Flags().String("compare", "", "Run ID to compare commands against")

	return cmd
}

// historyOptions holds the history command flags.
type historyOptions struct {
	dbDir    string
	limit    int
	format   string
	records  bool
	category string
	compare  string
	verbose  bool
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	opts, err := readHistoryFlags(cmd)
	if err != nil {
		return err
	}

	db, err := database.Open(opts.dbDir, database.Options{EnableWAL: true})
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("no history found in %s (run 'rgwscan scan' first)", opts.dbDir)
		}
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		return listRuns(ctx, out, db, opts.limit)
	}

	runID := args[0]
	switch {
	case opts.compare != "":
		return compareRuns(ctx, out, db, opts.compare, runID)
	case opts.records:
		return listRecords(ctx, out, db, runID, opts.category)
	default:
		return showRun(ctx, out, db, runID, opts)
	}
}

// readHistoryFlags reads and validates the history flags.
func readHistoryFlags(cmd *cobra.Command) (*historyOptions, error) {
	flags := cmd.Flags()
	opts := &historyOptions{verbose: getVerboseFlag(cmd)}
	var err error

	if opts.dbDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}
	if opts.dbDir == "" {
		opts.dbDir = config.XDGDataDir()
	}
	if opts.limit, err = flags.GetInt("limit"); err != nil {
		return nil, err
	}
	if opts.format, err = flags.GetString("format"); err != nil {
		return nil, err
	}
	if opts.records, err = flags.GetBool("records"); err != nil {
		return nil, err
	}
	if opts.category, err = flags.GetString("category"); err != nil {
		return nil, err
	}
	if opts.compare, err = flags.GetString("compare"); err != nil {
		return nil, err
	}
	return opts, nil
}

// listRuns prints the most recent runs.
func listRuns(ctx context.Context, out io.Writer, db *database.RunDB, limit int) error {
	runs, err := db.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs stored yet.")
		return nil
	}

	fmt.Fprintf(out, "Stored runs (%d):\n\n", len(runs))
	fmt.Fprintf(out, "  %-36s  %-19s  %6s  %6s  %7s  %s\n", "ID", "Started", "Logs", "Failed", "Records", "Base URL")
	for _, r := range runs {
		status := ""
		if r.Error != "" {
			status = "  (error)"
		}
		fmt.Fprintf(out, "  %-36s  %-19s  %6d  %6d  %7d  %s%s\n",
			r.ID,
			r.StartedAt.Local().Format(dateLayout),
			r.LogCount,
			r.FailedLogs,
			r.RecordCount,
			r.BaseURL,
			status,
		)
	}
	return nil
}

// showRun prints one run's summary in the requested format.
func showRun(ctx context.Context, out io.Writer, db *database.RunDB, runID string, opts *historyOptions) error {
	run, err := db.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("%w: %s", errRunNotFound, runID)
	}

	w, err := report.NewWriter(opts.format, out, getVersion(), opts.verbose)
	if err != nil {
		return err
	}
	_, err = w.Write(run)
	return err
}

// listRecords prints one line per stored record.
func listRecords(ctx context.Context, out io.Writer, db *database.RunDB, runID, category string) error {
	records, err := db.ListRecords(ctx, runID, category)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		if run, err := db.GetRun(ctx, runID); err == nil && run == nil {
			return fmt.Errorf("%w: %s", errRunNotFound, runID)
		}
		fmt.Fprintln(out, "No records.")
		return nil
	}

	for _, r := range records {
		version := r.CephVersion
		if version == "" {
			version = "-"
		}
		fmt.Fprintf(out, "%-10s  %-12s  %s  (%s:%d)\n", r.Category, version, r.Command, r.Source, r.Line+1)
	}
	return nil
}

// compareRuns prints the commands present in only one of two runs.
func compareRuns(ctx context.Context, out io.Writer, db *database.RunDB, olderID, newerID string) error {
	older, err := commandsOf(ctx, db, olderID)
	if err != nil {
		return err
	}
	newer, err := commandsOf(ctx, db, newerID)
	if err != nil {
		return err
	}

	added := difference(newer, older)
	removed := difference(older, newer)

	fmt.Fprintf(out, "Comparing %s -> %s\n", olderID, newerID)
	fmt.Fprintf(out, "\nNew commands (%d):\n", len(added))
	for _, c := range added {
		fmt.Fprintf(out, "  + %s\n", c)
	}
	fmt.Fprintf(out, "\nMissing commands (%d):\n", len(removed))
	for _, c := range removed {
		fmt.Fprintf(out, "  - %s\n", c)
	}
	fmt.Fprintf(out, "\n%d commands in both runs\n", len(newer)-len(added))
	return nil
}

// commandsOf returns the set of commands recorded for a run.
func commandsOf(ctx context.Context, db *database.RunDB, runID string) (map[string]bool, error) {
	run, err := db.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("%w: %s", errRunNotFound, runID)
	}

	records, err := db.ListRecords(ctx, runID, "")
	if err != nil {
		return nil, err
	}
	commands := make(map[string]bool, len(records))
	for _, r := range records {
		commands[r.Command] = true
	}
	return commands, nil
}

// difference returns the sorted keys of a that are not in b.
func difference(a, b map[string]bool) []string {
	result := make([]string, 0)
	for c := range a {
		if !b[c] {
			result = append(result, c)
		}
	}
	sort.Strings(result)
	return result
}
