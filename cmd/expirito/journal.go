package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"expirito-hq/expirito/pkg/cli"
	"expirito-hq/expirito/pkg/journal"
	"expirito-hq/expirito/pkg/retention"
	"expirito-hq/expirito/pkg/telemetry/logging"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var journalFlags struct {
	runID  string
	phase  string
	kind   string
	source string
	failed bool
	since  time.Duration
	limit  int
	offset int
	format string

	runsLimit int
}

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect the action journal",
	Long: `Inspect the journal of past runs.

When journal.enabled is set, every run and every action it took (or, under
--dry-run, would have taken) is recorded in a SQLite database. The journal
is an audit trail only; retention decisions never consult it.

Subcommands:
  list  - List journaled actions with filters
  runs  - List recent runs`,
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List journaled actions",
	Long: `List journaled actions, newest first.

Examples:
  # Everything from one run
  expirito journal list --run 5f0c2f8e-8a35-4b8e-a1a4-0d6f3c1f6b8e

  # Failures in the last week
  expirito journal list --failed --since 168h

  # Deletions from holding under a path, as CSV
  expirito journal list --kind deleted --source /srv/hold/data --format csv`,
	Args: cobra.NoArgs,
	RunE: listJournal,
}

var journalRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent runs",
	Args:  cobra.NoArgs,
	RunE:  listRuns,
}

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalListCmd)
	journalCmd.AddCommand(journalRunsCmd)

	journalListCmd.Flags().StringVar(&journalFlags.runID, "run", "", "filter by run ID")
	journalListCmd.Flags().StringVar(&journalFlags.phase, "phase", "", "filter by phase (move, expire)")
	journalListCmd.Flags().StringVar(&journalFlags.kind, "kind", "", "filter by action kind (moved, deleted)")
	journalListCmd.Flags().StringVar(&journalFlags.source, "source", "", "filter by source path prefix")
	journalListCmd.Flags().BoolVar(&journalFlags.failed, "failed", false, "only failed actions")
	journalListCmd.Flags().DurationVar(&journalFlags.since, "since", 0, "only actions newer than this (e.g. 24h)")
	journalListCmd.Flags().IntVar(&journalFlags.limit, "limit", journal.DefaultQueryLimit, "max results")
	journalListCmd.Flags().IntVar(&journalFlags.offset, "offset", 0, "pagination offset")
	journalListCmd.Flags().StringVar(&journalFlags.format, "format", "text", "output format: text, json, csv")

	journalRunsCmd.Flags().IntVar(&journalFlags.runsLimit, "limit", 20, "max results")
	journalRunsCmd.Flags().StringVar(&journalFlags.format, "format", "text", "output format: text, json, csv")
}

// openExistingJournal opens the configured journal for reading. Unlike a
// run, it never creates the database.
func openExistingJournal() (*journal.SQLiteJournal, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Journal.Path == "" {
		return nil, cli.NewConfigError("journal.path", "no journal path configured")
	}
	if _, err := os.Stat(cfg.Journal.Path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, cli.NewCommandError("journal", fmt.Errorf("no journal at %s (is journal.enabled set?)", cfg.Journal.Path))
		}
		return nil, cli.NewCommandError("journal", err)
	}

	j, err := openJournal(cfg, logging.Discard())
	if err != nil {
		return nil, cli.NewCommandError("journal", err)
	}
	return j, nil
}

func buildJournalQuery() (journal.Query, error) {
	q := journal.Query{
		RunID:      journalFlags.runID,
		Source:     journalFlags.source,
		FailedOnly: journalFlags.failed,
		Limit:      journalFlags.limit,
		Offset:     journalFlags.offset,
	}

	switch retention.Phase(journalFlags.phase) {
	case "":
	case retention.PhaseMove, retention.PhaseExpire:
		q.Phase = retention.Phase(journalFlags.phase)
	default:
		return q, fmt.Errorf("invalid phase %q (valid: move, expire)", journalFlags.phase)
	}

	switch retention.ActionKind(journalFlags.kind) {
	case "":
	case retention.ActionMoved, retention.ActionDeleted:
		q.Kind = retention.ActionKind(journalFlags.kind)
	default:
		return q, fmt.Errorf("invalid kind %q (valid: moved, deleted)", journalFlags.kind)
	}

	if journalFlags.since < 0 {
		return q, fmt.Errorf("--since must be positive")
	}
	if journalFlags.since > 0 {
		since := runClock.Now().Add(-journalFlags.since)
		q.Since = &since
	}
	if q.Limit < 0 || q.Offset < 0 {
		return q, fmt.Errorf("--limit and --offset must not be negative")
	}

	return q, nil
}

func listJournal(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(journalFlags.format)
	if err != nil {
		return err
	}
	q, err := buildJournalQuery()
	if err != nil {
		return err
	}

	j, err := openExistingJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	entries, err := j.List(commandContext(cmd), q)
	if err != nil {
		return cli.NewCommandError("journal list", err)
	}

	return cli.NewFormatter(format).FormatTo(commandOutput(cmd), newEntryList(entries))
}

func listRuns(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(journalFlags.format)
	if err != nil {
		return err
	}

	j, err := openExistingJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	runs, err := j.Runs(commandContext(cmd), journalFlags.runsLimit)
	if err != nil {
		return cli.NewCommandError("journal runs", err)
	}

	return cli.NewFormatter(format).FormatTo(commandOutput(cmd), newRunList(runs))
}

func commandContext(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}

// entryView is the JSON shape of a journal entry.
type entryView struct {
	ID          int64     `json:"id"`
	RunID       string    `json:"run_id"`
	Phase       string    `json:"phase"`
	Kind        string    `json:"kind"`
	Source      string    `json:"source"`
	Destination string    `json:"destination,omitempty"`
	DryRun      bool      `json:"dry_run"`
	At          time.Time `json:"at"`
	Error       string    `json:"error,omitempty"`
	Reason      string    `json:"reason,omitempty"`
}

type entryList struct {
	Total   int         `json:"total"`
	Entries []entryView `json:"entries"`
}

func newEntryList(entries []journal.Entry) entryList {
	l := entryList{Total: len(entries), Entries: make([]entryView, 0, len(entries))}
	for _, e := range entries {
		l.Entries = append(l.Entries, entryView{
			ID:          e.ID,
			RunID:       e.RunID,
			Phase:       string(e.Phase),
			Kind:        string(e.Kind),
			Source:      e.Source,
			Destination: e.Destination,
			DryRun:      e.DryRun,
			At:          e.At,
			Error:       e.Error,
			Reason:      e.Reason,
		})
	}
	return l
}

func (l entryList) String() string {
	if l.Total == 0 {
		return "No journaled actions found."
	}

	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tPHASE\tACTION\tSTATUS")
	for _, e := range l.Entries {
		status := "ok"
		if e.Error != "" {
			status = "failed (" + e.Reason + ")"
		}
		if e.DryRun {
			status += ", dry run"
		}
		action := "Deleted " + e.Source
		if e.Kind == string(retention.ActionMoved) {
			action = fmt.Sprintf("Moved %s to %s", e.Source, e.Destination)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", humanize.Time(e.At), e.Phase, action, status)
	}
	tw.Flush()

	fmt.Fprintf(&b, "\n%d actions", l.Total)
	return b.String()
}

// Header implements cli.Table.
func (l entryList) Header() []string {
	return []string{"id", "run_id", "at", "phase", "kind", "source", "destination", "dry_run", "error", "reason"}
}

// Rows implements cli.Table.
func (l entryList) Rows() [][]string {
	rows := make([][]string, 0, len(l.Entries))
	for _, e := range l.Entries {
		rows = append(rows, []string{
			strconv.FormatInt(e.ID, 10),
			e.RunID,
			e.At.Format(time.RFC3339Nano),
			e.Phase,
			e.Kind,
			e.Source,
			e.Destination,
			strconv.FormatBool(e.DryRun),
			e.Error,
			e.Reason,
		})
	}
	return rows
}

// runView is the JSON shape of a journaled run.
type runView struct {
	ID         string     `json:"id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	DryRun     bool       `json:"dry_run"`
	ConfigPath string     `json:"config_path,omitempty"`
	Actions    int        `json:"actions"`
	Failures   int        `json:"failures"`
}

type runList struct {
	Runs []runView `json:"runs"`
}

func newRunList(runs []journal.Run) runList {
	l := runList{Runs: make([]runView, 0, len(runs))}
	for _, r := range runs {
		l.Runs = append(l.Runs, runView(r))
	}
	return l
}

func (l runList) String() string {
	if len(l.Runs) == 0 {
		return "No runs found."
	}

	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tDURATION\tACTIONS\tFAILURES\tMODE")
	for _, r := range l.Runs {
		duration := "unfinished"
		if r.FinishedAt != nil {
			duration = r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
		}
		mode := "live"
		if r.DryRun {
			mode = "dry run"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID,
			humanize.Time(r.StartedAt),
			duration,
			humanize.Comma(int64(r.Actions)),
			humanize.Comma(int64(r.Failures)),
			mode,
		)
	}
	tw.Flush()

	return strings.TrimRight(b.String(), "\n")
}

// Header implements cli.Table.
func (l runList) Header() []string {
	return []string{"id", "started_at", "finished_at", "dry_run", "config_path", "actions", "failures"}
}

// Rows implements cli.Table.
func (l runList) Rows() [][]string {
	rows := make([][]string, 0, len(l.Runs))
	for _, r := range l.Runs {
		finished := ""
		if r.FinishedAt != nil {
			finished = r.FinishedAt.Format(time.RFC3339Nano)
		}
		rows = append(rows, []string{
			r.ID,
			r.StartedAt.Format(time.RFC3339Nano),
			finished,
			strconv.FormatBool(r.DryRun),
			r.ConfigPath,
			strconv.Itoa(r.Actions),
			strconv.Itoa(r.Failures),
		})
	}
	return rows
}
