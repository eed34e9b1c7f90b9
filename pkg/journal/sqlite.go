package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"expirito-hq/expirito/pkg/retention"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteConfig contains configuration for the SQLite journal.
type SQLiteConfig struct {
	// Path is the database file. Parent directories are created.
	Path string

	// WALMode enables Write-Ahead Logging mode.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration

	// Logger receives write failures. Default: slog.Default()
	Logger *slog.Logger
}

// DefaultSQLiteConfig returns the default SQLite configuration for path.
func DefaultSQLiteConfig(path string) *SQLiteConfig {
	return &SQLiteConfig{
		Path:        path,
		WALMode:     true,
		BusyTimeout: 5 * time.Second,
	}
}

// SQLiteJournal records runs and actions in a SQLite database. It implements
// retention.Sink; a failed write is logged and remembered (see Err) rather
// than interrupting the run.
type SQLiteJournal struct {
	db         *sql.DB
	config     *SQLiteConfig
	insertStmt *sql.Stmt
	logger     *slog.Logger

	mu  sync.Mutex
	err error
}

// NewSQLiteJournal opens (creating if needed) the journal database.
func NewSQLiteJournal(config *SQLiteConfig) (*SQLiteJournal, error) {
	if config == nil || config.Path == "" {
		return nil, NewStorageError("open", fmt.Errorf("db path cannot be empty"))
	}
	if config.BusyTimeout == 0 {
		config.BusyTimeout = 5 * time.Second
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "journal.sqlite")

	if err := os.MkdirAll(filepath.Dir(config.Path), 0o755); err != nil {
		return nil, NewStorageError("open", err)
	}

	db, err := sql.Open("sqlite", config.Path)
	if err != nil {
		return nil, NewStorageError("open", err)
	}

	// SQLite only supports a single writer; pragmas are per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	j := &SQLiteJournal{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := j.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("journal opened", "path", config.Path, "wal_mode", config.WALMode)

	return j, nil
}

// initialize sets pragmas, creates the schema and prepares statements.
func (j *SQLiteJournal) initialize() error {
	// Set busy timeout first so the remaining statements wait on a locked file
	busyTimeoutMs := j.config.BusyTimeout.Milliseconds()
	if _, err := j.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return NewStorageError("set_busy_timeout", err)
	}

	if j.config.WALMode {
		if _, err := j.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return NewStorageError("enable_wal", err)
		}
	}

	if _, err := j.db.Exec(Schema); err != nil {
		return NewStorageError("create_schema", err)
	}

	if _, err := j.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return NewStorageError("insert_schema_version", err)
	}

	var version int
	err := j.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return NewStorageError("get_schema_version", err)
	}
	if version != SchemaVersion {
		return NewStorageError("schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	j.insertStmt, err = j.db.Prepare(`
		INSERT INTO actions (run_id, phase, kind, source, destination, dry_run, at, error, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return NewStorageError("prepare", err)
	}

	return nil
}

// BeginRun records the start of a run.
func (j *SQLiteJournal) BeginRun(ctx context.Context, run Run) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, dry_run, config_path)
		VALUES (?, ?, ?, ?)
	`, run.ID, run.StartedAt.UnixNano(), run.DryRun, run.ConfigPath)
	if err != nil {
		return NewStorageError("begin_run", err)
	}
	return nil
}

// FinishRun records the completion of a run and its totals.
func (j *SQLiteJournal) FinishRun(ctx context.Context, runID string, finishedAt time.Time, actions, failures int) error {
	res, err := j.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ?, actions = ?, failures = ? WHERE id = ?
	`, finishedAt.UnixNano(), actions, failures, runID)
	if err != nil {
		return NewStorageError("finish_run", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return NewStorageError("finish_run", fmt.Errorf("unknown run %q", runID))
	}
	return nil
}

// Record implements retention.Sink.
func (j *SQLiteJournal) Record(action retention.Action) {
	var errMsg, reason sql.NullString
	if action.Err != nil {
		errMsg = sql.NullString{String: action.Err.Error(), Valid: true}
		reason = sql.NullString{String: retention.FailureReason(action.Err), Valid: true}
	}
	var dest sql.NullString
	if action.Destination != "" {
		dest = sql.NullString{String: action.Destination, Valid: true}
	}

	_, err := j.insertStmt.Exec(
		action.RunID,
		string(action.Phase),
		string(action.Kind),
		action.Source,
		dest,
		action.DryRun,
		action.At.UnixNano(),
		errMsg,
		reason,
	)
	if err != nil {
		j.logger.Error("failed to journal action",
			"source", action.Source,
			"error", err,
		)
		j.mu.Lock()
		if j.err == nil {
			j.err = NewStorageError("record", err)
		}
		j.mu.Unlock()
	}
}

// Err returns the first error Record ran into, if any.
func (j *SQLiteJournal) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// List returns journaled actions matching q, newest first.
func (j *SQLiteJournal) List(ctx context.Context, q Query) ([]Entry, error) {
	where, args := buildWhereClause(q)

	sqlQuery := `SELECT id, run_id, phase, kind, source, destination, dry_run, at, error, reason FROM actions`
	if where != "" {
		sqlQuery += " WHERE " + where
	}
	sqlQuery += " ORDER BY at DESC, id DESC"

	limit := DefaultQueryLimit
	if q.Limit > 0 {
		limit = q.Limit
	}
	sqlQuery += fmt.Sprintf(" LIMIT %d", limit)
	if q.Offset > 0 {
		sqlQuery += fmt.Sprintf(" OFFSET %d", q.Offset)
	}

	rows, err := j.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, NewStorageError("list", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e                 Entry
			phase, kind       string
			dest, errMsg, rsn sql.NullString
			at                int64
		)
		if err := rows.Scan(&e.ID, &e.RunID, &phase, &kind, &e.Source, &dest, &e.DryRun, &at, &errMsg, &rsn); err != nil {
			return nil, NewStorageError("scan", err)
		}
		e.Phase = retention.Phase(phase)
		e.Kind = retention.ActionKind(kind)
		e.Destination = dest.String
		e.At = time.Unix(0, at)
		e.Error = errMsg.String
		e.Reason = rsn.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError("list", err)
	}

	return entries, nil
}

// Runs returns the most recent runs, newest first.
func (j *SQLiteJournal) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultQueryLimit
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, dry_run, config_path, actions, failures
		FROM runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, NewStorageError("runs", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var (
			r          Run
			started    int64
			finished   sql.NullInt64
			configPath sql.NullString
		)
		if err := rows.Scan(&r.ID, &started, &finished, &r.DryRun, &configPath, &r.Actions, &r.Failures); err != nil {
			return nil, NewStorageError("scan", err)
		}
		r.StartedAt = time.Unix(0, started)
		if finished.Valid {
			t := time.Unix(0, finished.Int64)
			r.FinishedAt = &t
		}
		r.ConfigPath = configPath.String
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError("runs", err)
	}

	return runs, nil
}

// Close releases the database.
func (j *SQLiteJournal) Close() error {
	if j.insertStmt != nil {
		j.insertStmt.Close()
	}
	if err := j.db.Close(); err != nil {
		return NewStorageError("close", err)
	}
	return nil
}

// buildWhereClause builds a SQL WHERE clause from query filters.
// Returns the WHERE clause (without "WHERE" keyword) and the query arguments.
func buildWhereClause(q Query) (string, []any) {
	var conditions []string
	var args []any

	if q.RunID != "" {
		conditions = append(conditions, "run_id = ?")
		args = append(args, q.RunID)
	}
	if q.Phase != "" {
		conditions = append(conditions, "phase = ?")
		args = append(args, string(q.Phase))
	}
	if q.Kind != "" {
		conditions = append(conditions, "kind = ?")
		args = append(args, string(q.Kind))
	}
	if q.Source != "" {
		conditions = append(conditions, `source LIKE ? ESCAPE '\'`)
		args = append(args, likePrefix(q.Source))
	}
	if q.FailedOnly {
		conditions = append(conditions, "error IS NOT NULL")
	}
	if q.Since != nil {
		conditions = append(conditions, "at >= ?")
		args = append(args, q.Since.UnixNano())
	}

	return strings.Join(conditions, " AND "), args
}

// likePrefix escapes LIKE wildcards in prefix and appends a trailing %.
func likePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}
