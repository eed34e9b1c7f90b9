// Package journal keeps a durable audit trail of retention runs.
//
// The journal is write-mostly: the engine never reads it back, so it is
// not an index of what lives in holding. The holding tree itself remains
// the only state that drives retention decisions.
//
// Each run gets a row in the runs table and every action the engine reports
// (executed, failed, or planned under dry run) gets a row in the actions
// table, keyed by the run ID.
//
// # Usage
//
//	j, err := journal.NewSQLiteJournal(journal.DefaultSQLiteConfig(cfg.Journal.Path))
//	if err != nil {
//	    return err
//	}
//	defer j.Close()
//
//	j.BeginRun(ctx, journal.Run{ID: runID, StartedAt: now})
//	actions, err := retention.NewEngine(j, retention.WithRunID(runID)).RunAll(ctx, rc, now, false)
//	j.FinishRun(ctx, runID, time.Now(), len(actions), failures)
//
//	entries, err := j.List(ctx, journal.Query{RunID: runID, FailedOnly: true})
package journal
