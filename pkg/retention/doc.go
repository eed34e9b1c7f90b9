// Package retention implements the file-retention engine.
//
// # Retention Policy
//
// Every watched directory has an age limit in days. Each direct child of a
// watched directory is classified once per run:
//
//   - Files are eligible when their modification time is older than the limit.
//   - Directories are eligible when the directory and every descendant are
//     older than the limit. A single fresh descendant protects the whole tree.
//   - Symlinks are evaluated by their own modification time. A dangling link
//     (target missing or looping) in a watched directory is always eligible.
//     In holding, links are aged like everything else. Link targets are
//     never followed.
//   - Anything else (sockets, devices, fifos) is skipped.
//
// Eligible entries are moved into a holding area that mirrors their absolute
// path, or deleted when no holding area is configured:
//
//	/data/a/old.txt  ->  /hold/data/a/old.txt
//
// # Two Phases
//
// The Engine runs two passes per watched directory:
//
//  1. Move phase: the watched directory, with holding enabled.
//  2. Expire phase: the directory's mirror inside holding, with holding
//     disabled and the holding age limit. Only runs if the mirror exists.
//
// Relocated entries are stamped with the run time so that the expire clock
// starts when an entry enters holding.
//
// # Basic Usage
//
//	collector := &retention.Collector{}
//	engine := retention.NewEngine(collector)
//
//	actions, err := engine.RunAll(ctx, retention.Config{
//	    HoldingRoot:     "/hold",
//	    HoldingAgeLimit: 90,
//	    Watched: []retention.WatchedDirectory{
//	        {Path: "/data/a", AgeLimit: 5},
//	    },
//	}, time.Now(), false)
//
// # Dry Run
//
// With dryRun set, the engine computes and reports exactly the actions a real
// run would take and leaves the filesystem untouched.
//
// # Failures
//
// A failed move or delete is reported as an Action with Err set and the pass
// continues with the next entry. Nothing is retried; the next invocation picks
// the entry up again.
package retention
