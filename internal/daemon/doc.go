// Package daemon keeps a sentence corpus up to date by running syncs on a
// schedule.
//
// # Overview
//
// The sync engine requires that runs never overlap: two concurrent runs
// would both write into the same inactive slot. The daemon is the single
// place that starts runs, and it starts them one at a time:
//
//	fsnotify (bundle dir) ──► change queue ──(debounce)──┐
//	ticker (Config.Interval) ─────────────────────────────┼──► schedule loop ──► Runner.Run
//	Trigger() / startup ──────────────────────────────────┘        (serialised)
//
// RunOnce is available to callers that want a synchronous run; it takes the
// same lock as the schedule loop.
//
// # Usage
//
//	syncer := sync.New(bundle.New(root), slots, sync.DefaultConfig())
//	d, err := daemon.New(syncer, root, daemon.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	d.SetObserver(dashboardServer)
//	return d.Start(ctx) // blocks until ctx is cancelled
//
// # Debouncing
//
// A bundle update rewrites many files. Changes are queued by path and a sync
// is triggered only after no file has changed for Config.Debounce, so one
// update produces one sync.
//
// # Error Handling
//
// Failed runs are logged and reported to the Observer. The daemon keeps
// running; the next tick or file change retries. An unchanged bundle makes
// the retry a no-op once it succeeds.
package daemon
