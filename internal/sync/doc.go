// Package sync keeps the sentence corpus in the backing store in step with a
// bundle on disk.
//
// # Overview
//
// A bundle is a version descriptor plus one JSON file per category. The
// store holds two slots, A and B, and a pointer naming the live one. A sync
// compares the descriptor against the live slot, writes into the other slot
// and promotes it:
//
//	version.json ──► Compare ──► noop
//	                    │
//	                    ├──► full        (live slot never written)
//	                    └──► incremental (only changed categories)
//	                              │
//	                   loadCategory per category (one store batch each)
//	                              │
//	                   SetMeta (version, updated_at, record, total)
//	                              │
//	                   Promote ──► Notifier {event: slot-switched, to}
//
// # Protocol gate
//
// Descriptors whose protocol_version is outside >=1.0 <1.1 fail with
// ErrUnsupportedProtocol before anything is written.
//
// # Incremental sync
//
// The write target is patched against its own recorded snapshot. New
// categories are loaded, the category list is replaced, and categories whose
// sentence timestamp changed are resynced. Categories removed upstream are
// kept and logged. The sentence total is recounted from the length indexes
// afterwards. A write target with no category list falls back to a full
// sync.
//
// # Length index
//
// Every category has a sorted set keyed by sentence length plus a persisted
// min and max, which support range queries such as "sentences of length 5
// to 20" without scanning records.
//
// # Concurrency
//
// Categories may be loaded in parallel (Config.Concurrency). Each category's
// batch commits before the category counts as done, and metadata is written
// only after every category finished. Run itself must not be called
// concurrently; the daemon package serialises runs.
//
// # Error Handling
//
// Any failure aborts the attempt as one error, with no metadata write and no
// promotion. RunTask logs such failures and returns.
package sync
