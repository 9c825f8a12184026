// Package archive turns feed items into a local directory tree.
//
// The Archiver handles one item: it creates
// <base>/<YYYY-MM-DD>/<item-id>/, writes meta.json and caption.txt,
// downloads the primary asset as media_01, and expands composites into
// child_NN files ordered by (timestamp, id). The Walker drives the
// whole run: it pages through the feed newest-first, skips everything
// already recorded in the state file, optionally stops at the item a
// previous run saved, and persists updated state exactly once at the
// end.
//
// Everything is strictly sequential. One page is in flight at a time
// and one item's downloads finish before the next item starts; the
// archive's idempotency comes from on-disk existence checks, not
// locking.
//
// Failure handling follows a simple rule: losing one asset costs that
// asset, losing the filesystem or the feed costs the run. Download
// failures are logged and absorbed; directory, metadata and state
// write failures, and fetch errors that survived their retries,
// propagate and abort the walk with the previous state file intact.
package archive
