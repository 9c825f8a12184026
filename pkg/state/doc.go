// Package state persists the archiver's incremental position between
// runs: the newest saved media id, the last run time, and the full set
// of processed ids. Saves are atomic (temp file + fsync + rename) so a
// crash mid-write never leaves a truncated file behind.
package state
