// Package download streams remote media assets to disk.
//
// An existing non-empty destination is never re-fetched. Bytes stream
// to a .part sibling that is renamed into place only once complete, so
// a crash never leaves a half-written asset under its final name. A
// failed download is retried whole with exponential backoff; there is
// no partial resume. Destination paths may be given without an
// extension, in which case the downloader resolves one from the
// response's content type or the URL.
package download
