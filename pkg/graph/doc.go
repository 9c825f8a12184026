// Package graph implements the Graph API client used to read a user's
// media feed.
//
// Fetches classify every failure into pkg/errors types: transport
// errors, 429 and 5xx statuses, malformed JSON and error documents
// embedded in 2xx bodies are transient and retried with exponential
// backoff; any other non-success status is permanent and surfaces
// immediately. Pagination is cursor-based: the first page is built from
// configuration, every following page comes from the previous page's
// paging.next URL, used verbatim.
//
// Access tokens travel as query parameters, so every URL that reaches
// a log line passes through RedactURL first.
package graph
