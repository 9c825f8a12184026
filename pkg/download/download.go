package download

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/compmonks/instArchiver/pkg/config"
	errs "github.com/compmonks/instArchiver/pkg/errors"
	"github.com/compmonks/instArchiver/pkg/logger"
	"github.com/compmonks/instArchiver/pkg/retry"
)

// preferredExtensions pins the extension for the media types the feed
// actually serves. mime.ExtensionsByType is consulted only for
// anything outside this set, because its answer ordering depends on
// the host's mime tables.
var preferredExtensions = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"video/mp4":       ".mp4",
	"video/quicktime": ".mov",
}

// knownExtensions are the suffixes an earlier run may have resolved
// for a destination given without one.
var knownExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".gif", ".mp4", ".mov"}

// Downloader streams remote assets to disk. Failures are returned to
// the caller rather than terminating anything: a missing asset costs
// one file, not the run.
type Downloader struct {
	httpClient *http.Client
	logger     logger.Logger
	attempts   int
	chunkSize  int
	backoff    retry.BackoffStrategy
}

// NewDownloader creates a downloader from the download and retry
// sections of the configuration.
func NewDownloader(cfg *config.Config, log logger.Logger) *Downloader {
	if log == nil {
		log = logger.GetLogger()
	}

	attempts := cfg.Download.RetryAttempts
	if attempts <= 0 {
		attempts = 3
	}
	chunkSize := cfg.Download.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 8192
	}

	return &Downloader{
		httpClient: &http.Client{Timeout: cfg.Download.Timeout},
		logger:     log,
		attempts:   attempts,
		chunkSize:  chunkSize,
		backoff: &retry.ExponentialBackoff{
			BaseDelay:  cfg.Retry.BaseDelay,
			MaxDelay:   cfg.Retry.MaxDelay,
			Multiplier: cfg.Retry.Multiplier,
		},
	}
}

// Download fetches url into dest and returns the final path. The
// destination may omit its extension; the resolved one is appended.
// An existing non-empty file at the destination (or at a variant with
// a resolved extension) short-circuits the download entirely.
//
// The whole download is retried on transient failures. There is no
// partial resume: a connection lost mid-body restarts from zero.
func (d *Downloader) Download(ctx context.Context, rawURL, dest string) (string, error) {
	if existing := d.findExisting(dest, rawURL); existing != "" {
		d.logger.DebugWithFields("file already exists, skipping download", map[string]interface{}{
			"path": existing,
		})
		return existing, nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", fmt.Errorf("failed to create destination directory: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= d.attempts; attempt++ {
		finalPath, retryable, err := d.tryDownload(ctx, rawURL, dest)
		if err == nil {
			return finalPath, nil
		}
		lastErr = err

		if !retryable || ctx.Err() != nil {
			d.logger.ErrorWithFields("download failed", map[string]interface{}{
				"url":   rawURL,
				"error": err.Error(),
			})
			return "", err
		}

		d.logger.WarnWithFields("download failed", map[string]interface{}{
			"url":          rawURL,
			"attempt":      attempt,
			"max_attempts": d.attempts,
			"error":        err.Error(),
		})

		if attempt < d.attempts {
			if werr := retry.Wait(ctx, d.backoff.NextDelay(attempt)); werr != nil {
				return "", werr
			}
		}
	}

	d.logger.ErrorWithFields("giving up on download", map[string]interface{}{
		"url":      rawURL,
		"attempts": d.attempts,
	})
	return "", fmt.Errorf("download failed after %d attempts: %w", d.attempts, lastErr)
}

// tryDownload performs a single attempt. The bool reports whether the
// failure class is worth another attempt; local filesystem errors are
// not, a different connection will not fix a full disk.
func (d *Downloader) tryDownload(ctx context.Context, rawURL, dest string) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", false, fmt.Errorf("invalid download URL: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", true, &errs.Error{
			Type:    errs.ErrorTypeNetwork,
			Message: fmt.Sprintf("request failed: %v", err),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errs.IsRetryableStatusCode(resp.StatusCode), &errs.Error{
			Type:    errs.ClassifyStatusCode(resp.StatusCode),
			Message: fmt.Sprintf("download returned status %d", resp.StatusCode),
			Code:    resp.StatusCode,
		}
	}

	finalDest := resolveDestination(dest, resp.Header.Get("Content-Type"), rawURL)

	// The extension may only be resolvable now that the response
	// headers are in hand, so check for earlier work once more.
	if info, serr := os.Stat(finalDest); serr == nil && info.Size() > 0 {
		d.logger.DebugWithFields("file already exists, skipping download", map[string]interface{}{
			"path": finalDest,
		})
		return finalDest, false, nil
	}

	tmpPath := finalDest + ".part"
	out, err := os.Create(tmpPath)
	if err != nil {
		return "", false, fmt.Errorf("failed to create temporary file: %w", err)
	}

	written, localFailure, err := d.copyChunks(out, resp.Body)
	closeErr := out.Close()
	if err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close file: %w", closeErr)
		localFailure = true
	}
	if err != nil {
		os.Remove(tmpPath)
		return "", !localFailure, err
	}

	if err := os.Rename(tmpPath, finalDest); err != nil {
		os.Remove(tmpPath)
		return "", false, fmt.Errorf("failed to rename temporary file: %w", err)
	}

	d.logger.InfoWithFields("downloaded", map[string]interface{}{
		"url":   rawURL,
		"path":  finalDest,
		"bytes": written,
	})
	return finalDest, false, nil
}

// copyChunks streams the body to the file in fixed-size chunks. The
// bool distinguishes a local write failure from a lost connection;
// only the latter is retryable.
func (d *Downloader) copyChunks(dst *os.File, src io.Reader) (int64, bool, error) {
	buf := make([]byte, d.chunkSize)
	var written int64

	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			wn, writeErr := dst.Write(buf[:n])
			written += int64(wn)
			if writeErr != nil {
				return written, true, fmt.Errorf("failed to write file data: %w", writeErr)
			}
		}
		if readErr == io.EOF {
			return written, false, nil
		}
		if readErr != nil {
			return written, false, &errs.Error{
				Type:    errs.ErrorTypeNetwork,
				Message: fmt.Sprintf("connection lost mid-download: %v", readErr),
			}
		}
	}
}

// findExisting returns a previously downloaded file for this
// destination, trying the literal path first and then every extension
// an earlier run could have resolved. Empty files do not count; a
// crash between create and write must not mask the asset forever.
func (d *Downloader) findExisting(dest, rawURL string) string {
	candidates := []string{dest}
	if filepath.Ext(dest) == "" {
		if ext := extensionFromURL(rawURL); ext != "" {
			candidates = append(candidates, dest+ext)
		}
		for _, ext := range knownExtensions {
			candidates = append(candidates, dest+ext)
		}
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && info.Size() > 0 {
			return candidate
		}
	}
	return ""
}

// resolveDestination appends the resolved extension to a destination
// that lacks one. An explicit extension on the destination always
// wins.
func resolveDestination(dest, contentType, rawURL string) string {
	if filepath.Ext(dest) != "" {
		return dest
	}
	if ext := resolveExtension(contentType, rawURL); ext != "" {
		return dest + ext
	}
	return dest
}

// resolveExtension picks an extension from the content-type header,
// falling back to the URL's own path suffix.
func resolveExtension(contentType, rawURL string) string {
	if contentType != "" {
		if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
			if ext, ok := preferredExtensions[mediaType]; ok {
				return ext
			}
			if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
				return exts[0]
			}
		}
	}
	return extensionFromURL(rawURL)
}

func extensionFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return path.Ext(parsed.Path)
}
