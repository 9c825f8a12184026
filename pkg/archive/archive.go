package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/compmonks/instArchiver/pkg/config"
	"github.com/compmonks/instArchiver/pkg/graph"
	"github.com/compmonks/instArchiver/pkg/logger"
	"github.com/compmonks/instArchiver/pkg/metadata"
)

// timestampLayouts are the forms the feed emits: RFC 3339 proper and
// the colonless offset variant ("+0000") the Graph API actually sends.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
}

// ParseTimestamp parses a feed timestamp.
func ParseTimestamp(ts string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp format: %s", ts)
}

// MediaDir computes the directory for one item:
// <base>/<YYYY-MM-DD>/<item-id>. The date is taken in the timestamp's
// own offset, so an item keeps its path across runs regardless of the
// machine's timezone.
func MediaDir(base, timestamp, mediaID string) (string, error) {
	ts, err := ParseTimestamp(timestamp)
	if err != nil {
		return "", err
	}
	return filepath.Join(base, ts.Format("2006-01-02"), mediaID), nil
}

// Archiver persists one feed item at a time: directory, metadata,
// caption, primary asset, and children for composites.
type Archiver struct {
	baseDir     string
	accessToken string
	client      MediaFetcher
	downloader  AssetDownloader
	logger      logger.Logger
}

// NewArchiver creates an archiver writing under the configured base
// directory.
func NewArchiver(cfg *config.Config, client MediaFetcher, dl AssetDownloader, log logger.Logger) *Archiver {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Archiver{
		baseDir:     cfg.Archive.BaseDirectory,
		accessToken: cfg.API.AccessToken,
		client:      client,
		downloader:  dl,
		logger:      log,
	}
}

// ArchiveItem persists a single item. It reports whether the item was
// actually archived: items without a usable timestamp are skipped with
// a warning and leave no trace, so a later run sees them again.
//
// Asset download failures are absorbed (the item keeps its metadata,
// the run moves on). Directory and metadata write failures propagate.
// A failed children-edge fetch propagates too; it has already
// exhausted the fetcher's retries by the time it surfaces here.
func (a *Archiver) ArchiveItem(ctx context.Context, item *graph.MediaItem) (bool, error) {
	if item.Timestamp == "" {
		a.logger.WarnWithFields("skipping item without timestamp", map[string]interface{}{
			"media_id": item.ID,
		})
		return false, nil
	}

	dir, err := MediaDir(a.baseDir, item.Timestamp, item.ID)
	if err != nil {
		a.logger.WarnWithFields("skipping item with malformed timestamp", map[string]interface{}{
			"media_id":  item.ID,
			"timestamp": item.Timestamp,
		})
		return false, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return false, fmt.Errorf("failed to create media directory: %w", err)
	}

	if err := metadata.Save(dir, item); err != nil {
		return false, err
	}

	if target := item.AssetURL(); target != "" {
		dest := filepath.Join(dir, "media_01")
		if _, err := a.downloader.Download(ctx, target, dest); err != nil {
			logger.LogDownload(item.ID, dest, false, err)
		}
	} else {
		a.logger.WarnWithFields("item has no downloadable URL, metadata saved only", map[string]interface{}{
			"media_id": item.ID,
		})
	}

	var children []graph.ChildItem
	if item.Children != nil {
		children = item.Children.Data
	}

	if item.IsCarousel() && len(children) == 0 {
		a.logger.InfoWithFields("fetching children via children edge", map[string]interface{}{
			"media_id": item.ID,
		})
		children, err = a.client.FetchAllChildren(ctx, item.ID, a.accessToken)
		if err != nil {
			return false, err
		}
	}

	if len(children) > 0 {
		a.logger.InfoWithFields("archiving children", map[string]interface{}{
			"media_id": item.ID,
			"count":    len(children),
		})
		a.archiveChildren(ctx, dir, children)
	}

	return true, nil
}

// archiveChildren saves a composite's children under deterministic
// child_NN names. The index encodes the child's position in
// (timestamp, id) order, not its fetch order, so a re-fetch that
// returns children shuffled still resolves to the same paths.
func (a *Archiver) archiveChildren(ctx context.Context, dir string, children []graph.ChildItem) {
	ordered := make([]graph.ChildItem, len(children))
	copy(ordered, children)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Timestamp != ordered[j].Timestamp {
			return ordered[i].Timestamp < ordered[j].Timestamp
		}
		return ordered[i].ID < ordered[j].ID
	})

	for index, child := range ordered {
		url := child.AssetURL()
		if url == "" {
			a.logger.WarnWithFields("child has no downloadable URL, skipping", map[string]interface{}{
				"child_id": child.ID,
			})
			continue
		}

		dest := filepath.Join(dir, fmt.Sprintf("child_%02d", index+1))
		if _, err := a.downloader.Download(ctx, url, dest); err != nil {
			logger.LogDownload(child.ID, dest, false, err)
		}
	}
}
