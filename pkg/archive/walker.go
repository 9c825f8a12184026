package archive

import (
	"context"

	"github.com/compmonks/instArchiver/pkg/config"
	"github.com/compmonks/instArchiver/pkg/logger"
	"github.com/compmonks/instArchiver/pkg/state"
)

// Options control one walk over the feed.
type Options struct {
	// PageSize overrides the configured page size when positive.
	PageSize int

	// MaxPages caps the number of pages fetched. Zero means no cap.
	MaxPages int

	// SinceLast stops the walk at the item recorded by the previous
	// run instead of walking the whole feed.
	SinceLast bool
}

// Summary is what a finished run reports.
type Summary struct {
	Pages            int
	Archived         int
	Skipped          int
	LastSavedMediaID string
}

// Walker drives pagination over the feed, newest first, archiving
// every item it has not seen before.
type Walker struct {
	cfg      *config.Config
	client   MediaFetcher
	archiver *Archiver
	store    *state.Store
	logger   logger.Logger
}

// NewWalker wires a walker from its collaborators.
func NewWalker(cfg *config.Config, client MediaFetcher, archiver *Archiver, store *state.Store, log logger.Logger) *Walker {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Walker{
		cfg:      cfg,
		client:   client,
		archiver: archiver,
		store:    store,
		logger:   log,
	}
}

// Run walks the feed until it ends, the page budget runs out, or the
// previous run's newest item is reached. State is persisted exactly
// once, at clean termination; a terminal fetch error leaves the state
// file untouched so the last consistent snapshot survives.
func (w *Walker) Run(ctx context.Context, opts Options) (*Summary, error) {
	st, err := w.store.Load()
	if err != nil {
		return nil, err
	}

	lastSaved := st.LastSavedMediaID
	if lastSaved != "" {
		w.logger.InfoWithFields("last archived media id", map[string]interface{}{
			"last_saved_media_id": lastSaved,
		})
	} else {
		w.logger.Info("no previously archived media id")
	}

	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = w.cfg.API.PageSize
	}

	currentURL := w.client.UserMediaURL(w.cfg.API.UserID, w.cfg.API.AccessToken, pageSize)

	summary := &Summary{}
	var newLatestID string
	reachedExisting := false

	for currentURL != "" {
		if opts.MaxPages > 0 && summary.Pages >= opts.MaxPages {
			w.logger.InfoWithFields("reached max page limit", map[string]interface{}{
				"max_pages": opts.MaxPages,
			})
			break
		}

		env, err := w.client.FetchMediaPage(ctx, currentURL)
		if err != nil {
			return nil, err
		}
		if len(env.Data) == 0 {
			w.logger.Info("no more media returned by API")
			break
		}

		summary.Pages++
		pageArchived, pageSkipped := 0, 0

		for i := range env.Data {
			item := &env.Data[i]
			if item.ID == "" {
				continue
			}

			if st.IsProcessed(item.ID) {
				w.logger.DebugWithFields("item already processed, skipping", map[string]interface{}{
					"media_id": item.ID,
				})
				pageSkipped++
				summary.Skipped++
				continue
			}

			if opts.SinceLast && lastSaved != "" && item.ID == lastSaved {
				reachedExisting = true
				w.logger.InfoWithFields("reached previously archived item, stopping", map[string]interface{}{
					"media_id": item.ID,
				})
				break
			}

			// The first id never seen before anchors the next
			// incremental run, even if this run stops early.
			if newLatestID == "" {
				newLatestID = item.ID
			}

			archived, err := w.archiver.ArchiveItem(ctx, item)
			if err != nil {
				return nil, err
			}

			if archived {
				st.MarkProcessed(item.ID)
				pageArchived++
				summary.Archived++
			} else {
				pageSkipped++
				summary.Skipped++
			}
		}

		logger.LogArchiveProgress(summary.Pages, pageArchived, pageSkipped)

		if reachedExisting {
			break
		}
		currentURL = env.Paging.Next
	}

	if newLatestID != "" {
		st.LastSavedMediaID = newLatestID
		w.logger.InfoWithFields("updated state marker", map[string]interface{}{
			"last_saved_media_id": newLatestID,
		})
	}
	summary.LastSavedMediaID = st.LastSavedMediaID

	if err := w.store.Save(st); err != nil {
		return nil, err
	}

	w.logger.InfoWithFields("archive run complete", map[string]interface{}{
		"pages":    summary.Pages,
		"archived": summary.Archived,
		"skipped":  summary.Skipped,
	})

	return summary, nil
}

// Backfill walks the entire feed regardless of the stored marker.
// Already-processed items are still skipped, so it fills gaps without
// re-downloading anything.
func (w *Walker) Backfill(ctx context.Context, opts Options) (*Summary, error) {
	opts.SinceLast = false
	return w.Run(ctx, opts)
}
