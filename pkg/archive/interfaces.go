package archive

import (
	"context"

	"github.com/compmonks/instArchiver/pkg/graph"
)

// MediaFetcher is the slice of the feed client the archiver and walker
// drive.
type MediaFetcher interface {
	UserMediaURL(userID, accessToken string, pageSize int) string
	FetchMediaPage(ctx context.Context, pageURL string) (*graph.Envelope, error)
	FetchAllChildren(ctx context.Context, mediaID, accessToken string) ([]graph.ChildItem, error)
}

// AssetDownloader streams one remote asset into the archive.
type AssetDownloader interface {
	Download(ctx context.Context, rawURL, dest string) (string, error)
}
