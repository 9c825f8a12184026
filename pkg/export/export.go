// Package export renders the on-disk archive as a syndication feed.
//
// The archive tree is the source of truth: entries come from the
// metadata scan, not from the network, so exports work offline and
// reflect exactly what was saved.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gorilla/feeds"

	"github.com/compmonks/instArchiver/pkg/archive"
	"github.com/compmonks/instArchiver/pkg/graph"
	"github.com/compmonks/instArchiver/pkg/metadata"
)

// Format selects the output document type.
type Format string

const (
	FormatAtom Format = "atom"
	FormatRSS  Format = "rss"
)

// DefaultFileName is the output file used when the caller gives none.
const DefaultFileName = "feed.atom"

// Options controls feed generation.
type Options struct {
	Title  string
	Link   string
	Format Format
	Limit  int // maximum number of items, 0 means all
}

// ParseFormat converts a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(FormatAtom):
		return FormatAtom, nil
	case string(FormatRSS):
		return FormatRSS, nil
	default:
		return "", fmt.Errorf("unsupported feed format: %s", s)
	}
}

// Build maps archived entries onto a feed. Entries are expected newest
// first, the order the metadata scan produces.
func Build(entries []metadata.Entry, opts Options) *feeds.Feed {
	title := opts.Title
	if title == "" {
		title = "Instagram Archive"
	}

	feed := &feeds.Feed{
		Title: title,
		Link:  &feeds.Link{Href: opts.Link},
	}

	for _, entry := range entries {
		if opts.Limit > 0 && len(feed.Items) >= opts.Limit {
			break
		}

		item := entry.Item
		feedItem := &feeds.Item{
			Id:          item.ID,
			Title:       itemTitle(&item),
			Description: item.Caption,
			Link:        &feeds.Link{Href: item.Permalink},
		}
		if created, err := archive.ParseTimestamp(item.Timestamp); err == nil {
			feedItem.Created = created
			if feed.Created.IsZero() || created.After(feed.Created) {
				feed.Created = created
			}
		}

		feed.Items = append(feed.Items, feedItem)
	}

	return feed
}

// Render marshals a feed to the requested format.
func Render(feed *feeds.Feed, format Format) (string, error) {
	var content string
	var err error

	switch format {
	case FormatRSS:
		content, err = feed.ToRss()
	case FormatAtom:
		content, err = feed.ToAtom()
	default:
		return "", fmt.Errorf("unsupported feed format: %s", format)
	}

	if err != nil {
		return "", fmt.Errorf("could not marshal archive to %s: %w", format, err)
	}

	return content, nil
}

// Write scans the archive under baseDir and writes the rendered feed
// to outPath.
func Write(baseDir, outPath string, opts Options) error {
	entries, err := metadata.ScanArchive(baseDir)
	if err != nil {
		return fmt.Errorf("could not scan archive: %w", err)
	}

	content, err := Render(Build(entries, opts), opts.Format)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(outPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("could not create output directory: %w", err)
		}
	}

	if err := os.WriteFile(outPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("could not save the feed to %s: %w", outPath, err)
	}

	return nil
}

// itemTitle derives a display title from the caption's first line,
// falling back to the media type and id.
func itemTitle(item *graph.MediaItem) string {
	caption := strings.TrimSpace(item.Caption)
	if caption == "" {
		if item.MediaType != "" {
			return fmt.Sprintf("%s %s", item.MediaType, item.ID)
		}
		return item.ID
	}

	line := caption
	if i := strings.IndexByte(caption, '\n'); i >= 0 {
		line = strings.TrimSpace(caption[:i])
	}

	const maxTitle = 80
	runes := []rune(line)
	if len(runes) > maxTitle {
		line = string(runes[:maxTitle]) + "..."
	}
	return line
}
