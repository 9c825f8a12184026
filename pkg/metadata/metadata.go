package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/compmonks/instArchiver/pkg/graph"
)

const (
	// MetaFileName is the per-item metadata file
	MetaFileName = "meta.json"

	// CaptionFileName is the per-item caption file
	CaptionFileName = "caption.txt"
)

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Entry is one archived item as found on disk.
type Entry struct {
	Item  graph.MediaItem
	Date  string   // YYYY-MM-DD directory the item lives under
	Dir   string   // full path of the item directory
	Files []string // downloaded asset filenames, sorted
}

// Save writes meta.json and caption.txt into the item's directory.
// meta.json is the item exactly as the API returned it, re-indented
// and nothing else; fields this program never reads are preserved for
// whatever reads the archive later. caption.txt is always written,
// even when the caption is empty.
func Save(mediaDir string, item *graph.MediaItem) error {
	raw := item.Raw()
	if raw == nil {
		return fmt.Errorf("item %s has no serializable form", item.ID)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		return fmt.Errorf("failed to format metadata: %w", err)
	}

	if err := os.WriteFile(filepath.Join(mediaDir, MetaFileName), pretty.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write metadata file: %w", err)
	}

	if err := os.WriteFile(filepath.Join(mediaDir, CaptionFileName), []byte(item.Caption), 0644); err != nil {
		return fmt.Errorf("failed to write caption file: %w", err)
	}

	return nil
}

// Load reads one item back from its directory.
func Load(mediaDir string) (*graph.MediaItem, error) {
	data, err := os.ReadFile(filepath.Join(mediaDir, MetaFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata file: %w", err)
	}

	var item graph.MediaItem
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}

	return &item, nil
}

// Exists checks if an item directory already holds metadata.
func Exists(mediaDir string) bool {
	_, err := os.Stat(filepath.Join(mediaDir, MetaFileName))
	return err == nil
}

// FindEntry loads a single entry by its date directory and item id.
func FindEntry(base, date, id string) (*Entry, error) {
	if !datePattern.MatchString(date) {
		return nil, fmt.Errorf("invalid archive date %q", date)
	}
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return nil, fmt.Errorf("invalid media id %q", id)
	}

	dir := filepath.Join(base, date, id)
	item, err := Load(dir)
	if err != nil {
		return nil, err
	}

	return &Entry{
		Item:  *item,
		Date:  date,
		Dir:   dir,
		Files: listAssets(dir),
	}, nil
}

// ScanArchive walks <base>/<YYYY-MM-DD>/<id>/ and returns every
// readable entry, newest first. Directories that do not look like an
// archive date and item directories without readable metadata are
// skipped rather than failing the whole scan; a half-written item must
// not take the browse and export surfaces down with it.
func ScanArchive(base string) ([]Entry, error) {
	dateDirs, err := os.ReadDir(base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read archive directory: %w", err)
	}

	var entries []Entry
	for _, dateDir := range dateDirs {
		if !dateDir.IsDir() || !datePattern.MatchString(dateDir.Name()) {
			continue
		}

		itemDirs, err := os.ReadDir(filepath.Join(base, dateDir.Name()))
		if err != nil {
			continue
		}

		for _, itemDir := range itemDirs {
			if !itemDir.IsDir() {
				continue
			}

			dir := filepath.Join(base, dateDir.Name(), itemDir.Name())
			item, err := Load(dir)
			if err != nil {
				continue
			}

			entries = append(entries, Entry{
				Item:  *item,
				Date:  dateDir.Name(),
				Dir:   dir,
				Files: listAssets(dir),
			})
		}
	}

	// Date directories and timestamps share a sortable text form, so
	// newest-first is a string comparison.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Date != entries[j].Date {
			return entries[i].Date > entries[j].Date
		}
		if entries[i].Item.Timestamp != entries[j].Item.Timestamp {
			return entries[i].Item.Timestamp > entries[j].Item.Timestamp
		}
		return entries[i].Item.ID > entries[j].Item.ID
	})

	return entries, nil
}

// RemoveStaleParts deletes leftover .part files from interrupted
// downloads anywhere under the archive. Returns the removed paths.
func RemoveStaleParts(base string) ([]string, error) {
	var removed []string

	err := filepath.Walk(base, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, ".part") {
			return nil
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove stale partial file %s: %w", path, err)
		}
		removed = append(removed, path)
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return removed, err
	}

	return removed, nil
}

// listAssets returns the downloaded media files of an item directory,
// sorted by name. Metadata, caption and partial files are not assets.
func listAssets(dir string) []string {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var files []string
	for _, entry := range dirEntries {
		name := entry.Name()
		if entry.IsDir() || name == MetaFileName || name == CaptionFileName || strings.HasSuffix(name, ".part") {
			continue
		}
		files = append(files, name)
	}
	sort.Strings(files)
	return files
}
