package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compmonks/instArchiver/pkg/graph"
	"github.com/compmonks/instArchiver/pkg/logger"
	"github.com/compmonks/instArchiver/pkg/metadata"
)

// newArchiveFixture builds a tiny archive tree and a test server over it.
func newArchiveFixture(t *testing.T) (string, *httptest.Server) {
	t.Helper()
	base := t.TempDir()

	add := func(date, raw string, assets ...string) {
		var item graph.MediaItem
		require.NoError(t, json.Unmarshal([]byte(raw), &item))
		dir := filepath.Join(base, date, item.ID)
		require.NoError(t, os.MkdirAll(dir, 0755))
		require.NoError(t, metadata.Save(dir, &item))
		for _, name := range assets {
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("bytes of "+name), 0644))
		}
	}

	add("2024-03-02", `{"id": "222", "caption": "newest", "media_type": "IMAGE", "timestamp": "2024-03-02T10:00:00+0000", "like_count": 9}`,
		"media_01.jpg")
	add("2024-03-01", `{"id": "111", "caption": "older", "media_type": "VIDEO", "timestamp": "2024-03-01T10:00:00+0000"}`,
		"media_01.mp4", "child_01.jpg")
	add("2024-03-01", `{"id": "110", "caption": "", "timestamp": "2024-03-01T09:00:00+0000"}`)

	srv := httptest.NewServer(New(base, logger.NewNopLogger()).Handler())
	t.Cleanup(srv.Close)
	return base, srv
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, body
}

func TestIndex(t *testing.T) {
	_, srv := newArchiveFixture(t)

	resp, body := get(t, srv.URL+"/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")

	var index struct {
		Items int `json:"items"`
		Dates []struct {
			Date  string `json:"date"`
			Items int    `json:"items"`
		} `json:"dates"`
	}
	require.NoError(t, json.Unmarshal(body, &index))

	assert.Equal(t, 3, index.Items)
	require.Len(t, index.Dates, 2)
	assert.Equal(t, "2024-03-02", index.Dates[0].Date, "newest date first")
	assert.Equal(t, 1, index.Dates[0].Items)
	assert.Equal(t, 2, index.Dates[1].Items)
}

func TestItemsList(t *testing.T) {
	_, srv := newArchiveFixture(t)

	resp, body := get(t, srv.URL+"/items")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var items []struct {
		ID        string   `json:"id"`
		Date      string   `json:"date"`
		MediaType string   `json:"media_type"`
		Files     []string `json:"files"`
	}
	require.NoError(t, json.Unmarshal(body, &items))

	require.Len(t, items, 3)
	assert.Equal(t, "222", items[0].ID, "newest item first")
	assert.Equal(t, []string{"media_01.jpg"}, items[0].Files)
	assert.Equal(t, "111", items[1].ID)
	assert.Equal(t, []string{"child_01.jpg", "media_01.mp4"}, items[1].Files)
}

func TestItemMetadata(t *testing.T) {
	_, srv := newArchiveFixture(t)

	resp, body := get(t, srv.URL+"/items/2024-03-02/222")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")

	// Served verbatim from disk, unknown fields included
	assert.Contains(t, string(body), `"like_count": 9`)
}

func TestItemNotFound(t *testing.T) {
	_, srv := newArchiveFixture(t)

	resp, _ := get(t, srv.URL+"/items/2024-03-02/999")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestItemBadDate(t *testing.T) {
	_, srv := newArchiveFixture(t)

	resp, _ := get(t, srv.URL+"/items/march-2nd/222")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCaption(t *testing.T) {
	_, srv := newArchiveFixture(t)

	resp, body := get(t, srv.URL+"/items/2024-03-01/111/caption")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")
	assert.Equal(t, "older", string(body))
}

func TestCaptionEmpty(t *testing.T) {
	_, srv := newArchiveFixture(t)

	resp, body := get(t, srv.URL+"/items/2024-03-01/110/caption")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, string(body))
}

func TestStaticFiles(t *testing.T) {
	_, srv := newArchiveFixture(t)

	resp, body := get(t, srv.URL+"/files/2024-03-01/111/media_01.mp4")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "bytes of media_01.mp4", string(body))
}

func TestEmptyArchive(t *testing.T) {
	srv := httptest.NewServer(New(t.TempDir(), logger.NewNopLogger()).Handler())
	defer srv.Close()

	resp, body := get(t, srv.URL+"/")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var index struct {
		Items int           `json:"items"`
		Dates []interface{} `json:"dates"`
	}
	require.NoError(t, json.Unmarshal(body, &index))
	assert.Equal(t, 0, index.Items)
	assert.NotNil(t, index.Dates)
}
