package graph

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compmonks/instArchiver/pkg/logger"
)

// newServerClient points a client at an httptest server.
func newServerClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := testConfig()
	cfg.API.BaseURL = srv.URL
	return NewClient(cfg, logger.NewTestLogger()), srv
}

func TestMediaPagerWalksAllPages(t *testing.T) {
	var srv *httptest.Server
	var firstQuery string

	mux := http.NewServeMux()
	mux.HandleFunc("/v19.0/u1/media", func(w http.ResponseWriter, r *http.Request) {
		firstQuery = r.URL.RawQuery
		fmt.Fprintf(w, `{
			"data": [{"id": "3", "timestamp": "2024-03-03T00:00:00+0000"},
			         {"id": "2", "timestamp": "2024-03-02T00:00:00+0000"}],
			"paging": {"next": "%s/media/page2?after=CURSOR"}
		}`, srv.URL)
	})
	mux.HandleFunc("/media/page2", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "after=CURSOR", r.URL.RawQuery, "paging.next must be followed verbatim")
		fmt.Fprint(w, `{"data": [{"id": "1", "timestamp": "2024-03-01T00:00:00+0000"}], "paging": {}}`)
	})

	client, server := newServerClient(t, mux)
	srv = server

	pager := client.NewMediaPager("u1", "tok", 25)
	ctx := context.Background()

	page1, err := pager.Next(ctx)
	require.NoError(t, err)
	require.NotNil(t, page1)
	assert.Len(t, page1.Data, 2)
	assert.Equal(t, "3", page1.Data[0].ID)

	first := mustParseQuery(t, "?"+firstQuery)
	assert.Equal(t, MediaFields, first.Get("fields"))
	assert.Equal(t, "tok", first.Get("access_token"))
	assert.Equal(t, "25", first.Get("limit"))

	page2, err := pager.Next(ctx)
	require.NoError(t, err)
	require.NotNil(t, page2)
	assert.Len(t, page2.Data, 1)
	assert.Equal(t, "1", page2.Data[0].ID)

	done, err := pager.Next(ctx)
	require.NoError(t, err)
	assert.Nil(t, done, "exhausted pager returns nil page")

	again, err := pager.Next(ctx)
	require.NoError(t, err)
	assert.Nil(t, again, "pager stays exhausted")
}

func TestMediaPagerSinglePage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v19.0/u1/media", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": [{"id": "1"}]}`)
	})

	client, _ := newServerClient(t, mux)

	pager := client.NewMediaPager("u1", "tok", 0)
	page, err := pager.Next(context.Background())
	require.NoError(t, err)
	require.NotNil(t, page)

	done, err := pager.Next(context.Background())
	require.NoError(t, err)
	assert.Nil(t, done)
}

func TestFetchAllChildrenAccumulatesPages(t *testing.T) {
	var srv *httptest.Server

	mux := http.NewServeMux()
	mux.HandleFunc("/v19.0/m1/children", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, ChildrenFields, q.Get("fields"))
		assert.Equal(t, "tok", q.Get("access_token"))
		fmt.Fprintf(w, `{
			"data": [{"id": "c1", "media_type": "IMAGE", "media_url": "https://cdn/c1.jpg"},
			         {"id": "c2", "media_type": "IMAGE", "media_url": "https://cdn/c2.jpg"}],
			"paging": {"next": "%s/children/page2"}
		}`, srv.URL)
	})
	mux.HandleFunc("/children/page2", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{
			"data": [{"id": "c3"}, {"id": "c4"}],
			"paging": {"next": "%s/children/page3"}
		}`, srv.URL)
	})
	mux.HandleFunc("/children/page3", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": [{"id": "c5"}], "paging": {}}`)
	})

	client, server := newServerClient(t, mux)
	srv = server

	children, err := client.FetchAllChildren(context.Background(), "m1", "tok")
	require.NoError(t, err)
	require.Len(t, children, 5, "every page of the children edge must be fetched")

	for i, want := range []string{"c1", "c2", "c3", "c4", "c5"} {
		assert.Equal(t, want, children[i].ID)
	}
}

func TestFetchAllChildrenEmptyEdge(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v19.0/m1/children", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": []}`)
	})

	client, _ := newServerClient(t, mux)

	children, err := client.FetchAllChildren(context.Background(), "m1", "tok")
	require.NoError(t, err)
	assert.Empty(t, children)
}
