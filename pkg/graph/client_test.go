package graph

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compmonks/instArchiver/pkg/config"
	errs "github.com/compmonks/instArchiver/pkg/errors"
	"github.com/compmonks/instArchiver/pkg/logger"
)

// mockRoundTripper allows us to intercept HTTP requests
type mockRoundTripper struct {
	handler func(req *http.Request) (*http.Response, error)
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.handler(req)
}

// Helper function to create a response
func newResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
	}
}

// testConfig returns a config with millisecond backoff so retry tests
// finish quickly.
func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Retry.MaxAttempts = 3
	cfg.Retry.BaseDelay = time.Millisecond
	cfg.Retry.MaxDelay = 10 * time.Millisecond
	return cfg
}

// newTestClient builds a client whose transport is the given handler.
func newTestClient(cfg *config.Config, handler func(req *http.Request) (*http.Response, error)) *Client {
	client := NewClient(cfg, logger.NewTestLogger())
	client.httpClient = &http.Client{
		Transport: &mockRoundTripper{handler: handler},
		Timeout:   30 * time.Second,
	}
	return client
}

func TestNewClientDefaults(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.API.BaseURL = ""
	cfg.API.Version = ""

	client := NewClient(cfg, logger.NewTestLogger())

	assert.Equal(t, DefaultBaseURL, client.baseURL)
	assert.Equal(t, DefaultAPIVersion, client.version)
	assert.NotNil(t, client.httpClient)
}

func TestFetchMediaPageSuccess(t *testing.T) {
	body := `{
		"data": [
			{"id": "111", "media_type": "IMAGE", "media_url": "https://cdn/x.jpg",
			 "timestamp": "2024-03-01T10:00:00+0000", "like_count": 42},
			{"id": "222", "media_type": "CAROUSEL_ALBUM", "timestamp": "2024-02-28T09:00:00+0000"}
		],
		"paging": {"next": "https://graph.facebook.com/v19.0/next-page"}
	}`

	var requests int
	client := newTestClient(testConfig(), func(req *http.Request) (*http.Response, error) {
		requests++
		return newResponse(http.StatusOK, body), nil
	})

	env, err := client.FetchMediaPage(context.Background(), "https://graph.facebook.com/v19.0/u/media")
	require.NoError(t, err)
	require.Len(t, env.Data, 2)

	assert.Equal(t, 1, requests)
	assert.Equal(t, "111", env.Data[0].ID)
	assert.Equal(t, "IMAGE", env.Data[0].MediaType)
	assert.True(t, env.Data[1].IsCarousel())
	assert.Equal(t, "https://graph.facebook.com/v19.0/next-page", env.Paging.Next)

	// Fields outside the decoded set survive in the raw copy
	assert.Contains(t, string(env.Data[0].Raw()), `"like_count": 42`)
}

func TestFetchMediaPageRetriesTransientStatus(t *testing.T) {
	body := `{"data": [], "paging": {}}`

	var requests int
	client := newTestClient(testConfig(), func(req *http.Request) (*http.Response, error) {
		requests++
		if requests < 3 {
			return newResponse(http.StatusInternalServerError, "upstream sad"), nil
		}
		return newResponse(http.StatusOK, body), nil
	})

	env, err := client.FetchMediaPage(context.Background(), "https://graph.facebook.com/v19.0/u/media")
	require.NoError(t, err)
	assert.Equal(t, 3, requests)
	assert.Empty(t, env.Data)
}

func TestFetchMediaPageRetriesRateLimit(t *testing.T) {
	var requests int
	client := newTestClient(testConfig(), func(req *http.Request) (*http.Response, error) {
		requests++
		if requests == 1 {
			return newResponse(http.StatusTooManyRequests, ""), nil
		}
		return newResponse(http.StatusOK, `{"data": []}`), nil
	})

	_, err := client.FetchMediaPage(context.Background(), "https://graph.facebook.com/v19.0/u/media")
	require.NoError(t, err)
	assert.Equal(t, 2, requests)
}

func TestFetchMediaPagePermanentErrorNoRetry(t *testing.T) {
	var requests int
	client := newTestClient(testConfig(), func(req *http.Request) (*http.Response, error) {
		requests++
		return newResponse(http.StatusUnauthorized, ""), nil
	})

	_, err := client.FetchMediaPage(context.Background(), "https://graph.facebook.com/v19.0/u/media")
	require.Error(t, err)
	assert.Equal(t, 1, requests, "permanent errors must not be retried")

	var classified *errs.Error
	require.ErrorAs(t, err, &classified)
	assert.Equal(t, errs.ErrorTypeAuth, classified.Type)
}

func TestFetchMediaPageEmbeddedErrorRetried(t *testing.T) {
	body := `{"error": {"message": "An unknown error occurred", "code": 1}}`

	var requests int
	client := newTestClient(testConfig(), func(req *http.Request) (*http.Response, error) {
		requests++
		return newResponse(http.StatusOK, body), nil
	})

	_, err := client.FetchMediaPage(context.Background(), "https://graph.facebook.com/v19.0/u/media")
	require.Error(t, err)
	assert.Equal(t, 3, requests, "embedded API errors are transient")
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestFetchMediaPageMalformedJSONRetried(t *testing.T) {
	var requests int
	client := newTestClient(testConfig(), func(req *http.Request) (*http.Response, error) {
		requests++
		return newResponse(http.StatusOK, "<html>not json</html>"), nil
	})

	_, err := client.FetchMediaPage(context.Background(), "https://graph.facebook.com/v19.0/u/media")
	require.Error(t, err)
	assert.Equal(t, 3, requests, "malformed bodies are transient")

	var classified *errs.Error
	require.ErrorAs(t, err, &classified)
	assert.Equal(t, errs.ErrorTypeParsing, classified.Type)
}

func TestGetJSONStatusClassification(t *testing.T) {
	tests := []struct {
		status   int
		wantType errs.ErrorType
	}{
		{http.StatusUnauthorized, errs.ErrorTypeAuth},
		{http.StatusForbidden, errs.ErrorTypeAuth},
		{http.StatusNotFound, errs.ErrorTypeNotFound},
		{http.StatusTooManyRequests, errs.ErrorTypeRateLimit},
		{http.StatusInternalServerError, errs.ErrorTypeServerError},
		{http.StatusBadGateway, errs.ErrorTypeServerError},
		{http.StatusTeapot, errs.ErrorTypeUnknown},
	}

	for _, tt := range tests {
		client := newTestClient(testConfig(), func(req *http.Request) (*http.Response, error) {
			return newResponse(tt.status, ""), nil
		})

		var out map[string]interface{}
		err := client.GetJSON(context.Background(), "https://graph.facebook.com/v19.0/x", &out)
		require.Error(t, err, "status %d", tt.status)

		var classified *errs.Error
		require.ErrorAs(t, err, &classified, "status %d", tt.status)
		assert.Equal(t, tt.wantType, classified.Type, "status %d", tt.status)
		assert.Equal(t, tt.status, classified.Code, "status %d", tt.status)
	}
}

func TestUserMediaURL(t *testing.T) {
	client := NewClient(config.DefaultConfig(), logger.NewNopLogger())

	u := client.UserMediaURL("17841400000000000", "SECRET", 50)

	assert.True(t, strings.HasPrefix(u, "https://graph.facebook.com/v19.0/17841400000000000/media?"))
	assert.Contains(t, u, "limit=50")
	assert.Contains(t, u, "access_token=SECRET")

	parsed := mustParseQuery(t, u)
	assert.Equal(t, MediaFields, parsed.Get("fields"))
}

func TestChildrenURL(t *testing.T) {
	client := NewClient(config.DefaultConfig(), logger.NewNopLogger())

	u := client.childrenURL("17900000000000000", "SECRET")

	assert.True(t, strings.HasPrefix(u, "https://graph.facebook.com/v19.0/17900000000000000/children?"))
	parsed := mustParseQuery(t, u)
	assert.Equal(t, ChildrenFields, parsed.Get("fields"))
	assert.Equal(t, "SECRET", parsed.Get("access_token"))
}

func TestRedactURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "access token dropped",
			in:   "https://graph.facebook.com/v19.0/u/media?access_token=SECRET&limit=50",
			want: "https://graph.facebook.com/v19.0/u/media?limit=50",
		},
		{
			name: "case insensitive match",
			in:   "https://example.com/x?ACCESS_TOKEN=SECRET&a=1",
			want: "https://example.com/x?a=1",
		},
		{
			name: "exchange token dropped",
			in:   "https://graph.facebook.com/v19.0/oauth/access_token?fb_exchange_token=SECRET&client_id=1",
			want: "https://graph.facebook.com/v19.0/oauth/access_token?client_id=1",
		},
		{
			name: "no query untouched",
			in:   "https://example.com/path",
			want: "https://example.com/path",
		},
		{
			name: "unparseable input replaced",
			in:   "://not a url",
			want: "<unparseable url>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RedactURL(tt.in))
		})
	}
}

func TestClientLogsNeverContainToken(t *testing.T) {
	log := logger.NewTestLogger()

	cfg := testConfig()
	client := NewClient(cfg, log)
	client.httpClient = &http.Client{
		Transport: &mockRoundTripper{handler: func(req *http.Request) (*http.Response, error) {
			return newResponse(http.StatusInternalServerError, ""), nil
		}},
	}

	pageURL := client.UserMediaURL("user1", "SUPERSECRETTOKEN", 50)
	_, err := client.FetchMediaPage(context.Background(), pageURL)
	require.Error(t, err)

	for _, msg := range log.GetMessages() {
		assert.NotContains(t, msg.Message, "SUPERSECRETTOKEN")
		for k, v := range msg.Fields {
			if s, ok := v.(string); ok {
				assert.NotContains(t, s, "SUPERSECRETTOKEN", "field %s leaked the token", k)
			}
		}
	}
}

func mustParseQuery(t *testing.T, raw string) url.Values {
	t.Helper()
	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	return parsed.Query()
}
