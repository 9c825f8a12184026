package graph

import (
	"net/url"
	"strings"
)

// RedactURL strips every query parameter whose name contains "token"
// or "secret" (case-insensitive) so URLs can be logged without leaking
// credentials. That covers access_token, fb_exchange_token and
// client_secret. Unparseable input is replaced wholesale rather than
// passed through.
func RedactURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "<unparseable url>"
	}

	query := parsed.Query()
	for key := range query {
		lower := strings.ToLower(key)
		if strings.Contains(lower, "token") || strings.Contains(lower, "secret") {
			query.Del(key)
		}
	}
	parsed.RawQuery = query.Encode()

	return parsed.String()
}
