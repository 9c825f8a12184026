package graph

import (
	"encoding/json"
	"fmt"
)

// Envelope is one page of the media collection: the item list plus the
// paging block whose Next URL is followed verbatim.
type Envelope struct {
	Data   []MediaItem `json:"data"`
	Paging Paging      `json:"paging"`
	Error  *APIError   `json:"error,omitempty"`
}

// ChildEnvelope is one page of a composite item's children edge.
type ChildEnvelope struct {
	Data   []ChildItem `json:"data"`
	Paging Paging      `json:"paging"`
	Error  *APIError   `json:"error,omitempty"`
}

// Paging carries opaque cursor URLs. Next already embeds every query
// parameter needed for the following page.
type Paging struct {
	Previous string   `json:"previous,omitempty"`
	Next     string   `json:"next,omitempty"`
	Cursors  *Cursors `json:"cursors,omitempty"`
}

// Cursors holds the raw cursor tokens some edges return alongside the
// ready-made page URLs.
type Cursors struct {
	Before string `json:"before,omitempty"`
	After  string `json:"after,omitempty"`
}

// APIError is the error document the Graph API embeds in response
// bodies, including 200 responses under load.
type APIError struct {
	Message   string `json:"message"`
	Type      string `json:"type,omitempty"`
	Code      int    `json:"code,omitempty"`
	Subcode   int    `json:"error_subcode,omitempty"`
	FBTraceID string `json:"fbtrace_id,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("graph API error (code %d, type %s): %s", e.Code, e.Type, e.Message)
}

// MediaItem is a single feed item. The decoded fields drive archiving
// decisions; the raw page JSON is kept alongside so metadata can be
// persisted exactly as the API sent it.
type MediaItem struct {
	ID           string     `json:"id"`
	Caption      string     `json:"caption,omitempty"`
	MediaType    string     `json:"media_type,omitempty"`
	MediaURL     string     `json:"media_url,omitempty"`
	ThumbnailURL string     `json:"thumbnail_url,omitempty"`
	Permalink    string     `json:"permalink,omitempty"`
	Timestamp    string     `json:"timestamp,omitempty"`
	Children     *ChildList `json:"children,omitempty"`

	raw json.RawMessage
}

// ChildList is the inline children block a composite item may carry.
type ChildList struct {
	Data   []ChildItem `json:"data"`
	Paging Paging      `json:"paging,omitempty"`
}

// ChildItem is one element of a composite item.
type ChildItem struct {
	ID           string `json:"id"`
	MediaType    string `json:"media_type,omitempty"`
	MediaURL     string `json:"media_url,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	Timestamp    string `json:"timestamp,omitempty"`
}

// UnmarshalJSON decodes the known fields and keeps a private copy of
// the original bytes for verbatim persistence.
func (m *MediaItem) UnmarshalJSON(data []byte) error {
	type mediaItem MediaItem
	var decoded mediaItem
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*m = MediaItem(decoded)
	m.raw = append(json.RawMessage(nil), data...)
	return nil
}

// Raw returns the item exactly as it appeared on the page. Items built
// in code rather than decoded from a page have no raw form and fall
// back to a plain re-marshal.
func (m *MediaItem) Raw() json.RawMessage {
	if m.raw != nil {
		return m.raw
	}
	type mediaItem MediaItem
	data, err := json.Marshal((*mediaItem)(m))
	if err != nil {
		return nil
	}
	return data
}

// IsCarousel reports whether the item is a composite of child media.
func (m *MediaItem) IsCarousel() bool {
	return m.MediaType == "CAROUSEL_ALBUM"
}

// AssetURL returns the direct media URL, falling back to the thumbnail
// when the direct URL is absent (some video items omit it).
func (m *MediaItem) AssetURL() string {
	if m.MediaURL != "" {
		return m.MediaURL
	}
	return m.ThumbnailURL
}

// AssetURL mirrors MediaItem.AssetURL for child items.
func (c *ChildItem) AssetURL() string {
	if c.MediaURL != "" {
		return c.MediaURL
	}
	return c.ThumbnailURL
}

// UserNode is the minimal user document used for token validation.
type UserNode struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	Error    *APIError `json:"error,omitempty"`
}

// TokenGrant is the response of the long-lived token exchange.
type TokenGrant struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type,omitempty"`
	ExpiresIn   int64     `json:"expires_in,omitempty"`
	Error       *APIError `json:"error,omitempty"`
}
