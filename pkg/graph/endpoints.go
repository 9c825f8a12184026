package graph

import (
	"fmt"
	"net/url"
	"strconv"
)

const (
	// DefaultBaseURL is the Graph API host
	DefaultBaseURL = "https://graph.facebook.com"

	// DefaultAPIVersion is the Graph API version used when none is configured
	DefaultAPIVersion = "v19.0"

	// MediaFields is the field selector for the media collection
	MediaFields = "id,caption,media_type,media_url,permalink,timestamp,children{id,media_url,media_type}"

	// ChildrenFields is the field selector for the children edge
	ChildrenFields = "id,media_type,media_url,thumbnail_url,timestamp"
)

// UserMediaURL builds the first-page URL of the user's media collection.
// Later pages come from paging.next verbatim.
func (c *Client) UserMediaURL(userID, accessToken string, pageSize int) string {
	params := url.Values{}
	params.Set("fields", MediaFields)
	params.Set("access_token", accessToken)
	params.Set("limit", strconv.Itoa(pageSize))

	return fmt.Sprintf("%s/%s/%s/media?%s", c.baseURL, c.version, userID, params.Encode())
}

// childrenURL builds the first-page URL of a composite item's children edge.
func (c *Client) childrenURL(mediaID, accessToken string) string {
	params := url.Values{}
	params.Set("fields", ChildrenFields)
	params.Set("access_token", accessToken)

	return fmt.Sprintf("%s/%s/%s/children?%s", c.baseURL, c.version, mediaID, params.Encode())
}

// userNodeURL builds the URL for the token-validation probe.
func (c *Client) userNodeURL(userID, accessToken string) string {
	params := url.Values{}
	params.Set("fields", "id,username")
	params.Set("access_token", accessToken)

	return fmt.Sprintf("%s/%s/%s?%s", c.baseURL, c.version, userID, params.Encode())
}

// exchangeURL builds the long-lived token exchange URL.
func (c *Client) exchangeURL(appID, appSecret, shortLivedToken string) string {
	params := url.Values{}
	params.Set("grant_type", "fb_exchange_token")
	params.Set("client_id", appID)
	params.Set("client_secret", appSecret)
	params.Set("fb_exchange_token", shortLivedToken)

	return fmt.Sprintf("%s/%s/oauth/access_token?%s", c.baseURL, c.version, params.Encode())
}
