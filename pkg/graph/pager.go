package graph

import "context"

// MediaPager walks the media collection newest-first, one page per
// call. The first call builds the collection URL with the configured
// field selector, token and page size; every later call follows the
// previous page's paging.next URL verbatim.
type MediaPager struct {
	client      *Client
	userID      string
	accessToken string
	pageSize    int
	nextURL     string
	started     bool
}

// NewMediaPager creates a pager over the user's media collection.
func (c *Client) NewMediaPager(userID, accessToken string, pageSize int) *MediaPager {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &MediaPager{
		client:      c,
		userID:      userID,
		accessToken: accessToken,
		pageSize:    pageSize,
	}
}

// Next returns the following page, or (nil, nil) once the collection
// is exhausted.
func (p *MediaPager) Next(ctx context.Context) (*Envelope, error) {
	var pageURL string
	switch {
	case !p.started:
		pageURL = p.client.UserMediaURL(p.userID, p.accessToken, p.pageSize)
	case p.nextURL == "":
		return nil, nil
	default:
		pageURL = p.nextURL
	}

	env, err := p.client.FetchMediaPage(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	p.started = true
	p.nextURL = env.Paging.Next
	return env, nil
}
