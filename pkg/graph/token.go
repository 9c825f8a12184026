package graph

import (
	"context"
	"errors"
	"fmt"

	errs "github.com/compmonks/instArchiver/pkg/errors"
)

// ValidateToken checks that the access token works and belongs to the
// given user. It is a one-shot go/no-go probe with its own short
// timeout and no retries; an unreachable API fails fast here rather
// than stalling the run before it starts.
func (c *Client) ValidateToken(ctx context.Context, userID, accessToken string) (string, error) {
	vctx, cancel := context.WithTimeout(ctx, c.validateTimeout)
	defer cancel()

	var node UserNode
	if err := c.GetJSON(vctx, c.userNodeURL(userID, accessToken), &node); err != nil {
		var classified *errs.Error
		if errors.As(err, &classified) && classified.Type == errs.ErrorTypeAuth {
			return "", &errs.Error{
				Type:    errs.ErrorTypeAuth,
				Message: "access token is invalid or expired",
				Code:    classified.Code,
			}
		}
		return "", err
	}

	if node.Error != nil {
		return "", &errs.Error{
			Type:    errs.ErrorTypeAuth,
			Message: node.Error.Message,
			Code:    node.Error.Code,
		}
	}

	if node.ID != userID {
		return "", &errs.Error{
			Type:    errs.ErrorTypeAuth,
			Message: fmt.Sprintf("token resolves to user %s, not %s", node.ID, userID),
			Code:    0,
		}
	}

	c.logger.InfoWithFields("access token validated", map[string]interface{}{
		"user_id":  userID,
		"username": node.Username,
	})

	return node.Username, nil
}

// ExchangeToken trades a short-lived token for a long-lived one. This
// is a one-shot user operation, never part of the archiving loop.
func (c *Client) ExchangeToken(ctx context.Context, appID, appSecret, shortLivedToken string) (*TokenGrant, error) {
	if appID == "" || appSecret == "" {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeConfig,
			Message: "app id and app secret are required for token exchange",
			Code:    0,
		}
	}

	var grant TokenGrant
	if err := c.GetJSON(ctx, c.exchangeURL(appID, appSecret, shortLivedToken), &grant); err != nil {
		return nil, err
	}

	if grant.Error != nil {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeAuth,
			Message: grant.Error.Message,
			Code:    grant.Error.Code,
		}
	}

	if grant.AccessToken == "" {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeAPI,
			Message: "exchange response carried no access_token",
			Code:    0,
		}
	}

	c.logger.InfoWithFields("exchanged short-lived token", map[string]interface{}{
		"token_type": grant.TokenType,
		"expires_in": grant.ExpiresIn,
	})

	return &grant, nil
}
