package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/compmonks/instArchiver/pkg/config"
	errs "github.com/compmonks/instArchiver/pkg/errors"
	"github.com/compmonks/instArchiver/pkg/logger"
	"github.com/compmonks/instArchiver/pkg/retry"
)

const defaultUserAgent = "instarchiver/1.0"

// Client is a Graph API client. All fetches classify failures into the
// pkg/errors taxonomy and only transient classes are retried. Every URL
// that reaches the log stream goes through RedactURL first.
type Client struct {
	httpClient      *http.Client
	baseURL         string
	version         string
	userAgent       string
	retryCfg        config.RetryConfig
	validateTimeout time.Duration
	logger          logger.Logger
}

// NewClient creates a Graph API client from configuration.
func NewClient(cfg *config.Config, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	baseURL := cfg.API.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	version := cfg.API.Version
	if version == "" {
		version = DefaultAPIVersion
	}
	validateTimeout := cfg.API.ValidateTimeout
	if validateTimeout <= 0 {
		validateTimeout = 15 * time.Second
	}

	return &Client{
		httpClient:      &http.Client{Timeout: cfg.API.Timeout},
		baseURL:         strings.TrimRight(baseURL, "/"),
		version:         version,
		userAgent:       defaultUserAgent,
		retryCfg:        cfg.Retry,
		validateTimeout: validateTimeout,
		logger:          log,
	}
}

// doRequest performs a single HTTP request and classifies transport
// failures. The response body is the caller's to close.
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	redacted := RedactURL(req.URL.String())

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    redacted,
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      redacted,
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, &errs.Error{
			Type:    errs.ErrorTypeNetwork,
			Message: fmt.Sprintf("network error: %v", err),
			Code:    0,
		}
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      redacted,
		"status":   resp.StatusCode,
		"duration": duration,
	})

	return resp, nil
}

// GetJSON performs one GET attempt and decodes the JSON response into
// target. Retry policy lives with the callers.
func (c *Client) GetJSON(ctx context.Context, rawURL string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return &errs.Error{
			Type:    errs.ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
			Code:    0,
		}
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp, rawURL); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &errs.Error{
			Type:    errs.ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read response body: %v", err),
			Code:    resp.StatusCode,
		}
	}

	if err := json.Unmarshal(body, target); err != nil {
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}

		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          RedactURL(rawURL),
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": bodyPreview,
		})
		return &errs.Error{
			Type:    errs.ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse JSON: %v", err),
			Code:    resp.StatusCode,
		}
	}

	return nil
}

// checkResponseStatus maps non-success statuses to classified errors.
// Rate limits and 5xx are transient; 401/403/404 and the rest of the
// 4xx range are permanent and surface immediately.
func (c *Client) checkResponseStatus(resp *http.Response, rawURL string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	redacted := RedactURL(rawURL)

	switch errType := errs.ClassifyStatusCode(resp.StatusCode); errType {
	case errs.ErrorTypeRateLimit:
		c.logger.WarnWithFields("rate limit exceeded", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    redacted,
		})
		return &errs.Error{Type: errType, Message: "rate limit exceeded", Code: resp.StatusCode}
	case errs.ErrorTypeAuth:
		c.logger.WarnWithFields("authentication error", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    redacted,
		})
		return &errs.Error{Type: errType, Message: "access token rejected", Code: resp.StatusCode}
	case errs.ErrorTypeNotFound:
		c.logger.WarnWithFields("resource not found", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    redacted,
		})
		return &errs.Error{Type: errType, Message: "resource not found", Code: resp.StatusCode}
	case errs.ErrorTypeServerError:
		c.logger.ErrorWithFields("server error", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    redacted,
		})
		return &errs.Error{Type: errType, Message: "server error", Code: resp.StatusCode}
	default:
		c.logger.ErrorWithFields("unexpected API response", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    redacted,
		})
		return &errs.Error{
			Type:    errType,
			Message: fmt.Sprintf("unexpected status code: %d", resp.StatusCode),
			Code:    resp.StatusCode,
		}
	}
}

// retryConfig builds the per-call retry policy from configuration.
func (c *Client) retryConfig(ctx context.Context) *retry.Config {
	backoff := &retry.ExponentialBackoff{
		BaseDelay:  c.retryCfg.BaseDelay,
		MaxDelay:   c.retryCfg.MaxDelay,
		Multiplier: c.retryCfg.Multiplier,
	}
	if backoff.BaseDelay <= 0 {
		backoff = retry.DefaultExponentialBackoff()
	}

	maxAttempts := c.retryCfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 5
	}

	return &retry.Config{
		MaxAttempts: maxAttempts,
		Backoff:     backoff,
		RetryIf:     retry.DefaultRetryIf,
		Context:     ctx,
		Logger:      c.logger,
	}
}

// FetchMediaPage fetches one page of the media collection, retrying
// transient failures. A 2xx body that embeds an error document counts
// as a transient failure too.
func (c *Client) FetchMediaPage(ctx context.Context, pageURL string) (*Envelope, error) {
	env, err := retry.DoWithResult(func() (*Envelope, error) {
		var env Envelope
		if err := c.GetJSON(ctx, pageURL, &env); err != nil {
			return nil, err
		}
		if env.Error != nil {
			return nil, embeddedError(env.Error)
		}
		return &env, nil
	}, c.retryConfig(ctx))

	if err != nil {
		c.logger.ErrorWithFields("media page fetch failed", map[string]interface{}{
			"url":   RedactURL(pageURL),
			"error": err.Error(),
		})
		return nil, err
	}

	return env, nil
}

// FetchChildrenPage fetches one page of a children edge with the same
// retry behavior as FetchMediaPage.
func (c *Client) FetchChildrenPage(ctx context.Context, pageURL string) (*ChildEnvelope, error) {
	env, err := retry.DoWithResult(func() (*ChildEnvelope, error) {
		var env ChildEnvelope
		if err := c.GetJSON(ctx, pageURL, &env); err != nil {
			return nil, err
		}
		if env.Error != nil {
			return nil, embeddedError(env.Error)
		}
		return &env, nil
	}, c.retryConfig(ctx))

	if err != nil {
		c.logger.ErrorWithFields("children page fetch failed", map[string]interface{}{
			"url":   RedactURL(pageURL),
			"error": err.Error(),
		})
		return nil, err
	}

	return env, nil
}

// FetchAllChildren accumulates every page of a composite item's
// children edge before returning, following paging.next verbatim.
func (c *Client) FetchAllChildren(ctx context.Context, mediaID, accessToken string) ([]ChildItem, error) {
	pageURL := c.childrenURL(mediaID, accessToken)

	var children []ChildItem
	for pageURL != "" {
		env, err := c.FetchChildrenPage(ctx, pageURL)
		if err != nil {
			return nil, err
		}
		children = append(children, env.Data...)
		pageURL = env.Paging.Next
	}

	return children, nil
}

// embeddedError converts an error document found inside a response
// body into a transient classified error.
func embeddedError(apiErr *APIError) error {
	return &errs.Error{
		Type:    errs.ErrorTypeAPI,
		Message: apiErr.Message,
		Code:    apiErr.Code,
	}
}
