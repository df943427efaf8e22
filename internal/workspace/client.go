// Package workspace provides a token-aware client for the hosted document
// workspace API, with request pacing, retries, and a typed error taxonomy.
package workspace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scriba/internal/common"
	"github.com/ternarybob/scriba/internal/models"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the base URL for the workspace API.
	DefaultBaseURL = "https://api.notion.com/v1"

	// DefaultAttemptTimeout bounds a single HTTP attempt.
	DefaultAttemptTimeout = 60 * time.Second

	// DefaultOperationTimeout bounds one logical operation including retries.
	DefaultOperationTimeout = 120 * time.Second

	// DefaultRateLimit is the workspace's documented request budget (req/s).
	DefaultRateLimit = 3

	// DefaultMaxRetries is the attempt budget for retryable failures.
	DefaultMaxRetries = 5

	// DefaultMaxConnections bounds the connection pool.
	DefaultMaxConnections = 32

	baseBackoff     = 500 * time.Millisecond
	maxBackoff      = 8 * time.Second
	maxRetryAfter   = 30 * time.Second
	backoffJitter   = 0.2
	defaultPageSize = 100
)

// Client is a workspace API client. It owns one bearer token, one connection
// pool, and one global rate limiter, and is safe for concurrent use.
type Client struct {
	baseURL          string
	token            string
	apiVersion       string
	httpClient       *http.Client
	logger           arbor.ILogger
	limiter          *rate.Limiter
	maxRetries       int
	operationTimeout time.Duration
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets a custom rate limit in requests per second.
func WithRateLimit(requestsPerSecond float64) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
}

// WithMaxRetries sets the retry attempt budget.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxRetries = n
		}
	}
}

// WithOperationTimeout sets the per-operation deadline including retries.
func WithOperationTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.operationTimeout = d
		}
	}
}

// NewClient creates a workspace API client.
func NewClient(token, apiVersion string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		token:      token,
		apiVersion: apiVersion,
		httpClient: &http.Client{
			Timeout: DefaultAttemptTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        DefaultMaxConnections,
				MaxIdleConnsPerHost: DefaultMaxConnections,
				MaxConnsPerHost:     DefaultMaxConnections,
			},
		},
		limiter:          rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
		maxRetries:       DefaultMaxRetries,
		operationTimeout: DefaultOperationTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// NewClientFromConfig builds a client from application configuration.
func NewClientFromConfig(cfg common.WorkspaceConfig, logger arbor.ILogger) *Client {
	opts := []ClientOption{
		WithLogger(logger),
		WithRateLimit(cfg.RequestsPerSecond),
		WithMaxRetries(cfg.MaxRetries),
		WithOperationTimeout(cfg.OperationTimeout),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, WithBaseURL(cfg.BaseURL))
	}
	pool := cfg.MaxConnections
	if pool <= 0 {
		pool = DefaultMaxConnections
	}
	attempt := cfg.AttemptTimeout
	if attempt <= 0 {
		attempt = DefaultAttemptTimeout
	}
	opts = append(opts, WithHTTPClient(&http.Client{
		Timeout: attempt,
		Transport: &http.Transport{
			MaxIdleConns:        pool,
			MaxIdleConnsPerHost: pool,
			MaxConnsPerHost:     pool,
		},
	}))
	return NewClient(cfg.Token, cfg.APIVersion, opts...)
}

// CreatePage creates a page inside a database with initial children.
func (c *Client) CreatePage(ctx context.Context, req *CreatePageRequest) (*Page, error) {
	var page Page
	if err := c.do(ctx, http.MethodPost, "/pages", req, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// AppendChildren appends blocks under a parent block or page and returns the
// created blocks with their assigned ids.
func (c *Client) AppendChildren(ctx context.Context, parentID string, children []*models.Block) (*AppendChildrenResponse, error) {
	path := fmt.Sprintf("/blocks/%s/children", url.PathEscape(parentID))
	var resp AppendChildrenResponse
	if err := c.do(ctx, http.MethodPatch, path, &AppendChildrenRequest{Children: children}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateBlock replaces a block's payload.
func (c *Client) UpdateBlock(ctx context.Context, blockID string, payload *models.Block) error {
	path := fmt.Sprintf("/blocks/%s", url.PathEscape(blockID))
	return c.do(ctx, http.MethodPatch, path, payload, nil)
}

// DeleteBlock archives a block (soft delete).
func (c *Client) DeleteBlock(ctx context.Context, blockID string) error {
	path := fmt.Sprintf("/blocks/%s", url.PathEscape(blockID))
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// ListChildren returns one page of a block's children starting at cursor.
func (c *Client) ListChildren(ctx context.Context, parentID, cursor string) (*ListChildrenResponse, error) {
	path := fmt.Sprintf("/blocks/%s/children?page_size=%d", url.PathEscape(parentID), defaultPageSize)
	if cursor != "" {
		path += "&start_cursor=" + url.QueryEscape(cursor)
	}
	var resp ListChildrenResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RetrievePage fetches a page's metadata.
func (c *Client) RetrievePage(ctx context.Context, pageID string) (*Page, error) {
	path := fmt.Sprintf("/pages/%s", url.PathEscape(pageID))
	var page Page
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// RetrieveDatabase fetches a database schema snapshot.
func (c *Client) RetrieveDatabase(ctx context.Context, databaseID string) (*Database, error) {
	path := fmt.Sprintf("/databases/%s", url.PathEscape(databaseID))
	var db Database
	if err := c.do(ctx, http.MethodGet, path, nil, &db); err != nil {
		return nil, err
	}
	return &db, nil
}

// QueryDatabase proxies a database query, one cursor page at a time.
func (c *Client) QueryDatabase(ctx context.Context, databaseID string, req *QueryRequest) (*QueryResponse, error) {
	path := fmt.Sprintf("/databases/%s/query", url.PathEscape(databaseID))
	var resp QueryResponse
	if err := c.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdatePageProperties patches a page's property values.
func (c *Client) UpdatePageProperties(ctx context.Context, pageID string, props map[string]interface{}) error {
	path := fmt.Sprintf("/pages/%s", url.PathEscape(pageID))
	body := map[string]interface{}{"properties": props}
	return c.do(ctx, http.MethodPatch, path, body, nil)
}

// do performs one logical operation: marshal, pace, send, classify, retry.
// Transient and conflict failures are retried with jittered exponential
// backoff; rate-limit responses honor the Retry-After hint without consuming
// an attempt. Validation, not-found, auth, and permanent failures return
// immediately.
func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.operationTimeout)
	defer cancel()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	backoff := baseBackoff
	var lastErr error
	paced := false

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 && !paced {
			wait := jittered(backoff)
			if c.logger != nil {
				c.logger.Debug().
					Str("path", path).
					Int("attempt", attempt).
					Dur("backoff", wait).
					Msg("Retrying workspace request")
			}
			select {
			case <-ctx.Done():
				return c.contextError(ctx, path, lastErr)
			case <-time.After(wait):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
		paced = false

		// Acquire one pacing token just before send; tokens are never held
		// across retries.
		if err := c.limiter.Wait(ctx); err != nil {
			return c.contextError(ctx, path, lastErr)
		}

		retryAfter, err := c.send(ctx, method, path, payload, result)
		if err == nil {
			return nil
		}
		lastErr = err

		apiErr, ok := err.(*APIError)
		if !ok || !apiErr.Retryable() {
			return err
		}

		if apiErr.Kind == KindRateLimited {
			// A rate-limit response does not consume an attempt, and the wait
			// here replaces the backoff sleep for the next attempt.
			attempt--
			paced = true
			wait := retryAfter
			if wait <= 0 {
				wait = backoff
			}
			if wait > maxRetryAfter {
				wait = maxRetryAfter
			}
			select {
			case <-ctx.Done():
				return c.contextError(ctx, path, lastErr)
			case <-time.After(wait):
			}
		}
	}

	return &APIError{
		Kind:     KindTransient,
		Message:  fmt.Sprintf("exhausted %d attempts: %v", c.maxRetries, lastErr),
		Endpoint: path,
	}
}

// send performs a single HTTP attempt and classifies the outcome.
func (c *Client) send(ctx context.Context, method, path string, payload []byte, result interface{}) (time.Duration, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, &APIError{Kind: KindPermanent, Message: err.Error(), Endpoint: path}
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	if c.apiVersion != "" {
		req.Header.Set("Notion-Version", c.apiVersion)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, &APIError{Kind: KindTransient, Message: ctx.Err().Error(), Endpoint: path}
		}
		// Timeouts, connection resets, and other transport failures are all
		// transient; the retry loop decides how far to push.
		return 0, &APIError{Kind: KindTransient, Message: err.Error(), Endpoint: path}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, &APIError{Kind: KindTransient, Message: err.Error(), Endpoint: path}
	}

	if resp.StatusCode >= 400 {
		kind := classifyStatus(resp.StatusCode, string(respBody))
		apiErr := &APIError{
			Kind:       kind,
			StatusCode: resp.StatusCode,
			Endpoint:   path,
			Message:    errorMessage(respBody, resp.StatusCode),
		}
		retryAfter := parseRetryAfter(resp)
		apiErr.RetryAfter = retryAfter
		return retryAfter, apiErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return 0, &APIError{Kind: KindPermanent, Endpoint: path,
				Message: fmt.Sprintf("failed to decode response: %v", err)}
		}
	}

	return 0, nil
}

// contextError maps a context expiry to a classified error
func (c *Client) contextError(ctx context.Context, path string, lastErr error) error {
	msg := "operation cancelled"
	if ctx.Err() == context.DeadlineExceeded {
		msg = "operation deadline exceeded"
	}
	if lastErr != nil {
		msg = fmt.Sprintf("%s (last error: %v)", msg, lastErr)
	}
	return &APIError{Kind: KindTransient, Message: msg, Endpoint: path}
}

func errorMessage(body []byte, status int) string {
	var parsed apiErrorBody
	if json.Unmarshal(body, &parsed) == nil && parsed.Message != "" {
		return fmt.Sprintf("%s (code: %s)", parsed.Message, parsed.Code)
	}
	preview := string(body)
	if len(preview) > 300 {
		preview = preview[:300] + "..."
	}
	return fmt.Sprintf("HTTP %d: %s", status, preview)
}

func parseRetryAfter(resp *http.Response) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0
	}
	if seconds, err := strconv.ParseFloat(header, 64); err == nil && seconds > 0 {
		return time.Duration(seconds * float64(time.Second))
	}
	return 0
}

// jittered applies ±20% jitter to a backoff duration
func jittered(d time.Duration) time.Duration {
	delta := float64(d) * backoffJitter
	offset := (rand.Float64()*2 - 1) * delta
	return time.Duration(float64(d) + offset)
}
