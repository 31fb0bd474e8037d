// Package caspio is a thin client for the Caspio bridge REST API: token
// acquisition, paginated predicate reads, and update-by-predicate writes.
// The remediation core only ever talks to the store through the Client
// interface defined here.
package caspio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// ErrAuth marks a hard authentication failure. Callers treat it as fatal:
// no partial credential state is trusted once the store rejects us.
var ErrAuth = eris.New("caspio: authentication failed")

// StatusError is a non-2xx response from the store. 4xx statuses are
// validation failures and are never retried.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("caspio: status %d: %s", e.Code, e.Body)
}

// Client defines the record-store operations used by the pipeline.
type Client interface {
	// Query reads every page matching q and decodes the combined rows
	// into out, which must be a pointer to a slice.
	Query(ctx context.Context, table string, q Query, out any) error
	// UpdateWhere applies fields to every row matching where and returns
	// the affected-row count reported by the store.
	UpdateWhere(ctx context.Context, table string, where Where, fields map[string]any) (int, error)
	// Ping verifies credentials by acquiring an access token.
	Ping(ctx context.Context) error
}

// Query configures a paginated read.
type Query struct {
	Where    Where
	Select   []string
	OrderBy  string
	Limit    int // 0 = no cap
	PageSize int // 0 = client default
}

// Config configures the HTTP client.
type Config struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	RateLimit    float64 // requests per second; 0 = unlimited
	PageSize     int
	MaxRetries   int
	Timeout      time.Duration
}

const (
	defaultPageSize   = 1000
	defaultMaxRetries = 3
	defaultTimeout    = 30 * time.Second
	backoffBase       = 500 * time.Millisecond
)

// HTTPClient implements Client against the Caspio bridge.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	tokens     *tokenSource
	limiter    *rate.Limiter
	pageSize   int
	maxRetries int
}

var _ Client = (*HTTPClient)(nil)

// New builds an HTTPClient from config.
func New(cfg Config) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, eris.New("caspio: base URL is required")
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, eris.New("caspio: client credentials are required")
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = strings.TrimSuffix(cfg.BaseURL, "/") + "/oauth/token"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	hc := &http.Client{Timeout: timeout}

	c := &HTTPClient{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: hc,
		tokens:     newTokenSource(tokenURL, cfg.ClientID, cfg.ClientSecret, hc),
		pageSize:   cfg.PageSize,
		maxRetries: cfg.MaxRetries,
	}
	if c.pageSize <= 0 {
		c.pageSize = defaultPageSize
	}
	if c.maxRetries <= 0 {
		c.maxRetries = defaultMaxRetries
	}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(int(cfg.RateLimit), 1))
	}
	return c, nil
}

// Ping acquires a token, verifying credentials and reachability.
func (c *HTTPClient) Ping(ctx context.Context) error {
	_, err := c.tokens.Token(ctx)
	return err
}

func (c *HTTPClient) Query(ctx context.Context, table string, q Query, out any) error {
	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = c.pageSize
	}
	if q.Limit > 0 && q.Limit < pageSize {
		pageSize = q.Limit
	}

	var rows []json.RawMessage
	for page := 1; ; page++ {
		params := url.Values{}
		if !q.Where.Empty() {
			params.Set("q.where", q.Where.String())
		}
		if len(q.Select) > 0 {
			params.Set("q.select", strings.Join(q.Select, ","))
		}
		if q.OrderBy != "" {
			params.Set("q.orderBy", q.OrderBy)
		}
		params.Set("q.pageSize", strconv.Itoa(pageSize))
		params.Set("q.pageNumber", strconv.Itoa(page))

		var body struct {
			Result []json.RawMessage `json:"Result"`
		}
		endpoint := fmt.Sprintf("%s/tables/%s/records?%s", c.baseURL, url.PathEscape(table), params.Encode())
		if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &body); err != nil {
			return eris.Wrapf(err, "caspio: query %s page %d", table, page)
		}

		rows = append(rows, body.Result...)
		if len(body.Result) < pageSize {
			break
		}
		if q.Limit > 0 && len(rows) >= q.Limit {
			rows = rows[:q.Limit]
			break
		}
	}

	combined, err := json.Marshal(rows)
	if err != nil {
		return eris.Wrap(err, "caspio: combine pages")
	}
	if err := json.Unmarshal(combined, out); err != nil {
		return eris.Wrapf(err, "caspio: decode %s rows", table)
	}
	return nil
}

func (c *HTTPClient) UpdateWhere(ctx context.Context, table string, where Where, fields map[string]any) (int, error) {
	if where.Empty() {
		return 0, eris.New("caspio: refusing update with empty predicate")
	}
	if len(fields) == 0 {
		return 0, eris.New("caspio: no fields to update")
	}

	params := url.Values{}
	params.Set("q.where", where.String())
	endpoint := fmt.Sprintf("%s/tables/%s/records?%s", c.baseURL, url.PathEscape(table), params.Encode())

	payload, err := json.Marshal(fields)
	if err != nil {
		return 0, eris.Wrap(err, "caspio: marshal update fields")
	}

	var body struct {
		RecordsAffected int `json:"RecordsAffected"`
	}
	if err := c.doJSON(ctx, http.MethodPut, endpoint, payload, &body); err != nil {
		return 0, eris.Wrapf(err, "caspio: update %s", table)
	}
	return body.RecordsAffected, nil
}

// doJSON performs one API call with rate limiting, token injection, retry
// with backoff on transient failures, and a single token refresh on 401.
func (c *HTTPClient) doJSON(ctx context.Context, method, endpoint string, payload []byte, out any) error {
	var lastErr error
	refreshed := false

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoffBase << (attempt - 1)):
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return eris.Wrap(err, "caspio: rate limit")
			}
		}

		token, err := c.tokens.Token(ctx)
		if err != nil {
			return err
		}

		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
		if err != nil {
			return eris.Wrap(err, "caspio: build request")
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = eris.Wrap(err, "caspio: request")
			continue // transient: retry
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
		resp.Body.Close()
		if readErr != nil {
			lastErr = eris.Wrap(readErr, "caspio: read response")
			continue
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			if refreshed {
				return eris.Wrap(ErrAuth, "token rejected after refresh")
			}
			// Token may have expired mid-run; refresh once and retry.
			c.tokens.invalidate()
			refreshed = true
			attempt--
			continue
		case resp.StatusCode >= 500:
			lastErr = &StatusError{Code: resp.StatusCode, Body: truncate(body)}
			continue // transient: retry
		case resp.StatusCode >= 400:
			return &StatusError{Code: resp.StatusCode, Body: truncate(body)}
		}

		if out != nil && len(body) > 0 {
			if err := json.Unmarshal(body, out); err != nil {
				return eris.Wrap(err, "caspio: decode response")
			}
		}
		return nil
	}
	return lastErr
}

func truncate(b []byte) string {
	const limit = 512
	s := strings.TrimSpace(string(b))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
