// Package graphql is a small GraphQL query client for a single endpoint.
// Successful results are cached by query signature and identical in-flight
// queries share one network call.
package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"places/internal/keys"
)

// maxErrorBodySize limits how much of a failed response body is kept.
const maxErrorBodySize = 4096

// Client executes queries against one GraphQL endpoint.
// It is safe for concurrent use and meant to be shared for the process lifetime.
type Client struct {
	endpoint   string
	httpClient *http.Client
	cache      Cache
	logger     *zap.Logger
	timeout    time.Duration
	group      singleflight.Group
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithCache replaces the default in-memory cache.
func WithCache(cache Cache) Option {
	return func(c *Client) { c.cache = cache }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithTimeout bounds each network call. Zero means no limit.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// New creates a client for endpoint. An empty endpoint is accepted; every
// query then fails with a *TransportError wrapping ErrNoEndpoint.
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:   endpoint,
		httpClient: http.DefaultClient,
		cache:      NewMemoryCache(),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Result is the terminal outcome of one Execute call. When Err is set the
// caller must treat the attempt as failed even if Data is present.
type Result struct {
	Data      json.RawMessage
	Err       error
	Cached    bool
	Signature string
}

type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type fetched struct {
	data json.RawMessage
}

// Execute runs query with variables. A cached result is returned without a
// network round trip. Concurrent calls with the same signature share a single
// network call; that call is not cancelled when one caller's ctx ends, the
// caller just stops waiting.
func (c *Client) Execute(ctx context.Context, query string, variables map[string]any) Result {
	sig, err := keys.Signature(query, variables)
	if err != nil {
		return Result{Err: err}
	}

	data, ok, err := c.cache.Get(ctx, sig)
	if err != nil {
		c.logger.Warn("Query cache lookup failed", zap.String("signature", sig), zap.Error(err))
	} else if ok {
		c.logger.Debug("Query served from cache", zap.String("signature", sig))
		return Result{Data: data, Cached: true, Signature: sig}
	}

	ch := c.group.DoChan(sig, func() (any, error) {
		fctx := context.WithoutCancel(ctx)
		if c.timeout > 0 {
			var cancel context.CancelFunc
			fctx, cancel = context.WithTimeout(fctx, c.timeout)
			defer cancel()
		}

		data, err := c.fetch(fctx, query, variables)
		if err != nil {
			return fetched{data: data}, err
		}
		if err := c.cache.Set(fctx, sig, data); err != nil {
			c.logger.Warn("Failed to store query result", zap.String("signature", sig), zap.Error(err))
		}
		return fetched{data: data}, nil
	})

	select {
	case <-ctx.Done():
		return Result{Err: ctx.Err(), Signature: sig}
	case res := <-ch:
		f, _ := res.Val.(fetched)
		if res.Shared {
			c.logger.Debug("Joined in-flight query", zap.String("signature", sig))
		}
		return Result{Data: f.data, Err: res.Err, Signature: sig}
	}
}

func (c *Client) fetch(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error) {
	if c.endpoint == "" {
		return nil, &TransportError{Op: "endpoint", Err: ErrNoEndpoint}
	}
	u, err := url.Parse(c.endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		if err == nil {
			err = fmt.Errorf("%w: %q", ErrInvalidEndpoint, c.endpoint)
		}
		return nil, &TransportError{Op: "endpoint", Err: err}
	}

	body, err := json.Marshal(request{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Op: "request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "request", Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("GraphQL response",
		zap.String("endpoint", u.Host),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, &TransportError{Op: "status", StatusCode: resp.StatusCode, Body: string(b)}
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &TransportError{Op: "decode", Err: err}
	}

	if len(out.Errors) > 0 {
		msgs := make([]string, 0, len(out.Errors))
		for _, e := range out.Errors {
			msgs = append(msgs, e.Message)
		}
		return out.Data, &ServerError{Messages: msgs}
	}
	return out.Data, nil
}
