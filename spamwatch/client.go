package spamwatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// DefaultBaseURL is the public SpamWatch API.
	DefaultBaseURL = "https://api.spamwat.ch"
	// DefaultConcurrency bounds the batch operations.
	DefaultConcurrency = 10

	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "spamwatch-go"
)

// ErrInvalidConfig indicates invalid client configuration
var ErrInvalidConfig = errors.New("spamwatch: invalid configuration")

// Client is a blocking SpamWatch API client. It is safe for concurrent use.
type Client struct {
	baseURL     *url.URL
	token       string
	transport   Transport
	logger      zerolog.Logger
	userAgent   string
	concurrency int

	self atomic.Pointer[Token]
}

// NewClient creates a new SpamWatch client. It performs no network I/O;
// call Authenticate to look up and cache the token's own identity.
func NewClient(token string, opts ...Option) (*Client, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: API token is required", ErrInvalidConfig)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	base, err := url.Parse(strings.TrimRight(o.baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: parse base URL %q: %v", ErrInvalidConfig, o.baseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("%w: base URL %q must be http or https", ErrInvalidConfig, o.baseURL)
	}

	transport := o.transport
	if transport == nil {
		httpClient := o.httpClient
		if httpClient == nil {
			httpClient = &http.Client{Timeout: o.timeout}
		}
		if o.debugHTTP {
			wrapped := *httpClient
			wrapped.Transport = &LoggingTransport{Transport: httpClient.Transport, Logger: o.logger}
			httpClient = &wrapped
		}
		transport = NewHTTPTransport(httpClient)
	}

	return &Client{
		baseURL:     base,
		token:       token,
		transport:   transport,
		logger:      o.logger,
		userAgent:   o.userAgent,
		concurrency: o.concurrency,
	}, nil
}

// BaseURL returns the API base URL
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Authenticate looks up the token the client was created with and caches
// it for permission reporting.
func (c *Client) Authenticate(ctx context.Context) (*Token, error) {
	self, err := c.GetSelf(ctx)
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	c.logger.Debug().
		Int("token_id", self.ID).
		Stringer("permission", self.Permission).
		Msg("Authenticated with SpamWatch")
	return self, nil
}

// Self returns the cached identity, or nil before the first successful
// Authenticate or GetSelf.
func (c *Client) Self() *Token {
	t := c.self.Load()
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}

// Async returns the non-blocking view of the client
func (c *Client) Async() *AsyncClient {
	return &AsyncClient{client: c}
}

// dispatch performs one exchange and classifies and decodes the result.
// Both the blocking and the non-blocking surface go through it.
func dispatch[T any](ctx context.Context, c *Client, method, path string, body any,
	decode func(status int, body []byte) (T, error)) (T, error) {
	var zero T

	status, raw, err := c.exchange(ctx, method, path, body)
	if err != nil {
		return zero, err
	}

	if err := classify(path, status, raw); err != nil {
		var forbidden *ForbiddenError
		if errors.As(err, &forbidden) {
			c.describeForbidden(ctx, forbidden)
		}
		c.logger.Debug().
			Err(err).
			Str("method", method).
			Str("path", path).
			Int("status", status).
			Msg("SpamWatch request failed")
		return zero, err
	}

	v, err := decode(status, raw)
	if err != nil {
		return zero, &DecodeError{Path: path, Err: err}
	}
	return v, nil
}

// exchange builds and sends a single request
func (c *Client) exchange(ctx context.Context, method, path string, body any) (int, []byte, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("spamwatch: failed to marshal request for %s: %w", path, err)
		}
	}

	requestID := uuid.New().String()
	header := make(http.Header)
	header.Set("Authorization", "Bearer "+c.token)
	header.Set("Accept", "application/json")
	header.Set("User-Agent", c.userAgent)
	header.Set("X-Request-ID", requestID)
	if payload != nil {
		header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	status, raw, err := c.transport.Send(ctx, method, c.baseURL.JoinPath(path).String(), header, payload)
	if err != nil {
		return 0, nil, &TransportError{Method: method, Path: path, Err: err}
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", status).
		Str("request_id", requestID).
		Dur("duration", time.Since(start)).
		Msg("SpamWatch request")

	return status, raw, nil
}

// describeForbidden fills in the caller's permission, looking it up when it
// is not cached. A failed lookup leaves the error a ForbiddenError.
func (c *Client) describeForbidden(ctx context.Context, e *ForbiddenError) {
	if self := c.self.Load(); self != nil {
		e.Permission, e.Known = self.Permission, true
		return
	}
	// the self endpoint itself was refused; nothing left to ask
	if e.Path == pathSelf {
		return
	}

	self, err := c.GetSelf(ctx)
	if err != nil {
		e.LookupErr = err
		c.logger.Warn().Err(err).Str("path", e.Path).Msg("Failed to look up token permission")
		return
	}
	e.Permission, e.Known = self.Permission, true
}
