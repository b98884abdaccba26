package spamwatch

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Option configures a Client.
type Option func(*clientOptions)

// clientOptions holds configuration options for the Client.
type clientOptions struct {
	baseURL     string
	httpClient  *http.Client
	transport   Transport
	timeout     time.Duration
	logger      zerolog.Logger
	userAgent   string
	concurrency int
	debugHTTP   bool
}

func defaultOptions() clientOptions {
	return clientOptions{
		baseURL:     DefaultBaseURL,
		timeout:     defaultTimeout,
		logger:      zerolog.Nop(),
		userAgent:   defaultUserAgent,
		concurrency: DefaultConcurrency,
	}
}

// WithBaseURL sets a custom API base URL (useful for self-hosted instances and tests).
func WithBaseURL(url string) Option {
	return func(o *clientOptions) {
		o.baseURL = url
	}
}

// WithHTTPClient sets the *http.Client used by the default transport.
// WithTimeout is ignored when a client is provided.
func WithHTTPClient(client *http.Client) Option {
	return func(o *clientOptions) {
		o.httpClient = client
	}
}

// WithTransport replaces the transport entirely.
func WithTransport(t Transport) Option {
	return func(o *clientOptions) {
		o.transport = t
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *clientOptions) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// WithUserAgent sets a custom user agent string.
func WithUserAgent(userAgent string) Option {
	return func(o *clientOptions) {
		if userAgent != "" {
			o.userAgent = userAgent
		}
	}
}

// WithConcurrency limits the number of in-flight requests of batch operations.
func WithConcurrency(n int) Option {
	return func(o *clientOptions) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithHTTPDebug wraps the default transport in a LoggingTransport.
func WithHTTPDebug() Option {
	return func(o *clientOptions) {
		o.debugHTTP = true
	}
}
