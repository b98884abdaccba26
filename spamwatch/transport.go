package spamwatch

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Transport performs a single HTTP exchange and returns the raw result
// without interpreting it
type Transport interface {
	Send(ctx context.Context, method, url string, header http.Header, body []byte) (int, []byte, error)
}

// httpTransport implements Transport on top of an *http.Client
type httpTransport struct {
	client *http.Client
}

// NewHTTPTransport wraps an *http.Client as a Transport
func NewHTTPTransport(client *http.Client) Transport {
	if client == nil {
		client = http.DefaultClient
	}
	return &httpTransport{client: client}
}

// Send implements Transport
func (t *httpTransport) Send(ctx context.Context, method, url string, header http.Header, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, err
	}
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() {
		//nolint:errcheck
		resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, raw, nil
}

// LoggingTransport wraps an http.RoundTripper and logs every exchange at
// debug level. The Authorization header is redacted.
type LoggingTransport struct {
	Transport http.RoundTripper
	Logger    zerolog.Logger
}

// RoundTrip implements http.RoundTripper
func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	var reqBody []byte
	if req.Body != nil {
		var err error
		reqBody, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		req.Body = io.NopCloser(bytes.NewReader(reqBody))
	}

	headers := zerolog.Dict()
	for k, v := range req.Header {
		value := strings.Join(v, ", ")
		if strings.EqualFold(k, "Authorization") {
			value = redactAuthorization(value)
		}
		headers.Str(k, value)
	}

	t.Logger.Debug().
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Dict("headers", headers).
		Str("body", string(reqBody)).
		Msg("HTTP request")

	resp, err := t.transport().RoundTrip(req)
	duration := time.Since(start)
	if err != nil {
		t.Logger.Debug().
			Err(err).
			Str("method", req.Method).
			Str("url", req.URL.String()).
			Dur("duration", duration).
			Msg("HTTP request failed")
		return nil, err
	}

	respBody, err := io.ReadAll(resp.Body)
	//nolint:errcheck
	resp.Body.Close()
	if err != nil {
		return nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(respBody))

	t.Logger.Debug().
		Int("status_code", resp.StatusCode).
		Dur("duration", duration).
		Str("body", string(respBody)).
		Msg("HTTP response")

	return resp, nil
}

func (t *LoggingTransport) transport() http.RoundTripper {
	if t.Transport != nil {
		return t.Transport
	}
	return http.DefaultTransport
}

// redactAuthorization keeps the scheme and the first and last 4 characters
// of the credential. Short credentials are fully masked.
func redactAuthorization(value string) string {
	scheme, cred, found := strings.Cut(value, " ")
	if !found {
		cred, scheme = value, ""
	}
	masked := "****"
	if len(cred) >= 12 {
		masked = cred[:4] + "..." + cred[len(cred)-4:]
	}
	if scheme == "" {
		return masked
	}
	return scheme + " " + masked
}
