package spamwatch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "test-token-0123456789"

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	opts = append([]Option{WithBaseURL(server.URL), WithLogger(zerolog.Nop())}, opts...)
	client, err := NewClient(testToken, opts...)
	require.NoError(t, err)
	return client
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck
	json.NewEncoder(w).Encode(v)
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		opts    []Option
		wantErr bool
		errMsg  string
	}{
		{
			name:  "valid config",
			token: "abc",
		},
		{
			name:    "missing token",
			token:   "   ",
			wantErr: true,
			errMsg:  "API token is required",
		},
		{
			name:    "bad scheme",
			token:   "abc",
			opts:    []Option{WithBaseURL("ftp://example.com")},
			wantErr: true,
			errMsg:  "must be http or https",
		},
		{
			name:    "unparsable URL",
			token:   "abc",
			opts:    []Option{WithBaseURL("http://[::1")},
			wantErr: true,
			errMsg:  "parse base URL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.token, tt.opts...)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidConfig)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, DefaultBaseURL, client.BaseURL())
			assert.Nil(t, client.Self())
		})
	}
}

func TestNewClientPerformsNoIO(t *testing.T) {
	var calls atomic.Int32
	newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})
	assert.Zero(t, calls.Load())
}

func TestClientOptions(t *testing.T) {
	client, err := NewClient("abc",
		WithBaseURL("https://spamwatch.example.com/api/"),
		WithUserAgent("custom-agent"),
		WithConcurrency(3),
		WithConcurrency(-1),
		WithTimeout(0),
	)
	require.NoError(t, err)
	assert.Equal(t, "https://spamwatch.example.com/api", client.BaseURL())
	assert.Equal(t, "custom-agent", client.userAgent)
	assert.Equal(t, 3, client.concurrency)
}

func TestRequestHeaders(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/stats", r.URL.Path)
		assert.Equal(t, "Bearer "+testToken, r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "spamwatch-go", r.Header.Get("User-Agent"))
		assert.Empty(t, r.Header.Get("Content-Type"))

		_, err := uuid.Parse(r.Header.Get("X-Request-ID"))
		assert.NoError(t, err)

		writeJSON(w, http.StatusOK, map[string]int{"total_ban_count": 42})
	})

	stats, err := client.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), stats.TotalBanCount)
}

func TestBaseURLWithPrefix(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/banlist/777000", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{"id": 777000, "reason": "spam", "admin": 1, "date": 1586000000})
	}))
	defer server.Close()

	client, err := NewClient(testToken, WithBaseURL(server.URL+"/api/v1/"))
	require.NoError(t, err)

	ban, err := client.GetBan(context.Background(), 777000)
	require.NoError(t, err)
	assert.Equal(t, int64(777000), ban.UserID)
	assert.Equal(t, "spam", ban.Reason)
}

func TestAuthenticate(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tokens/self", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{
			"id": 7, "permission": "Admin", "retired": false, "token": testToken, "userid": 1234,
		})
	})

	self, err := client.Authenticate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, self.ID)
	assert.Equal(t, PermissionAdmin, self.Permission)

	cached := client.Self()
	require.NotNil(t, cached)
	assert.Equal(t, *self, *cached)

	// the cache hands out copies
	cached.Permission = PermissionRoot
	assert.Equal(t, PermissionAdmin, client.Self().Permission)
}

func TestAuthenticateUnauthorized(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"code": 401, "error": "Unauthorized"})
	})

	_, err := client.Authenticate(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Nil(t, client.Self())
}

func TestForbiddenLooksUpPermission(t *testing.T) {
	var selfCalls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tokens/self":
			selfCalls.Add(1)
			writeJSON(w, http.StatusOK, map[string]any{"id": 2, "permission": "User", "retired": false})
		default:
			writeJSON(w, http.StatusForbidden, map[string]any{"code": 403, "error": "Forbidden"})
		}
	})

	_, err := client.GetTokens(context.Background())
	var forbidden *ForbiddenError
	require.ErrorAs(t, err, &forbidden)
	assert.True(t, forbidden.Known)
	assert.Equal(t, PermissionUser, forbidden.Permission)
	assert.Equal(t, "tokens", forbidden.Path)
	assert.Contains(t, err.Error(), "'User'")

	// second refusal uses the cached identity
	_, err = client.GetTokens(context.Background())
	require.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, int32(1), selfCalls.Load())
}

func TestForbiddenLookupFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tokens/self":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusForbidden)
		}
	})

	err := client.DeleteBan(context.Background(), 1)
	var forbidden *ForbiddenError
	require.ErrorAs(t, err, &forbidden)
	assert.False(t, forbidden.Known)
	assert.ErrorIs(t, forbidden.LookupErr, ErrAPI)
	assert.NotErrorIs(t, err, ErrAPI)
}

func TestForbiddenOnSelfDoesNotRecurse(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := client.GetSelf(context.Background())
	var forbidden *ForbiddenError
	require.ErrorAs(t, err, &forbidden)
	assert.False(t, forbidden.Known)
	assert.NoError(t, forbidden.LookupErr)
	assert.Equal(t, int32(1), calls.Load())
}

func TestBanLifecycle(t *testing.T) {
	banned := map[string]bool{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/banlist":
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			body, err := io.ReadAll(r.Body)
			assert.NoError(t, err)
			assert.JSONEq(t, `[{"id":777000,"reason":"spam","message":"buy crypto"}]`, string(body))
			banned["777000"] = true
			w.WriteHeader(http.StatusCreated)
		case r.Method == http.MethodDelete && r.URL.Path == "/banlist/777000":
			if !banned["777000"] {
				writeJSON(w, http.StatusNotFound, map[string]any{"code": 404, "error": "Not Found"})
				return
			}
			delete(banned, "777000")
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})

	ctx := context.Background()
	require.NoError(t, client.AddBan(ctx, 777000, "spam", "buy crypto"))
	require.NoError(t, client.DeleteBan(ctx, 777000))

	err := client.DeleteBan(ctx, 777000)
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "banlist/777000", notFound.Path)
}

func TestAddBansEmpty(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	require.NoError(t, client.AddBans(context.Background(), nil))
	assert.Zero(t, calls.Load())
}

func TestAddBanBadRequest(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"code": 400, "error": "Bad Request", "reason": "reason must not be empty"})
	})

	err := client.AddBan(context.Background(), 1, "", "")
	var bad *BadRequestError
	require.ErrorAs(t, err, &bad)
	assert.Equal(t, "reason must not be empty", bad.Reason)
}

func TestGetBanRateLimited(t *testing.T) {
	until := time.Now().Add(30 * time.Second).Unix()
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusTooManyRequests, map[string]any{"code": 429, "error": "Too Many Requests", "until": until})
	})

	_, err := client.GetBan(context.Background(), 1)
	var rl *TooManyRequestsError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, time.Unix(until, 0), rl.RetryAfter)
}

func TestTokenEndpoints(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/tokens":
			writeJSON(w, http.StatusOK, []map[string]any{
				{"id": 1, "permission": "Root", "retired": false, "token": "root-token", "userid": 1},
				{"id": 2, "permission": "User", "retired": true, "token": "old-token", "userid": 2},
			})
		case r.Method == http.MethodPost && r.URL.Path == "/tokens":
			var body map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, map[string]any{"id": float64(99), "permission": "Admin"}, body)
			writeJSON(w, http.StatusCreated, map[string]any{"id": 3, "permission": "Admin", "retired": false, "token": "new-token", "userid": 99})
		case r.Method == http.MethodGet && r.URL.Path == "/tokens/3":
			writeJSON(w, http.StatusOK, map[string]any{"id": 3, "permission": "Admin", "retired": false, "token": "new-token", "userid": 99})
		case r.Method == http.MethodDelete && r.URL.Path == "/tokens/3":
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})

	ctx := context.Background()

	tokens, err := client.GetTokens(ctx)
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.True(t, tokens[1].Retired)

	created, err := client.CreateToken(ctx, 99, PermissionAdmin)
	require.NoError(t, err)
	assert.Equal(t, "new-token", created.APIToken)

	got, err := client.GetToken(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, *created, *got)

	require.NoError(t, client.DeleteToken(ctx, 3))
}

func TestCreateTokenRejectsUnknownPermission(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	_, err := client.CreateToken(context.Background(), 1, Permission(7))
	require.Error(t, err)
	assert.Zero(t, calls.Load())
}

func TestGetBanIDs(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/banlist/all", r.URL.Path)
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, "1\n22\n333\n")
	})

	ids, err := client.GetBanIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 22, 333}, ids)
}

func TestGetBansNoContent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	bans, err := client.GetBans(context.Background())
	require.NoError(t, err)
	assert.Empty(t, bans)
}

func TestVersionEndpoint(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"major": 0, "minor": 3, "patch": 0, "version": "0.3.0"})
	})

	v, err := client.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0.3.0", v.String())
	assert.True(t, v.Supported())
}

func TestDecodeFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "malformed json", status: http.StatusOK, body: `{"total_ban_count":`},
		{name: "empty entity", status: http.StatusOK, body: ``},
		{name: "no content entity", status: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := client.Stats(context.Background())
			var decodeErr *DecodeError
			require.ErrorAs(t, err, &decodeErr)
			assert.Equal(t, "stats", decodeErr.Path)
		})
	}
}

func TestTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client, err := NewClient(testToken, WithBaseURL(url))
	require.NoError(t, err)

	_, err = client.Stats(context.Background())
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, http.MethodGet, transportErr.Method)
	assert.Equal(t, "stats", transportErr.Path)
}

func TestCancellation(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := client.GetBan(ctx, 1)
	require.ErrorIs(t, err, ErrTransport)
	assert.True(t, errors.Is(err, context.Canceled))
}

type stubTransport struct {
	status int
	body   []byte
	err    error

	method string
	url    string
	header http.Header
	sent   []byte
}

func (s *stubTransport) Send(_ context.Context, method, url string, header http.Header, body []byte) (int, []byte, error) {
	s.method, s.url, s.header, s.sent = method, url, header, body
	return s.status, s.body, s.err
}

func TestWithTransport(t *testing.T) {
	stub := &stubTransport{status: http.StatusCreated}
	client, err := NewClient(testToken, WithTransport(stub), WithBaseURL("https://sw.example.com"))
	require.NoError(t, err)

	err = client.AddBans(context.Background(), []BanRequest{{UserID: 1, Reason: "spam"}, {UserID: 2, Reason: "scam"}})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, stub.method)
	assert.Equal(t, "https://sw.example.com/banlist", stub.url)
	assert.Equal(t, "application/json", stub.header.Get("Content-Type"))
	assert.JSONEq(t, `[{"id":1,"reason":"spam"},{"id":2,"reason":"scam"}]`, string(stub.sent))
}
