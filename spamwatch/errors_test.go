package spamwatch

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{name: "ok", status: 200, body: `{}`},
		{name: "created", status: 201, body: `{}`},
		{name: "no content", status: 204},
		{name: "bad request", status: 400, body: `{"code":400,"error":"Bad Request","reason":"missing id"}`, want: ErrBadRequest},
		{name: "unauthorized", status: 401, want: ErrUnauthorized},
		{name: "forbidden", status: 403, want: ErrForbidden},
		{name: "not found", status: 404, want: ErrNotFound},
		{name: "rate limited", status: 429, body: `{"until":1700000000}`, want: ErrTooManyRequests},
		{name: "server error", status: 500, body: "boom", want: ErrAPI},
		{name: "teapot", status: 418, want: ErrAPI},
	}

	sentinels := []error{
		ErrBadRequest, ErrUnauthorized, ErrForbidden, ErrNotFound,
		ErrTooManyRequests, ErrDecode, ErrTransport, ErrAPI,
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify("banlist/1", tt.status, []byte(tt.body))
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)

			// exactly one class matches
			for _, s := range sentinels {
				assert.Equal(t, s == tt.want, errors.Is(err, s), "sentinel %v", s)
			}
		})
	}
}

func TestClassifyBadRequestReason(t *testing.T) {
	t.Run("json reason", func(t *testing.T) {
		err := classify("banlist", 400, []byte(`{"code":400,"error":"Bad Request","reason":"reason is required"}`))
		var bad *BadRequestError
		require.ErrorAs(t, err, &bad)
		assert.Equal(t, "reason is required", bad.Reason)
		assert.Contains(t, err.Error(), "reason is required")
	})

	t.Run("plain body", func(t *testing.T) {
		err := classify("banlist", 400, []byte("  not json \n"))
		var bad *BadRequestError
		require.ErrorAs(t, err, &bad)
		assert.Equal(t, "not json", bad.Reason)
	})
}

func TestClassifyRetryAfter(t *testing.T) {
	t.Run("until is honoured", func(t *testing.T) {
		err := classify("banlist/1", 429, []byte(`{"code":429,"error":"Too Many Requests","until":1700000000}`))
		var rl *TooManyRequestsError
		require.ErrorAs(t, err, &rl)
		assert.Equal(t, time.Unix(1700000000, 0), rl.RetryAfter)
		assert.Equal(t, 10*time.Second, rl.RetryIn(time.Unix(1699999990, 0)))
		assert.Zero(t, rl.RetryIn(time.Unix(1700000100, 0)))
	})

	t.Run("missing until", func(t *testing.T) {
		err := classify("banlist/1", 429, nil)
		var rl *TooManyRequestsError
		require.ErrorAs(t, err, &rl)
		assert.True(t, rl.RetryAfter.IsZero())
	})
}

func TestClassifyAPIErrorKeepsStatus(t *testing.T) {
	err := classify("stats", 502, []byte("Bad Gateway"))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 502, apiErr.StatusCode)
	assert.Equal(t, "Bad Gateway", apiErr.Body)
	assert.Equal(t, "spamwatch: stats returned status 502: Bad Gateway", err.Error())
}

func TestErrorsSurviveWrapping(t *testing.T) {
	inner := errors.New("connection refused")
	err := fmt.Errorf("check: %w", &TransportError{Method: "GET", Path: "stats", Err: inner})

	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, inner)
	assert.NotErrorIs(t, err, ErrAPI)

	decodeErr := fmt.Errorf("wrap: %w", &DecodeError{Path: "stats", Err: errEmptyBody})
	assert.ErrorIs(t, decodeErr, ErrDecode)
	assert.ErrorIs(t, decodeErr, errEmptyBody)
}

func TestForbiddenErrorMessage(t *testing.T) {
	unknown := &ForbiddenError{Path: "tokens"}
	assert.NotContains(t, unknown.Error(), "'")

	known := &ForbiddenError{Path: "tokens", Permission: PermissionAdmin, Known: true}
	assert.Contains(t, known.Error(), "'Admin'")
}
