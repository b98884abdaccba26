package spamwatch

import (
	"context"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckUsers(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch strings.TrimPrefix(r.URL.Path, "/banlist/") {
		case "1", "3":
			writeJSON(w, http.StatusOK, map[string]any{"id": 1, "reason": "spam", "admin": 1, "date": 1586000000})
		case "4":
			w.WriteHeader(http.StatusBadGateway)
		default:
			writeJSON(w, http.StatusNotFound, map[string]any{"code": 404, "error": "Not Found"})
		}
	}, WithConcurrency(2))

	result, err := client.CheckUsers(context.Background(), []int64{5, 1, 2, 3, 4, 2})
	require.NoError(t, err)

	assert.Len(t, result.Banned, 2)
	assert.Contains(t, result.Banned, int64(1))
	assert.Contains(t, result.Banned, int64(3))
	assert.Equal(t, []int64{2, 5}, result.Clean)
	require.Contains(t, result.Failed, int64(4))
	assert.ErrorIs(t, result.Failed[4], ErrAPI)
}

func TestCheckUsersEmpty(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	result, err := client.CheckUsers(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, result.Banned)
	assert.Empty(t, result.Clean)
	assert.Zero(t, calls.Load())
}

func TestCheckUsersCancelled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{"code": 404, "error": "Not Found"})
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := client.CheckUsers(ctx, []int64{1, 2, 3})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, result.Banned)
	assert.Empty(t, result.Clean)
}

func TestCheckUsersStopsOnRateLimit(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusTooManyRequests, map[string]any{"code": 429, "error": "Too Many Requests", "until": 1700000000})
	}, WithConcurrency(1))

	result, err := client.CheckUsers(context.Background(), []int64{1, 2, 3})
	var rl *TooManyRequestsError
	require.ErrorAs(t, err, &rl)
	assert.Empty(t, result.Banned)
	assert.Empty(t, result.Failed)
}

func TestDeleteBans(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		switch strings.TrimPrefix(r.URL.Path, "/banlist/") {
		case "2":
			writeJSON(w, http.StatusNotFound, map[string]any{"code": 404, "error": "Not Found"})
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	})

	result := client.DeleteBans(context.Background(), []int64{3, 2, 1})
	assert.Equal(t, 3, result.Requested)
	assert.Equal(t, []int64{1, 3}, result.Successful)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, int64(2), result.Failed[0].UserID)
	assert.ErrorIs(t, result.Failed[0], ErrNotFound)
	assert.Contains(t, result.Failed[0].Error(), "failed to unban user 2")
}

func TestDeleteBansEmpty(t *testing.T) {
	client, err := NewClient(testToken)
	require.NoError(t, err)

	result := client.DeleteBans(context.Background(), nil)
	assert.Zero(t, result.Requested)
	assert.Empty(t, result.Successful)
	assert.Empty(t, result.Failed)
}
