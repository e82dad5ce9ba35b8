package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/mwantia/modbot/internal/sink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestREST(t *testing.T, handler http.HandlerFunc) *REST {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewREST(server.URL, "secret", 5*time.Second)
}

func TestSendMessageReply(t *testing.T) {
	var got createMessage
	rest := newTestREST(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/channels/c1/messages", r.URL.Path)
		assert.Equal(t, "Bot secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"m2"}`))
	})

	require.NoError(t, rest.SendMessage(context.Background(), "c1", "hello", "m1"))
	assert.Equal(t, "hello", got.Content)
	require.NotNil(t, got.MessageReference)
	assert.Equal(t, "m1", got.MessageReference.MessageID)
}

func TestSendMessageTruncates(t *testing.T) {
	var got createMessage
	rest := newTestREST(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	})

	long := make([]byte, 2500)
	for i := range long {
		long[i] = 'a'
	}
	require.NoError(t, rest.SendMessage(context.Background(), "c1", string(long), ""))
	assert.Len(t, got.Content, maxMessageLength)
	assert.Nil(t, got.MessageReference)
}

func TestSendMessageCountsCharacters(t *testing.T) {
	var got createMessage
	rest := newTestREST(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	})
	ctx := context.Background()

	// 1500 characters, 3000 bytes
	short := strings.Repeat("é", 1500)
	require.NoError(t, rest.SendMessage(ctx, "c1", short, ""))
	assert.Equal(t, short, got.Content)

	long := strings.Repeat("日本", 1500)
	require.NoError(t, rest.SendMessage(ctx, "c1", long, ""))
	assert.True(t, utf8.ValidString(got.Content))
	assert.Equal(t, maxMessageLength, utf8.RuneCountInString(got.Content))
	assert.True(t, strings.HasSuffix(got.Content, "..."))
	assert.True(t, strings.HasPrefix(got.Content, "日本日本"))
}

func TestRoutes(t *testing.T) {
	type call struct{ method, path string }
	var calls []call
	rest := newTestREST(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, call{r.Method, r.URL.EscapedPath()})
		w.WriteHeader(http.StatusNoContent)
	})
	ctx := context.Background()

	require.NoError(t, rest.DeleteMessage(ctx, "c1", "m1"))
	require.NoError(t, rest.BulkDeleteMessages(ctx, "c1", []string{"m1", "m2"}))
	require.NoError(t, rest.AddRole(ctx, "g1", "u1", "r1"))
	require.NoError(t, rest.RemoveRole(ctx, "g1", "u1", "r1"))
	require.NoError(t, rest.AddReaction(ctx, "c1", "m1", "👌"))

	assert.Equal(t, []call{
		{http.MethodDelete, "/channels/c1/messages/m1"},
		{http.MethodPost, "/channels/c1/messages/bulk-delete"},
		{http.MethodPut, "/guilds/g1/members/u1/roles/r1"},
		{http.MethodDelete, "/guilds/g1/members/u1/roles/r1"},
		{http.MethodPut, "/channels/c1/messages/m1/reactions/%F0%9F%91%8C/@me"},
	}, calls)
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		header    map[string]string
		body      string
		permanent bool
		retry     time.Duration
		global    bool
	}{
		{name: "rate limit body", status: 429, body: `{"retry_after":1.5,"global":true}`, retry: 1500 * time.Millisecond, global: true},
		{name: "rate limit header", status: 429, header: map[string]string{"Retry-After": "2"}, retry: 2 * time.Second},
		{name: "rate limit default", status: 429, retry: time.Second},
		{name: "server error", status: 502},
		{name: "forbidden", status: 403, body: `{"message":"Missing Permissions"}`, permanent: true},
		{name: "not found", status: 404, permanent: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rest := newTestREST(t, func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tt.header {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			err := rest.DeleteMessage(context.Background(), "c1", "m1")
			require.Error(t, err)

			var limited *sink.RateLimitError
			var permanent *sink.PermanentError
			switch {
			case tt.retry > 0:
				require.ErrorAs(t, err, &limited)
				assert.Equal(t, tt.retry, limited.RetryAfter)
				assert.Equal(t, tt.global, limited.Global)
			case tt.permanent:
				assert.ErrorAs(t, err, &permanent)
			default:
				assert.False(t, errors.As(err, &permanent))
				assert.False(t, errors.As(err, &limited))
			}
		})
	}
}

func TestTransportErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	rest := NewREST(server.URL, "secret", time.Second)
	err := rest.AddRole(context.Background(), "g1", "u1", "r1")
	require.Error(t, err)

	var permanent *sink.PermanentError
	assert.False(t, errors.As(err, &permanent))
}

func TestRecentMessagesPaginates(t *testing.T) {
	var befores []string
	rest := newTestREST(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/channels/c1/messages", r.URL.Path)
		limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
		assert.NoError(t, err)
		assert.LessOrEqual(t, limit, 100)

		before := r.URL.Query().Get("before")
		befores = append(befores, before)

		start := 0
		if before != "" {
			start, _ = strconv.Atoi(before)
			start++
		}
		// the channel holds 130 messages, IDs counting down from newest
		var page []map[string]any
		for i := start; i < start+limit && i < 130; i++ {
			page = append(page, map[string]any{
				"id":         strconv.Itoa(i),
				"channel_id": "c1",
				"timestamp":  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339),
				"author":     map[string]any{"id": fmt.Sprintf("u%d", i%3), "bot": i%2 == 0},
			})
		}
		if page == nil {
			page = []map[string]any{}
		}
		assert.NoError(t, json.NewEncoder(w).Encode(page))
	})

	messages, err := rest.RecentMessages(context.Background(), "c1", 150)
	require.NoError(t, err)
	assert.Len(t, messages, 130)
	assert.Equal(t, []string{"", "99", "129"}, befores)
	assert.Equal(t, "0", messages[0].ID)
	assert.Equal(t, "u1", messages[1].AuthorID)
	assert.True(t, messages[0].Bot)
}
