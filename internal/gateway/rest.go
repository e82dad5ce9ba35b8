package gateway

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
	"unicode/utf8"

	"github.com/mwantia/modbot/internal/event"
	"github.com/mwantia/modbot/internal/sink"
)

// maxMessageLength is the platform limit in characters, not bytes.
const maxMessageLength = 2000

// REST performs outbound actions against the platform's HTTP API.
type REST struct {
	base   string
	token  string
	client *http.Client
}

func NewREST(base, token string, timeout time.Duration) *REST {
	return &REST{
		base:   strings.TrimRight(base, "/"),
		token:  token,
		client: &http.Client{Timeout: timeout},
	}
}

type messageReference struct {
	MessageID       string `json:"message_id"`
	FailIfNotExists bool   `json:"fail_if_not_exists"`
}

type allowedMentions struct {
	Parse []string `json:"parse"`
}

type createMessage struct {
	Content          string            `json:"content"`
	MessageReference *messageReference `json:"message_reference,omitempty"`
	AllowedMentions  allowedMentions   `json:"allowed_mentions"`
}

func (r *REST) SendMessage(ctx context.Context, channelID, content, replyTo string) error {
	content = truncateMessage(content)
	payload := createMessage{
		Content: content,
		// mentions render but never ping
		AllowedMentions: allowedMentions{Parse: []string{}},
	}
	if replyTo != "" {
		payload.MessageReference = &messageReference{MessageID: replyTo}
	}
	return r.do(ctx, http.MethodPost, fmt.Sprintf("/channels/%s/messages", channelID), payload, nil)
}

func (r *REST) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return r.do(ctx, http.MethodDelete, fmt.Sprintf("/channels/%s/messages/%s", channelID, messageID), nil, nil)
}

func (r *REST) BulkDeleteMessages(ctx context.Context, channelID string, messageIDs []string) error {
	payload := map[string][]string{"messages": messageIDs}
	return r.do(ctx, http.MethodPost, fmt.Sprintf("/channels/%s/messages/bulk-delete", channelID), payload, nil)
}

func (r *REST) AddRole(ctx context.Context, guildID, userID, roleID string) error {
	return r.do(ctx, http.MethodPut, fmt.Sprintf("/guilds/%s/members/%s/roles/%s", guildID, userID, roleID), nil, nil)
}

func (r *REST) RemoveRole(ctx context.Context, guildID, userID, roleID string) error {
	return r.do(ctx, http.MethodDelete, fmt.Sprintf("/guilds/%s/members/%s/roles/%s", guildID, userID, roleID), nil, nil)
}

func (r *REST) AddReaction(ctx context.Context, channelID, messageID, emoji string) error {
	path := fmt.Sprintf("/channels/%s/messages/%s/reactions/%s/@me", channelID, messageID, url.PathEscape(emoji))
	return r.do(ctx, http.MethodPut, path, nil, nil)
}

type apiMessage struct {
	ID        string    `json:"id"`
	ChannelID string    `json:"channel_id"`
	Timestamp time.Time `json:"timestamp"`
	Author    struct {
		ID  string `json:"id"`
		Bot bool   `json:"bot"`
	} `json:"author"`
}

// RecentMessages pages backwards through the channel history, newest first.
func (r *REST) RecentMessages(ctx context.Context, channelID string, limit int) ([]event.Message, error) {
	var messages []event.Message
	before := ""

	for len(messages) < limit {
		query := url.Values{}
		query.Set("limit", strconv.Itoa(min(100, limit-len(messages))))
		if before != "" {
			query.Set("before", before)
		}

		var page []apiMessage
		path := fmt.Sprintf("/channels/%s/messages?%s", channelID, query.Encode())
		if err := r.do(ctx, http.MethodGet, path, nil, &page); err != nil {
			return nil, err
		}
		for _, m := range page {
			messages = append(messages, event.Message{
				ID:        m.ID,
				ChannelID: m.ChannelID,
				AuthorID:  m.Author.ID,
				Bot:       m.Author.Bot,
				Timestamp: m.Timestamp,
			})
		}
		if len(page) == 0 {
			break
		}
		before = page[len(page)-1].ID
	}
	return messages, nil
}

type rateLimitBody struct {
	RetryAfter float64 `json:"retry_after"`
	Global     bool    `json:"global"`
}

// do sends one request. 429 becomes *sink.RateLimitError, other 4xx are permanent,
// 5xx and transport errors are left retryable.
func (r *REST) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return sink.Permanent(fmt.Errorf("failed to encode request: %w", err))
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.base+path, body)
	if err != nil {
		return sink.Permanent(err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bot "+r.token)

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return rateLimited(resp.Header, respBody)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, truncate(respBody))
	case resp.StatusCode >= 400:
		return sink.Permanent(fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, truncate(respBody)))
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode %s %s: %w", method, path, err)
		}
	}
	return nil
}

func rateLimited(header http.Header, body []byte) *sink.RateLimitError {
	limited := &sink.RateLimitError{RetryAfter: time.Second}

	var parsed rateLimitBody
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.RetryAfter > 0 {
		limited.RetryAfter = time.Duration(parsed.RetryAfter * float64(time.Second))
		limited.Global = parsed.Global
		return limited
	}
	if v, err := strconv.ParseFloat(header.Get("Retry-After"), 64); err == nil && v > 0 {
		limited.RetryAfter = time.Duration(v * float64(time.Second))
	}
	return limited
}

func truncateMessage(content string) string {
	if utf8.RuneCountInString(content) <= maxMessageLength {
		return content
	}
	runes := []rune(content)
	return string(runes[:maxMessageLength-3]) + "..."
}

func truncate(body []byte) string {
	if len(body) > 256 {
		return string(body[:256])
	}
	return string(body)
}
