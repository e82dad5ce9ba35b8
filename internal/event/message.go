package event

import "time"

// Message is a chat message as returned by a channel history read.
type Message struct {
	ID        string    `json:"id"`
	ChannelID string    `json:"channel_id"`
	AuthorID  string    `json:"author_id"`
	Bot       bool      `json:"bot"`
	Timestamp time.Time `json:"timestamp"`
}
