package event

import "time"

// Kind identifies what kind of gateway event produced an Event.
type Kind int

const (
	KindMessage Kind = iota
	KindInteraction
	KindReaction
)

func (k Kind) String() string {
	switch k {
	case KindMessage:
		return "message"
	case KindInteraction:
		return "interaction"
	case KindReaction:
		return "reaction"
	default:
		return "unknown"
	}
}

// Author is the platform user behind an event.
type Author struct {
	ID    string   `json:"id"`
	Name  string   `json:"username"`
	Bot   bool     `json:"bot"`
	Roles []string `json:"roles"`
}

// Event is the gateway collaborator's normalized record of something that happened.
type Event struct {
	Kind        Kind      `json:"kind"`
	GuildID     string    `json:"guild_id"`
	ChannelID   string    `json:"channel_id"`
	MessageID   string    `json:"message_id"`
	Author      Author    `json:"author"`
	Content     string    `json:"content"`
	Command     string    `json:"command"`
	Options     []string  `json:"options"`
	Emoji       string    `json:"emoji"`
	Attachments []string  `json:"attachments"`
	Timestamp   time.Time `json:"timestamp"`
}
