package event

import (
	"slices"
	"strings"
	"time"
)

type Actor struct {
	ID    string
	Name  string
	Roles []string
}

// HasRole reports whether the actor carries role. An empty role never matches.
func (a Actor) HasRole(role string) bool {
	return role != "" && slices.Contains(a.Roles, role)
}

type Origin struct {
	GuildID   string
	ChannelID string
	MessageID string
}

// Invocation is a single user-triggered command, independent of how it was triggered.
type Invocation struct {
	ID          string
	Actor       Actor
	Origin      Origin
	Command     string
	Args        []string
	Trigger     Kind
	Attachments []string
	ReceivedAt  time.Time

	raw   string
	spans [][2]int
}

// Tail returns the argument text starting at argument n, as the user typed it.
// A single trailing quoted argument is returned without its quotes.
func (inv *Invocation) Tail(n int) string {
	switch {
	case n < 0 || n >= len(inv.Args):
		return ""
	case n == len(inv.Args)-1:
		return inv.Args[n]
	}
	return strings.TrimSpace(inv.raw[inv.spans[n][0]:])
}

// Arg returns argument n or an empty string.
func (inv *Invocation) Arg(n int) string {
	if n < 0 || n >= len(inv.Args) {
		return ""
	}
	return inv.Args[n]
}
