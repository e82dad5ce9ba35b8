package handlers

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/mwantia/modbot/internal/dispatch"
	"github.com/mwantia/modbot/internal/event"
	"github.com/mwantia/modbot/internal/policy"
)

// History reads the most recent messages of a channel, newest first.
type History interface {
	RecentMessages(ctx context.Context, channelID string, limit int) ([]event.Message, error)
}

type Options struct {
	OptInRoleID      string
	ModmailChannelID string
	StartedAt        time.Time
	Now              func() time.Time
}

type module struct {
	opts    Options
	history History
}

// Commands returns the full command table.
func Commands(opts Options, history History) []dispatch.Command {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.StartedAt.IsZero() {
		opts.StartedAt = opts.Now()
	}
	m := &module{opts: opts, history: history}

	var commands []dispatch.Command
	commands = append(commands, m.tagCommands()...)
	commands = append(commands, m.roleCommands()...)
	commands = append(commands,
		dispatch.Command{
			Name:        "cleanup",
			Description: "Deletes the most recent messages in this channel.",
			Usage:       "cleanup [count]",
			Category:    "Moderation",
			Permission:  policy.PermissionRestricted,
			Handler:     m.cleanup,
		},
		dispatch.Command{
			Name:        "modmail",
			Description: "Sends a private message to the moderators.",
			Usage:       "modmail <message>",
			Category:    "Moderation",
			Handler:     m.modmail,
		},
		dispatch.Command{
			Name:        "help",
			Description: "Shows available commands or details about one.",
			Usage:       "help [command]",
			Category:    "Miscellaneous",
			Handler:     m.help,
		},
		dispatch.Command{
			Name:        "uptime",
			Description: "Shows how long the bot has been running.",
			Usage:       "uptime",
			Category:    "Miscellaneous",
			Handler:     m.uptime,
		},
	)
	return commands
}

// parseMember accepts <@id>, <@!id> or a bare numeric id.
func parseMember(arg string) (string, bool) {
	id := strings.TrimSpace(arg)
	if strings.HasPrefix(id, "<@") && strings.HasSuffix(id, ">") {
		id = strings.TrimPrefix(strings.TrimSuffix(id[2:], ">"), "!")
	}
	if id == "" {
		return "", false
	}
	if _, err := strconv.ParseUint(id, 10, 64); err != nil {
		return "", false
	}
	return id, true
}

func mention(id string) string {
	return "<@" + id + ">"
}
