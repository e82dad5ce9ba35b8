package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mwantia/modbot/internal/dispatch"
)

func (m *module) help(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	if name := req.Invocation.Tail(0); name != "" {
		cmd, ok := req.Registry.Lookup(name)
		if !ok || cmd.Hidden {
			return nil, dispatch.WithReply(dispatch.ErrUnknownCommand, fmt.Sprintf("No command named `%s`.", name))
		}

		var b strings.Builder
		fmt.Fprintf(&b, "`%s%s`\n%s", req.Prefix, cmd.Usage, cmd.Description)
		if len(cmd.Aliases) > 0 {
			fmt.Fprintf(&b, "\nAliases: %s", strings.Join(cmd.Aliases, ", "))
		}
		return dispatch.Reply(b.String()), nil
	}

	var categories []string
	byCategory := make(map[string][]string)
	for _, cmd := range req.Registry.Commands() {
		if cmd.Hidden {
			continue
		}
		if _, seen := byCategory[cmd.Category]; !seen {
			categories = append(categories, cmd.Category)
		}
		byCategory[cmd.Category] = append(byCategory[cmd.Category],
			fmt.Sprintf("`%s%s` %s", req.Prefix, cmd.Usage, cmd.Description))
	}

	var b strings.Builder
	for i, category := range categories {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "**%s**\n%s", category, strings.Join(byCategory[category], "\n"))
	}
	fmt.Fprintf(&b, "\n\nUse `%shelp <command>` for details.", req.Prefix)
	return dispatch.Reply(b.String()), nil
}

func (m *module) uptime(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	return dispatch.Reply("Uptime: " + formatDuration(m.opts.Now().Sub(m.opts.StartedAt))), nil
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	if days > 0 {
		return fmt.Sprintf("%dd %s", days, d)
	}
	return d.String()
}
