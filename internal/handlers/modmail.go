package handlers

import (
	"context"
	"fmt"

	"github.com/mwantia/modbot/internal/dispatch"
	"github.com/mwantia/modbot/internal/event"
	"github.com/mwantia/modbot/internal/sink"
)

// modmail relays a message to the moderator channel and removes the public copy.
func (m *module) modmail(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	inv := req.Invocation
	text := inv.Tail(0)
	if text == "" {
		return nil, dispatch.ErrUsage
	}
	if m.opts.ModmailChannelID == "" {
		return dispatch.Reply("Modmail is not configured."), nil
	}

	relay := fmt.Sprintf("**Modmail** from %s in <#%s>:\n%s", mention(inv.Actor.ID), inv.Origin.ChannelID, text)
	result := &dispatch.Result{
		Actions: []sink.Action{sink.SendMessage(m.opts.ModmailChannelID, relay)},
	}

	confirm := "Your message was forwarded to the moderators."
	if inv.Trigger == event.KindMessage && inv.Origin.MessageID != "" {
		result.Actions = append(result.Actions,
			sink.DeleteMessages(inv.Origin.ChannelID, inv.Origin.MessageID),
			sink.SendMessage(inv.Origin.ChannelID, mention(inv.Actor.ID)+" "+confirm),
		)
		return result, nil
	}

	result.Reply = confirm
	return result, nil
}
