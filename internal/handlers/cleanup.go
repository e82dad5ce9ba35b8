package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mwantia/modbot/internal/dispatch"
	"github.com/mwantia/modbot/internal/sink"
)

const (
	cleanupMax = 500
	// the platform refuses to bulk delete anything older
	cleanupMaxAge = 14 * 24 * time.Hour
)

func (m *module) cleanup(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	inv := req.Invocation

	count := 1
	switch len(inv.Args) {
	case 0:
	case 1:
		n, err := strconv.Atoi(inv.Arg(0))
		if err != nil || n < 1 || n > cleanupMax {
			return nil, dispatch.ErrUsage
		}
		count = n
	default:
		return nil, dispatch.ErrUsage
	}

	if m.history == nil {
		return dispatch.Reply("Message history is unavailable."), nil
	}

	// one extra for the invoking message, which is never deleted
	messages, err := m.history.RecentMessages(ctx, inv.Origin.ChannelID, count+1)
	var limited *sink.RateLimitError
	if errors.As(err, &limited) {
		req.Logger.Warn("Cleanup by %s in %s: history read rate limited for %s", inv.Actor.ID, inv.Origin.ChannelID, limited.RetryAfter)
		return dispatch.Reply("I'm being rate limited right now; try again shortly."), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read channel history: %w", err)
	}

	cutoff := m.opts.Now().Add(-cleanupMaxAge)
	ids := make([]string, 0, count)
	for _, msg := range messages {
		if len(ids) == count {
			break
		}
		if msg.ID == inv.Origin.MessageID || msg.Timestamp.Before(cutoff) {
			continue
		}
		ids = append(ids, msg.ID)
	}
	if len(ids) == 0 {
		return dispatch.Reply("Nothing to clean up."), nil
	}

	ack, err := req.Sink.Enqueue(ctx, sink.DeleteMessages(inv.Origin.ChannelID, ids...))
	var failure *sink.Failure
	if err != nil && !errors.As(err, &failure) {
		return nil, err
	}
	if len(ack.Failed) > 0 {
		req.Logger.Warn("Cleanup by %s in %s: %d deleted, %d failed: %s",
			inv.Actor.ID, inv.Origin.ChannelID, ack.Delivered, len(ack.Failed), strings.Join(ack.Failed, ","))
	} else {
		req.Logger.Info("Cleanup by %s in %s: %d deleted", inv.Actor.ID, inv.Origin.ChannelID, ack.Delivered)
	}

	var reply string
	if len(ack.Failed) == 0 && err == nil {
		reply = fmt.Sprintf("Deleted %d message(s).", ack.Delivered)
	} else {
		reply = fmt.Sprintf("Deleted %d of %d messages; %d could not be deleted.", ack.Delivered, len(ids), len(ids)-ack.Delivered)
	}

	result := dispatch.Reply(reply)
	if inv.Origin.MessageID != "" {
		result.Actions = append(result.Actions, sink.AddReaction(inv.Origin.ChannelID, inv.Origin.MessageID, "👌"))
	}
	return result, nil
}
