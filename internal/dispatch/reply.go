package dispatch

import (
	"errors"
	"fmt"

	"github.com/mwantia/modbot/internal/policy"
	"github.com/mwantia/modbot/internal/sink"
	"github.com/mwantia/modbot/pkg/db/store"
)

const (
	replyTimeout   = "Sorry, that took too long. Please try again."
	replyExhausted = "Sorry, I couldn't complete that action right now."
	replyInternal  = "Sorry, something went wrong while running that command."
)

// replyFor turns an error into the text shown to the invoking user.
func (d *Dispatcher) replyFor(err error, cmd *Command, name string) string {
	var override *ReplyError
	if errors.As(err, &override) {
		return override.Text
	}

	var denied *policy.DeniedError
	if errors.As(err, &denied) {
		switch denied.Reason {
		case policy.ReasonInsufficientRole:
			return "This command is only available to moderators."
		case policy.ReasonRestricted:
			return "Tag is restricted."
		case policy.ReasonSelfOnly:
			return "You can only change your own roles."
		case policy.ReasonFeatureDisabled:
			return "This command is unavailable because persistence is disabled."
		}
	}

	switch {
	case errors.Is(err, ErrUnknownCommand):
		return fmt.Sprintf("Unknown command `%s%s`. Use `%shelp` for available commands.", d.prefix, name, d.prefix)
	case errors.Is(err, store.ErrNameCollision):
		return "Tag already exists."
	case errors.Is(err, store.ErrNotFound):
		return "Tag not found."
	case errors.Is(err, store.ErrAliasOfAlias):
		return "Aliases must point at a tag, not at another alias."
	case errors.Is(err, store.ErrIsAlias):
		return "That name is an alias, not a tag."
	case errors.Is(err, ErrUsage), errors.Is(err, store.ErrInvalidName), errors.Is(err, store.ErrEmptyContent):
		return d.usage(cmd)
	case errors.Is(err, ErrTimeout):
		return replyTimeout
	case errors.Is(err, sink.ErrExhausted), errors.Is(err, sink.ErrRejected):
		return replyExhausted
	}
	return replyInternal
}

func (d *Dispatcher) usage(cmd *Command) string {
	if cmd == nil || cmd.Usage == "" {
		return replyInternal
	}
	return fmt.Sprintf("Usage: `%s%s`", d.prefix, cmd.Usage)
}
