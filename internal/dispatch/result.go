package dispatch

import (
	"context"
	"errors"

	"github.com/mwantia/modbot/internal/sink"
)

// Result is what a handler hands back to the dispatcher. Actions are delivered
// before the reply; After hooks run once the reply went out.
type Result struct {
	Reply   string
	Actions []sink.Action
	After   []func(ctx context.Context) error
}

func Reply(text string) *Result {
	return &Result{Reply: text}
}

func ReplyWithActions(text string, actions ...sink.Action) *Result {
	return &Result{Reply: text, Actions: actions}
}

// Then registers fn to run after the reply was delivered.
func (r *Result) Then(fn func(ctx context.Context) error) *Result {
	r.After = append(r.After, fn)
	return r
}

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrInternal       = errors.New("internal error")
	ErrTimeout        = errors.New("invocation timed out")
	// ErrUsage makes the dispatcher answer with the command's usage text.
	ErrUsage = errors.New("invalid arguments")
)

// ReplyError overrides the reply the dispatcher would pick for Err.
type ReplyError struct {
	Text string
	Err  error
}

func WithReply(err error, text string) error {
	return &ReplyError{Text: text, Err: err}
}

func (e *ReplyError) Error() string {
	return e.Err.Error()
}

func (e *ReplyError) Unwrap() error {
	return e.Err
}
