package sink

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrExhausted means every retry attempt failed.
	ErrExhausted = errors.New("action retries exhausted")
	// ErrRejected means the platform refused the action and retrying cannot help.
	ErrRejected = errors.New("action rejected")
	ErrClosed   = errors.New("sink closed")
)

// RateLimitError is returned by a Platform when it was told to back off.
type RateLimitError struct {
	RetryAfter time.Duration
	Global     bool
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// PermanentError wraps a platform error that retrying will not fix.
type PermanentError struct {
	Err error
}

func Permanent(err error) error {
	return &PermanentError{Err: err}
}

func (e *PermanentError) Error() string {
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Ack counts what reached the platform. Failed lists the message IDs a bulk
// delete could not remove.
type Ack struct {
	Delivered int
	Failed    []string
}

// Failure is returned by Enqueue when an action did not fully succeed. It matches
// ErrExhausted or ErrRejected through errors.Is.
type Failure struct {
	Kind   error
	Action Action
	Ack    Ack
	Err    error
}

func (f *Failure) Error() string {
	if len(f.Ack.Failed) > 0 {
		return fmt.Sprintf("%s: %s (%d delivered, %d failed): %v",
			f.Action.Kind, f.Kind, f.Ack.Delivered, len(f.Ack.Failed), f.Err)
	}
	return fmt.Sprintf("%s: %s: %v", f.Action.Kind, f.Kind, f.Err)
}

func (f *Failure) Unwrap() []error {
	return []error{f.Kind, f.Err}
}
