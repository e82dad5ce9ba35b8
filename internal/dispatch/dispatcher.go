package dispatch

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/mwantia/modbot/internal/event"
	"github.com/mwantia/modbot/internal/lane"
	"github.com/mwantia/modbot/internal/policy"
	"github.com/mwantia/modbot/internal/sink"
	"github.com/mwantia/modbot/pkg/db/store"
	"github.com/mwantia/modbot/pkg/log"
)

// Actions delivers outbound actions; *sink.Sink implements it.
type Actions interface {
	Enqueue(ctx context.Context, action sink.Action) (sink.Ack, error)
}

// Request is the bounded context a handler runs with.
type Request struct {
	Invocation *event.Invocation
	Command    *Command
	Store      store.TagStore
	Sink       Actions
	Gate       *policy.Gate
	Registry   *Registry
	Prefix     string
	Logger     log.LoggerService
}

// Reply builds a reply action addressed to the invoking message.
func (r *Request) Reply(text string) sink.Action {
	origin := r.Invocation.Origin
	return sink.Reply(origin.ChannelID, origin.MessageID, text)
}

type Config struct {
	Prefix  string
	Timeout time.Duration
}

// Dispatcher routes invocations to handlers. Invocations from the same channel are
// handled in arrival order; different channels are handled concurrently.
type Dispatcher struct {
	registry   *Registry
	normalizer *event.Normalizer
	gate       *policy.Gate
	store      store.TagStore
	sink       Actions
	logger     log.LoggerService
	prefix     string
	timeout    time.Duration
	lanes      *lane.Group

	ctx    context.Context
	cancel context.CancelFunc
}

func New(cfg Config, registry *Registry, gate *policy.Gate, tags store.TagStore, actions Actions, logger log.LoggerService) *Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		registry:   registry,
		normalizer: event.NewNormalizer(cfg.Prefix, registry.Groups()...),
		gate:       gate,
		store:      tags,
		sink:       actions,
		logger:     logger,
		prefix:     cfg.Prefix,
		timeout:    cfg.Timeout,
		lanes:      lane.NewGroup(),
		ctx:        ctx,
		cancel:     cancel,
	}
	d.lanes.OnPanic = func(key string, v any) {
		d.logger.Error("Recovered panic in channel '%s': %v", key, v)
	}
	return d
}

// Run consumes events until ctx ends or the channel closes. It never waits on
// an invocation; each one is queued on its channel's lane.
func (d *Dispatcher) Run(ctx context.Context, events <-chan event.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			d.Submit(ev)
		}
	}
}

// Submit normalizes ev and queues it. It reports false for events that are not commands.
func (d *Dispatcher) Submit(ev event.Event) bool {
	inv, ok := d.normalizer.Normalize(ev)
	if !ok {
		return false
	}
	return d.lanes.Submit(inv.Origin.ChannelID, func() {
		d.Dispatch(d.ctx, inv)
	})
}

// Close stops accepting invocations and waits for queued ones to finish.
func (d *Dispatcher) Close() {
	d.lanes.Close()
	d.cancel()
}

// Dispatch runs a single invocation to completion and always answers it.
func (d *Dispatcher) Dispatch(ctx context.Context, inv *event.Invocation) *Outcome {
	outcome := &Outcome{
		InvocationID: inv.ID,
		Command:      inv.Command,
		State:        StateNormalized,
	}

	d.logger.Info("Invocation %s: %s (%s) in %s used '%s'",
		inv.ID, inv.Actor.Name, inv.Actor.ID, inv.Origin.ChannelID, inv.Command)

	cmd, ok := d.registry.Lookup(inv.Command)
	if !ok {
		return d.fail(ctx, outcome, inv, nil, fmt.Errorf("%w: %s", ErrUnknownCommand, inv.Command))
	}

	req := &Request{
		Invocation: inv,
		Command:    cmd,
		Store:      d.store,
		Sink:       d.sink,
		Gate:       d.gate,
		Registry:   d.registry,
		Prefix:     d.prefix,
		Logger:     d.logger,
	}

	if err := d.authorize(ctx, req); err != nil {
		return d.fail(ctx, outcome, inv, cmd, err)
	}
	d.logger.Debug("Invocation %s: %s", inv.ID, StatePolicyChecked)

	outcome.State = StateExecuting
	result, err := d.execute(ctx, req)
	if err != nil {
		return d.fail(ctx, outcome, inv, cmd, err)
	}

	if err := d.deliver(ctx, req, result); err != nil {
		return d.fail(ctx, outcome, inv, cmd, err)
	}
	outcome.Reply = result.Reply

	for _, after := range result.After {
		if err := after(ctx); err != nil {
			d.logger.Warn("Invocation %s: follow-up of '%s' failed: %v", inv.ID, cmd.Name, err)
		}
	}

	outcome.State = StateCompleted
	d.logger.Debug("Invocation %s: %s", inv.ID, outcome.State)
	return outcome
}

func (d *Dispatcher) authorize(ctx context.Context, req *Request) error {
	requirement := req.Command.Requirement()

	// Feature and role rules do not need the target.
	if decision := d.gate.Check(req.Invocation.Actor, requirement, nil); !decision.Allowed {
		return decision.Err()
	}
	if req.Command.Target == nil {
		return nil
	}

	target, err := d.guard(ctx, req, req.Command.Target)
	if err != nil {
		return err
	}
	return d.gate.Check(req.Invocation.Actor, requirement, target).Err()
}

// guard runs a target resolver with the same panic protection as a handler.
func (d *Dispatcher) guard(ctx context.Context, req *Request, fn TargetFunc) (target *policy.Target, err error) {
	defer func() {
		if v := recover(); v != nil {
			d.logger.Error("Invocation %s: panic while resolving target: %v\n%s", req.Invocation.ID, v, debug.Stack())
			err = fmt.Errorf("%w: %v", ErrInternal, v)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	return fn(ctx, req)
}

type handled struct {
	result *Result
	err    error
}

// execute runs the handler bounded by the invocation timeout. A handler that
// overruns is not killed: its context is cancelled and its late result dropped.
func (d *Dispatcher) execute(ctx context.Context, req *Request) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	done := make(chan handled, 1)
	go func() {
		defer func() {
			if v := recover(); v != nil {
				d.logger.Error("Invocation %s: panic in '%s': %v\n%s", req.Invocation.ID, req.Command.Name, v, debug.Stack())
				done <- handled{err: fmt.Errorf("%w: %v", ErrInternal, v)}
			}
		}()

		result, err := req.Command.Handler(ctx, req)
		if err == nil && result == nil {
			err = fmt.Errorf("%w: handler returned no result", ErrInternal)
		}
		done <- handled{result: result, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil && errors.Is(out.err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, out.err)
		}
		return out.result, out.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w after %s", ErrTimeout, d.timeout)
	}
}

// deliver sends the result's actions and then its reply.
func (d *Dispatcher) deliver(ctx context.Context, req *Request, result *Result) error {
	for _, action := range result.Actions {
		if _, err := d.sink.Enqueue(ctx, action); err != nil {
			return err
		}
	}
	if result.Reply == "" {
		return nil
	}
	_, err := d.sink.Enqueue(ctx, req.Reply(result.Reply))
	return err
}

// fail answers the invocation with the reply matching err.
func (d *Dispatcher) fail(ctx context.Context, outcome *Outcome, inv *event.Invocation, cmd *Command, err error) *Outcome {
	outcome.State = StateFailed
	outcome.Err = err
	outcome.Reply = d.replyFor(err, cmd, inv.Command)

	var denied *policy.DeniedError
	switch {
	case errors.As(err, &denied), errors.Is(err, ErrUnknownCommand), errors.Is(err, ErrUsage):
		d.logger.Info("Invocation %s: %s: %v", inv.ID, outcome.State, err)
	case errors.Is(err, sink.ErrExhausted), errors.Is(err, ErrInternal), errors.Is(err, ErrTimeout):
		d.logger.Error("Invocation %s: %s: %v", inv.ID, outcome.State, err)
	default:
		d.logger.Warn("Invocation %s: %s: %v", inv.ID, outcome.State, err)
	}

	action := sink.Reply(inv.Origin.ChannelID, inv.Origin.MessageID, outcome.Reply)
	if _, err := d.sink.Enqueue(ctx, action); err != nil {
		d.logger.Error("Invocation %s: failed to deliver reply: %v", inv.ID, err)
	}
	return outcome
}
