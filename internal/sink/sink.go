package sink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mwantia/modbot/internal/lane"
	"github.com/mwantia/modbot/pkg/log"
	"golang.org/x/time/rate"
)

// maxRateLimitWaits bounds how often one action may be deferred by rate limits.
const maxRateLimitWaits = 32

type Config struct {
	MaxAttempts       int
	BaseBackoff       time.Duration
	MaxBackoff        time.Duration
	BulkDeleteLimit   int
	RequestsPerSecond float64
	Burst             int
}

func (cfg *Config) normalize() {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff < cfg.BaseBackoff {
		cfg.MaxBackoff = cfg.BaseBackoff
	}
	if cfg.BulkDeleteLimit <= 0 || cfg.BulkDeleteLimit > 100 {
		cfg.BulkDeleteLimit = 100
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
}

// Sink serializes outbound actions per destination and retries them on
// transient failures. Actions for different destinations run concurrently.
type Sink struct {
	platform Platform
	cfg      Config
	limiter  *rate.Limiter
	lanes    *lane.Group
	logger   log.LoggerService

	ctx    context.Context
	cancel context.CancelFunc
}

func New(platform Platform, cfg Config, logger log.LoggerService) *Sink {
	cfg.normalize()

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Sink{
		platform: platform,
		cfg:      cfg,
		limiter:  rate.NewLimiter(limit, cfg.Burst),
		lanes:    lane.NewGroup(),
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
	s.lanes.OnPanic = func(key string, v any) {
		s.logger.Error("Recovered panic in sink lane '%s': %v", key, v)
	}
	return s
}

type outcome struct {
	ack Ack
	err error
}

// Enqueue queues action behind pending work for its destination and waits for the
// outcome. When ctx ends first the action still runs; only the wait is abandoned.
func (s *Sink) Enqueue(ctx context.Context, action Action) (Ack, error) {
	done, err := s.submit(action)
	if err != nil {
		return Ack{}, err
	}

	select {
	case out := <-done:
		return out.ack, out.err
	case <-ctx.Done():
		return Ack{}, ctx.Err()
	}
}

func (s *Sink) submit(action Action) (<-chan outcome, error) {
	if err := action.validate(); err != nil {
		return nil, &Failure{Kind: ErrRejected, Action: action, Err: err}
	}

	done := make(chan outcome, 1)
	accepted := s.lanes.Submit(action.Destination(), func() {
		ack, err := s.execute(action)
		done <- outcome{ack: ack, err: err}
	})
	if !accepted {
		return nil, ErrClosed
	}
	return done, nil
}

// Close stops accepting actions and waits for queued ones to finish.
func (s *Sink) Close() {
	s.lanes.Close()
	s.cancel()
}

func (s *Sink) execute(action Action) (Ack, error) {
	if action.Kind == KindDeleteMessages {
		return s.deleteMessages(action)
	}

	if err := s.call(action, func(ctx context.Context) error {
		return s.dispatch(ctx, action)
	}); err != nil {
		return Ack{}, err
	}
	return Ack{Delivered: 1}, nil
}

func (s *Sink) dispatch(ctx context.Context, action Action) error {
	switch action.Kind {
	case KindSendMessage:
		return s.platform.SendMessage(ctx, action.ChannelID, action.Content, action.MessageID)
	case KindAddRole:
		return s.platform.AddRole(ctx, action.GuildID, action.UserID, action.RoleID)
	case KindRemoveRole:
		return s.platform.RemoveRole(ctx, action.GuildID, action.UserID, action.RoleID)
	case KindAddReaction:
		return s.platform.AddReaction(ctx, action.ChannelID, action.MessageID, action.Emoji)
	default:
		return Permanent(fmt.Errorf("unsupported action %s", action.Kind))
	}
}

// deleteMessages splits the IDs into platform-sized batches. A failing batch does not
// stop the remaining ones; its IDs are reported in Ack.Failed.
func (s *Sink) deleteMessages(action Action) (Ack, error) {
	var ack Ack
	var firstErr error

	for _, batch := range chunk(action.MessageIDs, s.cfg.BulkDeleteLimit) {
		err := s.call(action, func(ctx context.Context) error {
			if len(batch) == 1 {
				return s.platform.DeleteMessage(ctx, action.ChannelID, batch[0])
			}
			return s.platform.BulkDeleteMessages(ctx, action.ChannelID, batch)
		})
		if err != nil {
			ack.Failed = append(ack.Failed, batch...)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		ack.Delivered += len(batch)
	}

	if firstErr != nil {
		var failure *Failure
		if errors.As(firstErr, &failure) {
			failure.Ack = ack
			return ack, failure
		}
		return ack, firstErr
	}
	return ack, nil
}

// call runs fn until it succeeds, is rejected or runs out of attempts.
// Waiting out a rate limit does not use up an attempt.
func (s *Sink) call(action Action, fn func(ctx context.Context) error) error {
	attempts := 0
	waits := 0

	for {
		if err := s.limiter.Wait(s.ctx); err != nil {
			return &Failure{Kind: ErrExhausted, Action: action, Err: err}
		}

		err := fn(s.ctx)
		if err == nil {
			return nil
		}

		var limited *RateLimitError
		if errors.As(err, &limited) {
			waits++
			if waits > maxRateLimitWaits {
				s.logger.Error("Giving up on %s for '%s' after %d rate limits", action.Kind, action.Destination(), waits-1)
				return &Failure{Kind: ErrExhausted, Action: action, Err: err}
			}
			s.logger.Warn("Rate limited on '%s', pausing for %s", action.Destination(), limited.RetryAfter)
			if err := sleep(s.ctx, limited.RetryAfter); err != nil {
				return &Failure{Kind: ErrExhausted, Action: action, Err: err}
			}
			continue
		}

		var permanent *PermanentError
		if errors.As(err, &permanent) {
			s.logger.Warn("Platform rejected %s for '%s': %v", action.Kind, action.Destination(), err)
			return &Failure{Kind: ErrRejected, Action: action, Err: err}
		}

		attempts++
		if attempts >= s.cfg.MaxAttempts {
			s.logger.Error("Failed %s for '%s' after %d attempts: %v", action.Kind, action.Destination(), attempts, err)
			return &Failure{Kind: ErrExhausted, Action: action, Err: err}
		}

		backoff := s.backoff(attempts)
		s.logger.Debug("Retrying %s for '%s' in %s: %v", action.Kind, action.Destination(), backoff, err)
		if err := sleep(s.ctx, backoff); err != nil {
			return &Failure{Kind: ErrExhausted, Action: action, Err: err}
		}
	}
}

func (s *Sink) backoff(attempt int) time.Duration {
	d := s.cfg.BaseBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= s.cfg.MaxBackoff {
			return s.cfg.MaxBackoff
		}
	}
	return d
}

func chunk(ids []string, size int) [][]string {
	var batches [][]string
	for len(ids) > size {
		batches = append(batches, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		batches = append(batches, ids)
	}
	return batches
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
