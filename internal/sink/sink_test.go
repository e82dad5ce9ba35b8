package sink

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mwantia/modbot/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type call struct {
	method  string
	channel string
	ids     []string
	content string
}

type fakePlatform struct {
	mu    sync.Mutex
	calls []call
	fail  func(c call, n int) error
}

func (p *fakePlatform) record(c call) error {
	p.mu.Lock()
	p.calls = append(p.calls, c)
	n := len(p.calls)
	fail := p.fail
	p.mu.Unlock()

	if fail != nil {
		return fail(c, n)
	}
	return nil
}

func (p *fakePlatform) Calls() []call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]call(nil), p.calls...)
}

func (p *fakePlatform) SendMessage(_ context.Context, channelID, content, _ string) error {
	return p.record(call{method: "send", channel: channelID, content: content})
}

func (p *fakePlatform) DeleteMessage(_ context.Context, channelID, messageID string) error {
	return p.record(call{method: "delete", channel: channelID, ids: []string{messageID}})
}

func (p *fakePlatform) BulkDeleteMessages(_ context.Context, channelID string, ids []string) error {
	return p.record(call{method: "bulk", channel: channelID, ids: ids})
}

func (p *fakePlatform) AddRole(_ context.Context, guildID, userID, roleID string) error {
	return p.record(call{method: "add_role", channel: guildID + "/" + userID, content: roleID})
}

func (p *fakePlatform) RemoveRole(_ context.Context, guildID, userID, roleID string) error {
	return p.record(call{method: "remove_role", channel: guildID + "/" + userID, content: roleID})
}

func (p *fakePlatform) AddReaction(_ context.Context, channelID, messageID, emoji string) error {
	return p.record(call{method: "react", channel: channelID, content: emoji})
}

func newTestSink(t *testing.T, p Platform, cfg Config) *Sink {
	t.Helper()

	if cfg.BaseBackoff == 0 {
		cfg.BaseBackoff = time.Millisecond
		cfg.MaxBackoff = 4 * time.Millisecond
	}
	s := New(p, cfg, log.Discard())
	t.Cleanup(s.Close)
	return s
}

func messageIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("m%03d", i)
	}
	return ids
}

func TestSendMessage(t *testing.T) {
	p := &fakePlatform{}
	s := newTestSink(t, p, Config{})

	ack, err := s.Enqueue(context.Background(), Reply("c1", "m1", "hello"))
	require.NoError(t, err)
	assert.Equal(t, Ack{Delivered: 1}, ack)
	assert.Equal(t, []call{{method: "send", channel: "c1", content: "hello"}}, p.Calls())
}

func TestSameDestinationKeepsOrder(t *testing.T) {
	p := &fakePlatform{}
	s := newTestSink(t, p, Config{})

	var pending []<-chan outcome
	for i := 0; i < 20; i++ {
		done, err := s.submit(SendMessage("c1", fmt.Sprintf("%02d", i)))
		require.NoError(t, err)
		pending = append(pending, done)
	}
	for _, done := range pending {
		out := <-done
		require.NoError(t, out.err)
	}

	calls := p.Calls()
	require.Len(t, calls, 20)
	for i, c := range calls {
		assert.Equal(t, fmt.Sprintf("%02d", i), c.content)
	}
}

func TestRateLimitDoesNotConsumeAttempts(t *testing.T) {
	p := &fakePlatform{
		fail: func(c call, n int) error {
			if n <= 2 {
				return &RateLimitError{RetryAfter: 2 * time.Millisecond}
			}
			return nil
		},
	}
	s := newTestSink(t, p, Config{MaxAttempts: 1})

	ack, err := s.Enqueue(context.Background(), AddReaction("c1", "m1", "👌"))
	require.NoError(t, err)
	assert.Equal(t, 1, ack.Delivered)
	assert.Len(t, p.Calls(), 3)
}

func TestTransientFailureExhausts(t *testing.T) {
	p := &fakePlatform{
		fail: func(call, int) error {
			return errors.New("connection reset")
		},
	}
	s := newTestSink(t, p, Config{MaxAttempts: 3})

	_, err := s.Enqueue(context.Background(), AddRole("g1", "u1", "r1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Len(t, p.Calls(), 3)
}

func TestTransientFailureRecovers(t *testing.T) {
	p := &fakePlatform{
		fail: func(c call, n int) error {
			if n == 1 {
				return errors.New("timeout")
			}
			return nil
		},
	}
	s := newTestSink(t, p, Config{MaxAttempts: 3})

	_, err := s.Enqueue(context.Background(), RemoveRole("g1", "u1", "r1"))
	require.NoError(t, err)
	assert.Len(t, p.Calls(), 2)
}

func TestPermanentFailureIsNotRetried(t *testing.T) {
	p := &fakePlatform{
		fail: func(call, int) error {
			return Permanent(errors.New("missing permissions"))
		},
	}
	s := newTestSink(t, p, Config{MaxAttempts: 3})

	_, err := s.Enqueue(context.Background(), SendMessage("c1", "hi"))
	assert.ErrorIs(t, err, ErrRejected)
	assert.Len(t, p.Calls(), 1)
}

func TestInvalidActionIsRejected(t *testing.T) {
	p := &fakePlatform{}
	s := newTestSink(t, p, Config{})

	_, err := s.Enqueue(context.Background(), SendMessage("", "hi"))
	assert.ErrorIs(t, err, ErrRejected)
	assert.Empty(t, p.Calls())
}

func TestBulkDeleteBatches(t *testing.T) {
	p := &fakePlatform{}
	s := newTestSink(t, p, Config{BulkDeleteLimit: 100})

	ids := messageIDs(201)
	ack, err := s.Enqueue(context.Background(), DeleteMessages("c1", ids...))
	require.NoError(t, err)
	assert.Equal(t, 201, ack.Delivered)
	assert.Empty(t, ack.Failed)

	calls := p.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, "bulk", calls[0].method)
	assert.Equal(t, ids[:100], calls[0].ids)
	assert.Equal(t, "bulk", calls[1].method)
	assert.Equal(t, ids[100:200], calls[1].ids)
	assert.Equal(t, "delete", calls[2].method)
	assert.Equal(t, ids[200:], calls[2].ids)
}

func TestBulkDeletePartialFailure(t *testing.T) {
	ids := messageIDs(150)
	p := &fakePlatform{
		fail: func(c call, n int) error {
			if c.method == "bulk" && c.ids[0] == ids[100] {
				return context.DeadlineExceeded
			}
			return nil
		},
	}
	s := newTestSink(t, p, Config{MaxAttempts: 2, BulkDeleteLimit: 100})

	ack, err := s.Enqueue(context.Background(), DeleteMessages("c1", ids...))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 100, ack.Delivered)
	assert.Equal(t, ids[100:], ack.Failed)

	var failure *Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, ack, failure.Ack)

	// one successful batch plus two attempts at the failing one
	assert.Len(t, p.Calls(), 3)
}

func TestEnqueueAfterClose(t *testing.T) {
	p := &fakePlatform{}
	s := New(p, Config{}, log.Discard())
	s.Close()

	_, err := s.Enqueue(context.Background(), SendMessage("c1", "hi"))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCancelledWaitStillDelivers(t *testing.T) {
	release := make(chan struct{})
	p := &fakePlatform{
		fail: func(c call, n int) error {
			if n == 1 {
				<-release
			}
			return nil
		},
	}
	s := New(p, Config{}, log.Discard())

	go func() {
		_, _ = s.Enqueue(context.Background(), SendMessage("c1", "first"))
	}()
	require.Eventually(t, func() bool { return len(p.Calls()) == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Enqueue(ctx, SendMessage("c1", "second"))
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	s.Close()

	calls := p.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "second", calls[1].content)
}

func TestBackoff(t *testing.T) {
	s := &Sink{cfg: Config{BaseBackoff: 100 * time.Millisecond, MaxBackoff: 500 * time.Millisecond}}

	assert.Equal(t, 100*time.Millisecond, s.backoff(1))
	assert.Equal(t, 200*time.Millisecond, s.backoff(2))
	assert.Equal(t, 400*time.Millisecond, s.backoff(3))
	assert.Equal(t, 500*time.Millisecond, s.backoff(4))
}
