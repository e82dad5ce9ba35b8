package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mwantia/modbot/internal/event"
	"github.com/mwantia/modbot/pkg/log"
)

const (
	readLimit  = 1 << 20
	pongWait   = 60 * time.Second
	pingPeriod = 25 * time.Second
	writeWait  = 5 * time.Second
	minBackoff = time.Second
	maxBackoff = 30 * time.Second
)

// Source streams normalized platform events from the gateway feed and keeps
// reconnecting until its context ends.
type Source struct {
	url    string
	header http.Header
	dialer *websocket.Dialer
	log    log.LoggerService

	minBackoff time.Duration
	maxBackoff time.Duration
}

func NewSource(url, token string, logger log.LoggerService) *Source {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bot "+token)
	}
	return &Source{
		url:        url,
		header:     header,
		dialer:     websocket.DefaultDialer,
		log:        logger,
		minBackoff: minBackoff,
		maxBackoff: maxBackoff,
	}
}

// Run blocks until ctx is cancelled. Events that fail to decode are logged and skipped.
func (s *Source) Run(ctx context.Context, out chan<- event.Event) error {
	backoff := s.minBackoff

	for {
		conn, _, err := s.dialer.DialContext(ctx, s.url, s.header)
		if err == nil {
			s.log.Info("Connected to gateway feed at '%s'", s.url)
			backoff = s.minBackoff

			err = s.read(ctx, conn, out)
		}
		if ctx.Err() != nil {
			return nil
		}

		s.log.Warn("Gateway feed lost, reconnecting in %s: %v", backoff, err)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > s.maxBackoff {
			backoff = s.maxBackoff
		}
	}
}

func (s *Source) read(ctx context.Context, conn *websocket.Conn, out chan<- event.Event) error {
	var once sync.Once
	closeConn := func() {
		once.Do(func() {
			deadline := time.Now().Add(writeWait)
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
			_ = conn.Close()
		})
	}
	defer closeConn()

	done := make(chan struct{})
	defer close(done)

	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				closeConn()
				return
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					return
				}
			}
		}
	}()

	conn.SetReadLimit(readLimit)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return errors.New("gateway closed the connection")
			}
			return fmt.Errorf("failed to read from gateway: %w", err)
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		var ev event.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			s.log.Warn("Dropping undecodable gateway event: %v", err)
			continue
		}

		select {
		case out <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
