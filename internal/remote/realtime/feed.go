// Package realtime subscribes to row changes on the items table through the
// Supabase Realtime websocket. It only reports that something changed; the
// consumer refetches the table.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/robby/homestock/internal/logging"
)

// Topic is the channel joined for the items table.
const Topic = "realtime:public:items"

// Defaults for the connection lifecycle.
const (
	DefaultHeartbeat  = 25 * time.Second
	DefaultMinBackoff = time.Second
	DefaultMaxBackoff = 30 * time.Second
)

// message is a Phoenix channel frame.
type message struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     *string         `json:"ref"`
}

type replyPayload struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response"`
}

// Feed is a change feed for the items table. It is safe for concurrent use;
// every Subscribe opens its own connection.
type Feed struct {
	url        string
	token      string
	dialer     *websocket.Dialer
	heartbeat  time.Duration
	minBackoff time.Duration
	maxBackoff time.Duration

	ref atomic.Uint64
}

// Option configures a Feed.
type Option func(*Feed)

// WithAccessToken sends a user access token in the join payload.
func WithAccessToken(token string) Option {
	return func(f *Feed) { f.token = token }
}

// WithHeartbeat sets the heartbeat interval.
func WithHeartbeat(d time.Duration) Option {
	return func(f *Feed) { f.heartbeat = d }
}

// WithBackoff sets the reconnect delay bounds.
func WithBackoff(lo, hi time.Duration) Option {
	return func(f *Feed) {
		f.minBackoff = lo
		f.maxBackoff = hi
	}
}

// WithDialer sets the websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(f *Feed) { f.dialer = d }
}

// URL returns the realtime websocket URL for a project.
func URL(projectURL, apiKey string) (string, error) {
	u, err := url.Parse(strings.TrimRight(projectURL, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid project url: %w", err)
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	case "http", "ws":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("invalid project url %q: unsupported scheme", projectURL)
	}
	u.Path += "/realtime/v1/websocket"
	q := url.Values{}
	q.Set("apikey", apiKey)
	q.Set("vsn", "1.0.0")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// New creates a feed for the project at projectURL.
func New(projectURL, apiKey string, opts ...Option) (*Feed, error) {
	wsURL, err := URL(projectURL, apiKey)
	if err != nil {
		return nil, err
	}
	f := &Feed{
		url:        wsURL,
		token:      apiKey,
		dialer:     websocket.DefaultDialer,
		heartbeat:  DefaultHeartbeat,
		minBackoff: DefaultMinBackoff,
		maxBackoff: DefaultMaxBackoff,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Subscribe connects in the background and returns the signal channel. The
// connection is re-established after any failure until ctx is done; every
// successful rejoin also signals, since changes may have been missed while
// disconnected. The channel is closed once ctx is done.
func (f *Feed) Subscribe(ctx context.Context) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)
	go f.run(ctx, ch)
	return ch, nil
}

func (f *Feed) run(ctx context.Context, ch chan struct{}) {
	defer close(ch)

	backoff := f.minBackoff
	reconnect := false
	for {
		joined, err := f.session(ctx, ch, reconnect)
		if ctx.Err() != nil {
			return
		}
		if joined {
			backoff = f.minBackoff
		}
		logging.Logger.Warn("realtime connection lost", "error", err, "retry_in", backoff)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		reconnect = true
		backoff *= 2
		if backoff > f.maxBackoff {
			backoff = f.maxBackoff
		}
	}
}

// session runs one connection until it fails. It reports whether the
// channel join succeeded.
func (f *Feed) session(ctx context.Context, ch chan struct{}, reconnect bool) (bool, error) {
	conn, _, err := f.dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return false, fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close()

	var writeMu sync.Mutex
	send := func(msg interface{}) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(msg)
	}

	joinRef := f.nextRef()
	join := map[string]interface{}{
		"topic": Topic,
		"event": "phx_join",
		"payload": map[string]interface{}{
			"config": map[string]interface{}{
				"postgres_changes": []map[string]string{
					{"event": "*", "schema": "public", "table": "items"},
				},
			},
			"access_token": f.token,
		},
		"ref": joinRef,
	}
	if err := send(join); err != nil {
		return false, fmt.Errorf("failed to join: %w", err)
	}

	joined := false
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-gctx.Done()
		conn.Close()
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(f.heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				err := send(map[string]interface{}{
					"topic":   "phoenix",
					"event":   "heartbeat",
					"payload": map[string]interface{}{},
					"ref":     f.nextRef(),
				})
				if err != nil {
					return fmt.Errorf("heartbeat failed: %w", err)
				}
			}
		}
	})

	g.Go(func() error {
		for {
			var msg message
			if err := conn.ReadJSON(&msg); err != nil {
				return fmt.Errorf("read failed: %w", err)
			}
			if msg.Topic != Topic {
				continue
			}

			switch msg.Event {
			case "phx_reply":
				if msg.Ref == nil || *msg.Ref != joinRef {
					continue
				}
				var reply replyPayload
				if err := json.Unmarshal(msg.Payload, &reply); err != nil {
					return fmt.Errorf("invalid join reply: %w", err)
				}
				if reply.Status != "ok" {
					return fmt.Errorf("join rejected: %s", reply.Response)
				}
				joined = true
				logging.Logger.Debug("realtime joined", "topic", Topic, "reconnect", reconnect)
				if reconnect {
					signal(ch)
				}
			case "postgres_changes", "INSERT", "UPDATE", "DELETE":
				signal(ch)
			case "phx_error", "phx_close":
				return errors.New("channel closed by server")
			}
		}
	})

	err = g.Wait()
	return joined, err
}

func (f *Feed) nextRef() string {
	return strconv.FormatUint(f.ref.Add(1), 10)
}

// signal delivers a change without blocking; a pending signal absorbs it.
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
