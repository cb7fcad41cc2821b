// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package graph

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"

	"github.com/lattice-chat/lattice/lib/clock"
)

// ClientSettings tunes the relay connection. Zero values are replaced
// by DefaultClientSettings.
type ClientSettings struct {
	HandshakeTimeout  time.Duration
	WriteTimeout      time.Duration
	ReconnectMinDelay time.Duration
	ReconnectMaxDelay time.Duration

	// OutboundBuffer is the number of frames queued while the relay
	// is unreachable. Subscribe and ReadOnce frames block for space;
	// Put frames are dropped with a warning when the buffer is full,
	// since puts are fire-and-forget.
	OutboundBuffer int
}

// DefaultClientSettings returns the production settings.
func DefaultClientSettings() *ClientSettings {
	return &ClientSettings{
		HandshakeTimeout:  5 * time.Second,
		WriteTimeout:      10 * time.Second,
		ReconnectMinDelay: time.Second,
		ReconnectMaxDelay: 30 * time.Second,
		OutboundBuffer:    256,
	}
}

// ClientConfig holds configuration for creating a relay Client.
type ClientConfig struct {
	// URL is the websocket endpoint of the graph relay
	// (e.g., "ws://localhost:8765/graph").
	URL string

	// Logger is used for structured logging. If nil, slog.Default()
	// is used.
	Logger *slog.Logger

	// Clock drives reconnect backoff and key timestamps. If nil,
	// clock.Real() is used.
	Clock clock.Clock

	// Settings tunes timeouts and buffering. If nil,
	// DefaultClientSettings() is used.
	Settings *ClientSettings
}

// Client is a graph Store backed by a websocket connection to a graph
// relay. The connection is maintained by a background loop that
// reconnects with capped exponential backoff and re-issues every
// active subscription after a reconnect. The relay replays current
// state for a fresh subscription, so consumers see duplicates after
// every reconnect — the at-least-once contract they must already
// tolerate.
//
// The client never reports store unavailability to consumers: puts
// made while disconnected are queued (bounded) and flushed after
// reconnect, and subscriptions simply stall until the relay returns.
type Client struct {
	url      string
	logger   *slog.Logger
	clock    clock.Clock
	settings *ClientSettings

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	outbound chan frame

	mu        sync.Mutex
	entropy   io.Reader
	subs      map[uint64]*relaySubscription
	pending   map[uint64]chan readResult
	nextSubID uint64
	nextReqID uint64
}

// frame is the JSON wire frame exchanged with the relay.
//
// Client to relay: op is "sub", "unsub", "put", or "get".
// Relay to client: op is "event" (live delivery on a subscription) or
// "ack" (reply to a "get").
type frame struct {
	Op    string          `json:"op"`
	SID   uint64          `json:"sid,omitempty"`
	RID   uint64          `json:"rid,omitempty"`
	Path  string          `json:"path,omitempty"`
	Key   string          `json:"key,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
}

type readResult struct {
	value json.RawMessage
	err   error
}

// NewClient creates a relay client and starts its connection loop.
// Call Close to stop the loop and release the connection.
func NewClient(config ClientConfig) (*Client, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("graph: relay URL is required")
	}
	parsed, err := url.Parse(config.URL)
	if err != nil {
		return nil, fmt.Errorf("graph: invalid relay URL %q: %w", config.URL, err)
	}
	if parsed.Scheme != "ws" && parsed.Scheme != "wss" {
		return nil, fmt.Errorf("graph: relay URL must use ws or wss scheme: %q", config.URL)
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	settings := config.Settings
	if settings == nil {
		settings = DefaultClientSettings()
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := &Client{
		url:      config.URL,
		logger:   logger,
		clock:    clk,
		settings: settings,
		ctx:      ctx,
		cancel:   cancel,
		outbound: make(chan frame, settings.OutboundBuffer),
		entropy:  ulid.Monotonic(rand.Reader, 0),
		subs:     make(map[uint64]*relaySubscription),
		pending:  make(map[uint64]chan readResult),
	}
	go client.run()
	return client, nil
}

// Close stops the connection loop and fails all pending reads.
// Idempotent.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()
		c.failPending(fmt.Errorf("graph: client closed"))
	})
	return nil
}

type relaySubscription struct {
	client   *Client
	id       uint64
	path     string
	handler  Handler
	mu       sync.Mutex
	canceled bool
}

// Cancel stops further handler deliveries and tells the relay to drop
// the feed. Idempotent.
func (s *relaySubscription) Cancel() {
	s.mu.Lock()
	if s.canceled {
		s.mu.Unlock()
		return
	}
	s.canceled = true
	s.mu.Unlock()

	s.client.mu.Lock()
	delete(s.client.subs, s.id)
	s.client.mu.Unlock()

	// Best effort: if the buffer is full the relay keeps sending, but
	// the canceled flag already gates delivery, and the feed dies with
	// the connection.
	select {
	case s.client.outbound <- frame{Op: "unsub", SID: s.id}:
	default:
	}
}

func (s *relaySubscription) deliver(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.canceled {
		return
	}
	s.handler(event)
}

// Subscribe opens a live feed of events for path. The relay replays
// the path's current state, then streams updates. The subscription
// survives reconnects: the connection loop re-issues it and the relay
// replays again.
func (c *Client) Subscribe(ctx context.Context, path string, handler Handler) (Subscription, error) {
	if path == "" {
		return nil, fmt.Errorf("graph: subscribe requires a path")
	}

	c.mu.Lock()
	c.nextSubID++
	sub := &relaySubscription{client: c, id: c.nextSubID, path: path, handler: handler}
	c.subs[sub.id] = sub
	c.mu.Unlock()

	select {
	case c.outbound <- frame{Op: "sub", SID: sub.id, Path: path}:
		return sub, nil
	case <-ctx.Done():
		sub.Cancel()
		return nil, fmt.Errorf("graph: subscribe to %s: %w", path, ctx.Err())
	case <-c.ctx.Done():
		sub.Cancel()
		return nil, fmt.Errorf("graph: subscribe to %s: client closed", path)
	}
}

// Put writes value under a fresh ULID key and returns the key.
func (c *Client) Put(ctx context.Context, path string, value any) (string, error) {
	c.mu.Lock()
	key := ulid.MustNew(ulid.Timestamp(c.clock.Now()), c.entropy).String()
	c.mu.Unlock()

	if err := c.PutKeyed(ctx, path, key, value); err != nil {
		return "", err
	}
	return key, nil
}

// PutKeyed writes value under an explicit key. The write is
// fire-and-forget: it is queued for the connection loop and flushed
// when the relay is reachable. When the queue is full the write is
// dropped with a warning rather than blocking the caller.
func (c *Client) PutKeyed(ctx context.Context, path, key string, value any) error {
	if path == "" || key == "" {
		return fmt.Errorf("graph: put requires a path and key")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("graph: encoding value for %s/%s: %w", path, key, err)
	}

	select {
	case c.outbound <- frame{Op: "put", Path: path, Key: key, Value: encoded}:
		return nil
	case <-c.ctx.Done():
		return fmt.Errorf("graph: put to %s: client closed", path)
	default:
		c.logger.Warn("outbound queue full, dropping put",
			"path", path,
			"key", key,
		)
		return nil
	}
}

// ReadOnce performs a single resolved read of (path, key) via the
// relay. Returns nil with no error when the node is absent. Fails
// when the connection drops before the reply arrives — snapshot reads
// do not survive reconnects, unlike subscriptions.
func (c *Client) ReadOnce(ctx context.Context, path, key string) (json.RawMessage, error) {
	if path == "" || key == "" {
		return nil, fmt.Errorf("graph: read requires a path and key")
	}

	reply := make(chan readResult, 1)
	c.mu.Lock()
	c.nextReqID++
	requestID := c.nextReqID
	c.pending[requestID] = reply
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, requestID)
		c.mu.Unlock()
	}()

	select {
	case c.outbound <- frame{Op: "get", RID: requestID, Path: path, Key: key}:
	case <-ctx.Done():
		return nil, fmt.Errorf("graph: read %s/%s: %w", path, key, ctx.Err())
	case <-c.ctx.Done():
		return nil, fmt.Errorf("graph: read %s/%s: client closed", path, key)
	}

	select {
	case result := <-reply:
		if result.err != nil {
			return nil, fmt.Errorf("graph: read %s/%s: %w", path, key, result.err)
		}
		if (Event{Value: result.value}).Tombstone() {
			return nil, nil
		}
		return result.value, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("graph: read %s/%s: %w", path, key, ctx.Err())
	case <-c.ctx.Done():
		return nil, fmt.Errorf("graph: read %s/%s: client closed", path, key)
	}
}

// run is the connection loop: dial, serve until the connection dies,
// back off, repeat. Exits when the client is closed.
func (c *Client) run() {
	attempt := 0
	for c.ctx.Err() == nil {
		conn, err := c.dial()
		if err != nil {
			attempt++
			delay := c.backoff(attempt)
			c.logger.Warn("relay dial failed, retrying",
				"url", c.url,
				"attempt", attempt,
				"delay", delay,
				"error", err,
			)
			c.clock.Sleep(delay)
			continue
		}

		attempt = 0
		c.logger.Info("relay connected", "url", c.url)

		err = c.serve(conn)
		conn.Close()
		c.failPending(fmt.Errorf("connection lost"))
		if c.ctx.Err() != nil {
			return
		}
		c.logger.Warn("relay connection lost, reconnecting",
			"url", c.url,
			"error", err,
		)
		c.clock.Sleep(c.settings.ReconnectMinDelay)
	}
}

func (c *Client) dial() (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: c.settings.HandshakeTimeout}
	conn, _, err := dialer.DialContext(c.ctx, c.url, nil)
	return conn, err
}

// backoff returns the delay before reconnect attempt n, doubling from
// ReconnectMinDelay and capped at ReconnectMaxDelay.
func (c *Client) backoff(attempt int) time.Duration {
	delay := c.settings.ReconnectMinDelay
	for i := 1; i < attempt && delay < c.settings.ReconnectMaxDelay; i++ {
		delay *= 2
	}
	if delay > c.settings.ReconnectMaxDelay {
		delay = c.settings.ReconnectMaxDelay
	}
	return delay
}

// serve pumps one connection until it fails or the client is closed.
// Subscriptions active at connect time are re-issued first, before the
// writer starts, so the relay replays their state.
func (c *Client) serve(conn *websocket.Conn) error {
	c.mu.Lock()
	resubscribe := make([]frame, 0, len(c.subs))
	for _, sub := range c.subs {
		resubscribe = append(resubscribe, frame{Op: "sub", SID: sub.id, Path: sub.path})
	}
	c.mu.Unlock()

	for _, f := range resubscribe {
		if err := c.writeFrame(conn, f); err != nil {
			return fmt.Errorf("re-subscribing %s: %w", f.Path, err)
		}
	}

	connCtx, connCancel := context.WithCancel(c.ctx)
	defer connCancel()

	// Single writer goroutine; websocket.Conn supports one concurrent
	// writer only. The reader runs in this goroutine.
	writeFailed := make(chan error, 1)
	go func() {
		for {
			select {
			case f := <-c.outbound:
				if err := c.writeFrame(conn, f); err != nil {
					writeFailed <- err
					connCancel()
					conn.Close()
					return
				}
			case <-connCtx.Done():
				return
			}
		}
	}()

	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			select {
			case writeErr := <-writeFailed:
				return writeErr
			default:
			}
			return err
		}
		c.dispatch(f)
	}
}

func (c *Client) writeFrame(conn *websocket.Conn, f frame) error {
	if timeout := c.settings.WriteTimeout; timeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(timeout))
	}
	return conn.WriteJSON(f)
}

func (c *Client) dispatch(f frame) {
	switch f.Op {
	case "event":
		c.mu.Lock()
		sub := c.subs[f.SID]
		c.mu.Unlock()
		if sub == nil {
			// Feed canceled while the event was in flight.
			return
		}
		sub.deliver(Event{Path: f.Path, Key: f.Key, Value: f.Value})

	case "ack":
		c.mu.Lock()
		reply := c.pending[f.RID]
		delete(c.pending, f.RID)
		c.mu.Unlock()
		if reply != nil {
			reply <- readResult{value: f.Value}
		}

	default:
		c.logger.Debug("ignoring unknown relay frame", "op", f.Op)
	}
}

// failPending errors out every in-flight ReadOnce. Snapshot reads are
// request/response and cannot be transparently retried across a
// reconnect the way subscriptions can.
func (c *Client) failPending(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for requestID, reply := range c.pending {
		reply <- readResult{err: err}
		delete(c.pending, requestID)
	}
}

// Compile-time check: *Client implements Store.
var _ Store = (*Client)(nil)
