// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lattice-chat/lattice/graph"
	"github.com/lattice-chat/lattice/identity"
	"github.com/lattice-chat/lattice/lib/clock"
	"github.com/lattice-chat/lattice/lib/ref"
	"github.com/lattice-chat/lattice/lib/secret"
)

// Stable subscription names within a session's subscriptionSet.
// Private rooms use the room address itself.
const (
	subGlobalRoom   = "room:global"
	subFriendStream = "friends"
)

// ClientConfig carries the dependencies of a chat client.
type ClientConfig struct {
	// Store is the graph store the client reconciles against.
	// Required.
	Store graph.Store

	// Provider performs account creation and authentication.
	// Required.
	Provider identity.Provider

	// Logger for client events. Defaults to slog.Default.
	Logger *slog.Logger

	// Clock stamps outgoing messages. Defaults to the real clock.
	Clock clock.Clock
}

// Client is the top-level chat view model. It owns the session
// lifecycle and every piece of reconciled state derived from it: the
// global room, the friend roster, and one reconciler per private room.
//
// All commands and queries are safe for concurrent use. Queries
// return snapshots; command methods validate locally before touching
// the store, so a failed command never leaves partial writes behind.
type Client struct {
	store    graph.Store
	provider identity.Provider
	logger   *slog.Logger
	clock    clock.Clock

	mu        sync.Mutex
	session   Session
	global    *Reconciler
	rooms     map[ref.RoomID]*Reconciler
	friends   *FriendRegistry
	subs      *subscriptionSet
	observers map[uint64]chan Session
	nextObs   uint64
}

// NewClient constructs a client. If the provider already holds an
// authenticated identity (a restored session), the client opens its
// subscriptions immediately, so state is live before the first
// command.
func NewClient(config ClientConfig) (*Client, error) {
	if config.Store == nil {
		return nil, fmt.Errorf("chat client requires a store")
	}
	if config.Provider == nil {
		return nil, fmt.Errorf("chat client requires an identity provider")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}

	client := &Client{
		store:     config.Store,
		provider:  config.Provider,
		logger:    logger,
		clock:     clk,
		rooms:     make(map[ref.RoomID]*Reconciler),
		observers: make(map[uint64]chan Session),
	}
	if current, ok := config.Provider.Current(); ok {
		client.openSession(context.Background(), current)
	}
	return client, nil
}

// Register creates a new account. It does not authenticate; call
// Login afterwards. The secret buffer remains owned by the caller.
func (c *Client) Register(ctx context.Context, alias string, password *secret.Buffer) error {
	if alias == "" {
		return fmt.Errorf("alias is required")
	}
	if err := c.provider.Create(ctx, alias, password); err != nil {
		return fmt.Errorf("registering %q: %w", alias, err)
	}
	c.logger.Info("account registered", "alias", alias)
	return nil
}

// Login authenticates and brings the session's reconciled state live:
// it opens the global-room and friend-stream subscriptions, publishes
// the alias to the user's profile, and notifies session observers. If
// a session is already live it is torn down first, so the new identity
// always starts from a clean subscription set.
func (c *Client) Login(ctx context.Context, alias string, password *secret.Buffer) error {
	c.mu.Lock()
	wasLive := c.session.Authenticated
	c.mu.Unlock()
	if wasLive {
		c.Logout(ctx)
	}

	id, err := c.provider.Authenticate(ctx, alias, password)
	if err != nil {
		return fmt.Errorf("authenticating %q: %w", alias, err)
	}
	c.openSession(ctx, id)
	return nil
}

// openSession installs fresh per-session state and opens the two
// root subscriptions. The friend-stream subscription is opened without
// holding c.mu: stores may replay synchronously, and a replayed friend
// event re-enters the client to open that friend's room.
func (c *Client) openSession(ctx context.Context, id identity.Identity) {
	c.mu.Lock()
	session := Session{
		Alias:         id.Alias,
		PublicKey:     id.PublicKey,
		Authenticated: true,
	}
	c.session = session
	c.global = NewReconciler(ref.GlobalRoom(), c.logger)
	c.rooms = make(map[ref.RoomID]*Reconciler)
	c.subs = newSubscriptionSet()

	registry := NewFriendRegistry(c.logger, nil)
	registry.onNew = func(friend Friend) {
		c.openFriendRoom(ctx, registry, friend)
	}
	c.friends = registry

	global := c.global
	subs := c.subs
	c.mu.Unlock()

	if err := c.store.PutKeyed(ctx, profilePath(id.PublicKey), profileAliasKey, id.Alias); err != nil {
		c.logger.Warn("publishing profile alias", "alias", id.Alias, "error", err)
	}

	if sub, err := c.store.Subscribe(ctx, globalRoomPath, global.OnEvent); err != nil {
		c.logger.Error("subscribing to global room", "error", err)
	} else {
		subs.add(subGlobalRoom, sub)
	}
	if sub, err := c.store.Subscribe(ctx, friendPath(id.PublicKey), registry.OnEvent); err != nil {
		c.logger.Error("subscribing to friend stream", "error", err)
	} else {
		subs.add(subFriendStream, sub)
	}

	c.logger.Info("session opened", "alias", id.Alias, "pub", id.PublicKey)
	c.notifyObservers(session)
}

// openFriendRoom materializes the private room shared with a newly
// discovered friend. registry gates against stale callbacks: if a
// logout replaced the session after this callback was scheduled, the
// registry no longer matches and the event is dropped.
func (c *Client) openFriendRoom(ctx context.Context, registry *FriendRegistry, friend Friend) {
	c.mu.Lock()
	if c.friends != registry || !c.session.Authenticated {
		c.mu.Unlock()
		return
	}
	room, err := ref.PairRoomID(c.session.PublicKey, friend.PublicKey)
	if err != nil {
		c.mu.Unlock()
		c.logger.Warn("deriving friend room", "pub", friend.PublicKey, "error", err)
		return
	}
	reconciler, subs, opened := c.ensureRoomLocked(room)
	c.mu.Unlock()

	if opened {
		c.subscribeRoom(ctx, subs, reconciler)
	}
}

// OpenRoom materializes the private room shared with peer without
// waiting for friend discovery, and returns its address. Idempotent:
// reopening an already-open room returns the same address and keeps
// the existing subscription.
func (c *Client) OpenRoom(ctx context.Context, peer ref.PublicKey) (ref.RoomID, error) {
	c.mu.Lock()
	if !c.session.Authenticated {
		c.mu.Unlock()
		return ref.RoomID{}, fmt.Errorf("not logged in")
	}
	room, err := ref.PairRoomID(c.session.PublicKey, peer)
	if err != nil {
		c.mu.Unlock()
		return ref.RoomID{}, fmt.Errorf("deriving room for peer: %w", err)
	}
	reconciler, subs, opened := c.ensureRoomLocked(room)
	c.mu.Unlock()

	if opened {
		c.subscribeRoom(ctx, subs, reconciler)
	}
	return room, nil
}

// ensureRoomLocked installs a reconciler for room if absent. Callers
// hold c.mu. Reports whether the room was newly opened and therefore
// still needs its store subscription.
func (c *Client) ensureRoomLocked(room ref.RoomID) (*Reconciler, *subscriptionSet, bool) {
	if existing, ok := c.rooms[room]; ok {
		return existing, c.subs, false
	}
	reconciler := NewReconciler(room, c.logger)
	c.rooms[room] = reconciler
	return reconciler, c.subs, true
}

func (c *Client) subscribeRoom(ctx context.Context, subs *subscriptionSet, reconciler *Reconciler) {
	room := reconciler.Room()
	sub, err := c.store.Subscribe(ctx, roomPath(room), reconciler.OnEvent)
	if err != nil {
		c.logger.Error("subscribing to room", "room", room, "error", err)
		return
	}
	if subs.add(room.String(), sub) {
		c.logger.Info("room opened", "room", room)
	}
}

// Logout tears the session down: every subscription is canceled as a
// unit, per-session state is discarded, and observers see the
// logged-out session. The identity provider's Leave is best-effort;
// its failure never blocks the local teardown.
func (c *Client) Logout(ctx context.Context) {
	c.mu.Lock()
	if !c.session.Authenticated {
		c.mu.Unlock()
		return
	}
	subs := c.subs
	alias := c.session.Alias
	c.session = Session{}
	c.global = nil
	c.rooms = make(map[ref.RoomID]*Reconciler)
	c.friends = nil
	c.subs = nil
	c.mu.Unlock()

	subs.cancelAll()
	if err := c.provider.Leave(ctx); err != nil {
		c.logger.Warn("leaving identity session", "alias", alias, "error", err)
	}
	c.logger.Info("session closed", "alias", alias)
	c.notifyObservers(Session{})
}

// SendGlobalMessage publishes text to the global room.
func (c *Client) SendGlobalMessage(ctx context.Context, text string) error {
	return c.send(ctx, ref.GlobalRoom(), text)
}

// SendPrivateMessage publishes text to an open private room. The room
// must have been materialized by friend discovery or OpenRoom.
func (c *Client) SendPrivateMessage(ctx context.Context, room ref.RoomID, text string) error {
	if room.IsZero() || room.IsGlobal() {
		return fmt.Errorf("private send requires a pair room address")
	}
	return c.send(ctx, room, text)
}

func (c *Client) send(ctx context.Context, room ref.RoomID, text string) error {
	if text == "" {
		return fmt.Errorf("message text is required")
	}
	c.mu.Lock()
	session := c.session
	_, roomOpen := c.rooms[room]
	c.mu.Unlock()

	if !session.Authenticated {
		return fmt.Errorf("not logged in")
	}
	if !room.IsGlobal() && !roomOpen {
		return fmt.Errorf("room %q is not open", room)
	}

	alias := c.currentAlias(ctx, session)
	payload := wireMessage{
		Msg:  &text,
		User: alias,
		Pub:  session.PublicKey.String(),
		Time: c.clock.Now().UnixMilli(),
	}
	key, err := c.store.Put(ctx, roomPath(room), payload)
	if err != nil {
		return fmt.Errorf("publishing message to %q: %w", room, err)
	}
	c.logger.Debug("message sent", "room", room, "key", key)
	return nil
}

// currentAlias re-reads the published profile alias so a rename made
// from another device is reflected on the next send. Falls back to the
// session alias when the profile is unreadable.
func (c *Client) currentAlias(ctx context.Context, session Session) string {
	raw, err := c.store.ReadOnce(ctx, profilePath(session.PublicKey), profileAliasKey)
	if err != nil || raw == nil {
		return session.Alias
	}
	var alias string
	if err := json.Unmarshal(raw, &alias); err != nil || alias == "" {
		return session.Alias
	}
	return alias
}

// AddFriend writes a friend entry for the given peer to the caller's
// own friend stream. Both fields are validated before any store write.
// The entry is one-directional: the peer appears in the caller's
// roster, and the caller's own friend-stream subscription picks the
// entry up and opens the shared room.
func (c *Client) AddFriend(ctx context.Context, rawPub, alias string) error {
	if rawPub == "" {
		return fmt.Errorf("friend public key is required")
	}
	if alias == "" {
		return fmt.Errorf("friend alias is required")
	}
	peer, err := ref.ParsePublicKey(rawPub)
	if err != nil {
		return fmt.Errorf("friend public key: %w", err)
	}

	c.mu.Lock()
	session := c.session
	c.mu.Unlock()
	if !session.Authenticated {
		return fmt.Errorf("not logged in")
	}
	if peer == session.PublicKey {
		return fmt.Errorf("cannot add yourself as a friend")
	}

	entry := wireFriend{
		Pub:    peer.String(),
		Alias:  alias,
		Status: string(StatusFriend),
	}
	path := friendPath(session.PublicKey)
	if err := c.store.PutKeyed(ctx, path, peer.String(), entry); err != nil {
		return fmt.Errorf("publishing friend entry: %w", err)
	}
	return nil
}

// Session returns the current session snapshot.
func (c *Client) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// GlobalMessages returns the global room's canonical order, newest
// first. Empty when logged out.
func (c *Client) GlobalMessages() []Message {
	c.mu.Lock()
	global := c.global
	c.mu.Unlock()
	if global == nil {
		return nil
	}
	return global.Messages()
}

// RoomMessages returns a private room's canonical order, newest first.
// The second return reports whether the room is open.
func (c *Client) RoomMessages(room ref.RoomID) ([]Message, bool) {
	c.mu.Lock()
	reconciler, ok := c.rooms[room]
	c.mu.Unlock()
	if !ok {
		return nil, false
	}
	return reconciler.Messages(), true
}

// Rooms returns the addresses of the open private rooms.
func (c *Client) Rooms() []ref.RoomID {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ref.RoomID, 0, len(c.rooms))
	for room := range c.rooms {
		out = append(out, room)
	}
	return out
}

// Friends returns the reconciled roster. Empty when logged out.
func (c *Client) Friends() []Friend {
	c.mu.Lock()
	registry := c.friends
	c.mu.Unlock()
	if registry == nil {
		return nil
	}
	return registry.Friends()
}

// IsMentioned reports whether the message mentions the session alias.
func (c *Client) IsMentioned(message Message) bool {
	return IsMention(message.Text, c.Session().Alias)
}

// ObserveSession registers a session observer. The channel receives a
// snapshot on every session transition, starting with the current
// state. The returned cancel func unregisters the observer and closes
// the channel; slow observers drop intermediate snapshots rather than
// blocking the client.
func (c *Client) ObserveSession() (<-chan Session, func()) {
	ch := make(chan Session, 8)

	c.mu.Lock()
	id := c.nextObs
	c.nextObs++
	c.observers[id] = ch
	current := c.session
	c.mu.Unlock()

	ch <- current
	cancel := func() {
		c.mu.Lock()
		observer, ok := c.observers[id]
		delete(c.observers, id)
		c.mu.Unlock()
		if ok {
			close(observer)
		}
	}
	return ch, cancel
}

func (c *Client) notifyObservers(session Session) {
	// Sends happen under c.mu: an observer's cancel needs the lock to
	// unregister before it closes its channel, so no channel can close
	// mid-send. The sends are non-blocking and cannot stall the lock.
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.observers {
		select {
		case ch <- session:
		default:
			c.logger.Debug("session observer lagging, dropping snapshot")
		}
	}
}

// Close tears down local state without contacting the identity
// provider. Intended for process shutdown where the session should
// survive a restart.
func (c *Client) Close() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()
	if subs != nil {
		subs.cancelAll()
	}
}
