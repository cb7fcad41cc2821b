// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/lattice-chat/lattice/chat"
	"github.com/lattice-chat/lattice/graph"
	"github.com/lattice-chat/lattice/identity"
	"github.com/lattice-chat/lattice/lib/clock"
	"github.com/lattice-chat/lattice/lib/config"
	"github.com/lattice-chat/lattice/lib/ref"
	"github.com/lattice-chat/lattice/lib/secret"
	"github.com/lattice-chat/lattice/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) < 2 {
		printUsage()
		return fmt.Errorf("subcommand required")
	}

	switch os.Args[1] {
	case "register":
		return runRegister(os.Args[2:])
	case "send":
		return runSend(os.Args[2:])
	case "friends":
		return runFriends(os.Args[2:])
	case "add-friend":
		return runAddFriend(os.Args[2:])
	case "whoami":
		return runWhoami(os.Args[2:])
	case "watch":
		return runWatch(os.Args[2:])
	case "version", "--version":
		version.Print("lattice")
		return nil
	case "-h", "--help", "help":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown subcommand: %q", os.Args[1])
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: lattice <subcommand> [flags]

Subcommands:
  register    Create a new account
  send        Send a message to the global room or a friend
  friends     List the friend roster
  add-friend  Add a friend by public key
  whoami      Print the session's public key (share it with friends)
  watch       Stream room messages until interrupted
  version     Print version information

Run 'lattice <subcommand> --help' for subcommand flags.
`)
}

// sessionFlags are the flags every authenticated subcommand shares.
type sessionFlags struct {
	configPath   string
	alias        string
	passwordFile string
}

func (f *sessionFlags) register(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&f.configPath, "config", "", "config file path (default: $LATTICE_CONFIG)")
	flagSet.StringVar(&f.alias, "alias", "", "account alias")
	flagSet.StringVar(&f.passwordFile, "password-file", "", "file holding the account password, or - for stdin")
}

func (f *sessionFlags) validate() error {
	if f.alias == "" {
		return fmt.Errorf("--alias is required")
	}
	if f.passwordFile == "" {
		return fmt.Errorf("--password-file is required")
	}
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.Log.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// session bundles a logged-in chat client with its connections.
type session struct {
	client *chat.Client
	store  *graph.Client
	clock  clock.Clock
}

// openSession loads config, connects to the relay and identity
// provider, and logs the account in. The caller must call close.
func openSession(ctx context.Context, flags *sessionFlags) (*session, error) {
	if err := flags.validate(); err != nil {
		return nil, err
	}
	cfg, err := loadConfig(flags.configPath)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg)

	password, err := secret.ReadFromPath(flags.passwordFile)
	if err != nil {
		return nil, fmt.Errorf("reading password: %w", err)
	}
	defer password.Close()

	store, err := graph.NewClient(graph.ClientConfig{
		URL:    cfg.Relay.URL,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to relay: %w", err)
	}

	provider, err := identity.NewRelayProvider(identity.RelayConfig{
		URL:    cfg.Identity.URL,
		Logger: logger,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("configuring identity provider: %w", err)
	}

	clk := clock.Real()
	client, err := chat.NewClient(chat.ClientConfig{
		Store:    store,
		Provider: provider,
		Logger:   logger,
		Clock:    clk,
	})
	if err != nil {
		store.Close()
		return nil, err
	}
	if err := client.Login(ctx, flags.alias, password); err != nil {
		store.Close()
		return nil, err
	}
	return &session{client: client, store: store, clock: clk}, nil
}

// close leaves the identity session and drops the relay connection.
func (s *session) close(ctx context.Context) {
	s.client.Logout(ctx)
	s.store.Close()
}

func runRegister(args []string) error {
	var flags sessionFlags
	flagSet := pflag.NewFlagSet("lattice register", pflag.ContinueOnError)
	flags.register(flagSet)
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if err := flags.validate(); err != nil {
		return err
	}
	cfg, err := loadConfig(flags.configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	password, err := secret.ReadFromPath(flags.passwordFile)
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}
	defer password.Close()

	provider, err := identity.NewRelayProvider(identity.RelayConfig{
		URL:    cfg.Identity.URL,
		Logger: logger,
	})
	if err != nil {
		return err
	}
	if err := provider.Create(context.Background(), flags.alias, password); err != nil {
		return err
	}
	fmt.Printf("account %q registered\n", flags.alias)
	return nil
}

func runSend(args []string) error {
	var flags sessionFlags
	var to string
	flagSet := pflag.NewFlagSet("lattice send", pflag.ContinueOnError)
	flags.register(flagSet)
	flagSet.StringVar(&to, "to", "", "friend's public key (omit for the global room)")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	text := strings.Join(flagSet.Args(), " ")
	if text == "" {
		return fmt.Errorf("message text required")
	}

	ctx := context.Background()
	sess, err := openSession(ctx, &flags)
	if err != nil {
		return err
	}
	defer sess.close(ctx)

	if to == "" {
		return sess.client.SendGlobalMessage(ctx, text)
	}
	peer, err := ref.ParsePublicKey(to)
	if err != nil {
		return fmt.Errorf("--to: %w", err)
	}
	room, err := sess.client.OpenRoom(ctx, peer)
	if err != nil {
		return err
	}
	return sess.client.SendPrivateMessage(ctx, room, text)
}

func runFriends(args []string) error {
	var flags sessionFlags
	var wait time.Duration
	flagSet := pflag.NewFlagSet("lattice friends", pflag.ContinueOnError)
	flags.register(flagSet)
	flagSet.DurationVar(&wait, "wait", 2*time.Second, "how long to wait for the roster to sync")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	sess, err := openSession(ctx, &flags)
	if err != nil {
		return err
	}
	defer sess.close(ctx)

	// The roster fills from the replayed friend stream; give the
	// relay a moment to deliver it.
	sess.clock.Sleep(wait)

	friends := sess.client.Friends()
	if len(friends) == 0 {
		fmt.Println("no friends yet")
		return nil
	}
	for _, friend := range friends {
		fmt.Printf("%s\t%s\n", friend.Alias, friend.PublicKey)
	}
	return nil
}

func runAddFriend(args []string) error {
	var flags sessionFlags
	flagSet := pflag.NewFlagSet("lattice add-friend", pflag.ContinueOnError)
	flags.register(flagSet)
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	rest := flagSet.Args()
	if len(rest) != 2 {
		return fmt.Errorf("usage: lattice add-friend [flags] <public-key> <alias>")
	}

	ctx := context.Background()
	sess, err := openSession(ctx, &flags)
	if err != nil {
		return err
	}
	defer sess.close(ctx)

	if err := sess.client.AddFriend(ctx, rest[0], rest[1]); err != nil {
		return err
	}
	fmt.Printf("friend %q added\n", rest[1])
	return nil
}

func runWhoami(args []string) error {
	var flags sessionFlags
	flagSet := pflag.NewFlagSet("lattice whoami", pflag.ContinueOnError)
	flags.register(flagSet)
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	sess, err := openSession(ctx, &flags)
	if err != nil {
		return err
	}
	defer sess.close(ctx)

	session := sess.client.Session()
	fmt.Printf("%s\t%s\n", session.Alias, session.PublicKey)
	return nil
}

func runWatch(args []string) error {
	var flags sessionFlags
	var peerKey string
	var poll time.Duration
	flagSet := pflag.NewFlagSet("lattice watch", pflag.ContinueOnError)
	flags.register(flagSet)
	flagSet.StringVar(&peerKey, "to", "", "friend's public key (omit for the global room)")
	flagSet.DurationVar(&poll, "poll", time.Second, "snapshot poll interval")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sess, err := openSession(ctx, &flags)
	if err != nil {
		return err
	}
	defer sess.close(context.Background())

	room := ref.GlobalRoom()
	if peerKey != "" {
		peer, err := ref.ParsePublicKey(peerKey)
		if err != nil {
			return fmt.Errorf("--to: %w", err)
		}
		room, err = sess.client.OpenRoom(ctx, peer)
		if err != nil {
			return err
		}
	}

	alias := sess.client.Session().Alias
	fmt.Fprintf(os.Stderr, "watching %s (ctrl-c to stop)\n", room)

	// Poll snapshots and print anything not yet seen, oldest first.
	// The snapshot is already deduplicated and ordered, so printing
	// reduces to tracking which IDs went out.
	printed := make(map[string]struct{})
	for {
		messages := roomSnapshot(sess.client, room)
		for i := len(messages) - 1; i >= 0; i-- {
			message := messages[i]
			if _, done := printed[message.ID]; done {
				continue
			}
			printed[message.ID] = struct{}{}
			fmt.Println(formatMessage(message, alias))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-sess.clock.After(poll):
		}
	}
}

func roomSnapshot(client *chat.Client, room ref.RoomID) []chat.Message {
	if room.IsGlobal() {
		return client.GlobalMessages()
	}
	messages, _ := client.RoomMessages(room)
	return messages
}

// formatMessage renders one message line for the watch stream. A "*"
// prefix marks messages that mention the watcher's alias.
func formatMessage(message chat.Message, selfAlias string) string {
	marker := " "
	if chat.IsMention(message.Text, selfAlias) {
		marker = "*"
	}
	stamp := time.UnixMilli(message.Timestamp).Format("15:04:05")
	author := message.AuthorAlias
	if author == "" {
		author = "(unknown)"
	}
	return fmt.Sprintf("%s%s %s: %s", marker, stamp, author, message.Text)
}
