// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/lattice-chat/lattice/lib/ref"
	"github.com/lattice-chat/lattice/lib/secret"
)

// maxResponseBytes caps identity relay response bodies. Replies are
// small JSON documents; anything larger is a misbehaving server.
const maxResponseBytes = 1 << 20

// RelayConfig holds configuration for creating a RelayProvider.
type RelayConfig struct {
	// URL is the base URL of the identity relay (e.g., "http://localhost:8766").
	URL string
	// HTTPClient is used for all requests. If nil, http.DefaultClient
	// is used.
	HTTPClient *http.Client
	// Logger is used for structured logging. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
}

// RelayProvider implements Provider against an identity relay over
// HTTP. The relay owns keys and credentials; this client only carries
// the alias/secret pair in and the public identity out.
//
// The session token returned by authenticate is held in mmap-backed
// secret memory (locked against swap, excluded from core dumps) and
// released on Leave.
type RelayProvider struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	mu      sync.Mutex
	current Identity
	token   *secret.Buffer
}

// NewRelayProvider creates a provider against the given relay URL.
func NewRelayProvider(config RelayConfig) (*RelayProvider, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("identity: relay URL is required")
	}
	if _, err := url.Parse(config.URL); err != nil {
		return nil, fmt.Errorf("identity: invalid relay URL %q: %w", config.URL, err)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &RelayProvider{
		baseURL:    strings.TrimRight(config.URL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// authReply is the relay's response to create and authenticate.
type authReply struct {
	PublicKey ref.PublicKey `json:"pub"`
	Alias     string        `json:"alias"`
	Token     string        `json:"token"`
}

// Create registers a new identity. It does not authenticate.
func (p *RelayProvider) Create(ctx context.Context, alias string, secretValue *secret.Buffer) error {
	if alias == "" {
		return &AuthError{Code: ErrCodeInvalidAlias, Message: "alias is required"}
	}
	if secretValue == nil {
		return fmt.Errorf("identity: secret is required")
	}

	// The secret is converted to string at the JSON serialization
	// boundary. The heap copy is short-lived — it exists only during
	// the HTTP call.
	body := map[string]string{"alias": alias, "secret": secretValue.String()}
	if _, err := p.doRequest(ctx, "/v1/identity/create", body); err != nil {
		return fmt.Errorf("identity: create failed: %w", err)
	}

	p.logger.Info("created identity", "alias", alias)
	return nil
}

// Authenticate establishes a session and returns the identity.
func (p *RelayProvider) Authenticate(ctx context.Context, alias string, secretValue *secret.Buffer) (Identity, error) {
	if alias == "" {
		return Identity{}, &AuthError{Code: ErrCodeInvalidAlias, Message: "alias is required"}
	}
	if secretValue == nil {
		return Identity{}, fmt.Errorf("identity: secret is required")
	}

	body := map[string]string{"alias": alias, "secret": secretValue.String()}
	replyBody, err := p.doRequest(ctx, "/v1/identity/authenticate", body)
	if err != nil {
		return Identity{}, fmt.Errorf("identity: authenticate failed: %w", err)
	}

	var reply authReply
	if err := json.Unmarshal(replyBody, &reply); err != nil {
		return Identity{}, fmt.Errorf("identity: parsing authenticate response: %w", err)
	}
	if reply.PublicKey.IsZero() {
		return Identity{}, fmt.Errorf("identity: authenticate response missing public key")
	}

	current := Identity{PublicKey: reply.PublicKey, Alias: reply.Alias}

	var token *secret.Buffer
	if reply.Token != "" {
		token, err = secret.NewFromString(reply.Token)
		if err != nil {
			return Identity{}, fmt.Errorf("identity: protecting session token: %w", err)
		}
	}

	p.mu.Lock()
	if p.token != nil {
		p.token.Close()
	}
	p.current = current
	p.token = token
	p.mu.Unlock()

	p.logger.Info("authenticated",
		"alias", current.Alias,
		"pub", current.PublicKey.String(),
	)
	return current, nil
}

// Leave terminates the session. The local identity is cleared first;
// the relay-side logout is best effort.
func (p *RelayProvider) Leave(ctx context.Context) error {
	p.mu.Lock()
	token := p.token
	p.current = Identity{}
	p.token = nil
	p.mu.Unlock()

	if token == nil {
		return nil
	}
	defer token.Close()

	body := map[string]string{"token": token.String()}
	if _, err := p.doRequest(ctx, "/v1/identity/leave", body); err != nil {
		return fmt.Errorf("identity: leave failed: %w", err)
	}
	return nil
}

// Current returns the authenticated identity, if any.
func (p *RelayProvider) Current() (Identity, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, !p.current.IsZero()
}

// doRequest POSTs a JSON body and returns the response body. On 4xx
// and 5xx the relay's error document is returned as *AuthError.
func (p *RelayProvider) doRequest(ctx context.Context, path string, requestBody any) ([]byte, error) {
	encoded, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := p.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return responseBody, nil
	}

	// All relay error responses use the same JSON shape.
	var authErr AuthError
	if jsonErr := json.Unmarshal(responseBody, &authErr); jsonErr != nil || authErr.Code == "" {
		return nil, &AuthError{
			Code:       ErrCodeUnknown,
			Message:    fmt.Sprintf("unexpected %d response from %s", response.StatusCode, path),
			StatusCode: response.StatusCode,
		}
	}
	authErr.StatusCode = response.StatusCode
	return nil, &authErr
}

// Compile-time check: *RelayProvider implements Provider.
var _ Provider = (*RelayProvider)(nil)
