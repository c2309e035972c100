// Package kredika is the client for the Kredika buy-now-pay-later API:
// authentication, credit reservations, installments, payment instructions
// and webhook signature checks.
//
// A single Client is meant to be shared by all requests. Session state is
// guarded internally and concurrent token refreshes collapse into one call.
package kredika

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const (
	refreshWindow  = 60 * time.Second
	apiKeyValidity = 24 * time.Hour
	apiKeyToken    = "api-key-auth"
	defaultTimeout = 10 * time.Second
)

type AuthMode string

const (
	Unauthenticated     AuthMode = "UNAUTHENTICATED"
	OAuth2Authenticated AuthMode = "OAUTH2_AUTHENTICATED"
	APIKeyAuthenticated AuthMode = "API_KEY_AUTHENTICATED"
)

// Session is an immutable snapshot of the client's authentication state.
type Session struct {
	Mode         AuthMode
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	PartnerID    string
}

type Config struct {
	BaseURL       string
	ClientID      string
	ClientSecret  string
	APIKey        string
	PartnerKey    string
	WebhookSecret string
	Timeout       time.Duration
}

func (c Config) hasOAuth2() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

func (c Config) hasAPIKey() bool {
	return c.APIKey != "" && c.PartnerKey != ""
}

type Client struct {
	cfg   Config
	http  *http.Client
	now   func() time.Time
	group singleflight.Group

	mu      sync.RWMutex
	session Session
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	c := &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		now:     time.Now,
		session: Session{Mode: Unauthenticated},
	}
	for _, opt := range opts {
		opt(c)
	}

	log.Info().
		Str("base_url", cfg.BaseURL).
		Bool("oauth2", cfg.hasOAuth2()).
		Bool("api_key", cfg.hasAPIKey()).
		Bool("webhook_secret", cfg.WebhookSecret != "").
		Msg("kredika client initialized")

	return c
}

// Session returns the current authentication snapshot.
func (c *Client) Session() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

func (c *Client) setSession(s Session) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
}

// Authenticate establishes a fresh session. OAuth2 client credentials take
// precedence over the static API key pair.
func (c *Client) Authenticate(ctx context.Context) (Session, error) {
	if c.cfg.hasOAuth2() {
		var tok tokenResponse
		body := map[string]string{"clientId": c.cfg.ClientID, "clientSecret": c.cfg.ClientSecret}
		if err := c.send(ctx, http.MethodPost, "/auth/token", nil, body, nil, &tok); err != nil {
			log.Error().Err(err).Msg("kredika oauth2 authentication failed")
			return Session{}, err
		}

		s := Session{
			Mode:         OAuth2Authenticated,
			AccessToken:  tok.AccessToken,
			RefreshToken: tok.RefreshToken,
			ExpiresAt:    c.now().Add(time.Duration(tok.ExpiresIn) * time.Second),
			PartnerID:    c.cfg.ClientID,
		}
		c.setSession(s)
		log.Info().Time("expires_at", s.ExpiresAt).Msg("kredika oauth2 authentication successful")
		return s, nil
	}

	if c.cfg.hasAPIKey() {
		s := Session{
			Mode:        APIKeyAuthenticated,
			AccessToken: apiKeyToken,
			ExpiresAt:   c.now().Add(apiKeyValidity),
			PartnerID:   c.cfg.PartnerKey,
		}
		c.setSession(s)
		log.Info().Msg("kredika using api key authentication")
		return s, nil
	}

	return Session{}, ErrCredentialsMissing
}

// RefreshAccessToken exchanges the refresh token for a new access token and
// falls back to a full authentication when that fails.
func (c *Client) RefreshAccessToken(ctx context.Context) (Session, error) {
	current := c.Session()
	if current.RefreshToken == "" {
		return c.Authenticate(ctx)
	}

	var tok tokenResponse
	body := map[string]string{"refreshToken": current.RefreshToken}
	if err := c.send(ctx, http.MethodPost, "/auth/refresh", nil, body, nil, &tok); err != nil {
		log.Warn().Err(err).Msg("kredika token refresh failed, re-authenticating")
		return c.Authenticate(ctx)
	}

	s := current
	s.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		s.RefreshToken = tok.RefreshToken
	}
	s.ExpiresAt = c.now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	c.setSession(s)
	log.Info().Time("expires_at", s.ExpiresAt).Msg("kredika token refreshed")
	return s, nil
}

func (c *Client) needsRenewal(s Session) bool {
	switch s.Mode {
	case OAuth2Authenticated:
		return !c.now().Before(s.ExpiresAt.Add(-refreshWindow))
	case APIKeyAuthenticated:
		return !c.now().Before(s.ExpiresAt)
	}
	return true
}

// EnsureValidToken returns a usable session, authenticating or refreshing
// first when needed. Concurrent callers share a single renewal. The renewal
// runs detached from ctx, bounded by the client timeout, so a caller that
// gives up does not fail the others waiting on it.
func (c *Client) EnsureValidToken(ctx context.Context) (Session, error) {
	s := c.Session()
	if !c.needsRenewal(s) {
		return s, nil
	}

	ch := c.group.DoChan("session", func() (any, error) {
		// another flight may have renewed while we waited
		current := c.Session()
		if !c.needsRenewal(current) {
			return current, nil
		}
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.Timeout)
		defer cancel()
		if current.Mode == OAuth2Authenticated {
			return c.RefreshAccessToken(rctx)
		}
		return c.Authenticate(rctx)
	})

	select {
	case <-ctx.Done():
		return Session{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return Session{}, r.Err
		}
		return r.Val.(Session), nil
	}
}

// authHeaders builds mode-dependent credentials. withKeys additionally sends
// the API key pair when configured, for endpoints the provider cross-checks.
func (c *Client) authHeaders(s Session, withKeys bool) http.Header {
	h := http.Header{}
	switch s.Mode {
	case OAuth2Authenticated:
		h.Set("Authorization", "Bearer "+s.AccessToken)
	case APIKeyAuthenticated:
		h.Set("X-API-Key", c.cfg.APIKey)
		h.Set("X-Partner-Key", c.cfg.PartnerKey)
	}
	if withKeys && c.cfg.hasAPIKey() {
		h.Set("X-API-Key", c.cfg.APIKey)
		h.Set("X-Partner-Key", c.cfg.PartnerKey)
	}
	return h
}

// call performs an authenticated request.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, body, out any) error {
	s, err := c.EnsureValidToken(ctx)
	if err != nil {
		return err
	}
	return c.send(ctx, method, path, query, body, c.authHeaders(s, false), out)
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, body any, header http.Header, out any) error {
	endpoint := c.cfg.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s request: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build %s %s request: %w", method, path, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := c.now()
	resp, err := c.http.Do(req)
	if err != nil {
		return &RequestError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &RequestError{Method: method, Path: path, Status: resp.StatusCode, Err: err}
	}

	log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", c.now().Sub(start)).
		Msg("kredika call")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &RequestError{Method: method, Path: path, Status: resp.StatusCode, Body: string(raw)}
	}

	if out != nil && len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode %s %s response: %w", method, path, err)
		}
	}
	return nil
}

// HealthCheck pings the provider without credentials.
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.send(ctx, http.MethodGet, "/health", nil, nil, nil, nil)
}
