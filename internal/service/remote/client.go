// Package remote implements the data access layer over the fleet REST
// API. Every request carries the bearer token from a TokenStore; a 401
// response invalidates the token and calls the OnUnauthorized hook
// before the error is returned.
package remote

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

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/fleet-live/internal/auth"
	"github.com/ukydev/fleet-live/internal/service"
)

// DefaultTimeout bounds a single REST call.
const DefaultTimeout = 30 * time.Second

// TokenStore holds the bearer token of the current session.
type TokenStore interface {
	Token() string
	SetToken(token string)
	Invalidate()
}

// MemoryTokens is a TokenStore kept in process memory.
type MemoryTokens struct {
	mu    sync.RWMutex
	token string
}

// NewMemoryTokens returns a store seeded with token.
func NewMemoryTokens(token string) *MemoryTokens {
	return &MemoryTokens{token: token}
}

func (m *MemoryTokens) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

func (m *MemoryTokens) SetToken(token string) {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
}

func (m *MemoryTokens) Invalidate() { m.SetToken("") }

// Options configures a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	Tokens  TokenStore
	// OnUnauthorized runs after a 401 has invalidated the token.
	OnUnauthorized func()
	HTTPClient     *http.Client
	Now            func() time.Time
	Log            *log.Entry
}

// Client talks to the REST API.
type Client struct {
	baseURL        string
	http           *http.Client
	tokens         TokenStore
	onUnauthorized func()
	now            func() time.Time
	log            *log.Entry
}

// New returns a Client for opts.BaseURL.
func New(opts Options) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		http:           opts.HTTPClient,
		tokens:         opts.Tokens,
		onUnauthorized: opts.OnUnauthorized,
		now:            opts.Now,
		log:            opts.Log,
	}
	if c.http == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		c.http = &http.Client{Timeout: timeout}
	}
	if c.tokens == nil {
		c.tokens = NewMemoryTokens("")
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.log == nil {
		c.log = log.WithField("component", "remote")
	}
	return c
}

// Tokens exposes the token store shared with push feeds.
func (c *Client) Tokens() TokenStore { return c.tokens }

// Service bundles the client behind the data access interfaces. feed
// streams positions; the REST API itself has no push channel.
func (c *Client) Service(feed service.Feed) *service.Backend {
	return &service.Backend{
		Devices:   &devices{c},
		Rides:     &rides{c},
		Geofences: &geofences{c},
		Alerts:    &alerts{c},
		Groups:    &groups{c},
		Session:   &session{c},
		Dashboard: &dashboard{c},
		Feed:      feed,
	}
}

func (c *Client) unauthorized() {
	c.tokens.Invalidate()
	if c.onUnauthorized != nil {
		c.onUnauthorized()
	}
}

// do sends one JSON request and decodes the JSON response into out when
// out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	token := c.tokens.Token()
	if token != "" {
		if exp, ok := auth.Expiry(token); ok && !exp.After(c.now()) {
			c.log.WithField("path", path).Warn("Token expired before request")
			c.unauthorized()
			return fmt.Errorf("%s %s: %w", method, path, service.ErrUnauthorized)
		}
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal %s body: %w", path, err)
		}
		reader = bytes.NewReader(data)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s %s: %w", method, path, ctxErr)
		}
		return fmt.Errorf("%s %s: %w: %w", method, path, service.ErrTransport, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		c.log.WithField("path", path).Warn("Backend rejected credentials")
		c.unauthorized()
		return fmt.Errorf("%s %s: %w", method, path, service.ErrUnauthorized)
	case resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s %s: %w", method, path, service.ErrForbidden)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, path, service.ErrNotFound)
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("%s %s: %w", method, path, service.ErrConflict)
	case resp.StatusCode >= http.StatusBadRequest:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: %w: status %d: %s", method, path, service.ErrTransport,
			resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: %w: decode: %w", method, path, service.ErrTransport, err)
	}
	return nil
}

func setTime(q url.Values, key string, t *time.Time) {
	if t != nil {
		q.Set(key, t.UTC().Format(time.RFC3339))
	}
}

func setString(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

func pathID(prefix, id string) string {
	return prefix + "/" + url.PathEscape(id)
}
