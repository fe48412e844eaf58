package api

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/singleflight"
)

// Backend endpoint paths.
const (
	epLogin    = "/auth/login"
	epRegister = "/auth/register"
	epLogout   = "/auth/logout"
	epRefresh  = "/auth/refresh"
	epMe       = "/users/me"
)

// maxBodyBytes bounds how much of any response body is read.
const maxBodyBytes = 1 << 20

// Config contains the client's runtime settings.
type Config struct {
	// BaseURL is the backend root, e.g. "https://api.strathconnect.app".
	// Endpoint paths are appended to it.
	BaseURL string

	// Timeout applies to every request end-to-end. Zero means DefaultTimeout.
	Timeout time.Duration

	// UserAgent is sent on every request when non-empty.
	UserAgent string
}

// DefaultTimeout is the per-request timeout when Config.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// TokenStore is the credential surface the client needs: read the current
// access token and persist a refreshed one. *cred.FileStore satisfies it.
type TokenStore interface {
	Token() (string, error)
	SetToken(token string) error
}

// Client performs requests against the StrathConnect backend.
//
// All methods are safe for concurrent use. Failures are always *Error.
type Client struct {
	cfg     Config
	log     *slog.Logger
	httpc   *http.Client
	creds   TokenStore
	metrics *Metrics

	// refreshing coalesces concurrent token refreshes: callers that hit an
	// expired token while a refresh is already in flight share its outcome.
	refreshing singleflight.Group
}

// New constructs a Client. metrics may be nil to disable instrumentation.
func New(cfg Config, log *slog.Logger, creds TokenStore, metrics *Metrics) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", cfg.BaseURL)
	}
	cfg.BaseURL = strings.TrimRight(u.String(), "/")

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	if creds == nil {
		return nil, fmt.Errorf("token store is required")
	}

	// Cookie jar so backend-set cookies (refresh context) travel on every
	// call, the browser "credentials: include" behavior.
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	return &Client{
		cfg: cfg,
		log: log,
		httpc: &http.Client{
			Transport: newInstrumentedTransport(http.DefaultTransport, log, metrics),
			Jar:       jar,
			Timeout:   cfg.Timeout,
		},
		creds:   creds,
		metrics: metrics,
	}, nil
}

// do runs the full pipeline for one logical request:
//
//	attempt -> on expired-token failure -> refresh -> retry once
//
// The retry cap is structural: there is no recursion, just the one extra
// attempt below. The refresh endpoint itself is never retried.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
	}

	err := c.attempt(ctx, method, path, payload, out)
	if err == nil {
		return nil
	}

	if !IsTokenExpired(err) || path == epRefresh {
		return err
	}

	if rerr := c.refreshToken(ctx); rerr != nil {
		// Refresh could not produce a new token; surface the original failure.
		c.log.Debug("api.refresh.failed", "path", path, "err", rerr)
		return err
	}

	// Same method, body and headers; Authorization is recomputed from the
	// refreshed token inside attempt.
	return c.attempt(ctx, method, path, payload, out)
}

// attempt issues the request exactly once and normalizes the outcome.
func (c *Client) attempt(ctx context.Context, method, path string, payload []byte, out any) error {
	op := method + " " + path

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return &Error{Op: op, Message: "build request: " + err.Error(), kind: ErrUnavailable}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", newRequestID())
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	// Login, register and refresh must go out unauthenticated even when a
	// stale token is still stored.
	if !isAuthEndpoint(path) {
		if tok, err := c.creds.Token(); err == nil && tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return &Error{Op: op, Message: "request failed: " + err.Error(), kind: ErrUnavailable}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		return classifyFailure(op, resp.StatusCode, raw)
	}

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	// A 2xx that is not JSON means something other than the backend answered
	// (wrong port, captive proxy). Raised immediately, never retried.
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "application/json") {
		return &Error{
			Op:      op,
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("unexpected content type %q: backend unreachable or misrouted", ct),
			kind:    ErrUnavailable,
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return &Error{
			Op:      op,
			Status:  resp.StatusCode,
			Message: "decode response: " + err.Error(),
			kind:    ErrUnavailable,
		}
	}
	return nil
}

// refreshToken exchanges the current session context for a fresh access
// token. Concurrent callers share one in-flight exchange.
func (c *Client) refreshToken(ctx context.Context) error {
	_, err, shared := c.refreshing.Do("refresh", func() (any, error) {
		if _, err := c.Refresh(ctx); err != nil {
			c.metrics.observeRefresh(false)
			return nil, err
		}
		c.metrics.observeRefresh(true)
		return nil, nil
	})
	if shared {
		c.log.Debug("api.refresh.coalesced")
	}
	return err
}

func isAuthEndpoint(path string) bool {
	return path == epLogin || path == epRegister || path == epRefresh
}

// newRequestID returns a ULID for the X-Request-Id header. Correlating
// client and backend logs is its only job, so failure degrades to empty.
func newRequestID() string {
	id, err := ulid.New(ulid.Timestamp(time.Now().UTC()), rand.Reader)
	if err != nil {
		return ""
	}
	return id.String()
}
