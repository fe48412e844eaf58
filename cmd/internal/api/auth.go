package api

import (
	"context"
	"net/http"
)

// Login authenticates with email/password credentials. On success the
// returned access token is persisted before the identity is returned.
//
// The request is always sent unauthenticated, even when a stale token is
// still stored.
func (c *Client) Login(ctx context.Context, email, password string) (Identity, error) {
	var out authResponse
	if err := c.do(ctx, http.MethodPost, epLogin, loginRequest{Email: email, Password: password}, &out); err != nil {
		return Identity{}, err
	}
	if err := c.storeToken(out.AccessToken); err != nil {
		return Identity{}, err
	}
	return out.User, nil
}

// Register creates an account. The backend may or may not sign the new
// account in immediately; a token is persisted only when one is returned.
func (c *Client) Register(ctx context.Context, p RegisterParams) (Identity, error) {
	var out authResponse
	if err := c.do(ctx, http.MethodPost, epRegister, p, &out); err != nil {
		return Identity{}, err
	}
	if err := c.storeToken(out.AccessToken); err != nil {
		return Identity{}, err
	}
	return out.User, nil
}

// Logout tells the backend to end the session. Local credential cleanup is
// the session store's job, not the client's.
func (c *Client) Logout(ctx context.Context) error {
	var out messageResponse
	return c.do(ctx, http.MethodPost, epLogout, nil, &out)
}

// Refresh exchanges the current session context (cookie) for a fresh
// access token and identity, persisting the token on success. Sent
// unauthenticated: a stale bearer token must never ride along.
func (c *Client) Refresh(ctx context.Context) (Identity, error) {
	var out authResponse
	if err := c.do(ctx, http.MethodPost, epRefresh, nil, &out); err != nil {
		return Identity{}, err
	}
	if err := c.storeToken(out.AccessToken); err != nil {
		return Identity{}, err
	}
	return out.User, nil
}

// Me fetches the identity the stored token authenticates as.
func (c *Client) Me(ctx context.Context) (Identity, error) {
	var out Identity
	if err := c.do(ctx, http.MethodGet, epMe, nil, &out); err != nil {
		return Identity{}, err
	}
	return out, nil
}

func (c *Client) storeToken(token string) error {
	if token == "" {
		return nil
	}
	return c.creds.SetToken(token)
}
