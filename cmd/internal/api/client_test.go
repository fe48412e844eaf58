package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoginStoresTokenAndSendsNoBearer(t *testing.T) {
	b := newFakeBackend(t)
	c, creds := testClient(t, b)

	// A stale token left over from a previous session must not ride along.
	if err := creds.SetToken("stale-token"); err != nil {
		t.Fatalf("seed token: %v", err)
	}

	user, err := c.Login(context.Background(), "a@b.com", "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if user.ID != "1" || user.Email != "a@b.com" || user.Role != "mentor" {
		t.Fatalf("unexpected identity: %+v", user)
	}

	calls := b.calls("/auth/login")
	if len(calls) != 1 {
		t.Fatalf("want 1 login call, got %d", len(calls))
	}
	if calls[0].auth != "" {
		t.Fatalf("login carried Authorization header %q", calls[0].auth)
	}

	tok, _ := creds.Token()
	if tok == "" || tok == "stale-token" {
		t.Fatalf("token not replaced, got %q", tok)
	}
}

func TestLoginRejectedKeepsStoredToken(t *testing.T) {
	b := newFakeBackend(t)
	c, creds := testClient(t, b)
	_ = creds.SetToken("old")

	_, err := c.Login(context.Background(), "a@b.com", "wrong")
	if err == nil {
		t.Fatal("want error for bad password")
	}
	if err.Error() != "Invalid credentials" {
		t.Fatalf("want backend message verbatim, got %q", err.Error())
	}
	if tok, _ := creds.Token(); tok != "old" {
		t.Fatalf("stored token changed to %q", tok)
	}
}

func TestAuthenticatedRequestCarriesBearer(t *testing.T) {
	b := newFakeBackend(t)
	c, creds := testClient(t, b)
	_ = creds.SetToken(b.mint(time.Minute))

	if _, err := c.Me(context.Background()); err != nil {
		t.Fatalf("Me: %v", err)
	}

	calls := b.calls("/users/me")
	if len(calls) != 1 {
		t.Fatalf("want 1 call, got %d", len(calls))
	}
	if !strings.HasPrefix(calls[0].auth, "Bearer ") {
		t.Fatalf("missing bearer token, got %q", calls[0].auth)
	}
	if calls[0].reqID == "" {
		t.Fatal("missing X-Request-Id header")
	}
}

func TestNoStoredTokenSendsNoHeader(t *testing.T) {
	b := newFakeBackend(t)
	c, _ := testClient(t, b)

	_, err := c.Me(context.Background())
	if err == nil {
		t.Fatal("want rejection without a token")
	}

	calls := b.calls("/users/me")
	if len(calls) != 1 {
		t.Fatalf("want 1 call, got %d", len(calls))
	}
	if calls[0].auth != "" {
		t.Fatalf("unexpected Authorization header %q", calls[0].auth)
	}
}

func TestExpiredTokenRefreshesAndRetriesOnce(t *testing.T) {
	b := newFakeBackend(t)
	c, creds := testClient(t, b)

	// Establish the refresh cookie, then age the access token out.
	if _, err := c.Login(context.Background(), "a@b.com", "secret123"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	_ = creds.SetToken(b.mint(-time.Minute))

	user, err := c.Me(context.Background())
	if err != nil {
		t.Fatalf("Me after expiry: %v", err)
	}
	if user.ID != "1" {
		t.Fatalf("unexpected identity: %+v", user)
	}

	if n := len(b.calls("/auth/refresh")); n != 1 {
		t.Fatalf("want 1 refresh call, got %d", n)
	}
	me := b.calls("/users/me")
	if len(me) != 2 {
		t.Fatalf("want 2 /users/me attempts, got %d", len(me))
	}
	if me[0].auth == me[1].auth {
		t.Fatal("retry did not pick up the refreshed token")
	}

	// The refreshed token must now be the persisted one.
	tok, _ := creds.Token()
	if "Bearer "+tok != me[1].auth {
		t.Fatal("persisted token does not match the retried request")
	}
}

func TestRetryFailureDoesNotRefreshTwice(t *testing.T) {
	b := newFakeBackend(t)
	b.refreshTTL = -time.Minute // refresh hands back an already-dead token
	c, creds := testClient(t, b)

	if _, err := c.Login(context.Background(), "a@b.com", "secret123"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	_ = creds.SetToken(b.mint(-time.Minute))

	_, err := c.Me(context.Background())
	if !IsTokenExpired(err) {
		t.Fatalf("want expired-token error, got %v", err)
	}
	if n := len(b.calls("/auth/refresh")); n != 1 {
		t.Fatalf("want exactly 1 refresh, got %d", n)
	}
	if n := len(b.calls("/users/me")); n != 2 {
		t.Fatalf("want exactly 2 attempts, got %d", n)
	}
}

func TestRefreshFailureSurfacesOriginalError(t *testing.T) {
	b := newFakeBackend(t)
	b.failRefresh = true
	c, creds := testClient(t, b)
	_ = creds.SetToken(b.mint(-time.Minute))

	_, err := c.Me(context.Background())
	if err == nil {
		t.Fatal("want error")
	}
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("want *Error, got %T", err)
	}
	if apiErr.Op != "GET /users/me" {
		t.Fatalf("error should describe the original call, got op %q", apiErr.Op)
	}
	if !IsTokenExpired(err) {
		t.Fatalf("want expired-token classification, got %v", err)
	}
	if n := len(b.calls("/users/me")); n != 1 {
		t.Fatalf("want 1 attempt, got %d", n)
	}
}

func TestRefreshEndpointIsNeverRetried(t *testing.T) {
	b := newFakeBackend(t)
	b.failRefresh = true
	c, _ := testClient(t, b)

	_, err := c.Refresh(context.Background())
	if err == nil {
		t.Fatal("want error")
	}
	if n := len(b.calls("/auth/refresh")); n != 1 {
		t.Fatalf("want exactly 1 refresh attempt, got %d", n)
	}
}

func TestConcurrentExpiriesShareOneRefresh(t *testing.T) {
	b := newFakeBackend(t)
	b.refreshDelay = 200 * time.Millisecond
	c, creds := testClient(t, b)

	if _, err := c.Login(context.Background(), "a@b.com", "secret123"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	_ = creds.SetToken(b.mint(-time.Minute))

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.Me(context.Background())
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if calls := len(b.calls("/auth/refresh")); calls != 1 {
		t.Fatalf("want 1 coalesced refresh, got %d", calls)
	}
}

func TestPlainTextErrorBodySurfacedVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("internal error"))
	}))
	defer srv.Close()

	c, _ := testClientAt(t, srv.URL)
	_, err := c.Me(context.Background())
	if err == nil {
		t.Fatal("want error")
	}
	if err.Error() != "internal error" {
		t.Fatalf("want body verbatim, got %q", err.Error())
	}
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusInternalServerError {
		t.Fatalf("unexpected error shape: %#v", err)
	}
	if IsUnavailable(err) || IsTokenExpired(err) {
		t.Fatal("plain server failure must not be classified as transport or auth")
	}
}

func TestHTMLErrorBodyMeansMisrouted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<!DOCTYPE html><html><body>502 Bad Gateway</body></html>"))
	}))
	defer srv.Close()

	c, _ := testClientAt(t, srv.URL)
	_, err := c.Me(context.Background())
	if !IsUnavailable(err) {
		t.Fatalf("want unavailable, got %v", err)
	}
	if err.Error() != "backend unreachable or misrouted" {
		t.Fatalf("got %q", err.Error())
	}
}

func TestNonJSONSuccessIsATransportFault(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>welcome to the corporate proxy</html>"))
	}))
	defer srv.Close()

	c, _ := testClientAt(t, srv.URL)
	_, err := c.Me(context.Background())
	if !IsUnavailable(err) {
		t.Fatalf("want unavailable, got %v", err)
	}
	if hits != 1 {
		t.Fatalf("transport faults must not be retried, got %d attempts", hits)
	}
}

func TestNetworkFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	c, _ := testClientAt(t, srv.URL)
	_, err := c.Me(context.Background())
	if !IsUnavailable(err) {
		t.Fatalf("want unavailable, got %v", err)
	}
}

func TestValidationMessagesJoined(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(w, http.StatusBadRequest, map[string]any{
			"message": []string{"email must be an email", "password must be longer than or equal to 8 characters"},
		})
	}))
	defer srv.Close()

	c, _ := testClientAt(t, srv.URL)
	_, err := c.Login(context.Background(), "nope", "x")
	if err == nil {
		t.Fatal("want error")
	}
	want := "email must be an email; password must be longer than or equal to 8 characters"
	if err.Error() != want {
		t.Fatalf("got %q, want %q", err.Error(), want)
	}
}

func TestEmptyErrorBodyFallsBackToStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, _ := testClientAt(t, srv.URL)
	_, err := c.Me(context.Background())
	if err == nil {
		t.Fatal("want error")
	}
	if err.Error() != "HTTP error 503" {
		t.Fatalf("got %q", err.Error())
	}
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	for _, raw := range []string{"", "not a url", "localhost:3001", "/just/a/path"} {
		if _, err := New(Config{BaseURL: raw}, discardLogger(), &memTokens{}, nil); err == nil {
			t.Fatalf("New accepted base URL %q", raw)
		}
	}
}

func TestNewTrimsTrailingSlash(t *testing.T) {
	b := newFakeBackend(t)
	creds := &memTokens{}
	c, err := New(Config{BaseURL: b.URL() + "/"}, discardLogger(), creds, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Login(context.Background(), "a@b.com", "secret123"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if calls := b.calls("/auth/login"); len(calls) != 1 {
		t.Fatalf("path not joined cleanly, login calls: %d", len(calls))
	}
}

func testClientAt(t *testing.T, baseURL string) (*Client, *memTokens) {
	t.Helper()
	creds := &memTokens{}
	c, err := New(Config{BaseURL: baseURL}, discardLogger(), creds, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, creds
}
