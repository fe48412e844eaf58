package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// fakeBackend is an httptest stand-in for the StrathConnect backend. It
// mints real HS256 tokens so expiry is exercised against genuine 401s
// rather than canned responses.
type fakeBackend struct {
	t   *testing.T
	key []byte

	// accessTTL controls minted token lifetime; negative means tokens are
	// born expired.
	accessTTL time.Duration

	user     Identity
	password string

	// refreshTTL is the lifetime of tokens minted by /auth/refresh.
	refreshTTL time.Duration
	// failRefresh makes /auth/refresh reject with the expired-token message.
	failRefresh bool
	// refreshDelay simulates a slow refresh exchange.
	refreshDelay time.Duration

	mu       sync.Mutex
	requests []recordedRequest

	srv *httptest.Server
}

type recordedRequest struct {
	method string
	path   string
	auth   string
	cookie string
	reqID  string
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()

	b := &fakeBackend{
		t:   t,
		key: []byte("test-signing-key"),
		user: Identity{
			ID:         "1",
			Email:      "a@b.com",
			Name:       "A B",
			Role:       "mentor",
			Department: "it",
		},
		password:   "secret123",
		accessTTL:  time.Minute,
		refreshTTL: time.Minute,
	}
	b.srv = httptest.NewServer(http.HandlerFunc(b.handle))
	t.Cleanup(b.srv.Close)
	return b
}

func (b *fakeBackend) URL() string { return b.srv.URL }

func (b *fakeBackend) record(r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cookie := ""
	if c, err := r.Cookie("strath_rt"); err == nil {
		cookie = c.Value
	}
	b.requests = append(b.requests, recordedRequest{
		method: r.Method,
		path:   r.URL.Path,
		auth:   r.Header.Get("Authorization"),
		cookie: cookie,
		reqID:  r.Header.Get("X-Request-Id"),
	})
}

func (b *fakeBackend) calls(path string) []recordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []recordedRequest
	for _, r := range b.requests {
		if r.path == path {
			out = append(out, r)
		}
	}
	return out
}

func (b *fakeBackend) mint(ttl time.Duration) string {
	now := time.Now().UTC()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   b.user.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
	s, err := tok.SignedString(b.key)
	if err != nil {
		b.t.Fatalf("sign token: %v", err)
	}
	return s
}

// authorized verifies the bearer token; any failure is the backend's
// uniform expired-token rejection.
func (b *fakeBackend) authorized(w http.ResponseWriter, r *http.Request) bool {
	h := r.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(h, "Bearer ")
	if !ok {
		writeTestJSON(w, http.StatusUnauthorized, map[string]any{"message": "Invalid or expired token"})
		return false
	}
	_, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) { return b.key, nil },
		jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		writeTestJSON(w, http.StatusUnauthorized, map[string]any{"message": "Invalid or expired token"})
		return false
	}
	return true
}

func (b *fakeBackend) handle(w http.ResponseWriter, r *http.Request) {
	b.record(r)

	switch r.Method + " " + r.URL.Path {
	case "POST /auth/login":
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeTestJSON(w, http.StatusBadRequest, map[string]any{"message": "malformed body"})
			return
		}
		if req.Email != b.user.Email || req.Password != b.password {
			writeTestJSON(w, http.StatusUnauthorized, map[string]any{"message": "Invalid credentials"})
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "strath_rt", Value: "rt-1", Path: "/"})
		writeTestJSON(w, http.StatusOK, authResponse{User: b.user, AccessToken: b.mint(b.accessTTL)})

	case "POST /auth/register":
		var req RegisterParams
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeTestJSON(w, http.StatusBadRequest, map[string]any{"message": "malformed body"})
			return
		}
		id := Identity{ID: "2", Email: req.Email, Name: req.Name, Department: req.Department}
		writeTestJSON(w, http.StatusOK, authResponse{User: id, AccessToken: b.mint(b.accessTTL)})

	case "POST /auth/refresh":
		if b.refreshDelay > 0 {
			time.Sleep(b.refreshDelay)
		}
		if b.failRefresh {
			writeTestJSON(w, http.StatusUnauthorized, map[string]any{"message": "Invalid or expired token"})
			return
		}
		if _, err := r.Cookie("strath_rt"); err != nil {
			writeTestJSON(w, http.StatusUnauthorized, map[string]any{"message": "No session"})
			return
		}
		writeTestJSON(w, http.StatusOK, authResponse{User: b.user, AccessToken: b.mint(b.refreshTTL)})

	case "POST /auth/logout":
		writeTestJSON(w, http.StatusOK, map[string]any{"message": "Logged out"})

	case "GET /users/me":
		if !b.authorized(w, r) {
			return
		}
		writeTestJSON(w, http.StatusOK, b.user)

	case "GET /programs":
		if !b.authorized(w, r) {
			return
		}
		writeTestJSON(w, http.StatusOK, []Program{
			{ID: "p1", Name: "Career growth", Status: "active"},
		})

	case "GET /users/pending":
		if !b.authorized(w, r) {
			return
		}
		writeTestJSON(w, http.StatusOK, []Identity{{ID: "9", Email: "new@b.com", Name: "New User"}})

	case "PATCH /users/9/role":
		if !b.authorized(w, r) {
			return
		}
		var req struct {
			Role string `json:"role"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		u := Identity{ID: "9", Email: "new@b.com", Name: "New User", Role: req.Role}
		writeTestJSON(w, http.StatusOK, u)

	default:
		writeTestJSON(w, http.StatusNotFound, map[string]any{"message": "Not found"})
	}
}

func writeTestJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// testClient builds a Client against the fake backend with an in-memory
// token store.
func testClient(t *testing.T, b *fakeBackend) (*Client, *memTokens) {
	t.Helper()

	creds := &memTokens{}
	c, err := New(Config{BaseURL: b.URL()}, discardLogger(), creds, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, creds
}

// memTokens is the minimal TokenStore used by client tests.
type memTokens struct {
	mu  sync.Mutex
	tok string
}

func (m *memTokens) Token() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tok, nil
}

func (m *memTokens) SetToken(tok string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tok = tok
	return nil
}
