package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/ang60/strathconnect-go/cmd/internal/api"
	"github.com/ang60/strathconnect-go/cmd/internal/auth/cred"
)

// Phase is the session store's published lifecycle phase.
type Phase string

const (
	// PhaseLoading means initialization is still in flight. Consumers (route
	// guards) must treat it as distinct from both other phases and must not
	// redirect while it lasts.
	PhaseLoading Phase = "loading"
	// PhaseAuthenticated means a verified session is held.
	PhaseAuthenticated Phase = "authenticated"
	// PhaseUnauthenticated means no session is held.
	PhaseUnauthenticated Phase = "unauthenticated"
)

// State is one published snapshot of the session store.
//
// User is non-nil when Phase is Authenticated. During Loading it may carry
// the cached identity read from disk, published optimistically so the UI
// can render while verification is in flight.
type State struct {
	Phase Phase
	User  *api.Identity
}

// Backend is the API surface the store drives. *api.Client satisfies it.
type Backend interface {
	Login(ctx context.Context, email, password string) (api.Identity, error)
	Register(ctx context.Context, p api.RegisterParams) (api.Identity, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (api.Identity, error)
}

// Store owns the session lifecycle. Consumers hold a reference to the
// store and observe it; they never mutate session state directly.
type Store struct {
	log     *slog.Logger
	backend Backend
	creds   cred.Store

	mu      sync.Mutex
	state   State
	subs    map[int]chan State
	nextSub int
	closed  bool
}

// New constructs a Store in the Loading phase. Call Init to resolve it.
func New(log *slog.Logger, backend Backend, creds cred.Store) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		log:     log,
		backend: backend,
		creds:   creds,
		state:   State{Phase: PhaseLoading},
		subs:    make(map[int]chan State),
	}
}

// State returns the current snapshot.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers an observer. The channel immediately carries the
// current snapshot, then every subsequent state change, conflated to the
// latest value for slow receivers. The cancel func unregisters it.
func (s *Store) Subscribe() (<-chan State, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan State, 1)
	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.state

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

// Init resolves the Loading phase. If a persisted session exists it is
// published optimistically, then verified against the backend:
//
//   - verification succeeds: Authenticated with the refreshed identity
//   - backend rejects us: session cleared, Unauthenticated
//   - backend unreachable: cached session kept, the transport error returned
//
// Init with no (or inconsistent) persisted state publishes Unauthenticated.
func (s *Store) Init(ctx context.Context) error {
	cachedJSON, idErr := s.creds.Identity()
	_, tokErr := s.creds.Token()

	if idErr != nil || tokErr != nil {
		// Half a session is no session.
		if idErr == nil || tokErr == nil {
			_ = s.creds.Clear()
		}
		s.publish(State{Phase: PhaseUnauthenticated})
		return nil
	}

	var cached api.Identity
	if err := json.Unmarshal([]byte(cachedJSON), &cached); err != nil {
		s.log.Warn("session.init.corrupt_identity", "err", err)
		_ = s.creds.Clear()
		s.publish(State{Phase: PhaseUnauthenticated})
		return nil
	}

	// Optimistic publish: the cached identity renders while we verify.
	s.publish(State{Phase: PhaseLoading, User: &cached})

	fresh, err := s.backend.Me(ctx)
	switch {
	case err == nil:
		s.persistIdentity(fresh)
		s.publish(State{Phase: PhaseAuthenticated, User: &fresh})
		return nil
	case api.IsUnavailable(err):
		// Network loss is not de-authentication; keep the cached session.
		s.log.Warn("session.init.backend_unavailable", "err", err)
		s.publish(State{Phase: PhaseAuthenticated, User: &cached})
		return err
	default:
		s.log.Info("session.init.rejected", "err", err)
		_ = s.creds.Clear()
		s.publish(State{Phase: PhaseUnauthenticated})
		return nil
	}
}

// Login authenticates and publishes the new session. On failure any
// existing session is left untouched and the error is returned for display.
func (s *Store) Login(ctx context.Context, email, password string) (api.Identity, error) {
	email = NormalizeEmail(email)
	if err := validateLogin(email, password); err != nil {
		return api.Identity{}, err
	}

	id, err := s.backend.Login(ctx, email, password)
	if err != nil {
		return api.Identity{}, err
	}

	s.persistIdentity(id)
	s.publish(State{Phase: PhaseAuthenticated, User: &id})
	return id, nil
}

// Register creates an account. When the backend signs the account in
// immediately (a token was issued), the session is published like a login;
// otherwise the published state is left unchanged.
func (s *Store) Register(ctx context.Context, p api.RegisterParams) (api.Identity, error) {
	p.Email = NormalizeEmail(p.Email)
	if err := validateRegister(p); err != nil {
		return api.Identity{}, err
	}

	id, err := s.backend.Register(ctx, p)
	if err != nil {
		return api.Identity{}, err
	}

	// Identity is persisted only alongside a token.
	if tok, terr := s.creds.Token(); terr == nil && tok != "" {
		s.persistIdentity(id)
		s.publish(State{Phase: PhaseAuthenticated, User: &id})
	}
	return id, nil
}

// Logout ends the session. The server call is best-effort: local state is
// cleared and Unauthenticated published no matter what, so a network
// partition can never strand the user in a session they believe is closed.
func (s *Store) Logout(ctx context.Context) {
	if err := s.backend.Logout(ctx); err != nil {
		s.log.Warn("session.logout.server_call_failed", "err", err)
	}
	if err := s.creds.Clear(); err != nil {
		s.log.Error("session.logout.clear_failed", "err", err)
	}
	s.publish(State{Phase: PhaseUnauthenticated})
}

// RefreshUser re-fetches the current identity. A rejection from the
// backend clears the session; a transport fault keeps it and returns the
// error.
func (s *Store) RefreshUser(ctx context.Context) (api.Identity, error) {
	fresh, err := s.backend.Me(ctx)
	if err == nil {
		s.persistIdentity(fresh)
		s.publish(State{Phase: PhaseAuthenticated, User: &fresh})
		return fresh, nil
	}

	if api.IsUnavailable(err) {
		return api.Identity{}, err
	}

	_ = s.creds.Clear()
	s.publish(State{Phase: PhaseUnauthenticated})
	return api.Identity{}, err
}

// Teardown closes all subscriptions. The store must not be used after.
func (s *Store) Teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

func (s *Store) persistIdentity(id api.Identity) {
	b, err := json.Marshal(id)
	if err != nil {
		s.log.Error("session.persist.encode_failed", "err", err)
		return
	}
	if err := s.creds.SetIdentity(string(b)); err != nil {
		s.log.Error("session.persist.write_failed", "err", err)
	}
}

func (s *Store) publish(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.state = st
	for _, ch := range s.subs {
		// Conflate to the latest state: drop the stale buffered value.
		select {
		case <-ch:
		default:
		}
		ch <- st
	}
}
