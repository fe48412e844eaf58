// Package app wires the StrathConnect client runtime: config, logging,
// credential storage, the API client, the session store, and the CLI
// command dispatch.
package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ang60/strathconnect-go/cmd/internal/api"
	"github.com/ang60/strathconnect-go/cmd/internal/auth/cred"
	"github.com/ang60/strathconnect-go/cmd/internal/auth/session"
	"github.com/ang60/strathconnect-go/cmd/security/devkey"
)

const userAgent = "strathconnect-cli"

// App is the client runtime: it owns the API client, the session store,
// and the command surface on top of them.
type App struct {
	cfg Config
	log Logger

	client   *api.Client
	sessions *session.Store
	registry *prometheus.Registry

	out io.Writer
	in  io.Reader
}

// New constructs a fully wired App instance from config and logger.
func New(cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	creds, err := newCredStore(cfg)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	metrics := api.NewMetrics(registry)

	client, err := api.New(api.Config{
		BaseURL:   cfg.BaseURL,
		Timeout:   cfg.HTTPTimeout,
		UserAgent: userAgent,
	}, log, creds, metrics)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:      cfg,
		log:      log,
		client:   client,
		sessions: session.New(log, client, creds),
		registry: registry,
		out:      os.Stdout,
		in:       os.Stdin,
	}, nil
}

// Run resolves the session state and dispatches the command. It blocks
// until the command finishes or ctx is canceled.
func (a *App) Run(ctx context.Context, args []string) error {
	defer a.sessions.Teardown()

	if len(args) == 0 || args[0] == "help" {
		a.usage()
		return nil
	}

	if a.cfg.MetricsAddr != "" {
		stop := a.startDiagnostics()
		defer stop()
	}

	// Resolve Loading before any command runs. A degraded init (backend
	// unreachable, cached session kept) is logged, not fatal.
	if err := a.sessions.Init(ctx); err != nil {
		a.log.Warn("session.init.degraded", "err", err)
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "login":
		return a.cmdLogin(ctx, rest)
	case "register":
		return a.cmdRegister(ctx, rest)
	case "logout":
		return a.cmdLogout(ctx)
	case "whoami":
		return a.cmdWhoami()
	case "refresh":
		return a.cmdRefresh(ctx)
	case "programs":
		return a.cmdPrograms(ctx, rest)
	case "goals":
		return a.cmdGoals(ctx, rest)
	case "sessions":
		return a.cmdSessions(ctx, rest)
	case "conversations":
		return a.cmdConversations(ctx, rest)
	case "pending":
		return a.cmdPending(ctx)
	case "set-role":
		return a.cmdSetRole(ctx, rest)
	default:
		a.usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// requireAuth is the CLI's route guard: commands that need a session check
// the published state, never the credential file directly.
func (a *App) requireAuth() error {
	if a.sessions.State().Phase != session.PhaseAuthenticated {
		return fmt.Errorf("not logged in (run %q first)", "strathconnect login")
	}
	return nil
}

func newCredStore(cfg Config) (cred.Store, error) {
	path, err := cfg.credentialPath()
	if err != nil {
		return nil, err
	}

	if !cfg.SealCredentials {
		return cred.NewFileStore(path)
	}

	fp, err := devkey.Fingerprint()
	if err != nil {
		return nil, fmt.Errorf("device fingerprint: %w", err)
	}
	sealer, err := devkey.NewSealer(fp)
	if err != nil {
		return nil, err
	}
	return cred.NewSealedFileStore(path, sealer)
}

func (a *App) usage() {
	fmt.Fprint(a.out, `strathconnect - StrathConnect mentorship platform client

Commands:
  login          -email -password        sign in
  register       -name -email -password  create an account
  logout                                 sign out (always clears local state)
  whoami                                 show the current session
  refresh                                re-fetch the current identity
  programs       [list|create]           mentorship programs
  goals          [list|create|status]    mentee goals
  sessions       [list|schedule]         mentorship sessions
  conversations  [list|messages|send]    message threads
  pending                                users awaiting a role (admin)
  set-role       -user -role             assign a role (admin)

Environment:
  STRATHCONNECT_API_URL, STRATHCONNECT_HTTP_TIMEOUT,
  STRATHCONNECT_LOG_LEVEL, STRATHCONNECT_LOG_FORMAT,
  STRATHCONNECT_CREDENTIALS_FILE, STRATHCONNECT_SEAL_CREDENTIALS,
  STRATHCONNECT_DEVICE_ID, STRATHCONNECT_METRICS_ADDR
`)
}
