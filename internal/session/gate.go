// Package session owns the authenticated session and is the only place
// that starts or stops the real-time bridge.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/example/grocery-sync/internal/auth"
	"github.com/example/grocery-sync/internal/infrastructure/store"
	"github.com/example/grocery-sync/internal/observer"
)

// StorageKey is where the session lives in local storage.
const StorageKey = "session"

var (
	ErrAuthentication       = errors.New("authentication failed")
	ErrMissingCredentials   = auth.ErrMissingCredentials
	ErrAlreadyAuthenticated = errors.New("already signed in")
	ErrLoginSuperseded      = errors.New("login superseded by logout")
)

type Authenticator interface {
	Login(ctx context.Context, creds auth.Credentials) (auth.Session, error)
	Logout(ctx context.Context, token string) error
}

// Bridge is the part of the real-time bridge the gate drives. Connect must
// not block on the network.
type Bridge interface {
	Connect(token string) error
	Disconnect()
}

type Option func(*Gate)

// WithTokenListener registers fn to receive the token right before the
// bridge connects, and an empty token once the session is cleared.
func WithTokenListener(fn func(token string)) Option {
	return func(g *Gate) { g.onToken = fn }
}

func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

type Gate struct {
	authn   Authenticator
	bridge  Bridge
	kv      store.KV
	logger  *zap.Logger
	onToken func(string)
	now     func() time.Time

	mu            sync.Mutex
	gen           uint64
	session       *auth.Session
	authenticated bool
	loading       bool
	errMsg        string

	observers observer.Registry
}

func NewGate(authn Authenticator, bridge Bridge, kv store.KV, logger *zap.Logger, opts ...Option) *Gate {
	g := &Gate{
		authn:   authn,
		bridge:  bridge,
		kv:      kv,
		logger:  logger.Named("session"),
		onToken: func(string) {},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Login validates credentials locally, authenticates, persists the session
// and only then connects the bridge. A Logout issued while the request is
// in flight wins: the late result is discarded and the bridge stays down.
func (g *Gate) Login(ctx context.Context, creds auth.Credentials) (auth.Session, error) {
	if err := creds.Validate(); err != nil {
		g.fail(err.Error())
		return auth.Session{}, err
	}

	g.mu.Lock()
	if g.authenticated {
		g.mu.Unlock()
		return auth.Session{}, ErrAlreadyAuthenticated
	}
	g.gen++
	gen := g.gen
	g.loading = true
	g.errMsg = ""
	g.mu.Unlock()
	g.observers.Notify()

	sess, err := g.authn.Login(ctx, creds)

	g.mu.Lock()
	if gen != g.gen {
		g.mu.Unlock()
		if err == nil {
			g.revoke(ctx, sess.Token)
		}
		g.logger.Info("discarding login result after logout")
		return auth.Session{}, ErrLoginSuperseded
	}
	g.loading = false
	if err != nil {
		g.errMsg = err.Error()
		g.mu.Unlock()
		g.observers.Notify()
		g.logger.Warn("login failed", zap.String("email", creds.Email), zap.Error(err))
		return auth.Session{}, fmt.Errorf("%w: %w", ErrAuthentication, err)
	}
	if sess.Token == "" {
		g.errMsg = "no session token returned"
		g.mu.Unlock()
		g.observers.Notify()
		return auth.Session{}, fmt.Errorf("%w: empty token", ErrAuthentication)
	}

	g.persist(sess)
	g.establishLocked(sess)
	g.mu.Unlock()
	g.observers.Notify()

	g.logger.Info("signed in", zap.String("user_id", sess.User.ID))
	return sess, nil
}

// Restore rehydrates a persisted, unexpired session and connects the
// bridge. It reports whether a session was restored.
func (g *Gate) Restore(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	g.mu.Lock()
	gen := g.gen
	g.mu.Unlock()

	raw, ok, err := g.kv.Get(StorageKey)
	if err != nil {
		return false, fmt.Errorf("loading session: %w", err)
	}
	if !ok {
		return false, nil
	}

	var sess auth.Session
	if err := json.Unmarshal(raw, &sess); err != nil || sess.Token == "" {
		g.logger.Warn("dropping unreadable stored session", zap.Error(err))
		g.forget()
		return false, nil
	}
	if sess.Expired(g.now()) {
		g.logger.Info("stored session expired", zap.Time("expires_at", sess.ExpiresAt))
		g.forget()
		return false, nil
	}

	g.mu.Lock()
	if gen != g.gen {
		g.mu.Unlock()
		g.logger.Info("discarding restored session after logout")
		return false, ErrLoginSuperseded
	}
	if g.authenticated {
		g.mu.Unlock()
		return false, ErrAlreadyAuthenticated
	}
	g.gen++
	g.establishLocked(sess)
	g.mu.Unlock()
	g.observers.Notify()
	return true, nil
}

// Logout stops the bridge before anything else, then clears the local
// session. The remote logout is best effort.
func (g *Gate) Logout(ctx context.Context) {
	g.mu.Lock()
	g.gen++
	g.bridge.Disconnect()

	var token string
	if g.session != nil {
		token = g.session.Token
	}
	g.forget()
	g.session = nil
	g.authenticated = false
	g.loading = false
	g.onToken("")
	g.mu.Unlock()
	g.observers.Notify()

	if token != "" {
		g.revoke(ctx, token)
	}
	g.logger.Info("signed out")
}

// establishLocked flips the gate to authenticated and connects. Callers
// hold g.mu so a concurrent Logout cannot run between the two steps.
func (g *Gate) establishLocked(sess auth.Session) {
	g.session = &sess
	g.authenticated = true
	g.errMsg = ""
	g.onToken(sess.Token)
	if err := g.bridge.Connect(sess.Token); err != nil {
		g.logger.Error("starting real-time bridge", zap.Error(err))
	}
}

func (g *Gate) persist(sess auth.Session) {
	raw, err := json.Marshal(sess)
	if err == nil {
		err = g.kv.Set(StorageKey, raw)
	}
	if err != nil {
		g.logger.Error("persisting session", zap.Error(err))
	}
}

func (g *Gate) forget() {
	if err := g.kv.Delete(StorageKey); err != nil {
		g.logger.Error("deleting stored session", zap.Error(err))
	}
}

func (g *Gate) revoke(ctx context.Context, token string) {
	if err := g.authn.Logout(ctx, token); err != nil {
		g.logger.Warn("remote logout failed", zap.Error(err))
	}
}

func (g *Gate) fail(msg string) {
	g.mu.Lock()
	g.errMsg = msg
	g.mu.Unlock()
	g.observers.Notify()
}

func (g *Gate) Authenticated() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.authenticated
}

func (g *Gate) Loading() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.loading
}

func (g *Gate) Session() (auth.Session, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.session == nil {
		return auth.Session{}, false
	}
	return *g.session, true
}

func (g *Gate) User() (auth.User, bool) {
	s, ok := g.Session()
	return s.User, ok
}

// Error is the last user-visible authentication message.
func (g *Gate) Error() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.errMsg
}

func (g *Gate) ClearError() {
	g.fail("")
}

func (g *Gate) Subscribe(fn func()) *observer.Subscription {
	return g.observers.Subscribe(fn)
}
