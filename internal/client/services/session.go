// Package services holds the client-side session manager: the only writer
// of the current user and of the stored bearer token.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/zyplyctl/internal/client/credentials"
	"github.com/dmitrijs2005/zyplyctl/internal/client/gateway"
	"github.com/dmitrijs2005/zyplyctl/internal/client/models"
	"github.com/dmitrijs2005/zyplyctl/internal/logging"
)

// DefaultRestoreTimeout bounds Restore when no timeout is configured.
const DefaultRestoreTimeout = 10 * time.Second

// State is the coarse position of the session state machine.
type State string

const (
	StateRestoring       State = "restoring"
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticated   State = "authenticated"
)

// Session is an immutable snapshot of the session state. User is shared
// between snapshots and must not be modified.
type Session struct {
	User    *models.User
	Loading bool
	// Degraded is set after a callback token was stored but the profile
	// fetch failed. It is cleared by the next state change.
	Degraded bool
	// Epoch increases on every login, logout and token ingestion.
	Epoch uint64
}

func (s Session) Authenticated() bool {
	return s.User != nil
}

func (s Session) State() State {
	switch {
	case s.Loading:
		return StateRestoring
	case s.User != nil:
		return StateAuthenticated
	default:
		return StateUnauthenticated
	}
}

// Authenticator is the subset of the API facade the session needs.
type Authenticator interface {
	Signup(ctx context.Context, name, email, password string) (*models.AuthPayload, error)
	Login(ctx context.Context, email, password string) (*models.AuthPayload, error)
	Me(ctx context.Context) (*models.User, error)
}

// SessionManager owns the current user and keeps it consistent with the
// credential store.
//
// State changes are committed under one mutex together with the matching
// store write. Network calls run outside the lock; each operation captures
// the epoch before calling out and drops its result if the epoch moved in
// the meantime, so a logout always wins over an in-flight login.
type SessionManager struct {
	auth           Authenticator
	store          credentials.Store
	logger         logging.Logger
	restoreTimeout time.Duration

	mu             sync.Mutex
	session        Session
	restoreStarted bool
	subs           map[int]chan Session
	nextSub        int
}

// NewSessionManager returns a manager in the Restoring state. Call Restore
// once at startup.
func NewSessionManager(auth Authenticator, store credentials.Store, logger logging.Logger, restoreTimeout time.Duration) *SessionManager {
	if logger == nil {
		logger = logging.Nop()
	}
	if restoreTimeout <= 0 {
		restoreTimeout = DefaultRestoreTimeout
	}
	return &SessionManager{
		auth:           auth,
		store:          store,
		logger:         logger,
		restoreTimeout: restoreTimeout,
		session:        Session{Loading: true},
		subs:           make(map[int]chan Session),
	}
}

func (m *SessionManager) Snapshot() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// Subscribe returns a channel that receives the current snapshot at once
// and then every later one. A slow reader only sees the latest snapshot.
// cancel closes the channel.
func (m *SessionManager) Subscribe() (<-chan Session, func()) {
	ch := make(chan Session, 1)

	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	ch <- m.session
	m.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			close(ch)
			m.mu.Unlock()
		})
	}
	return ch, cancel
}

// Restore resolves the stored token into a user. Only the first call does
// any work; later calls return the current snapshot. It never fails: every
// problem ends in the Unauthenticated state, and the whole operation is
// bounded by the restore timeout.
func (m *SessionManager) Restore(ctx context.Context) Session {
	m.mu.Lock()
	if m.restoreStarted {
		s := m.session
		m.mu.Unlock()
		return s
	}
	m.restoreStarted = true
	epoch := m.session.Epoch
	m.mu.Unlock()

	rctx, cancel := context.WithTimeout(ctx, m.restoreTimeout)
	defer cancel()

	user, dropToken := m.restoreUser(rctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.session.Loading = false
	if m.session.Epoch == epoch {
		if dropToken {
			m.clearTokenLocked(ctx)
		}
		m.session.User = user
	}
	m.notifyLocked()

	if user != nil && m.session.Epoch == epoch {
		m.logger.Info(ctx, "session restored", "user_id", user.ID)
	}
	return m.session
}

// restoreUser reports the stored token's user, and whether the token should
// be discarded.
func (m *SessionManager) restoreUser(ctx context.Context) (*models.User, bool) {
	_, ok, err := m.store.Read(ctx)
	if errors.Is(err, credentials.ErrUnreadableToken) {
		m.logger.Warn(ctx, "stored token cannot be read, discarding it")
		return nil, true
	}
	if err != nil {
		m.logger.Error(ctx, "failed to read stored token", "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	user, err := m.auth.Me(ctx)
	if err != nil {
		if gateway.IsUnauthorized(err) {
			m.logger.Info(ctx, "stored token rejected", "error", err)
			return nil, true
		}
		// Transient failures keep the token for the next start.
		m.logger.Warn(ctx, "session restore failed", "error", err)
		return nil, false
	}
	return user, false
}

// Login authenticates with email and password. On failure the session and
// the store are left untouched and the error is returned for display.
func (m *SessionManager) Login(ctx context.Context, email, password string) error {
	epoch := m.epoch()
	res, err := m.auth.Login(ctx, email, password)
	if err != nil {
		return err
	}
	return m.establish(ctx, epoch, res)
}

// Signup creates an account and signs in with it; same contract as Login.
func (m *SessionManager) Signup(ctx context.Context, name, email, password string) error {
	epoch := m.epoch()
	res, err := m.auth.Signup(ctx, name, email, password)
	if err != nil {
		return err
	}
	return m.establish(ctx, epoch, res)
}

func (m *SessionManager) establish(ctx context.Context, epoch uint64, res *models.AuthPayload) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session.Epoch != epoch {
		m.logger.Info(ctx, "discarding superseded login", "user_id", res.User.ID)
		return ErrSessionSuperseded
	}
	if err := m.store.Save(ctx, res.Token); err != nil {
		return fmt.Errorf("failed to persist token: %w", err)
	}

	m.session.User = res.User
	m.session.Degraded = false
	m.session.Epoch++
	m.notifyLocked()

	m.logger.Info(ctx, "signed in", "user_id", res.User.ID)
	return nil
}

// IngestExternalToken completes a redirect-based login. The token is stored
// before the profile is fetched; if the fetch fails the token stays and a
// *DegradedError is returned.
func (m *SessionManager) IngestExternalToken(ctx context.Context, token string) error {
	if token == "" {
		return ErrNoCallbackToken
	}

	m.mu.Lock()
	if err := m.store.Save(ctx, token); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("failed to persist token: %w", err)
	}
	m.session.User = nil
	m.session.Degraded = false
	m.session.Epoch++
	epoch := m.session.Epoch
	m.notifyLocked()
	m.mu.Unlock()

	user, err := m.auth.Me(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session.Epoch != epoch {
		return ErrSessionSuperseded
	}
	if err != nil {
		m.session.Degraded = true
		m.notifyLocked()
		m.logger.Warn(ctx, "callback token stored, profile load failed", "error", err)
		return &DegradedError{Err: err}
	}

	m.session.User = user
	m.notifyLocked()
	m.logger.Info(ctx, "signed in via callback", "user_id", user.ID)
	return nil
}

// Logout clears the token and the user. It cannot fail; a store error is
// logged and the in-memory session is cleared anyway.
func (m *SessionManager) Logout(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.clearTokenLocked(ctx)
	m.session.User = nil
	m.session.Degraded = false
	m.session.Epoch++
	m.notifyLocked()

	m.logger.Info(ctx, "signed out")
}

// RefreshUser re-fetches the current user. Any failure signs the session
// out and clears the token.
func (m *SessionManager) RefreshUser(ctx context.Context) error {
	m.mu.Lock()
	if !m.restoreStarted || m.session.Loading {
		m.mu.Unlock()
		return ErrNotRestored
	}
	epoch := m.session.Epoch
	m.mu.Unlock()

	user, err := m.auth.Me(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session.Epoch != epoch {
		return ErrSessionSuperseded
	}
	if err != nil {
		m.clearTokenLocked(ctx)
		m.session.User = nil
		m.session.Degraded = false
		m.session.Epoch++
		m.notifyLocked()
		return err
	}

	m.session.User = user
	m.session.Degraded = false
	m.notifyLocked()
	return nil
}

// Guard runs an authenticated call on behalf of the current session. If
// the backend rejects the credential (see gateway.IsUnauthorized) the
// token is cleared and the session signed out, unless another state change
// happened while call was running. call's error is returned unchanged.
func (m *SessionManager) Guard(ctx context.Context, call func(ctx context.Context) error) error {
	epoch := m.epoch()
	err := call(ctx)
	if err == nil || !gateway.IsUnauthorized(err) {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session.Epoch != epoch {
		return err
	}
	m.clearTokenLocked(ctx)
	m.session.User = nil
	m.session.Degraded = false
	m.session.Epoch++
	m.notifyLocked()

	m.logger.Info(ctx, "credential rejected, signed out", "error", err)
	return err
}

func (m *SessionManager) epoch() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.Epoch
}

func (m *SessionManager) clearTokenLocked(ctx context.Context) {
	if err := m.store.Clear(ctx); err != nil {
		m.logger.Error(ctx, "failed to clear stored token", "error", err)
	}
}

// notifyLocked replaces whatever is pending in each subscriber's buffer
// with the current snapshot. Callers hold m.mu.
func (m *SessionManager) notifyLocked() {
	for _, ch := range m.subs {
		select {
		case <-ch:
		default:
		}
		ch <- m.session
	}
}
