// Package sessions keeps one login per tab on top of storage that every tab
// of an origin shares.
package sessions

import (
	"context"
	"net/http"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-tab-session/authority"
	"github.com/jrsteele09/go-tab-session/internal/errors"
	"github.com/jrsteele09/go-tab-session/location"
	"github.com/jrsteele09/go-tab-session/lockout"
	"github.com/jrsteele09/go-tab-session/storage"
)

// Authenticator is the remote side of a login.
type Authenticator interface {
	Login(ctx context.Context, req authority.LoginRequest) (*authority.LoginResponse, error)
	Logout(ctx context.Context, token string) error
	Me(ctx context.Context, token string) (*authority.User, error)
}

var _ Authenticator = (*authority.Client)(nil)

// Manager owns the session of a single tab.
type Manager struct {
	store   *storage.Facade
	guard   *lockout.Guard
	auth    Authenticator
	locator location.Resolver
	nowTime func() time.Time

	lock       sync.Mutex
	tabID      string
	record     Record
	generation uint64
	busy       bool
}

// ManagerOption defines a function type to modify the Manager instance.
type ManagerOption func(*Manager)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

// WithLocationResolver attaches location enrichment to login requests.
func WithLocationResolver(r location.Resolver) ManagerOption {
	return func(m *Manager) {
		m.locator = r
	}
}

func NewManager(store *storage.Facade, guard *lockout.Guard, auth Authenticator, options ...ManagerOption) (*Manager, error) {
	if store == nil {
		return nil, errors.New("[NewManager] storage facade is required")
	}
	if guard == nil {
		return nil, errors.New("[NewManager] lockout guard is required")
	}
	if auth == nil {
		return nil, errors.New("[NewManager] authenticator is required")
	}

	m := &Manager{
		store:   store,
		guard:   guard,
		auth:    auth,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// GetOrCreateTabIdentity returns the identity of this tab, minting one on
// first use.
func (m *Manager) GetOrCreateTabIdentity(ctx context.Context) string {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.tabIdentityLocked(ctx)
}

func (m *Manager) tabIdentityLocked(ctx context.Context) string {
	if id, ok := m.store.Get(ctx, storage.TabLocal, TabIdentityKey); ok && id != "" {
		m.tabID = id
		return id
	}
	if m.tabID == "" {
		m.tabID = uuid.NewString()
		log.Debug().Str("tab_id", shortID(m.tabID)).Msg("minted tab identity")
	}
	m.store.Set(ctx, storage.TabLocal, TabIdentityKey, m.tabID)
	return m.tabID
}

// RestoreSession reloads this tab's record from shared storage. Tokens that
// carry an expired exp claim are cleared.
func (m *Manager) RestoreSession(ctx context.Context) Record {
	m.lock.Lock()
	defer m.lock.Unlock()

	tabID := m.tabIdentityLocked(ctx)
	rec := Record{TabID: tabID}

	token, _ := m.store.Get(ctx, storage.OriginShared, TokenKey(tabID))
	if token != "" && tokenExpired(token, m.nowTime()) {
		log.Info().Str("tab_id", shortID(tabID)).Msg("stored token has expired, clearing session")
		m.clearLocked(ctx, tabID)
		token = ""
	}
	if token != "" {
		rec.Token = token
		rec.Guard, _ = m.store.Get(ctx, storage.OriginShared, GuardKey(tabID))
		var user authority.User
		if storage.GetJSON(ctx, m.store, storage.OriginShared, UserKey(tabID), &user) {
			rec.User = &user
		}
		rec.IsAuthenticated = true
	}

	m.record = rec
	return rec
}

// tokenExpired reads exp without verifying the signature. Tokens that are
// not JWTs never expire here; the authority decides.
func tokenExpired(token string, now time.Time) bool {
	claims := jwtlib.MapClaims{}
	if _, _, err := jwtlib.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}

// Login runs the lockout gate, then the authority call, and applies the
// answer only if no logout or identity change happened in between.
func (m *Manager) Login(ctx context.Context, creds Credentials, opts LoginOptions) LoginResult {
	m.lock.Lock()
	if m.busy {
		m.lock.Unlock()
		return LoginResult{Status: StatusBusy, Message: "A login is already in progress."}
	}
	gate := m.guard.CheckGate(ctx)
	if !gate.Allowed {
		m.lock.Unlock()
		log.Info().Dur("retry_after", gate.RetryAfter).Msg("login gated by lockout")
		return LoginResult{Status: StatusGated, Message: gate.Message(), RetryAfter: gate.RetryAfter}
	}
	m.busy = true
	m.generation++
	gen := m.generation
	tabID := m.tabIdentityLocked(ctx)
	m.lock.Unlock()

	defer func() {
		m.lock.Lock()
		m.busy = false
		m.lock.Unlock()
	}()

	req := authority.LoginRequest{
		Email:    creds.Email,
		Password: creds.Password,
		UserType: opts.UserType,
		Location: opts.Location,
	}
	if req.Location == nil && m.locator != nil {
		info := m.locator.Resolve(ctx)
		req.Location = &info
	}

	resp, err := m.auth.Login(ctx, req)

	m.lock.Lock()
	defer m.lock.Unlock()

	if m.generation != gen || m.tabIdentityLocked(ctx) != tabID {
		log.Debug().Str("tab_id", shortID(tabID)).Msg("discarding superseded login response")
		return LoginResult{Status: StatusSuperseded, Message: errors.ErrStale.Error()}
	}

	if err != nil {
		s := m.guard.RecordFailure(ctx)
		log.Info().Err(err).Str("tab_id", shortID(tabID)).Int("attempts", s.Attempts).Msg("login rejected")
		return LoginResult{Status: StatusRejected, Message: authority.Message(err)}
	}

	m.store.Set(ctx, storage.OriginShared, TokenKey(tabID), resp.Token)
	m.store.Set(ctx, storage.OriginShared, GuardKey(tabID), resp.Guard)
	storage.SetJSON(ctx, m.store, storage.OriginShared, UserKey(tabID), resp.User)
	m.guard.RecordSuccess(ctx)

	user := resp.User
	m.record = Record{
		TabID:           tabID,
		Token:           resp.Token,
		Guard:           resp.Guard,
		User:            &user,
		IsAuthenticated: true,
	}
	log.Info().Str("tab_id", shortID(tabID)).Str("guard", resp.Guard).Msg("logged in")
	return LoginResult{Status: StatusSuccess, User: &user}
}

// Logout clears this tab's session and then asks the authority to revoke the
// token. The local clear always happens; a returned error only reports that
// the remote revoke failed.
func (m *Manager) Logout(ctx context.Context) error {
	m.lock.Lock()
	m.generation++
	tabID := m.tabIdentityLocked(ctx)
	token, _ := m.store.Get(ctx, storage.OriginShared, TokenKey(tabID))
	if token == "" {
		token = m.record.Token
	}
	m.clearLocked(ctx, tabID)
	m.lock.Unlock()

	if token == "" {
		return nil
	}
	log.Info().Str("tab_id", shortID(tabID)).Msg("logged out")
	if err := m.auth.Logout(ctx, token); err != nil {
		log.Warn().Err(err).Str("tab_id", shortID(tabID)).Msg("remote logout failed")
		return errors.Wrapf(err, "[sessions.Logout] remote revoke")
	}
	return nil
}

// Revalidate asks the authority whether the stored token is still good.
// A 401 or 403 clears the session; transport failures leave it alone.
func (m *Manager) Revalidate(ctx context.Context) Record {
	rec := m.RestoreSession(ctx)
	if !rec.IsAuthenticated {
		return rec
	}

	m.lock.Lock()
	gen := m.generation
	m.lock.Unlock()

	user, err := m.auth.Me(ctx, rec.Token)

	m.lock.Lock()
	defer m.lock.Unlock()
	if m.generation != gen {
		return m.record
	}

	if err != nil {
		var rejected *authority.RejectedError
		if errors.As(err, &rejected) &&
			(rejected.StatusCode == http.StatusUnauthorized || rejected.StatusCode == http.StatusForbidden) {
			log.Info().Str("tab_id", shortID(rec.TabID)).Int("status", rejected.StatusCode).Msg("authority rejected stored token")
			m.generation++
			m.clearLocked(ctx, rec.TabID)
			return m.record
		}
		log.Warn().Err(err).Str("tab_id", shortID(rec.TabID)).Msg("could not revalidate session, keeping it")
		return m.record
	}

	storage.SetJSON(ctx, m.store, storage.OriginShared, UserKey(rec.TabID), user)
	m.record.User = user
	return m.record
}

// HandleUnauthorized drops this tab's session. It is meant to be wired as
// the authority client's 401 handler.
func (m *Manager) HandleUnauthorized(ctx context.Context) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.generation++
	tabID := m.tabIdentityLocked(ctx)
	if m.record.IsAuthenticated {
		log.Info().Str("tab_id", shortID(tabID)).Msg("session rejected by authority")
	}
	m.clearLocked(ctx, tabID)
}

// State returns the in-memory view of the session.
func (m *Manager) State() Record {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.record
}

// Token returns the current session token, or "" when logged out. It fits
// authority.TokenFunc.
func (m *Manager) Token() string {
	return m.State().Token
}

func (m *Manager) clearLocked(ctx context.Context, tabID string) {
	m.store.Remove(ctx, storage.OriginShared, TokenKey(tabID))
	m.store.Remove(ctx, storage.OriginShared, GuardKey(tabID))
	m.store.Remove(ctx, storage.OriginShared, UserKey(tabID))
	m.record = Record{TabID: tabID}
}
