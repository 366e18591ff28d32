package authfake

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/jrsteele09/go-tab-session/authority"
	"github.com/jrsteele09/go-tab-session/sessions"
)

var _ sessions.Authenticator = (*FakeAuthenticator)(nil)

type fakeUser struct {
	password string
	guard    string
	user     authority.User
}

// FakeAuthenticator answers logins from an in-memory user table and hands out
// opaque tokens.
type FakeAuthenticator struct {
	lock     sync.RWMutex
	users    map[string]fakeUser
	tokens   map[string]string // token -> email
	requests []authority.LoginRequest
	logouts  []string

	// BeforeLogin, when set, runs before each login is answered.
	BeforeLogin func(ctx context.Context)
	// MeErr, when set, is returned by Me instead of looking up the token.
	MeErr error
	// LogoutErr, when set, is returned by Logout.
	LogoutErr error
}

func NewFakeAuthenticator() *FakeAuthenticator {
	return &FakeAuthenticator{
		users:  make(map[string]fakeUser),
		tokens: make(map[string]string),
	}
}

func (fa *FakeAuthenticator) AddUser(email, password, guard string) {
	fa.lock.Lock()
	defer fa.lock.Unlock()
	fa.users[strings.ToLower(email)] = fakeUser{
		password: password,
		guard:    guard,
		user:     authority.User{ID: authority.ID(uuid.NewString()), Email: email, UserType: guard},
	}
}

func (fa *FakeAuthenticator) Login(ctx context.Context, req authority.LoginRequest) (*authority.LoginResponse, error) {
	if fa.BeforeLogin != nil {
		fa.BeforeLogin(ctx)
	}

	fa.lock.Lock()
	defer fa.lock.Unlock()

	fa.requests = append(fa.requests, req)
	u, ok := fa.users[strings.ToLower(req.Email)]
	if !ok || u.password != req.Password {
		return nil, &authority.RejectedError{StatusCode: http.StatusUnauthorized, Message: "Invalid credentials."}
	}
	token := "tok-" + uuid.NewString()
	fa.tokens[token] = req.Email
	return &authority.LoginResponse{Token: token, Guard: u.guard, User: u.user}, nil
}

func (fa *FakeAuthenticator) Logout(_ context.Context, token string) error {
	fa.lock.Lock()
	defer fa.lock.Unlock()

	fa.logouts = append(fa.logouts, token)
	if fa.LogoutErr != nil {
		return fa.LogoutErr
	}
	delete(fa.tokens, token)
	return nil
}

func (fa *FakeAuthenticator) Me(_ context.Context, token string) (*authority.User, error) {
	fa.lock.RLock()
	defer fa.lock.RUnlock()

	if fa.MeErr != nil {
		return nil, fa.MeErr
	}
	email, ok := fa.tokens[token]
	if !ok {
		return nil, &authority.RejectedError{StatusCode: http.StatusUnauthorized, Message: "Unauthenticated."}
	}
	u := fa.users[strings.ToLower(email)].user
	return &u, nil
}

// Revoke invalidates token as an administrator would.
func (fa *FakeAuthenticator) Revoke(token string) {
	fa.lock.Lock()
	defer fa.lock.Unlock()
	delete(fa.tokens, token)
}

// LoginRequests returns every login request received.
func (fa *FakeAuthenticator) LoginRequests() []authority.LoginRequest {
	fa.lock.RLock()
	defer fa.lock.RUnlock()
	return append([]authority.LoginRequest(nil), fa.requests...)
}

// Logouts returns the tokens passed to Logout.
func (fa *FakeAuthenticator) Logouts() []string {
	fa.lock.RLock()
	defer fa.lock.RUnlock()
	return append([]string(nil), fa.logouts...)
}
