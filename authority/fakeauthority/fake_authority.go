// Package fakeauthority is an in-memory stand-in for the remote authority.
// It serves the same HTTP surface the authority client speaks, issues HS256
// session tokens and keeps role/permission grants in maps.
package fakeauthority

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/jrsteele09/go-tab-session/access"
	"github.com/jrsteele09/go-tab-session/authority"
	"github.com/jrsteele09/go-tab-session/location"
)

const (
	msgInvalidCredentials = "Invalid credentials."
	msgUnauthenticated    = "Unauthenticated."
	msgForbidden          = "This action is unauthorized."
)

type account struct {
	user         authority.User
	passwordHash []byte
	guard        string
}

// LoginAttempt is what the fake saw on POST /login, minus the password.
type LoginAttempt struct {
	Email    string
	UserType string
	Location *location.Info
	Success  bool
}

type FakeAuthority struct {
	secret   []byte
	tokenTTL time.Duration
	cost     int
	nowTime  func() time.Time

	lock     sync.RWMutex
	accounts map[string]*account // by email
	nextID   int
	active   map[string]string // jti -> email
	grants   map[access.Subject]access.Set
	attempts []LoginAttempt

	mux *http.ServeMux
}

// Option configures a FakeAuthority.
type Option func(*FakeAuthority)

// WithTokenTTL sets the lifetime of issued tokens.
func WithTokenTTL(d time.Duration) Option {
	return func(f *FakeAuthority) { f.tokenTTL = d }
}

// WithNowTime sets the clock used for issuing and checking tokens.
func WithNowTime(nowFunc func() time.Time) Option {
	return func(f *FakeAuthority) { f.nowTime = nowFunc }
}

// WithBcryptCost sets the password hashing cost.
func WithBcryptCost(cost int) Option {
	return func(f *FakeAuthority) { f.cost = cost }
}

func NewFakeAuthority(opts ...Option) *FakeAuthority {
	secret := make([]byte, 32)
	_, _ = rand.Read(secret)

	f := &FakeAuthority{
		secret:   secret,
		tokenTTL: time.Hour,
		cost:     bcrypt.MinCost,
		nowTime:  time.Now,
		accounts: make(map[string]*account),
		active:   make(map[string]string),
		grants:   make(map[access.Subject]access.Set),
	}
	for _, opt := range opts {
		opt(f)
	}

	f.mux = http.NewServeMux()
	f.mux.HandleFunc("POST /login", f.handleLogin)
	f.mux.HandleFunc("POST /logout", f.handleLogout)
	f.mux.HandleFunc("GET /me", f.handleMe)
	f.mux.HandleFunc("GET /roles/{id}/permissions", f.handleGranted(access.SubjectRole))
	f.mux.HandleFunc("POST /roles/{id}/permissions", f.handleAttach(access.SubjectRole))
	f.mux.HandleFunc("DELETE /roles/{id}/permissions", f.handleDetach(access.SubjectRole))
	f.mux.HandleFunc("GET /users/{id}/roles", f.handleGranted(access.SubjectUser))
	f.mux.HandleFunc("POST /users/{id}/roles", f.handleAttach(access.SubjectUser))
	f.mux.HandleFunc("DELETE /users/{id}/roles", f.handleDetach(access.SubjectUser))
	return f
}

func (f *FakeAuthority) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mux.ServeHTTP(w, r)
}

// AddUser registers an account. userType "admin" gets the admin guard,
// anything else the customer guard.
func (f *FakeAuthority) AddUser(email, password, userType string) (authority.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), f.cost)
	if err != nil {
		return authority.User{}, fmt.Errorf("hash password: %w", err)
	}

	f.lock.Lock()
	defer f.lock.Unlock()

	f.nextID++
	guard := authority.GuardCustomer
	if userType == authority.GuardAdmin {
		guard = authority.GuardAdmin
	}
	u := authority.User{
		ID:       authority.ID(strconv.Itoa(f.nextID)),
		Email:    email,
		Name:     strings.Split(email, "@")[0],
		UserType: userType,
	}
	f.accounts[strings.ToLower(email)] = &account{user: u, passwordHash: hash, guard: guard}
	return u, nil
}

// Grant seeds the items granted to subject.
func (f *FakeAuthority) Grant(subject access.Subject, items ...string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.grants[subject] = access.NewSet(items...)
}

// Granted returns the items granted to subject.
func (f *FakeAuthority) Granted(subject access.Subject) access.Set {
	f.lock.RLock()
	defer f.lock.RUnlock()
	return f.grants[subject].Clone()
}

// Revoke invalidates every token issued to email, as an administrator would.
func (f *FakeAuthority) Revoke(email string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	for jti, owner := range f.active {
		if strings.EqualFold(owner, email) {
			delete(f.active, jti)
		}
	}
}

// ActiveTokens returns the number of unrevoked tokens.
func (f *FakeAuthority) ActiveTokens() int {
	f.lock.RLock()
	defer f.lock.RUnlock()
	return len(f.active)
}

// LoginAttempts returns the login requests seen so far.
func (f *FakeAuthority) LoginAttempts() []LoginAttempt {
	f.lock.RLock()
	defer f.lock.RUnlock()
	return append([]LoginAttempt(nil), f.attempts...)
}

func (f *FakeAuthority) issueToken(acc *account) (string, error) {
	now := f.nowTime()
	jti := uuid.NewString()
	claims := jwtlib.MapClaims{
		"sub":   string(acc.user.ID),
		"email": acc.user.Email,
		"guard": acc.guard,
		"iat":   now.Unix(),
		"exp":   now.Add(f.tokenTTL).Unix(),
		"jti":   jti,
	}
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(f.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	f.active[jti] = acc.user.Email
	return signed, nil
}

// authenticate resolves the bearer token of r to an account.
func (f *FakeAuthority) authenticate(r *http.Request) (*account, string, bool) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || raw == "" {
		return nil, "", false
	}
	tok, err := jwtlib.Parse(raw, func(*jwtlib.Token) (any, error) { return f.secret, nil },
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithTimeFunc(f.nowTime),
	)
	if err != nil || !tok.Valid {
		return nil, "", false
	}
	claims, ok := tok.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, "", false
	}
	jti, _ := claims["jti"].(string)

	f.lock.RLock()
	defer f.lock.RUnlock()
	email, ok := f.active[jti]
	if !ok {
		return nil, "", false
	}
	acc, ok := f.accounts[strings.ToLower(email)]
	return acc, jti, ok
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}
