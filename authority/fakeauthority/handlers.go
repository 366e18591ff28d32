package fakeauthority

import (
	"encoding/json"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/jrsteele09/go-tab-session/access"
	"github.com/jrsteele09/go-tab-session/authority"
)

func (f *FakeAuthority) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req authority.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		writeMessage(w, http.StatusUnprocessableEntity, "The email and password fields are required.")
		return
	}

	f.lock.Lock()
	defer f.lock.Unlock()

	attempt := LoginAttempt{Email: req.Email, UserType: req.UserType, Location: req.Location}
	defer func() { f.attempts = append(f.attempts, attempt) }()

	acc, ok := f.accounts[strings.ToLower(req.Email)]
	if !ok || bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(req.Password)) != nil {
		writeMessage(w, http.StatusUnauthorized, msgInvalidCredentials)
		return
	}
	if req.UserType != "" && req.UserType != acc.user.UserType {
		writeMessage(w, http.StatusUnauthorized, msgInvalidCredentials)
		return
	}

	token, err := f.issueToken(acc)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, err.Error())
		return
	}
	attempt.Success = true
	writeJSON(w, http.StatusOK, authority.LoginResponse{
		Token: token,
		Guard: acc.guard,
		User:  acc.user,
	})
}

func (f *FakeAuthority) handleLogout(w http.ResponseWriter, r *http.Request) {
	_, jti, ok := f.authenticate(r)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, msgUnauthenticated)
		return
	}
	f.lock.Lock()
	delete(f.active, jti)
	f.lock.Unlock()
	writeMessage(w, http.StatusOK, "Logged out.")
}

func (f *FakeAuthority) handleMe(w http.ResponseWriter, r *http.Request) {
	acc, _, ok := f.authenticate(r)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, msgUnauthenticated)
		return
	}
	f.lock.RLock()
	user := acc.user
	user.Roles = f.grants[access.Subject{Kind: access.SubjectUser, ID: string(user.ID)}].Sorted()
	f.lock.RUnlock()
	writeJSON(w, http.StatusOK, user)
}

// authorizeAdmin answers 401/403 itself and reports false when the caller
// may not edit access.
func (f *FakeAuthority) authorizeAdmin(w http.ResponseWriter, r *http.Request) bool {
	acc, _, ok := f.authenticate(r)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, msgUnauthenticated)
		return false
	}
	if acc.guard != authority.GuardAdmin {
		writeMessage(w, http.StatusForbidden, msgForbidden)
		return false
	}
	return true
}

func field(kind access.SubjectKind) string {
	if kind == access.SubjectUser {
		return "roles"
	}
	return "permissions"
}

type editBody struct {
	Permissions []string `json:"permissions"`
	Roles       []string `json:"roles"`
	Sync        bool     `json:"sync"`
}

func (b editBody) items(kind access.SubjectKind) []string {
	if kind == access.SubjectUser {
		return b.Roles
	}
	return b.Permissions
}

func (f *FakeAuthority) handleGranted(kind access.SubjectKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !f.authorizeAdmin(w, r) {
			return
		}
		subject := access.Subject{Kind: kind, ID: r.PathValue("id")}
		f.lock.RLock()
		items := f.grants[subject].Sorted()
		f.lock.RUnlock()
		writeJSON(w, http.StatusOK, map[string][]string{field(kind): items})
	}
}

func (f *FakeAuthority) handleAttach(kind access.SubjectKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !f.authorizeAdmin(w, r) {
			return
		}
		var body editBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeMessage(w, http.StatusUnprocessableEntity, "Malformed body.")
			return
		}
		subject := access.Subject{Kind: kind, ID: r.PathValue("id")}

		f.lock.Lock()
		if body.Sync {
			f.grants[subject] = access.NewSet(body.items(kind)...)
		} else {
			s := f.grants[subject]
			if s == nil {
				s = access.NewSet()
				f.grants[subject] = s
			}
			for _, n := range body.items(kind) {
				s[n] = struct{}{}
			}
		}
		f.lock.Unlock()
		writeMessage(w, http.StatusOK, "Updated.")
	}
}

func (f *FakeAuthority) handleDetach(kind access.SubjectKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !f.authorizeAdmin(w, r) {
			return
		}
		var body editBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeMessage(w, http.StatusUnprocessableEntity, "Malformed body.")
			return
		}
		subject := access.Subject{Kind: kind, ID: r.PathValue("id")}

		f.lock.Lock()
		for _, n := range body.items(kind) {
			delete(f.grants[subject], n)
		}
		f.lock.Unlock()
		writeMessage(w, http.StatusOK, "Updated.")
	}
}
