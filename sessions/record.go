package sessions

import (
	"fmt"
	"time"

	"github.com/jrsteele09/go-tab-session/authority"
	"github.com/jrsteele09/go-tab-session/location"
)

// TabIdentityKey holds the tab identity in tab-local storage.
const TabIdentityKey = "tab_session_id"

// Keys in origin-shared storage, suffixed with the owning tab identity.
const (
	tokenKeyPrefix = "auth_token_"
	guardKeyPrefix = "auth_guard_"
	userKeyPrefix  = "auth_user_"
)

func TokenKey(tabID string) string { return tokenKeyPrefix + tabID }
func GuardKey(tabID string) string { return guardKeyPrefix + tabID }
func UserKey(tabID string) string  { return userKeyPrefix + tabID }

// Record is the session as seen by a single tab.
type Record struct {
	TabID           string
	Token           string
	Guard           string
	User            *authority.User
	IsAuthenticated bool
}

// Credentials are what the user typed into the login form.
type Credentials struct {
	Email    string
	Password string
}

// LoginOptions carries the optional parts of a login request.
type LoginOptions struct {
	// UserType restricts the login to one kind of account, e.g. "admin".
	UserType string
	// Location overrides the configured resolver.
	Location *location.Info
}

type Status int

const (
	StatusSuccess Status = iota
	StatusGated
	StatusRejected
	// StatusSuperseded means a logout or identity change happened while the
	// request was in flight and the answer was dropped.
	StatusSuperseded
	StatusBusy
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusGated:
		return "gated"
	case StatusRejected:
		return "rejected"
	case StatusSuperseded:
		return "superseded"
	case StatusBusy:
		return "busy"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// LoginResult is the outcome of Manager.Login.
type LoginResult struct {
	Status     Status
	Message    string
	RetryAfter time.Duration
	User       *authority.User
}

func (r LoginResult) RetryAfterMs() int64 {
	return r.RetryAfter.Milliseconds()
}

func shortID(tabID string) string {
	if len(tabID) > 8 {
		return tabID[:8]
	}
	return tabID
}
