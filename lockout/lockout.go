// Package lockout throttles login attempts across every tab of an origin.
//
// The failed-attempt counter and lock expiry live in origin-shared storage
// under a single key, so a lockout applies whichever tab submits the next
// attempt. Concurrent writers resolve last-write-wins; the guard is a user
// experience throttle and assumes the authority enforces its own limits.
package lockout

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-tab-session/storage"
)

const (
	// DefaultThreshold is the number of consecutive failures that triggers a lock.
	DefaultThreshold = 3

	// DefaultCooldown is how long a lock lasts.
	DefaultCooldown = 5 * time.Minute

	// DefaultKey is the origin-shared storage key holding the State.
	DefaultKey = "login_lockout"
)

// State is the persisted throttle state.
type State struct {
	Attempts  int        `json:"attempts"`
	LockUntil *time.Time `json:"lock_until,omitempty"`
}

// Locked reports whether the lock is still in force at now. A LockUntil in
// the past is treated as no lock.
func (s State) Locked(now time.Time) bool {
	return s.LockUntil != nil && now.Before(*s.LockUntil)
}

// Gate is the outcome of CheckGate.
type Gate struct {
	Allowed    bool
	RetryAfter time.Duration
}

// RetryAfterMs returns the remaining wait in milliseconds.
func (g Gate) RetryAfterMs() int64 {
	return g.RetryAfter.Milliseconds()
}

// Message is the user-facing wait text for a closed gate.
func (g Gate) Message() string {
	if g.Allowed {
		return ""
	}
	minutes := int(math.Ceil(g.RetryAfter.Minutes()))
	if minutes <= 1 {
		seconds := int(math.Ceil(g.RetryAfter.Seconds()))
		return fmt.Sprintf("Too many failed login attempts. Please try again in %d seconds.", seconds)
	}
	return fmt.Sprintf("Too many failed login attempts. Please try again in %d minutes.", minutes)
}

// Guard gates login attempts using shared State.
type Guard struct {
	store     *storage.Facade
	key       string
	threshold int
	cooldown  time.Duration
	nowTime   func() time.Time
}

// Option configures a Guard.
type Option func(*Guard)

// WithThreshold sets the number of failures that triggers a lock.
func WithThreshold(n int) Option {
	return func(g *Guard) {
		if n > 0 {
			g.threshold = n
		}
	}
}

// WithCooldown sets the lock duration.
func WithCooldown(d time.Duration) Option {
	return func(g *Guard) {
		if d > 0 {
			g.cooldown = d
		}
	}
}

// WithKey overrides the storage key, letting independent guards share a store.
func WithKey(key string) Option {
	return func(g *Guard) {
		if key != "" {
			g.key = key
		}
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(g *Guard) {
		g.nowTime = nowFunc
	}
}

// New creates a Guard over the origin-shared scope of store.
func New(store *storage.Facade, opts ...Option) *Guard {
	g := &Guard{
		store:     store,
		key:       DefaultKey,
		threshold: DefaultThreshold,
		cooldown:  DefaultCooldown,
		nowTime:   time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Threshold returns the configured failure threshold.
func (g *Guard) Threshold() int { return g.threshold }

// Cooldown returns the configured lock duration.
func (g *Guard) Cooldown() time.Duration { return g.cooldown }

// State reads the current shared state. Missing or corrupt data reads as
// the zero State.
func (g *Guard) State(ctx context.Context) State {
	var s State
	if !storage.GetJSON(ctx, g.store, storage.OriginShared, g.key, &s) {
		return State{}
	}
	if s.Attempts < 0 {
		s.Attempts = 0
	}
	return s
}

func (g *Guard) save(ctx context.Context, s State) {
	storage.SetJSON(ctx, g.store, storage.OriginShared, g.key, s)
}

// CheckGate reports whether a login attempt may reach the authority.
func (g *Guard) CheckGate(ctx context.Context) Gate {
	s := g.State(ctx)
	now := g.nowTime()
	if !s.Locked(now) {
		return Gate{Allowed: true}
	}
	return Gate{Allowed: false, RetryAfter: s.LockUntil.Sub(now)}
}

// RecordFailure counts a rejected login. Reaching the threshold starts a
// lock and clears the counter.
func (g *Guard) RecordFailure(ctx context.Context) State {
	s := g.State(ctx)
	s.Attempts++

	if s.Attempts >= g.threshold {
		until := g.nowTime().Add(g.cooldown)
		s = State{Attempts: 0, LockUntil: &until}
		log.Warn().Time("lock_until", until).Dur("cooldown", g.cooldown).Msg("login locked after repeated failures")
	} else {
		log.Debug().Int("attempts", s.Attempts).Int("threshold", g.threshold).Msg("login failure recorded")
	}

	g.save(ctx, s)
	return s
}

// RecordSuccess clears the counter and any lock.
func (g *Guard) RecordSuccess(ctx context.Context) {
	g.save(ctx, State{})
}
