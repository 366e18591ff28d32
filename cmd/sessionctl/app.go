package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-tab-session/authority"
	"github.com/jrsteele09/go-tab-session/internal/config"
	"github.com/jrsteele09/go-tab-session/location"
	"github.com/jrsteele09/go-tab-session/lockout"
	"github.com/jrsteele09/go-tab-session/sessions"
	"github.com/jrsteele09/go-tab-session/storage"
	"github.com/jrsteele09/go-tab-session/storage/memstore"
	"github.com/jrsteele09/go-tab-session/storage/redisstore"
	"github.com/jrsteele09/go-tab-session/storage/sqlitestore"
)

// app is one CLI invocation acting as a single tab.
type app struct {
	cfg     config.Config
	store   *storage.Facade
	guard   *lockout.Guard
	client  *authority.Client
	closers []func() error
}

func newApp(ctx context.Context, c config.Config, tabID string) (*app, error) {
	a := &app{cfg: c}

	shared, err := a.openShared(ctx)
	if err != nil {
		return nil, err
	}

	// each invocation is its own tab; -tab resumes an earlier one
	tabLocal := memstore.New()
	if tabID != "" {
		_ = tabLocal.Set(ctx, sessions.TabIdentityKey, tabID)
	}
	a.store = storage.New(tabLocal, shared)

	a.guard = lockout.New(a.store,
		lockout.WithThreshold(c.GetLockoutThreshold()),
		lockout.WithCooldown(c.GetLockoutCooldown()),
	)

	a.client, err = authority.NewClient(c.GetAuthorityURL(),
		authority.WithTimeout(c.GetAuthorityTimeout()),
		authority.WithRateLimit(c.GetAuthorityRequestsPerSecond(), 1),
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) openShared(ctx context.Context) (storage.Backend, error) {
	switch a.cfg.GetStorageBackend() {
	case config.BackendMemory:
		log.Warn().Msg("memory storage does not outlive this process")
		return memstore.New(), nil
	case config.BackendSQLite:
		s, err := sqlitestore.Open(a.cfg.GetSQLitePath())
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s.Close)
		return s, nil
	case config.BackendRedis:
		s, err := redisstore.New(ctx, redisstore.Config{
			Addr:      a.cfg.GetRedisAddr(),
			KeyPrefix: a.cfg.GetKeyPrefix(),
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s.Close)
		return s, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", a.cfg.GetStorageBackend())
}

// resolver builds the location chain. Explicit coordinates come first, then
// the configured IP lookup; the chain falls back to an unknown location.
func (a *app) resolver(coords *location.Coordinates) location.Resolver {
	var providers []location.Provider
	if coords != nil {
		coords.ReverseURL = a.cfg.GetReverseGeocodeURL()
		providers = append(providers, *coords)
	}
	if u := a.cfg.GetLocationURL(); u != "" {
		providers = append(providers, location.IPLookup{URL: u, Client: http.DefaultClient})
	}
	return location.NewChain(0, providers...)
}

func (a *app) manager(opts ...sessions.ManagerOption) (*sessions.Manager, error) {
	m, err := sessions.NewManager(a.store, a.guard, a.client, opts...)
	if err != nil {
		return nil, err
	}
	a.client.SetUnauthorizedHandler(m.HandleUnauthorized)
	return m, nil
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			log.Warn().Err(err).Msg("close storage")
		}
	}
}
