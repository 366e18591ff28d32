// Package storage provides a scope-aware key/value facade over the two
// storage scopes a tab can see: tab-local values that die with the tab and
// origin-shared values visible to every tab of the same origin.
//
// The facade applies no policy. Backend failures are logged and swallowed:
// reads report the key as absent and writes are dropped, so callers must
// treat a missing value as the normal case.
package storage

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// Scope selects which backend a key lives in.
type Scope int

const (
	// TabLocal values are private to one tab and are lost when it closes.
	TabLocal Scope = iota
	// OriginShared values are visible to all tabs of the origin and outlive them.
	OriginShared
)

func (s Scope) String() string {
	switch s {
	case TabLocal:
		return "tab_local"
	case OriginShared:
		return "origin_shared"
	default:
		return "unknown"
	}
}

// Backend is a string key/value store for a single scope.
type Backend interface {
	// Get returns the value and true, or false when the key does not exist.
	// An error is returned only for genuine backend failures.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Facade routes reads and writes to the backend of the requested scope.
type Facade struct {
	tabLocal     Backend
	originShared Backend
}

// New creates a Facade. A nil backend makes its scope permanently unavailable.
func New(tabLocal, originShared Backend) *Facade {
	return &Facade{
		tabLocal:     tabLocal,
		originShared: originShared,
	}
}

func (f *Facade) backend(scope Scope) Backend {
	switch scope {
	case TabLocal:
		return f.tabLocal
	case OriginShared:
		return f.originShared
	default:
		return nil
	}
}

// Get returns the value stored under key in scope. It reports false when the
// key is missing or the scope cannot be read.
func (f *Facade) Get(ctx context.Context, scope Scope, key string) (string, bool) {
	b := f.backend(scope)
	if b == nil {
		return "", false
	}
	value, ok, err := b.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("scope", scope.String()).Str("key", key).Msg("storage read failed")
		return "", false
	}
	return value, ok
}

// Set writes value under key in scope. Failures are logged and dropped.
func (f *Facade) Set(ctx context.Context, scope Scope, key, value string) {
	b := f.backend(scope)
	if b == nil {
		return
	}
	if err := b.Set(ctx, key, value); err != nil {
		log.Warn().Err(err).Str("scope", scope.String()).Str("key", key).Msg("storage write failed")
	}
}

// Remove deletes key from scope. Failures are logged and dropped.
func (f *Facade) Remove(ctx context.Context, scope Scope, key string) {
	b := f.backend(scope)
	if b == nil {
		return
	}
	if err := b.Delete(ctx, key); err != nil {
		log.Warn().Err(err).Str("scope", scope.String()).Str("key", key).Msg("storage delete failed")
	}
}

// GetJSON decodes the JSON value under key into v. It reports false when the
// key is missing or holds data that does not decode.
func GetJSON(ctx context.Context, f *Facade, scope Scope, key string, v any) bool {
	raw, ok := f.Get(ctx, scope, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		log.Debug().Err(err).Str("scope", scope.String()).Str("key", key).Msg("discarding undecodable value")
		return false
	}
	return true
}

// SetJSON encodes v as JSON and stores it under key.
func SetJSON(ctx context.Context, f *Facade, scope Scope, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("storage encode failed")
		return
	}
	f.Set(ctx, scope, key, string(data))
}
