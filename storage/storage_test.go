package storage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jrsteele09/go-tab-session/storage"
	"github.com/jrsteele09/go-tab-session/storage/memstore"
	"github.com/stretchr/testify/require"
)

type brokenBackend struct{}

var errQuota = errors.New("quota exceeded")

func (brokenBackend) Get(context.Context, string) (string, bool, error) { return "", false, errQuota }
func (brokenBackend) Set(context.Context, string, string) error         { return errQuota }
func (brokenBackend) Delete(context.Context, string) error              { return errQuota }

func TestFacade_ScopesAreSeparate(t *testing.T) {
	ctx := context.Background()
	f := storage.New(memstore.New(), memstore.New())

	f.Set(ctx, storage.TabLocal, "k", "local")
	f.Set(ctx, storage.OriginShared, "k", "shared")

	v, ok := f.Get(ctx, storage.TabLocal, "k")
	require.True(t, ok)
	require.Equal(t, "local", v)

	v, ok = f.Get(ctx, storage.OriginShared, "k")
	require.True(t, ok)
	require.Equal(t, "shared", v)

	f.Remove(ctx, storage.TabLocal, "k")
	_, ok = f.Get(ctx, storage.TabLocal, "k")
	require.False(t, ok)
	_, ok = f.Get(ctx, storage.OriginShared, "k")
	require.True(t, ok)
}

func TestFacade_FailsSilently(t *testing.T) {
	ctx := context.Background()

	t.Run("broken backend", func(t *testing.T) {
		f := storage.New(brokenBackend{}, brokenBackend{})
		f.Set(ctx, storage.OriginShared, "k", "v")
		f.Remove(ctx, storage.OriginShared, "k")
		_, ok := f.Get(ctx, storage.OriginShared, "k")
		require.False(t, ok)
	})

	t.Run("missing backend", func(t *testing.T) {
		f := storage.New(nil, nil)
		f.Set(ctx, storage.TabLocal, "k", "v")
		_, ok := f.Get(ctx, storage.TabLocal, "k")
		require.False(t, ok)
	})

	t.Run("unknown scope", func(t *testing.T) {
		f := storage.New(memstore.New(), memstore.New())
		f.Set(ctx, storage.Scope(42), "k", "v")
		_, ok := f.Get(ctx, storage.Scope(42), "k")
		require.False(t, ok)
	})
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	f := storage.New(memstore.New(), memstore.New())

	type record struct {
		Attempts int `json:"attempts"`
	}

	storage.SetJSON(ctx, f, storage.OriginShared, "rec", record{Attempts: 2})
	var got record
	require.True(t, storage.GetJSON(ctx, f, storage.OriginShared, "rec", &got))
	require.Equal(t, 2, got.Attempts)

	f.Set(ctx, storage.OriginShared, "rec", "{not json")
	require.False(t, storage.GetJSON(ctx, f, storage.OriginShared, "rec", &got))

	require.False(t, storage.GetJSON(ctx, f, storage.OriginShared, "absent", &got))
}
