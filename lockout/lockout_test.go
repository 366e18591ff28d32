package lockout_test

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/go-tab-session/lockout"
	"github.com/jrsteele09/go-tab-session/storage"
	"github.com/jrsteele09/go-tab-session/storage/memstore"
	"github.com/stretchr/testify/require"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time          { return c.now }
func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newGuard(t *testing.T, shared storage.Backend, c *clock, opts ...lockout.Option) *lockout.Guard {
	t.Helper()
	f := storage.New(memstore.New(), shared)
	return lockout.New(f, append([]lockout.Option{lockout.WithNowTime(c.Now)}, opts...)...)
}

func TestGuard_Threshold(t *testing.T) {
	ctx := context.Background()
	c := &clock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	g := newGuard(t, memstore.New(), c)

	for i := 0; i < lockout.DefaultThreshold-1; i++ {
		g.RecordFailure(ctx)
	}
	require.True(t, g.CheckGate(ctx).Allowed, "threshold-1 failures must not lock")

	s := g.RecordFailure(ctx)
	require.Equal(t, 0, s.Attempts)
	require.NotNil(t, s.LockUntil)

	gate := g.CheckGate(ctx)
	require.False(t, gate.Allowed)
	require.Equal(t, int64(300000), gate.RetryAfterMs())
	require.Contains(t, gate.Message(), "5 minutes")
}

func TestGuard_LazyExpiry(t *testing.T) {
	ctx := context.Background()
	c := &clock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	shared := memstore.New()
	g := newGuard(t, shared, c)

	past := c.now.Add(-time.Millisecond)
	f := storage.New(memstore.New(), shared)
	storage.SetJSON(ctx, f, storage.OriginShared, lockout.DefaultKey, lockout.State{LockUntil: &past})

	require.True(t, g.CheckGate(ctx).Allowed)

	// the expired lock is still stored, only ignored on read
	s := g.State(ctx)
	require.NotNil(t, s.LockUntil)
}

func TestGuard_CooldownElapses(t *testing.T) {
	ctx := context.Background()
	c := &clock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	g := newGuard(t, memstore.New(), c, lockout.WithThreshold(2), lockout.WithCooldown(time.Minute))

	g.RecordFailure(ctx)
	g.RecordFailure(ctx)
	require.False(t, g.CheckGate(ctx).Allowed)

	c.Advance(30 * time.Second)
	gate := g.CheckGate(ctx)
	require.False(t, gate.Allowed)
	require.Equal(t, 30*time.Second, gate.RetryAfter)
	require.Contains(t, gate.Message(), "30 seconds")

	c.Advance(30 * time.Second)
	require.True(t, g.CheckGate(ctx).Allowed)
}

func TestGuard_SuccessResets(t *testing.T) {
	ctx := context.Background()
	c := &clock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	g := newGuard(t, memstore.New(), c)

	g.RecordFailure(ctx)
	g.RecordFailure(ctx)
	g.RecordSuccess(ctx)

	s := g.State(ctx)
	require.Equal(t, 0, s.Attempts)
	require.Nil(t, s.LockUntil)

	// a fresh run of failures is needed to lock again
	g.RecordFailure(ctx)
	g.RecordFailure(ctx)
	require.True(t, g.CheckGate(ctx).Allowed)
}

func TestGuard_SharedAcrossTabs(t *testing.T) {
	ctx := context.Background()
	c := &clock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	shared := memstore.New()

	tabA := newGuard(t, shared, c)
	tabB := newGuard(t, shared, c)

	tabA.RecordFailure(ctx)
	tabB.RecordFailure(ctx)
	tabA.RecordFailure(ctx)

	require.False(t, tabB.CheckGate(ctx).Allowed)
	require.False(t, tabA.CheckGate(ctx).Allowed)
}

func TestGuard_CorruptStateReadsAsZero(t *testing.T) {
	ctx := context.Background()
	c := &clock{now: time.Now()}
	shared := memstore.New()
	require.NoError(t, shared.Set(ctx, lockout.DefaultKey, "garbage"))

	g := newGuard(t, shared, c)
	require.True(t, g.CheckGate(ctx).Allowed)
	require.Equal(t, 1, g.RecordFailure(ctx).Attempts)
}
