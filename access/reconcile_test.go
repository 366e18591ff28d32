package access_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/jrsteele09/go-tab-session/access"
	"github.com/jrsteele09/go-tab-session/access/accessfake"
	tserrors "github.com/jrsteele09/go-tab-session/internal/errors"
	"github.com/stretchr/testify/require"
)

var testRole = access.Subject{Kind: access.SubjectRole, ID: "7"}

func randomSet(r *rand.Rand, universe int) access.Set {
	s := access.NewSet()
	for i := 0; i < universe; i++ {
		if r.Intn(2) == 0 {
			s[fmt.Sprintf("perm-%d", i)] = struct{}{}
		}
	}
	return s
}

func TestReconcile_Scenario(t *testing.T) {
	plan := access.Reconcile(access.NewSet("A", "B"), access.NewSet("B", "C"), access.ModeReplace)

	require.Equal(t, []string{"C"}, plan.ToAdd.Sorted())
	require.Equal(t, []string{"A"}, plan.ToRemove.Sorted())
	require.Equal(t, access.ModeReplace, plan.Mode)
}

func TestReconcile_ModeDoesNotChangeDiff(t *testing.T) {
	current := access.NewSet("users.view", "users.edit")
	desired := access.NewSet("users.view", "roles.view")

	additive := access.Reconcile(current, desired, access.ModeAdditive)
	replace := access.Reconcile(current, desired, access.ModeReplace)

	require.True(t, additive.ToAdd.Equal(replace.ToAdd))
	require.True(t, additive.ToRemove.Equal(replace.ToRemove))
}

func TestReconcile_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		current := randomSet(r, 12)
		desired := randomSet(r, 12)
		plan := access.Reconcile(current, desired, access.ModeReplace)

		for n := range plan.ToAdd {
			require.False(t, current.Has(n), "toAdd must not intersect current")
		}
		for n := range plan.ToRemove {
			require.True(t, current.Has(n), "toRemove must be a subset of current")
		}
		require.True(t, plan.Apply(current).Equal(desired), "applying the plan must yield desired")
	}
}

func TestReconcile_AdditiveNeverDropsByOmission(t *testing.T) {
	current := access.NewSet("a", "b", "c")
	desired := current.Clone()
	desired.Toggle("b", false) // explicitly unchecked
	desired.Toggle("d", true)

	plan := access.Reconcile(current, desired, access.ModeAdditive)
	require.Equal(t, []string{"b"}, plan.ToRemove.Sorted())
	require.Equal(t, []string{"d"}, plan.ToAdd.Sorted())
}

func TestReconcile_IsPure(t *testing.T) {
	current := access.NewSet("a", "b")
	desired := access.NewSet("b", "c")

	first := access.Reconcile(current, desired, access.ModeAdditive)
	second := access.Reconcile(current, desired, access.ModeAdditive)

	require.Equal(t, first, second)
	require.Equal(t, []string{"a", "b"}, current.Sorted())
	require.Equal(t, []string{"b", "c"}, desired.Sorted())
}

func TestExecute(t *testing.T) {
	ctx := context.Background()

	t.Run("additive detaches before attaching", func(t *testing.T) {
		fa := accessfake.NewFakeAuthority()
		fa.Grant(testRole, "A", "B")

		desired := access.NewSet("B", "C")
		plan := access.Reconcile(access.NewSet("A", "B"), desired, access.ModeAdditive)
		require.NoError(t, access.Execute(ctx, fa, testRole, plan, desired))

		calls := fa.Calls()
		require.Len(t, calls, 2)
		require.Equal(t, "detach", calls[0].Op)
		require.Equal(t, []string{"A"}, calls[0].Items)
		require.Equal(t, "attach", calls[1].Op)
		require.Equal(t, []string{"C"}, calls[1].Items)
		require.True(t, fa.Granted(testRole).Equal(desired))
	})

	t.Run("additive skips empty halves", func(t *testing.T) {
		fa := accessfake.NewFakeAuthority()
		desired := access.NewSet("A")
		plan := access.Reconcile(access.NewSet(), desired, access.ModeAdditive)
		require.NoError(t, access.Execute(ctx, fa, testRole, plan, desired))

		calls := fa.Calls()
		require.Len(t, calls, 1)
		require.Equal(t, "attach", calls[0].Op)
	})

	t.Run("replace sends the whole desired set", func(t *testing.T) {
		fa := accessfake.NewFakeAuthority()
		fa.Grant(testRole, "A", "B")

		desired := access.NewSet("C", "B")
		plan := access.Reconcile(access.NewSet("A", "B"), desired, access.ModeReplace)
		require.NoError(t, access.Execute(ctx, fa, testRole, plan, desired))

		calls := fa.Calls()
		require.Len(t, calls, 1)
		require.Equal(t, "sync", calls[0].Op)
		require.Equal(t, []string{"B", "C"}, calls[0].Items)
	})

	t.Run("detach failure stops attach", func(t *testing.T) {
		fa := accessfake.NewFakeAuthority()
		fa.FailOn("detach", errors.New("forbidden"))

		desired := access.NewSet("C")
		plan := access.Reconcile(access.NewSet("A"), desired, access.ModeAdditive)
		err := access.Execute(ctx, fa, testRole, plan, desired)
		require.Error(t, err)
		require.Contains(t, err.Error(), "forbidden")
		require.Len(t, fa.Calls(), 1)
	})

	t.Run("invalid subject", func(t *testing.T) {
		fa := accessfake.NewFakeAuthority()
		err := access.Execute(ctx, fa, access.Subject{Kind: access.SubjectUser}, access.Plan{Mode: access.ModeReplace}, access.NewSet())
		require.True(t, tserrors.Is(err, tserrors.ErrInvalidSubject))
		require.Empty(t, fa.Calls())
	})

	t.Run("unknown mode", func(t *testing.T) {
		fa := accessfake.NewFakeAuthority()
		err := access.Execute(ctx, fa, testRole, access.Plan{Mode: "merge"}, access.NewSet())
		require.True(t, tserrors.Is(err, tserrors.ErrUnsupported))
	})
}
