package access_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jrsteele09/go-tab-session/access"
	"github.com/jrsteele09/go-tab-session/access/accessfake"
	tserrors "github.com/jrsteele09/go-tab-session/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestEditor_CommitPromotesPreview(t *testing.T) {
	ctx := context.Background()
	fa := accessfake.NewFakeAuthority()
	user := access.Subject{Kind: access.SubjectUser, ID: "42"}
	fa.Grant(user, "editor")

	e := access.NewEditor(fa, user, access.NewSet("editor"))
	plan := e.Preview(access.NewSet("editor", "admin"), access.ModeAdditive)
	require.Equal(t, []string{"admin"}, plan.ToAdd.Sorted())

	require.True(t, e.Pending())
	require.Equal(t, []string{"admin", "editor"}, e.Current().Sorted())
	require.Equal(t, []string{"editor"}, e.Confirmed().Sorted())

	got, err := e.Commit(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"admin", "editor"}, got.Sorted())
	require.False(t, e.Pending())
	require.Equal(t, []string{"admin", "editor"}, e.Confirmed().Sorted())
	require.True(t, fa.Granted(user).Equal(got))
}

func TestEditor_RevertsOnRejection(t *testing.T) {
	ctx := context.Background()
	fa := accessfake.NewFakeAuthority()
	fa.FailOn("sync", errors.New("This action is unauthorized."))

	e := access.NewEditor(fa, testRole, access.NewSet("a", "b"))
	e.Preview(access.NewSet("c"), access.ModeReplace)
	require.Equal(t, []string{"c"}, e.Current().Sorted())

	got, err := e.Commit(ctx)
	require.Error(t, err)
	require.Equal(t, []string{"a", "b"}, got.Sorted())
	require.Equal(t, []string{"a", "b"}, e.Current().Sorted())
	require.False(t, e.Pending())
}

func TestEditor_CommitWithoutPreview(t *testing.T) {
	e := access.NewEditor(accessfake.NewFakeAuthority(), testRole, access.NewSet())
	_, err := e.Commit(context.Background())
	require.True(t, tserrors.Is(err, tserrors.ErrNothingStaged))
}

func TestEditor_Discard(t *testing.T) {
	e := access.NewEditor(accessfake.NewFakeAuthority(), testRole, access.NewSet("a"))
	e.Preview(access.NewSet(), access.ModeAdditive)
	require.Empty(t, e.Current())

	e.Discard()
	require.Equal(t, []string{"a"}, e.Current().Sorted())
}

func TestEditor_ConfirmedIsCopied(t *testing.T) {
	seed := access.NewSet("a")
	e := access.NewEditor(accessfake.NewFakeAuthority(), testRole, seed)
	seed.Toggle("b", true)

	require.Equal(t, []string{"a"}, e.Confirmed().Sorted())
}
