package bootstrap

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terassyi/fbinstall/internal/installer/command/commandtest"
	"github.com/terassyi/fbinstall/internal/installer/pkgmgr"
	"github.com/terassyi/fbinstall/internal/plan"
)

func TestEnsure_Homebrew(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p := &plan.BootstrapParams{Tool: "homebrew"}

	t.Run("present", func(t *testing.T) {
		t.Parallel()
		rec := commandtest.NewRecorder()
		changed, err := New(rec, pkgmgr.WithEUID(501)).Ensure(ctx, p)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, []string{"brew --version"}, rec.Commands())
	})

	t.Run("missing", func(t *testing.T) {
		t.Parallel()
		rec := commandtest.NewRecorder().On("brew --version", commandtest.Response{Err: errors.New("not found")})
		changed, err := New(rec, pkgmgr.WithEUID(501)).Ensure(ctx, p)
		require.NoError(t, err)
		assert.True(t, changed)
		cmds := rec.Commands()
		require.Len(t, cmds, 2)
		assert.Contains(t, cmds[1], "NONINTERACTIVE=1")
		assert.Contains(t, cmds[1], HomebrewInstallURL)
	})

	t.Run("install fails", func(t *testing.T) {
		t.Parallel()
		rec := commandtest.NewRecorder().
			On("brew --version", commandtest.Response{Err: errors.New("not found")}).
			OnPrefix("/bin/bash", commandtest.Response{Err: errors.New("curl: (6)")})
		_, err := New(rec, pkgmgr.WithEUID(501)).Ensure(ctx, p)
		assert.ErrorContains(t, err, "curl")
	})
}

func TestEnsure_HomebrewAsRoot(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p := &plan.BootstrapParams{Tool: "homebrew"}
	notFound := commandtest.Response{Err: errors.New("not found")}

	t.Run("installs as the sudo user", func(t *testing.T) {
		t.Parallel()
		rec := commandtest.NewRecorder().
			On("brew --prefix", notFound).
			On("sudo -u admin -H brew --version", notFound)
		changed, err := New(rec, pkgmgr.WithEUID(0), pkgmgr.WithSudoUser("admin")).Ensure(ctx, p)
		require.NoError(t, err)
		assert.True(t, changed)
		cmds := rec.Commands()
		require.Len(t, cmds, 3)
		assert.Equal(t, "sudo -u admin -H brew --version", cmds[1])
		assert.True(t, strings.HasPrefix(cmds[2], "sudo -u admin -H /bin/bash -c NONINTERACTIVE=1"))
	})

	t.Run("checks as the prefix owner", func(t *testing.T) {
		t.Parallel()
		rec := commandtest.NewRecorder().On("brew --prefix", commandtest.Response{Output: "/opt/homebrew"})
		owner := func(path string) (string, error) {
			assert.Equal(t, "/opt/homebrew", path)
			return "admin", nil
		}
		changed, err := New(rec, pkgmgr.WithEUID(0), pkgmgr.WithPrefixOwner(owner)).Ensure(ctx, p)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, []string{"brew --prefix", "sudo -u admin -H brew --version"}, rec.Commands())
	})

	t.Run("root without an owning account", func(t *testing.T) {
		t.Parallel()
		rec := commandtest.NewRecorder().On("brew --prefix", notFound)
		_, err := New(rec, pkgmgr.WithEUID(0), pkgmgr.WithSudoUser("")).Ensure(ctx, p)
		require.ErrorIs(t, err, pkgmgr.ErrBrewAsRoot)
		assert.Len(t, rec.Commands(), 1)
	})
}

func TestEnsure_Unknown(t *testing.T) {
	t.Parallel()
	_, err := New(commandtest.NewRecorder()).Ensure(context.Background(), &plan.BootstrapParams{Tool: "chocolatey"})
	assert.Error(t, err)
}
