package fsys

import (
	"context"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terassyi/fbinstall/internal/plan"
)

func TestFS_CreateDirectory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := New(t.TempDir())

	_, err := f.CreateDirectory(ctx, &plan.DirectoryParams{Path: "/etc/filebeat/conf.d"})
	require.Error(t, err, "non-recursive create needs the parent")

	changed, err := f.CreateDirectory(ctx, &plan.DirectoryParams{Path: "/etc/filebeat/conf.d", Mode: 0o750, Recursive: true})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.DirExists(t, f.Path("/etc/filebeat/conf.d"))

	changed, err = f.CreateDirectory(ctx, &plan.DirectoryParams{Path: "/etc/filebeat/conf.d", Mode: 0o750, Recursive: true})
	require.NoError(t, err)
	assert.False(t, changed)

	if runtime.GOOS != "windows" {
		changed, err = f.CreateDirectory(ctx, &plan.DirectoryParams{Path: "/etc/filebeat/conf.d", Mode: 0o700})
		require.NoError(t, err)
		assert.True(t, changed)
		info, err := os.Stat(f.Path("/etc/filebeat/conf.d"))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())
	}
}

func TestFS_CreateDirectory_NotADirectory(t *testing.T) {
	t.Parallel()
	f := New(t.TempDir())
	_, err := f.Write("/var/log/filebeat", []byte("x"), 0)
	require.NoError(t, err)

	_, err = f.CreateDirectory(context.Background(), &plan.DirectoryParams{Path: "/var/log/filebeat"})
	assert.Error(t, err)
}

func TestFS_CreateDirectory_Owner(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("ownership is not managed on windows")
	}
	u, err := user.Current()
	require.NoError(t, err)

	f := New(t.TempDir())
	_, err = f.CreateDirectory(context.Background(), &plan.DirectoryParams{Path: "/data", Owner: u.Username})
	require.NoError(t, err)

	changed, err := f.CreateDirectory(context.Background(), &plan.DirectoryParams{Path: "/data", Owner: u.Username})
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = f.CreateDirectory(context.Background(), &plan.DirectoryParams{Path: "/data", Owner: "no-such-user-fbinstall"})
	assert.Error(t, err)
}

func TestFS_DeleteDirectory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := New(t.TempDir())

	changed, err := f.DeleteDirectory(ctx, &plan.DirectoryParams{Path: "/missing"})
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = f.Write("/etc/filebeat/conf.d/app.yml", []byte("- type: log"), 0)
	require.NoError(t, err)

	_, err = f.DeleteDirectory(ctx, &plan.DirectoryParams{Path: "/etc/filebeat/conf.d"})
	assert.Error(t, err, "non-empty directory needs recursive")

	changed, err = f.DeleteDirectory(ctx, &plan.DirectoryParams{Path: "/etc/filebeat", Recursive: true})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.NoDirExists(t, f.Path("/etc/filebeat"))
}

func TestFS_WriteFile(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := New(t.TempDir())
	p := &plan.FileParams{Path: "/Library/LaunchDaemons/co.elastic.filebeat.plist", Content: []byte("<plist/>"), Mode: 0o644}

	changed, err := f.WriteFile(ctx, p)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = f.WriteFile(ctx, p)
	require.NoError(t, err)
	assert.False(t, changed)

	p.Content = []byte("<plist version=\"1.0\"/>")
	changed, err = f.WriteFile(ctx, p)
	require.NoError(t, err)
	assert.True(t, changed)

	data, err := f.Read(p.Path)
	require.NoError(t, err)
	assert.Equal(t, p.Content, data)
	assert.NoFileExists(t, f.Path(p.Path)+".tmp")
}

func TestFS_ExistsAndDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := New(t.TempDir())

	ok, err := f.Exists(ctx, "/a/b")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.Write("/a/b", []byte("b"), 0)
	require.NoError(t, err)
	ok, err = f.Exists(ctx, "/a/b")
	require.NoError(t, err)
	assert.True(t, ok)

	changed, err := f.DeleteFile(ctx, "/a/b")
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = f.DeleteFile(ctx, "/a/b")
	require.NoError(t, err)
	assert.False(t, changed)

	data, err := f.Read("/a/b")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestFS_Path(t *testing.T) {
	t.Parallel()
	assert.Equal(t, filepath.FromSlash("/etc/filebeat"), New("").Path("/etc/filebeat"))
	assert.Equal(t, filepath.Join("root", "etc", "filebeat"), New("root").Path("/etc/filebeat"))
}
