package pin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terassyi/fbinstall/internal/installer/fsys"
	"github.com/terassyi/fbinstall/internal/plan"
)

func TestPinner_Apt(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	files := fsys.New(t.TempDir())
	n := New(files)
	p := &plan.VersionLockParams{Package: "filebeat", Manager: "apt", Version: "7.6.2", Priority: 700}

	changed, err := n.Pin(ctx, p)
	require.NoError(t, err)
	assert.True(t, changed)

	content, err := files.Read("/etc/apt/preferences.d/filebeat.pref")
	require.NoError(t, err)
	assert.Equal(t, "Package: filebeat\nPin: version 7.6.2\nPin-Priority: 700\n", string(content))

	changed, err = n.Pin(ctx, p)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = n.Unpin(ctx, p)
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestPinner_Yum(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	files := fsys.New(t.TempDir())
	_, err := files.Write(yumVersionlockList, []byte("0:kernel-5.14.0-1.*\n0:filebeat-7.5.0-1.*\n0:filebeat-nightly-1.0-1.*\n"), 0o644)
	require.NoError(t, err)

	n := New(files)
	p := &plan.VersionLockParams{Package: "filebeat", Manager: "yum", Version: "7.6.2", Release: "1"}

	changed, err := n.Pin(ctx, p)
	require.NoError(t, err)
	assert.True(t, changed)
	content, err := files.Read(yumVersionlockList)
	require.NoError(t, err)
	assert.Equal(t, "0:kernel-5.14.0-1.*\n0:filebeat-7.6.2-1.*\n0:filebeat-nightly-1.0-1.*\n", string(content))

	changed, err = n.Pin(ctx, p)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = n.Unpin(ctx, p)
	require.NoError(t, err)
	assert.True(t, changed)
	content, err = files.Read(yumVersionlockList)
	require.NoError(t, err)
	assert.Equal(t, "0:kernel-5.14.0-1.*\n0:filebeat-nightly-1.0-1.*\n", string(content))
}

func TestPinner_Dnf(t *testing.T) {
	t.Parallel()
	files := fsys.New(t.TempDir())
	n := New(files)

	changed, err := n.Pin(context.Background(), &plan.VersionLockParams{Package: "filebeat", Manager: "dnf", Version: "8.13.4"})
	require.NoError(t, err)
	assert.True(t, changed)
	content, err := files.Read(dnfVersionlockList)
	require.NoError(t, err)
	assert.Equal(t, "0:filebeat-8.13.4-*\n", string(content))

	changed, err = n.Unpin(context.Background(), &plan.VersionLockParams{Package: "filebeat", Manager: "yum"})
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = n.Pin(context.Background(), &plan.VersionLockParams{Package: "filebeat", Manager: "zypper"})
	assert.Error(t, err)
}

func TestReplaceLock(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "0:filebeat-1-1.*\n", replaceLock("", "filebeat", "0:filebeat-1-1.*"))
	assert.Equal(t, "", replaceLock("filebeat-1-1.*\n", "filebeat", ""))
	assert.Equal(t, "# managed\n0:filebeat-2-1.*\n", replaceLock("# managed\nfilebeat-1-1.*\n0:filebeat-1-2.*\n", "filebeat", "0:filebeat-2-1.*"))
}
