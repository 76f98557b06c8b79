package script

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terassyi/fbinstall/internal/installer/command"
	"github.com/terassyi/fbinstall/internal/installer/command/commandtest"
	"github.com/terassyi/fbinstall/internal/plan"
)

func TestRunner_Run(t *testing.T) {
	t.Parallel()
	rec := commandtest.NewRecorder()
	var dirs []string
	r := New(func(dir string) command.Runner {
		dirs = append(dirs, dir)
		return rec
	})

	changed, err := r.Run(context.Background(), &plan.ScriptParams{
		Path: "C:/Program Files/Filebeat/filebeat-7.6.2-windows-x86_64/install-service-filebeat.ps1",
		Dir:  "C:/Program Files/Filebeat/filebeat-7.6.2-windows-x86_64",
	})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []string{filepath.FromSlash("C:/Program Files/Filebeat/filebeat-7.6.2-windows-x86_64")}, dirs)

	cmds := rec.Commands()
	require.Len(t, cmds, 1)
	assert.Contains(t, cmds[0], "powershell.exe -NoProfile -NonInteractive -ExecutionPolicy Bypass -Command & '")
	assert.Contains(t, cmds[0], "install-service-filebeat.ps1'")
}

func TestRunner_DefaultDir(t *testing.T) {
	t.Parallel()
	var got string
	r := New(func(dir string) command.Runner {
		got = dir
		return commandtest.NewRecorder()
	})
	_, err := r.Run(context.Background(), &plan.ScriptParams{Path: "/opt/fb/install.ps1"})
	require.NoError(t, err)
	assert.Equal(t, filepath.FromSlash("/opt/fb"), got)
}

func TestRunner_Failure(t *testing.T) {
	t.Parallel()
	rec := commandtest.NewRecorder().OnPrefix("powershell.exe", commandtest.Response{Err: errors.New("exit status 1")})
	r := New(func(string) command.Runner { return rec })

	changed, err := r.Run(context.Background(), &plan.ScriptParams{Path: "/x.ps1"})
	assert.Error(t, err)
	assert.False(t, changed)
}

func TestArgs_QuotesPath(t *testing.T) {
	t.Parallel()
	args := Args("/it's/install.ps1")
	assert.Equal(t, "& '"+filepath.FromSlash("/it''s/install.ps1")+"'", args[len(args)-1])
}
