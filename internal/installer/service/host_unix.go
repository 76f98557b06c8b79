//go:build !windows

package service

import (
	"runtime"

	"github.com/terassyi/fbinstall/internal/installer/command"
)

// ForHost returns the supervisor of the running host.
func ForHost(runner command.Runner) Manager {
	if runtime.GOOS == "darwin" {
		return NewLaunchd(runner)
	}
	return NewSystemd(runner)
}
