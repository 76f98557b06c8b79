// Package service drives the host service supervisor: systemd, launchd or
// the Windows service control manager.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/terassyi/fbinstall/internal/installer/command"
)

// Manager is the service supervisor of one host.
type Manager interface {
	Start(ctx context.Context, name string) (bool, error)
	Stop(ctx context.Context, name string) (bool, error)
	Enable(ctx context.Context, name string) (bool, error)
	Disable(ctx context.Context, name string) (bool, error)
	Restart(ctx context.Context, name string) (bool, error)
}

var (
	_ Manager = (*Systemd)(nil)
	_ Manager = (*Launchd)(nil)
)

// Systemd manages units with systemctl.
type Systemd struct {
	runner command.Runner
}

// NewSystemd returns a systemd manager.
func NewSystemd(runner command.Runner) *Systemd {
	return &Systemd{runner: runner}
}

func (s *Systemd) active(ctx context.Context, name string) bool {
	return s.runner.Check(ctx, "systemctl", "is-active", "--quiet", name)
}

func (s *Systemd) enabled(ctx context.Context, name string) bool {
	return s.runner.Check(ctx, "systemctl", "is-enabled", "--quiet", name)
}

func (s *Systemd) systemctl(ctx context.Context, verb, name string) (bool, error) {
	slog.Debug("systemctl", "verb", verb, "unit", name)
	if _, err := s.runner.Run(ctx, "systemctl", verb, name); err != nil {
		return false, fmt.Errorf("failed to %s %s: %w", verb, name, err)
	}
	return true, nil
}

// Start starts the unit unless it is active.
func (s *Systemd) Start(ctx context.Context, name string) (bool, error) {
	if s.active(ctx, name) {
		return false, nil
	}
	return s.systemctl(ctx, "start", name)
}

// Stop stops the unit if it is active. A missing unit is not active.
func (s *Systemd) Stop(ctx context.Context, name string) (bool, error) {
	if !s.active(ctx, name) {
		return false, nil
	}
	return s.systemctl(ctx, "stop", name)
}

// Enable enables the unit at boot.
func (s *Systemd) Enable(ctx context.Context, name string) (bool, error) {
	if s.enabled(ctx, name) {
		return false, nil
	}
	return s.systemctl(ctx, "enable", name)
}

// Disable disables the unit at boot.
func (s *Systemd) Disable(ctx context.Context, name string) (bool, error) {
	if !s.enabled(ctx, name) {
		return false, nil
	}
	return s.systemctl(ctx, "disable", name)
}

// Restart restarts the unit.
func (s *Systemd) Restart(ctx context.Context, name string) (bool, error) {
	return s.systemctl(ctx, "restart", name)
}

// Launchd manages system daemons with launchctl. Service names map to
// co.elastic.<name> labels.
type Launchd struct {
	runner    command.Runner
	daemonDir string
}

// NewLaunchd returns a launchd manager for plists under
// /Library/LaunchDaemons.
func NewLaunchd(runner command.Runner) *Launchd {
	return &Launchd{runner: runner, daemonDir: "/Library/LaunchDaemons"}
}

// Label returns the launchd label for a service name.
func Label(name string) string {
	if strings.Contains(name, ".") {
		return name
	}
	return "co.elastic." + name
}

func (l *Launchd) target(name string) string {
	return "system/" + Label(name)
}

func (l *Launchd) loaded(ctx context.Context, name string) bool {
	return l.runner.Check(ctx, "launchctl", "print", l.target(name))
}

func (l *Launchd) disabled(ctx context.Context, name string) (bool, error) {
	out, err := l.runner.Run(ctx, "launchctl", "print-disabled", "system")
	if err != nil {
		return false, fmt.Errorf("failed to read launchd overrides: %w", err)
	}
	key := fmt.Sprintf("%q =>", Label(name))
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, key); ok {
			v := strings.TrimSpace(rest)
			return v == "disabled" || v == "true", nil
		}
	}
	return false, nil
}

func (l *Launchd) launchctl(ctx context.Context, args ...string) (bool, error) {
	slog.Debug("launchctl", "args", args)
	if _, err := l.runner.Run(ctx, "launchctl", args...); err != nil {
		return false, fmt.Errorf("launchctl %s failed: %w", args[0], err)
	}
	return true, nil
}

// Start loads the daemon plist unless the job is loaded.
func (l *Launchd) Start(ctx context.Context, name string) (bool, error) {
	if l.loaded(ctx, name) {
		return false, nil
	}
	return l.launchctl(ctx, "bootstrap", "system", l.daemonDir+"/"+Label(name)+".plist")
}

// Stop unloads the job if it is loaded.
func (l *Launchd) Stop(ctx context.Context, name string) (bool, error) {
	if !l.loaded(ctx, name) {
		return false, nil
	}
	return l.launchctl(ctx, "bootout", l.target(name))
}

// Enable clears a disabled override.
func (l *Launchd) Enable(ctx context.Context, name string) (bool, error) {
	off, err := l.disabled(ctx, name)
	if err != nil || !off {
		return false, err
	}
	return l.launchctl(ctx, "enable", l.target(name))
}

// Disable sets a disabled override.
func (l *Launchd) Disable(ctx context.Context, name string) (bool, error) {
	off, err := l.disabled(ctx, name)
	if err != nil || off {
		return false, err
	}
	return l.launchctl(ctx, "disable", l.target(name))
}

// Restart kills and restarts the job.
func (l *Launchd) Restart(ctx context.Context, name string) (bool, error) {
	return l.launchctl(ctx, "kickstart", "-k", l.target(name))
}
