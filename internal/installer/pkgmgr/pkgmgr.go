// Package pkgmgr drives OS package managers through their command-line tools.
package pkgmgr

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/terassyi/fbinstall/internal/installer/command"
	"github.com/terassyi/fbinstall/internal/plan"
)

// Manager names.
const (
	Apt  = "apt"
	Yum  = "yum"
	Dnf  = "dnf"
	Brew = "brew"
)

// backend is the manager-specific part of a Manager.
type backend interface {
	// installed returns the installed version of name.
	installed(ctx context.Context, name string) (string, bool)
	install(ctx context.Context, p *plan.PackageParams, current string, present bool) error
	remove(ctx context.Context, name string) error
}

// Manager converges packages through one package manager.
type Manager struct {
	name    string
	backend backend
}

// Name returns the manager name.
func (m *Manager) Name() string {
	return m.name
}

// Installed returns the installed version of a package.
func (m *Manager) Installed(ctx context.Context, name string) (string, bool) {
	return m.backend.installed(ctx, name)
}

// Install installs p unless the requested version is already present.
// An empty version accepts any installed version.
func (m *Manager) Install(ctx context.Context, p *plan.PackageParams) (bool, error) {
	current, present := m.backend.installed(ctx, p.Name)
	if present && (p.Version == "" || versionMatches(current, p.Version)) {
		slog.Debug("package up to date", "manager", m.name, "package", p.Name, "version", current)
		return false, nil
	}

	slog.Debug("installing package", "manager", m.name, "package", p.Name, "version", p.Version, "current", current)
	if err := m.backend.install(ctx, p, current, present); err != nil {
		return false, fmt.Errorf("failed to install %s with %s: %w", p.Name, m.name, err)
	}
	return true, nil
}

// Remove removes p if it is installed.
func (m *Manager) Remove(ctx context.Context, p *plan.PackageParams) (bool, error) {
	if _, present := m.backend.installed(ctx, p.Name); !present {
		return false, nil
	}
	if err := m.backend.remove(ctx, p.Name); err != nil {
		return false, fmt.Errorf("failed to remove %s with %s: %w", p.Name, m.name, err)
	}
	return true, nil
}

// New returns the manager called name.
func New(name string, runner command.Runner) (*Manager, error) {
	switch name {
	case Apt:
		return NewApt(runner), nil
	case Yum, Dnf:
		return NewRPM(name, runner), nil
	case Brew:
		return NewBrew(runner), nil
	default:
		return nil, fmt.Errorf("unknown package manager %q", name)
	}
}
