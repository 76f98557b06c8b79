// Package script runs PowerShell install scripts.
package script

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/terassyi/fbinstall/internal/installer/command"
	"github.com/terassyi/fbinstall/internal/plan"
)

// Shell is the interpreter used for install scripts.
const Shell = "powershell.exe"

// RunnerFactory returns a command runner working in dir.
type RunnerFactory func(dir string) command.Runner

// Runner implements the script provider.
type Runner struct {
	runnerFor RunnerFactory
}

// New returns a Runner. A nil factory runs commands with os/exec.
func New(runnerFor RunnerFactory) *Runner {
	if runnerFor == nil {
		runnerFor = func(dir string) command.Runner { return command.NewExecutor(dir) }
	}
	return &Runner{runnerFor: runnerFor}
}

// Args returns the powershell arguments that run path.
func Args(path string) []string {
	quoted := strings.ReplaceAll(filepath.FromSlash(path), "'", "''")
	return []string{"-NoProfile", "-NonInteractive", "-ExecutionPolicy", "Bypass", "-Command", "& '" + quoted + "'"}
}

// Run executes p.Path from p.Dir. Scripts are only run when notified, so
// every successful run is a change.
func (r *Runner) Run(ctx context.Context, p *plan.ScriptParams) (bool, error) {
	dir := p.Dir
	if dir == "" {
		dir = filepath.Dir(p.Path)
	}
	slog.Debug("running script", "path", p.Path, "dir", dir)
	out, err := r.runnerFor(filepath.FromSlash(dir)).Run(ctx, Shell, Args(p.Path)...)
	if err != nil {
		return false, fmt.Errorf("script %s failed: %w", p.Path, err)
	}
	if out != "" {
		slog.Debug("script output", "path", p.Path, "output", out)
	}
	return true, nil
}
