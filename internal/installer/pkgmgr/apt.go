package pkgmgr

import (
	"context"
	"strings"

	"github.com/terassyi/fbinstall/internal/installer/command"
	"github.com/terassyi/fbinstall/internal/plan"
)

type apt struct {
	runner command.Runner
}

// NewApt returns a Manager for apt-get and dpkg.
func NewApt(runner command.Runner) *Manager {
	return &Manager{name: Apt, backend: &apt{runner: runner}}
}

func (a *apt) installed(ctx context.Context, name string) (string, bool) {
	out, err := a.runner.Run(ctx, "dpkg-query", "-W", "-f=${Status} ${Version}", name)
	if err != nil {
		return "", false
	}
	// "install ok installed 7.6.2"
	fields := strings.Fields(out)
	if len(fields) != 4 || fields[2] != "installed" {
		return "", false
	}
	return fields[3], true
}

func (a *apt) install(ctx context.Context, p *plan.PackageParams, _ string, _ bool) error {
	if p.FlushCache {
		if _, err := a.runner.Run(ctx, "apt-get", "update"); err != nil {
			return err
		}
	}
	args := []string{"install", "-y", "-q"}
	if p.AllowDowngrade {
		args = append(args, "--allow-downgrades")
	}
	args = append(args, p.Options...)
	target := p.Name
	if p.Version != "" {
		target += "=" + p.Version
	}
	_, err := a.runner.Run(ctx, "apt-get", append(args, target)...)
	return err
}

func (a *apt) remove(ctx context.Context, name string) error {
	_, err := a.runner.Run(ctx, "apt-get", "remove", "-y", "-q", name)
	return err
}
