package pkgmgr

import (
	"context"
	"fmt"
	"strings"

	"github.com/terassyi/fbinstall/internal/installer/command"
	"github.com/terassyi/fbinstall/internal/plan"
)

const rpmQueryFormat = "%{VERSION}-%{RELEASE}\n"

// rpmBackend drives yum or dnf; both share the rpm database.
type rpmBackend struct {
	bin    string
	runner command.Runner
}

// NewRPM returns a Manager for an rpm-based frontend (yum or dnf).
func NewRPM(bin string, runner command.Runner) *Manager {
	return &Manager{name: bin, backend: &rpmBackend{bin: bin, runner: runner}}
}

// installed queries by capability so virtual provides count: dnf hosts
// satisfy yum-plugin-versionlock with python3-dnf-plugin-versionlock.
func (r *rpmBackend) installed(ctx context.Context, name string) (string, bool) {
	out, err := r.runner.Run(ctx, "rpm", "-q", "--whatprovides", "--qf", rpmQueryFormat, name)
	if err != nil {
		return "", false
	}
	first, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
	if first == "" {
		return "", false
	}
	return first, true
}

func (r *rpmBackend) install(ctx context.Context, p *plan.PackageParams, current string, present bool) error {
	if p.FlushCache {
		if _, err := r.runner.Run(ctx, r.bin, "clean", "expire-cache"); err != nil {
			return err
		}
	}

	target := p.Name
	if p.Version != "" {
		target += "-" + p.Version
	}

	verb := "install"
	if present && p.Version != "" && newer(current, p.Version) {
		if !p.AllowDowngrade {
			return fmt.Errorf("installed %s %s is newer than %s and downgrades are not allowed", p.Name, current, p.Version)
		}
		verb = "downgrade"
	}
	_, err := r.runner.Run(ctx, r.bin, verb, "-y", target)
	return err
}

func (r *rpmBackend) remove(ctx context.Context, name string) error {
	_, err := r.runner.Run(ctx, r.bin, "remove", "-y", name)
	return err
}
