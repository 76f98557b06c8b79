package pkgmgr

import (
	"context"
	"strings"

	"github.com/terassyi/fbinstall/internal/installer/command"
	"github.com/terassyi/fbinstall/internal/plan"
)

type brew struct {
	user *BrewUser
}

// NewBrew returns a Manager for Homebrew.
func NewBrew(runner command.Runner) *Manager {
	return newBrew(NewBrewUser(runner))
}

func newBrew(user *BrewUser) *Manager {
	return &Manager{name: Brew, backend: &brew{user: user}}
}

func (b *brew) run(ctx context.Context, args ...string) (string, error) {
	runner, err := b.user.Runner(ctx)
	if err != nil {
		return "", err
	}
	return runner.Run(ctx, "brew", args...)
}

func (b *brew) installed(ctx context.Context, name string) (string, bool) {
	out, err := b.run(ctx, "list", "--versions", name)
	if err != nil {
		return "", false
	}
	// "filebeat 7.6.2 7.5.0"; the first version is the linked one.
	fields := strings.Fields(out)
	if len(fields) < 2 {
		return "", false
	}
	return fields[1], true
}

// install upgrades an existing formula; brew cannot pin arbitrary versions.
func (b *brew) install(ctx context.Context, p *plan.PackageParams, _ string, present bool) error {
	verb := "install"
	if present {
		verb = "upgrade"
	}
	_, err := b.run(ctx, verb, p.Name)
	return err
}

func (b *brew) remove(ctx context.Context, name string) error {
	_, err := b.run(ctx, "uninstall", name)
	return err
}
