// Package bootstrap makes prerequisite tools available on the host.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/terassyi/fbinstall/internal/installer/command"
	"github.com/terassyi/fbinstall/internal/installer/pkgmgr"
	"github.com/terassyi/fbinstall/internal/plan"
)

// HomebrewInstallURL is the official Homebrew install script.
const HomebrewInstallURL = "https://raw.githubusercontent.com/Homebrew/install/HEAD/install.sh"

// Bootstrapper implements the bootstrap provider.
type Bootstrapper struct {
	brewUser *pkgmgr.BrewUser
}

// New returns a Bootstrapper. opts adjust how the Homebrew account is
// resolved.
func New(runner command.Runner, opts ...pkgmgr.BrewUserOption) *Bootstrapper {
	return &Bootstrapper{brewUser: pkgmgr.NewBrewUser(runner, opts...)}
}

// Ensure installs p.Tool when it is missing.
func (b *Bootstrapper) Ensure(ctx context.Context, p *plan.BootstrapParams) (bool, error) {
	switch p.Tool {
	case "homebrew":
		return b.homebrew(ctx)
	default:
		return false, fmt.Errorf("unknown bootstrap tool: %s", p.Tool)
	}
}

// homebrew runs the check and the installer as the account that owns
// Homebrew; the installer exits when started as root.
func (b *Bootstrapper) homebrew(ctx context.Context) (bool, error) {
	runner, err := b.brewUser.Runner(ctx)
	if err != nil {
		return false, err
	}
	if runner.Check(ctx, "brew", "--version") {
		return false, nil
	}
	slog.Info("installing homebrew")
	script := fmt.Sprintf(`NONINTERACTIVE=1 /bin/bash -c "$(curl -fsSL %s)"`, HomebrewInstallURL)
	if _, err := runner.Run(ctx, "/bin/bash", "-c", script); err != nil {
		return false, fmt.Errorf("failed to install homebrew: %w", err)
	}
	return true, nil
}
