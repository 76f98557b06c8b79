package pkgmgr

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/terassyi/fbinstall/internal/installer/command"
)

// ErrBrewAsRoot is returned when fbinstall runs as root and no other
// account can own the Homebrew commands.
var ErrBrewAsRoot = errors.New("homebrew refuses to run as root and no owning account was found")

// BrewUser resolves the account Homebrew commands run as. Homebrew does
// not run as root, so a root process acts as the owner of the Homebrew
// prefix, or the invoking sudo user before Homebrew is installed.
type BrewUser struct {
	runner command.Runner
	euid   func() int
	owner  func(path string) (string, error)
	getenv func(string) string
}

// BrewUserOption overrides how a BrewUser inspects the process and host.
type BrewUserOption func(*BrewUser)

// WithEUID sets the effective user id in place of the process one.
func WithEUID(euid int) BrewUserOption {
	return func(u *BrewUser) { u.euid = func() int { return euid } }
}

// WithPrefixOwner sets how the owner of the Homebrew prefix is found.
func WithPrefixOwner(owner func(path string) (string, error)) BrewUserOption {
	return func(u *BrewUser) { u.owner = owner }
}

// WithSudoUser sets SUDO_USER in place of the environment one.
func WithSudoUser(name string) BrewUserOption {
	return func(u *BrewUser) {
		u.getenv = func(key string) string {
			if key == "SUDO_USER" {
				return name
			}
			return ""
		}
	}
}

// NewBrewUser returns a BrewUser for the current process.
func NewBrewUser(runner command.Runner, opts ...BrewUserOption) *BrewUser {
	u := &BrewUser{runner: runner, euid: os.Geteuid, owner: fileOwner, getenv: os.Getenv}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Lookup returns the account to run brew as; "" means the current one.
func (u *BrewUser) Lookup(ctx context.Context) (string, error) {
	if u.euid() != 0 {
		return "", nil
	}
	if prefix, err := u.runner.Run(ctx, "brew", "--prefix"); err == nil && prefix != "" {
		name, err := u.owner(prefix)
		if err != nil {
			return "", fmt.Errorf("failed to find the owner of %s: %w", prefix, err)
		}
		if name != "root" {
			return name, nil
		}
	}
	if name := u.getenv("SUDO_USER"); name != "" && name != "root" {
		return name, nil
	}
	return "", ErrBrewAsRoot
}

// Runner returns runner wrapped to run as the resolved account.
func (u *BrewUser) Runner(ctx context.Context) (command.Runner, error) {
	name, err := u.Lookup(ctx)
	if err != nil {
		return nil, err
	}
	return command.AsUser(u.runner, name), nil
}
