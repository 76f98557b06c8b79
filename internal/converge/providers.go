package converge

import (
	"context"

	"github.com/terassyi/fbinstall/internal/plan"
)

// Every provider operation converges one piece of host state and reports
// whether it changed anything.

// PackageManager installs and removes packages.
type PackageManager interface {
	Install(ctx context.Context, p *plan.PackageParams) (bool, error)
	Remove(ctx context.Context, p *plan.PackageParams) (bool, error)
}

// RepositoryRegistrar registers the Elastic package repository.
type RepositoryRegistrar interface {
	Register(ctx context.Context, p *plan.RepositoryParams) (bool, error)
	Unregister(ctx context.Context, p *plan.RepositoryParams) (bool, error)
}

// VersionPinner pins packages to a version.
type VersionPinner interface {
	Pin(ctx context.Context, p *plan.VersionLockParams) (bool, error)
	Unpin(ctx context.Context, p *plan.VersionLockParams) (bool, error)
}

// ServiceManager drives an OS service.
type ServiceManager interface {
	Start(ctx context.Context, name string) (bool, error)
	Stop(ctx context.Context, name string) (bool, error)
	Enable(ctx context.Context, name string) (bool, error)
	Disable(ctx context.Context, name string) (bool, error)
	Restart(ctx context.Context, name string) (bool, error)
}

// Filesystem manages directories and files.
type Filesystem interface {
	Exists(ctx context.Context, path string) (bool, error)
	CreateDirectory(ctx context.Context, p *plan.DirectoryParams) (bool, error)
	DeleteDirectory(ctx context.Context, p *plan.DirectoryParams) (bool, error)
	WriteFile(ctx context.Context, p *plan.FileParams) (bool, error)
	DeleteFile(ctx context.Context, path string) (bool, error)
}

// ProgressFunc receives download progress. total is -1 when unknown.
type ProgressFunc func(downloaded, total int64)

// Fetcher downloads remote files.
type Fetcher interface {
	Fetch(ctx context.Context, p *plan.RemoteFileParams, progress ProgressFunc) (bool, error)
}

// Extractor unpacks archives.
type Extractor interface {
	Extract(ctx context.Context, p *plan.ArchiveParams) (bool, error)
}

// ScriptRunner runs install scripts.
type ScriptRunner interface {
	Run(ctx context.Context, p *plan.ScriptParams) (bool, error)
}

// Bootstrapper makes a prerequisite tool available.
type Bootstrapper interface {
	Ensure(ctx context.Context, p *plan.BootstrapParams) (bool, error)
}

// Providers are the collaborators an Executor drives. Nil providers fail
// the actions that need them.
type Providers struct {
	// Packages maps manager names (apt, yum, dnf, brew) to managers.
	Packages map[string]PackageManager

	// DefaultPackageManager serves package actions without a usable manager.
	DefaultPackageManager string

	Repositories RepositoryRegistrar
	Pinner       VersionPinner
	Services     ServiceManager
	Files        Filesystem
	Fetcher      Fetcher
	Extractor    Extractor
	Scripts      ScriptRunner
	Bootstrap    Bootstrapper
}
