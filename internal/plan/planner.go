package plan

import (
	_ "embed"
	"log/slog"
	"path"

	fbErrors "github.com/terassyi/fbinstall/internal/errors"
	"github.com/terassyi/fbinstall/internal/platform"
	"github.com/terassyi/fbinstall/internal/registry"
	"github.com/terassyi/fbinstall/internal/resource"
)

//go:embed files/co.elastic.filebeat.plist
var launchdDescriptor []byte

// LaunchdDescriptor returns the launch daemon descriptor placed on macOS.
func LaunchdDescriptor() []byte {
	return append([]byte(nil), launchdDescriptor...)
}

// Planner builds plans. Service targets are declared in a shared registry
// so notifications resolve even when the service is managed elsewhere.
type Planner struct {
	services *registry.Services
	cacheDir string
}

// NewPlanner creates a Planner. cacheDir holds downloaded packages.
func NewPlanner(services *registry.Services, cacheDir string) *Planner {
	if services == nil {
		services = registry.NewServices()
	}
	return &Planner{services: services, cacheDir: cacheDir}
}

// Services returns the shared service registry.
func (p *Planner) Services() *registry.Services {
	return p.services
}

// Create plans the installation of desired on info.
func (p *Planner) Create(desired *resource.FilebeatSpec, info platform.Info) (*Plan, error) {
	if err := desired.Validate(); err != nil {
		return nil, err
	}
	spec := desired.Clone()
	ResolvePaths(spec, info)

	eff := platform.Resolve(info)
	pl := &Plan{
		Lifecycle:     LifecycleCreate,
		Platform:      eff,
		VersionString: VersionString(info, spec.Version, spec.Release),
		Desired:       spec,
	}

	p.services.Declare(spec.ServiceName, string(OpNothing))

	var (
		actions []*Action
		err     error
	)
	switch {
	case info.IsFamily(platform.FamilyMacOS):
		pl.Strategy = StrategyMacOS
		actions = p.macOS()
	case info.IsFamily(platform.FamilyWindows):
		pl.Strategy = StrategyWindows
		actions = p.windows(spec)
	case info.IsFamily(platform.FamilyDebian, platform.FamilyRHEL, platform.FamilyFedora, platform.FamilyAmazon):
		pl.Strategy = StrategyPackage
		actions, err = p.packages(spec, info, pl.VersionString)
	case eff.Legacy:
		pl.Strategy = StrategyLegacy
		actions, err = p.legacy(spec, eff, pl.VersionString)
	default:
		pl.Strategy = StrategyNone
		slog.Warn("unsupported platform, skipping package installation", "platform", info.String())
	}
	if err != nil {
		return nil, err
	}
	if err := pl.add(actions...); err != nil {
		return nil, err
	}

	logDir := newAction(KindDirectory, spec.LogDir, OpCreate)
	logDir.Directory = &DirectoryParams{Path: spec.LogDir, Mode: 0o755}

	prospectorOps := []Operation{OpCreate}
	if spec.DeleteProspectorsDir {
		prospectorOps = []Operation{OpDelete, OpCreate}
	}
	prospectors := newAction(KindDirectory, spec.ProspectorsDir, prospectorOps...)
	prospectors.Directory = &DirectoryParams{Path: spec.ProspectorsDir, Recursive: true}

	if err := pl.add(logDir, prospectors); err != nil {
		return nil, err
	}

	slog.Debug("planned create", "strategy", pl.Strategy, "actions", len(pl.Actions), "platform", info.String())
	return pl, nil
}

// Delete plans the removal of desired. It does not branch on platform.
func (p *Planner) Delete(desired *resource.FilebeatSpec) (*Plan, error) {
	if desired.ServiceName == "" {
		return nil, fbErrors.NewValidationError("filebeat", "serviceName", "a service name", "empty")
	}
	spec := desired.Clone()
	pl := &Plan{Lifecycle: LifecycleDelete, Desired: spec}

	p.services.Declare(spec.ServiceName, string(OpStop), string(OpDisable))

	svc := newAction(KindService, spec.ServiceName, OpStop, OpDisable)
	pkg := newAction(KindPackage, PackageName, OpRemove)
	pkg.Package = &PackageParams{Name: PackageName}
	conf := newAction(KindDirectory, UnixConfDir, OpDelete)
	conf.Directory = &DirectoryParams{Path: UnixConfDir, Recursive: true}
	logs := newAction(KindDirectory, UnixLogDir, OpDelete)
	logs.Directory = &DirectoryParams{Path: UnixLogDir, Recursive: true}

	if err := pl.add(svc, pkg, conf, logs); err != nil {
		return nil, err
	}
	slog.Debug("planned delete", "actions", len(pl.Actions))
	return pl, nil
}

func (p *Planner) macOS() []*Action {
	brew := newAction(KindBootstrap, "homebrew", OpInstall)
	brew.Bootstrap = &BootstrapParams{Tool: "homebrew"}

	etc := newAction(KindDirectory, UnixConfDir, OpCreate)
	etc.Directory = &DirectoryParams{Path: UnixConfDir, Mode: 0o755, Owner: "root", Group: "wheel"}

	// Placed before the package; brew starts the service on install.
	plist := newAction(KindFile, LaunchdPlist, OpCreate)
	plist.File = &FileParams{Path: LaunchdPlist, Content: LaunchdDescriptor(), Mode: 0o644}

	pkg := newAction(KindPackage, PackageName, OpInstall)
	pkg.Package = &PackageParams{Name: PackageName, Manager: "brew"}

	return []*Action{brew, etc, plist, pkg}
}

func (p *Planner) windows(spec *resource.FilebeatSpec) []*Action {
	url := WindowsPackageURL(spec.Version, spec.WindowsPackageURL)
	cached := path.Join(p.cacheDir, path.Base(url))
	script := path.Join(spec.ConfDir, InstallScript)

	fetch := newAction(KindRemoteFile, "filebeat_package_file", OpFetch)
	fetch.Guard = &Guard{SkipIfExists: cached}
	fetch.RemoteFile = &RemoteFileParams{URL: url, Path: cached}
	switch spec.WindowsPackageChecksum {
	case "":
	case resource.AutoValue:
		fetch.RemoteFile.ChecksumURL = url + ".sha512"
	default:
		fetch.RemoteFile.Checksum = spec.WindowsPackageChecksum
	}

	base := newAction(KindDirectory, spec.WindowsBaseDir, OpCreate)
	base.Directory = &DirectoryParams{Path: spec.WindowsBaseDir, Recursive: true}

	installService := newAction(KindScript, "install filebeat as service", OpNothing)
	installService.Deferred = true
	installService.Script = &ScriptParams{Path: script, Dir: spec.ConfDir}

	unzip := newAction(KindArchive, spec.WindowsBaseDir, OpExtract)
	unzip.Guard = &Guard{SkipIfExists: script}
	unzip.Archive = &ArchiveParams{Source: cached, Destination: spec.WindowsBaseDir}
	unzip.Notify(installService.ID, OpRun, TimingImmediate)

	return []*Action{fetch, base, unzip, installService}
}

func (p *Planner) packages(spec *resource.FilebeatSpec, info platform.Info, versionString string) ([]*Action, error) {
	var actions []*Action

	repo, err := repository(spec, info)
	if err != nil {
		return nil, err
	}
	if repo != nil {
		actions = append(actions, repo)
	}

	manager := packageManager(info)
	if info.IsFamily(platform.FamilyDebian) {
		if !spec.IgnorePackageVersion {
			pin := newAction(KindVersionLock, PackageName, OpUpdate)
			pin.VersionLock = &VersionLockParams{
				Package:  PackageName,
				Manager:  "apt",
				Version:  spec.Version,
				Priority: PinPriority,
			}
			actions = append(actions, pin)
		}
	} else {
		plugin := newAction(KindPackage, LockPlugin, OpInstall)
		plugin.Package = &PackageParams{Name: LockPlugin, Manager: manager}
		actions = append(actions, plugin)
		if !spec.IgnorePackageVersion {
			actions = append(actions, yumLock(spec, manager))
		}
	}

	pkg := newAction(KindPackage, PackageName, OpInstall)
	pkg.Package = &PackageParams{Name: PackageName, Manager: manager}
	if !spec.IgnorePackageVersion {
		pkg.Package.Version = versionString
	}
	if info.IsFamily(platform.FamilyDebian) {
		args, err := resource.AptArgs(spec.EffectiveAptOptions())
		if err != nil {
			return nil, err
		}
		pkg.Package.Options = args
	}
	if info.IsFamily(platform.FamilyRHEL, platform.FamilyAmazon) {
		pkg.Package.FlushCache = true
		pkg.Package.AllowDowngrade = true
	}
	notifyRestart(pkg, spec)

	return append(actions, pkg), nil
}

// legacy converges under the compatibility identity, driving yum directly.
func (p *Planner) legacy(spec *resource.FilebeatSpec, eff platform.Effective, versionString string) ([]*Action, error) {
	var actions []*Action

	repo, err := repository(spec, eff.Info)
	if err != nil {
		return nil, err
	}
	if repo != nil {
		actions = append(actions, repo)
	}

	plugin := newAction(KindPackage, LockPlugin, OpInstall)
	plugin.Package = &PackageParams{Name: LockPlugin, Manager: "yum", Primitive: true}
	actions = append(actions, plugin)

	if !spec.IgnorePackageVersion {
		actions = append(actions, yumLock(spec, "yum"))
	}

	pkg := newAction(KindPackage, PackageName, OpInstall)
	pkg.Package = &PackageParams{
		Name:           PackageName,
		Manager:        "yum",
		FlushCache:     true,
		AllowDowngrade: true,
		Primitive:      true,
	}
	if !spec.IgnorePackageVersion {
		pkg.Package.Version = versionString
	}
	notifyRestart(pkg, spec)

	return append(actions, pkg), nil
}

// repository returns nil when repository setup is disabled.
func repository(spec *resource.FilebeatSpec, info platform.Info) (*Action, error) {
	if !spec.SetupRepo {
		return nil, nil
	}
	opts, err := resource.ParseRepoOptions(spec.Version, spec.ElasticRepoOptions)
	if err != nil {
		return nil, err
	}
	repo := newAction(KindRepository, "default", OpCreate)
	repo.Repository = &RepositoryParams{Manager: repositoryManager(info), Options: opts}
	return repo, nil
}

func yumLock(spec *resource.FilebeatSpec, manager string) *Action {
	lock := newAction(KindVersionLock, PackageName, OpUpdate)
	lock.VersionLock = &VersionLockParams{
		Package: PackageName,
		Manager: manager,
		Version: spec.Version,
		Release: spec.Release,
	}
	return lock
}

func notifyRestart(pkg *Action, spec *resource.FilebeatSpec) {
	if spec.RestartOnChange() {
		pkg.Notify(ActionID(KindService, spec.ServiceName), OpRestart, TimingDelayed)
	}
}
