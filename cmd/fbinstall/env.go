package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/terassyi/fbinstall/internal/config"
	"github.com/terassyi/fbinstall/internal/converge"
	"github.com/terassyi/fbinstall/internal/installer/bootstrap"
	"github.com/terassyi/fbinstall/internal/installer/command"
	"github.com/terassyi/fbinstall/internal/installer/download"
	"github.com/terassyi/fbinstall/internal/installer/extract"
	"github.com/terassyi/fbinstall/internal/installer/fsys"
	"github.com/terassyi/fbinstall/internal/installer/pin"
	"github.com/terassyi/fbinstall/internal/installer/pkgmgr"
	"github.com/terassyi/fbinstall/internal/installer/repo"
	"github.com/terassyi/fbinstall/internal/installer/script"
	"github.com/terassyi/fbinstall/internal/installer/service"
	"github.com/terassyi/fbinstall/internal/plan"
	"github.com/terassyi/fbinstall/internal/platform"
	"github.com/terassyi/fbinstall/internal/registry"
	"github.com/terassyi/fbinstall/internal/resource"
)

// defaultResourceName names the resource used when no manifest is given.
const defaultResourceName = "default"

// environment is what every command needs before it can plan.
type environment struct {
	cfg       *config.Config
	info      platform.Info
	services  *registry.Services
	planner   *plan.Planner
	resources []*resource.FilebeatInstall
}

// loadEnvironment reads the tool configuration, the manifests in paths and
// the host platform, applying command-line overrides to each.
func loadEnvironment(ctx context.Context, paths []string) (*environment, error) {
	cfg, err := config.LoadConfig(getConfigDir())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	resources, err := loadResources(paths)
	if err != nil {
		return nil, err
	}

	info, err := platform.NewDetector().Detect(ctx)
	if err != nil {
		if platformName == "" || platformFamily == "" {
			return nil, err
		}
		slog.Warn("platform detection failed, using overrides", "error", err)
	}
	info = platform.Override(info, platformName, platformFamily, platformVersion)
	slog.Debug("platform resolved", "platform", info.String())

	services := registry.NewServices()
	return &environment{
		cfg:       cfg,
		info:      info,
		services:  services,
		planner:   plan.NewPlanner(services, cfg.CacheDir),
		resources: resources,
	}, nil
}

func loadResources(paths []string) ([]*resource.FilebeatInstall, error) {
	var resources []*resource.FilebeatInstall
	if len(paths) == 0 {
		resources = []*resource.FilebeatInstall{resource.NewFilebeatInstall(defaultResourceName)}
	} else {
		loaded, err := config.NewLoader(nil).LoadPaths(paths)
		if err != nil {
			return nil, err
		}
		resources = loaded
	}

	for _, res := range resources {
		spec := res.Spec()
		if filebeatVersion != "" {
			spec.Version = filebeatVersion
		}
		if serviceName != "" {
			spec.ServiceName = serviceName
		}
		if err := spec.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", res.Ref(), err)
		}
	}
	return resources, nil
}

// newProviders wires the host collaborators the executor drives.
func newProviders(info platform.Info) converge.Providers {
	runner := command.NewExecutor("")
	files := fsys.New("")
	downloader := download.NewDownloader()

	packages := make(map[string]converge.PackageManager)
	for _, name := range []string{pkgmgr.Apt, pkgmgr.Yum, pkgmgr.Dnf, pkgmgr.Brew} {
		m, err := pkgmgr.New(name, runner)
		if err != nil {
			slog.Warn("package manager unavailable", "manager", name, "error", err)
			continue
		}
		packages[name] = m
	}

	return converge.Providers{
		Packages:              packages,
		DefaultPackageManager: defaultPackageManager(info),
		Repositories:          repo.New(files, downloader, runner),
		Pinner:                pin.New(files),
		Services:              service.ForHost(runner),
		Files:                 files,
		Fetcher:               download.NewFetcher(downloader),
		Extractor:             extract.New(),
		Scripts:               script.New(nil),
		Bootstrap:             bootstrap.New(runner),
	}
}

// defaultPackageManager returns the manager for actions that do not name one.
func defaultPackageManager(info platform.Info) string {
	switch {
	case info.IsFamily(platform.FamilyDebian):
		return pkgmgr.Apt
	case info.IsFamily(platform.FamilyFedora):
		return pkgmgr.Dnf
	case info.IsFamily(platform.FamilyRHEL, platform.FamilyAmazon, platform.FamilyXCP):
		return pkgmgr.Yum
	case info.IsFamily(platform.FamilyMacOS):
		return pkgmgr.Brew
	default:
		return ""
	}
}
