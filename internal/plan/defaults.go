package plan

import (
	"fmt"
	"path"

	"github.com/Masterminds/semver/v3"

	"github.com/terassyi/fbinstall/internal/platform"
	"github.com/terassyi/fbinstall/internal/resource"
)

// Well-known locations.
const (
	UnixConfDir   = "/etc/filebeat"
	UnixLogDir    = "/var/log/filebeat"
	LaunchdPlist  = "/Library/LaunchDaemons/co.elastic.filebeat.plist"
	PackageName   = "filebeat"
	LockPlugin    = "yum-plugin-versionlock"
	InstallScript = "install-service-filebeat.ps1"

	// PinPriority is the apt pin priority for the requested version.
	PinPriority = 700

	windowsDownloadBase = "https://artifacts.elastic.co/downloads/beats/filebeat"
)

// x86_64 archives were introduced with 5.0.0.
var archSuffixSince = semver.MustParse("5.0.0")

// windowsStem returns the archive stem, which is also the directory the
// archive unpacks into.
func windowsStem(version string) string {
	stem := "filebeat-" + version + "-windows"
	v, err := semver.NewVersion(version)
	if err != nil || !v.LessThan(archSuffixSince) {
		stem += "-x86_64"
	}
	return stem
}

// DefaultConfDir returns the configuration directory for a platform.
func DefaultConfDir(info platform.Info, version, windowsBaseDir string) string {
	if info.IsFamily(platform.FamilyWindows) {
		return path.Join(windowsBaseDir, windowsStem(version))
	}
	return UnixConfDir
}

// DefaultProspectorsDir returns the prospectors directory under confDir.
func DefaultProspectorsDir(confDir string) string {
	return path.Join(confDir, "conf.d")
}

// DefaultLogDir returns the log directory for a platform.
func DefaultLogDir(info platform.Info, confDir string) string {
	if info.IsFamily(platform.FamilyWindows) {
		return path.Join(confDir, "logs")
	}
	return UnixLogDir
}

// ResolvePaths fills unset directories. confDir is resolved first and the
// other two derive from it.
func ResolvePaths(spec *resource.FilebeatSpec, info platform.Info) {
	if spec.ConfDir == "" {
		spec.ConfDir = DefaultConfDir(info, spec.Version, spec.WindowsBaseDir)
	}
	if spec.ProspectorsDir == "" {
		spec.ProspectorsDir = DefaultProspectorsDir(spec.ConfDir)
	}
	if spec.LogDir == "" {
		spec.LogDir = DefaultLogDir(info, spec.ConfDir)
	}
}

// VersionString returns "version-release" where packages separate the
// release, otherwise version.
func VersionString(info platform.Info, version, release string) string {
	if info.SeparatesRelease() {
		return version + "-" + release
	}
	return version
}

// WindowsPackageURL returns override, or the download URL for version
// when override is "auto".
func WindowsPackageURL(version, override string) string {
	if override != "" && override != resource.AutoValue {
		return override
	}
	return fmt.Sprintf("%s/%s.zip", windowsDownloadBase, windowsStem(version))
}

// packageManager returns the manager for a package-family platform.
func packageManager(info platform.Info) string {
	switch info.Family {
	case platform.FamilyDebian:
		return "apt"
	case platform.FamilyFedora:
		return "dnf"
	default:
		return "yum"
	}
}

// repositoryManager returns the repository format for a platform.
func repositoryManager(info platform.Info) string {
	if info.IsFamily(platform.FamilyDebian) {
		return "apt"
	}
	return "yum"
}
