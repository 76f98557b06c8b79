package resource

import (
	"fmt"
	"maps"
	"net/url"
	"slices"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	fbErrors "github.com/terassyi/fbinstall/internal/errors"
)

// Default desired-state values.
const (
	DefaultVersion           = "7.6.2"
	DefaultRelease           = "1"
	DefaultServiceName       = "filebeat"
	DefaultWindowsPackageURL = "auto"
	DefaultWindowsBaseDir    = "C:/opt/filebeat"

	// AutoValue asks for a derived value (package URL, checksum URL).
	AutoValue = "auto"
)

// DefaultAptOptions returns the apt options used when none are configured.
func DefaultAptOptions() map[string]any {
	return map[string]any{
		"Dpkg::Options::": "--force-confnew",
		"--force-yes":     true,
	}
}

// FilebeatSpec is the desired state of a Filebeat installation.
type FilebeatSpec struct {
	// Version is the Filebeat release to install (e.g., "7.6.2").
	Version string `json:"version" yaml:"version"`

	// Release is the package release suffix on platforms that separate it.
	Release string `json:"release" yaml:"release"`

	// SetupRepo registers the Elastic package repository.
	SetupRepo bool `json:"setupRepo" yaml:"setupRepo"`

	// IgnorePackageVersion installs whatever the repository offers
	// instead of pinning Version.
	IgnorePackageVersion bool `json:"ignorePackageVersion" yaml:"ignorePackageVersion"`

	// ServiceName is the OS service unit to manage.
	ServiceName string `json:"serviceName" yaml:"serviceName"`

	// NotifyRestart restarts the service after a package change.
	NotifyRestart bool `json:"notifyRestart" yaml:"notifyRestart"`

	// DisableService suppresses the restart notification.
	DisableService bool `json:"disableService" yaml:"disableService"`

	// DeleteProspectorsDir purges the prospectors directory before recreating it.
	DeleteProspectorsDir bool `json:"deleteProspectorsDir" yaml:"deleteProspectorsDir"`

	// ConfDir, ProspectorsDir and LogDir default from the platform when empty.
	ConfDir        string `json:"confDir,omitempty" yaml:"confDir,omitempty"`
	ProspectorsDir string `json:"prospectorsDir,omitempty" yaml:"prospectorsDir,omitempty"`
	LogDir         string `json:"logDir,omitempty" yaml:"logDir,omitempty"`

	// WindowsPackageURL is the zip to install on Windows, or "auto".
	WindowsPackageURL string `json:"windowsPackageUrl" yaml:"windowsPackageUrl"`

	// WindowsPackageChecksum verifies the Windows zip: empty skips
	// verification, "auto" fetches "<url>.sha512", otherwise "algorithm:hex".
	WindowsPackageChecksum string `json:"windowsPackageChecksum,omitempty" yaml:"windowsPackageChecksum,omitempty"`

	// WindowsBaseDir is the install root on Windows.
	WindowsBaseDir string `json:"windowsBaseDir" yaml:"windowsBaseDir"`

	// AptOptions are extra apt-get options. Nil uses DefaultAptOptions.
	AptOptions map[string]any `json:"aptOptions,omitempty" yaml:"aptOptions,omitempty"`

	// ElasticRepoOptions override repository registration; see RepoOptions.
	ElasticRepoOptions map[string]any `json:"elasticRepoOptions,omitempty" yaml:"elasticRepoOptions,omitempty"`
}

// DefaultFilebeatSpec returns a spec populated with defaults.
// Manifests are decoded on top of it so absent fields keep their default.
func DefaultFilebeatSpec() *FilebeatSpec {
	return &FilebeatSpec{
		Version:           DefaultVersion,
		Release:           DefaultRelease,
		SetupRepo:         true,
		ServiceName:       DefaultServiceName,
		NotifyRestart:     true,
		WindowsPackageURL: DefaultWindowsPackageURL,
		WindowsBaseDir:    DefaultWindowsBaseDir,
	}
}

// Validate validates the FilebeatSpec.
func (s *FilebeatSpec) Validate() error {
	const res = "filebeat"

	if s.Version == "" {
		return fbErrors.NewValidationError(res, "version", "a semantic version", "empty")
	}
	if _, err := semver.NewVersion(s.Version); err != nil {
		return fbErrors.NewValidationError(res, "version", "a semantic version", s.Version)
	}
	if s.Release == "" {
		return fbErrors.NewValidationError(res, "release", "a package release", "empty")
	}
	if s.ServiceName == "" {
		return fbErrors.NewValidationError(res, "serviceName", "a service name", "empty")
	}
	if s.WindowsPackageURL != AutoValue {
		u, err := url.Parse(s.WindowsPackageURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fbErrors.NewValidationError(res, "windowsPackageUrl", `"auto" or an http(s) URL`, s.WindowsPackageURL)
		}
	}
	if s.WindowsBaseDir == "" {
		return fbErrors.NewValidationError(res, "windowsBaseDir", "a directory", "empty")
	}
	if _, err := ParseRepoOptions(s.Version, s.ElasticRepoOptions); err != nil {
		return err
	}
	if _, err := AptArgs(s.EffectiveAptOptions()); err != nil {
		return err
	}
	return nil
}

// Clone returns a deep copy so resolution never mutates caller input.
func (s *FilebeatSpec) Clone() *FilebeatSpec {
	c := *s
	if s.AptOptions != nil {
		c.AptOptions = cloneMap(s.AptOptions)
	}
	if s.ElasticRepoOptions != nil {
		c.ElasticRepoOptions = cloneMap(s.ElasticRepoOptions)
	}
	return &c
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

// cloneValue copies maps and slices decoded from manifests; other values
// are immutable.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return slices.Clone(t)
	default:
		return v
	}
}

// EffectiveAptOptions returns AptOptions, or the defaults when unset.
func (s *FilebeatSpec) EffectiveAptOptions() map[string]any {
	if s.AptOptions == nil {
		return DefaultAptOptions()
	}
	return s.AptOptions
}

// RestartOnChange reports whether package changes restart the service.
func (s *FilebeatSpec) RestartOnChange() bool {
	return s.NotifyRestart && !s.DisableService
}

// AptArgs renders apt options into apt-get arguments, sorted by key.
// Keys starting with "-" are flags: true emits the flag, a string emits
// "flag=value". Other keys are configuration items emitted as "-o key=value",
// once per element for lists. Nil and false values are omitted.
func AptArgs(opts map[string]any) ([]string, error) {
	keys := slices.Collect(maps.Keys(opts))
	sort.Strings(keys)

	var args []string
	for _, key := range keys {
		value := opts[key]
		if value == nil {
			continue
		}
		isFlag := strings.HasPrefix(key, "-")

		switch v := value.(type) {
		case bool:
			if !v {
				continue
			}
			if !isFlag {
				return nil, fbErrors.NewValidationError("filebeat", "aptOptions."+key, "a string value", "true")
			}
			args = append(args, key)
		case string:
			if isFlag {
				args = append(args, key+"="+v)
			} else {
				args = append(args, "-o", key+"="+v)
			}
		case []any:
			for _, elem := range v {
				s, ok := elem.(string)
				if !ok {
					return nil, fbErrors.NewValidationError("filebeat", "aptOptions."+key, "a list of strings", fmt.Sprintf("%T", elem))
				}
				if isFlag {
					args = append(args, key+"="+s)
				} else {
					args = append(args, "-o", key+"="+s)
				}
			}
		case []string:
			for _, s := range v {
				if isFlag {
					args = append(args, key+"="+s)
				} else {
					args = append(args, "-o", key+"="+s)
				}
			}
		default:
			return nil, fbErrors.NewValidationError("filebeat", "aptOptions."+key, "a string, bool or list", fmt.Sprintf("%T", value))
		}
	}
	return args, nil
}

// FilebeatInstall is a concrete resource type for a Filebeat installation.
type FilebeatInstall struct {
	BaseResource
	FilebeatSpec *FilebeatSpec `json:"spec" yaml:"spec"`
}

// Kind returns the resource kind (can be called on nil).
func (*FilebeatInstall) Kind() Kind { return KindFilebeatInstall }

// Spec returns the desired state.
func (f *FilebeatInstall) Spec() *FilebeatSpec { return f.FilebeatSpec }

// NewFilebeatInstall creates a resource with the given name and default spec.
func NewFilebeatInstall(name string) *FilebeatInstall {
	return &FilebeatInstall{
		BaseResource: BaseResource{
			APIVersion:   GroupVersion,
			ResourceKind: KindFilebeatInstall,
			Metadata:     Metadata{Name: name},
		},
		FilebeatSpec: DefaultFilebeatSpec(),
	}
}
