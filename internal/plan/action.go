package plan

import (
	"fmt"
	"io/fs"
	"slices"
	"strings"

	"github.com/terassyi/fbinstall/internal/resource"
)

// Kind is the kind of convergence action.
type Kind string

const (
	KindPackage     Kind = "package"
	KindRepository  Kind = "repository"
	KindVersionLock Kind = "version_lock"
	KindService     Kind = "service"
	KindDirectory   Kind = "directory"
	KindFile        Kind = "file"
	KindRemoteFile  Kind = "remote_file"
	KindArchive     Kind = "archive"
	KindScript      Kind = "script"
	KindBootstrap   Kind = "bootstrap"
)

// Operation is a single step an action performs.
type Operation string

const (
	OpNothing Operation = "nothing"
	OpCreate  Operation = "create"
	OpDelete  Operation = "delete"
	OpInstall Operation = "install"
	OpRemove  Operation = "remove"
	OpUpdate  Operation = "update"
	OpFetch   Operation = "fetch"
	OpExtract Operation = "extract"
	OpRun     Operation = "run"
	OpStart   Operation = "start"
	OpStop    Operation = "stop"
	OpEnable  Operation = "enable"
	OpDisable Operation = "disable"
	OpRestart Operation = "restart"
)

// allowedOps lists the operations each kind understands.
var allowedOps = map[Kind][]Operation{
	KindPackage:     {OpNothing, OpInstall, OpRemove},
	KindRepository:  {OpNothing, OpCreate, OpDelete},
	KindVersionLock: {OpNothing, OpUpdate, OpDelete},
	KindService:     {OpNothing, OpStart, OpStop, OpEnable, OpDisable, OpRestart},
	KindDirectory:   {OpNothing, OpCreate, OpDelete},
	KindFile:        {OpNothing, OpCreate, OpDelete},
	KindRemoteFile:  {OpNothing, OpFetch},
	KindArchive:     {OpNothing, OpExtract},
	KindScript:      {OpNothing, OpRun},
	KindBootstrap:   {OpNothing, OpInstall},
}

// Supports reports whether kind k understands op.
func (k Kind) Supports(op Operation) bool {
	return slices.Contains(allowedOps[k], op)
}

// Timing is when a notification fires.
type Timing string

const (
	// TimingImmediate runs the target right after the notifying action.
	TimingImmediate Timing = "immediate"
	// TimingDelayed queues the target until the end of the run.
	TimingDelayed Timing = "delayed"
)

// Notification triggers an operation on another action when the
// notifying action changed something.
type Notification struct {
	Target    string    `json:"target" yaml:"target"`
	Operation Operation `json:"operation" yaml:"operation"`
	Timing    Timing    `json:"timing" yaml:"timing"`
}

// Guard skips an action when its condition holds.
type Guard struct {
	// SkipIfExists skips the action when the path exists.
	SkipIfExists string `json:"skipIfExists" yaml:"skipIfExists"`
}

// PackageParams describes a package operation.
type PackageParams struct {
	Name string `json:"name" yaml:"name"`

	// Version is the exact version to install; empty accepts any.
	Version string `json:"version,omitempty" yaml:"version,omitempty"`

	// Manager names the package manager (apt, yum, dnf, brew).
	// Empty uses the host default.
	Manager string `json:"manager,omitempty" yaml:"manager,omitempty"`

	// Options are extra manager arguments.
	Options []string `json:"options,omitempty" yaml:"options,omitempty"`

	FlushCache     bool `json:"flushCache,omitempty" yaml:"flushCache,omitempty"`
	AllowDowngrade bool `json:"allowDowngrade,omitempty" yaml:"allowDowngrade,omitempty"`

	// Primitive drives Manager directly instead of the host default
	// package abstraction.
	Primitive bool `json:"primitive,omitempty" yaml:"primitive,omitempty"`
}

// RepositoryParams describes an Elastic repository registration.
type RepositoryParams struct {
	Manager string               `json:"manager" yaml:"manager"`
	Options resource.RepoOptions `json:"options" yaml:"options"`
}

// VersionLockParams pins a package.
type VersionLockParams struct {
	Package string `json:"package" yaml:"package"`
	Manager string `json:"manager" yaml:"manager"`
	Version string `json:"version" yaml:"version"`

	// Release is appended for yum-style locks.
	Release string `json:"release,omitempty" yaml:"release,omitempty"`

	// Priority is the apt pin priority.
	Priority int `json:"priority,omitempty" yaml:"priority,omitempty"`
}

// DirectoryParams describes a directory.
type DirectoryParams struct {
	Path      string      `json:"path" yaml:"path"`
	Mode      fs.FileMode `json:"mode,omitempty" yaml:"mode,omitempty"`
	Owner     string      `json:"owner,omitempty" yaml:"owner,omitempty"`
	Group     string      `json:"group,omitempty" yaml:"group,omitempty"`
	Recursive bool        `json:"recursive,omitempty" yaml:"recursive,omitempty"`
}

// FileParams describes a file with fixed content.
type FileParams struct {
	Path    string      `json:"path" yaml:"path"`
	Content []byte      `json:"-" yaml:"-"`
	Mode    fs.FileMode `json:"mode,omitempty" yaml:"mode,omitempty"`
	Owner   string      `json:"owner,omitempty" yaml:"owner,omitempty"`
	Group   string      `json:"group,omitempty" yaml:"group,omitempty"`
}

// RemoteFileParams describes a download.
type RemoteFileParams struct {
	URL  string `json:"url" yaml:"url"`
	Path string `json:"path" yaml:"path"`

	// Checksum is "algorithm:hex"; empty skips verification.
	Checksum string `json:"checksum,omitempty" yaml:"checksum,omitempty"`

	// ChecksumURL points at a checksum file verified against the download.
	ChecksumURL string `json:"checksumUrl,omitempty" yaml:"checksumUrl,omitempty"`
}

// ArchiveParams describes an archive extraction.
type ArchiveParams struct {
	Source      string `json:"source" yaml:"source"`
	Destination string `json:"destination" yaml:"destination"`
}

// ScriptParams describes a script run.
type ScriptParams struct {
	Path string `json:"path" yaml:"path"`
	Dir  string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

// BootstrapParams names a tool that must be present before others run.
type BootstrapParams struct {
	Tool string `json:"tool" yaml:"tool"`
}

// Action is one idempotent convergence step.
type Action struct {
	ID         string      `json:"id" yaml:"id"`
	Kind       Kind        `json:"kind" yaml:"kind"`
	Name       string      `json:"name" yaml:"name"`
	Operations []Operation `json:"operations" yaml:"operations"`

	// Deferred actions run only when notified.
	Deferred bool `json:"deferred,omitempty" yaml:"deferred,omitempty"`

	Guard         *Guard         `json:"guard,omitempty" yaml:"guard,omitempty"`
	Notifications []Notification `json:"notifications,omitempty" yaml:"notifications,omitempty"`

	Package     *PackageParams     `json:"package,omitempty" yaml:"package,omitempty"`
	Repository  *RepositoryParams  `json:"repository,omitempty" yaml:"repository,omitempty"`
	VersionLock *VersionLockParams `json:"versionLock,omitempty" yaml:"versionLock,omitempty"`
	Directory   *DirectoryParams   `json:"directory,omitempty" yaml:"directory,omitempty"`
	File        *FileParams        `json:"file,omitempty" yaml:"file,omitempty"`
	RemoteFile  *RemoteFileParams  `json:"remoteFile,omitempty" yaml:"remoteFile,omitempty"`
	Archive     *ArchiveParams     `json:"archive,omitempty" yaml:"archive,omitempty"`
	Script      *ScriptParams      `json:"script,omitempty" yaml:"script,omitempty"`
	Bootstrap   *BootstrapParams   `json:"bootstrap,omitempty" yaml:"bootstrap,omitempty"`
}

// ActionID returns the identifier "kind[name]".
func ActionID(kind Kind, name string) string {
	return fmt.Sprintf("%s[%s]", kind, name)
}

// ParseActionID splits "kind[name]".
func ParseActionID(id string) (Kind, string, bool) {
	kind, rest, ok := strings.Cut(id, "[")
	if !ok || !strings.HasSuffix(rest, "]") || kind == "" {
		return "", "", false
	}
	return Kind(kind), strings.TrimSuffix(rest, "]"), true
}

func newAction(kind Kind, name string, ops ...Operation) *Action {
	return &Action{
		ID:         ActionID(kind, name),
		Kind:       kind,
		Name:       name,
		Operations: ops,
	}
}

// Notify appends a notification and returns the action.
func (a *Action) Notify(target string, op Operation, timing Timing) *Action {
	a.Notifications = append(a.Notifications, Notification{Target: target, Operation: op, Timing: timing})
	return a
}

// Summary returns a short human-readable description of the action.
func (a *Action) Summary() string {
	switch {
	case a.Package != nil:
		s := a.Package.Name
		if a.Package.Version != "" {
			s += " " + a.Package.Version
		}
		if a.Package.Manager != "" {
			s += " via " + a.Package.Manager
		}
		return s
	case a.Repository != nil:
		return fmt.Sprintf("elastic %s repository for %s", a.Repository.Manager, a.Repository.Options.Version)
	case a.VersionLock != nil:
		if a.VersionLock.Release != "" {
			return fmt.Sprintf("%s pinned to %s-%s", a.VersionLock.Package, a.VersionLock.Version, a.VersionLock.Release)
		}
		return fmt.Sprintf("%s pinned to %s (priority %d)", a.VersionLock.Package, a.VersionLock.Version, a.VersionLock.Priority)
	case a.Directory != nil:
		return a.Directory.Path
	case a.File != nil:
		return a.File.Path
	case a.RemoteFile != nil:
		return a.RemoteFile.URL + " -> " + a.RemoteFile.Path
	case a.Archive != nil:
		return a.Archive.Source + " -> " + a.Archive.Destination
	case a.Script != nil:
		return a.Script.Path
	case a.Bootstrap != nil:
		return a.Bootstrap.Tool
	}
	return a.Name
}

func (a *Action) validate() error {
	if len(a.Operations) == 0 {
		return fmt.Errorf("action %s has no operations", a.ID)
	}
	for _, op := range a.Operations {
		if !a.Kind.Supports(op) {
			return fmt.Errorf("action %s does not support %s", a.ID, op)
		}
	}
	for _, n := range a.Notifications {
		kind, _, ok := ParseActionID(n.Target)
		if !ok {
			return fmt.Errorf("action %s notifies malformed target %q", a.ID, n.Target)
		}
		if !kind.Supports(n.Operation) {
			return fmt.Errorf("action %s notifies %s with unsupported %s", a.ID, n.Target, n.Operation)
		}
	}
	return nil
}
