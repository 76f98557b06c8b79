// Package repo registers the Elastic package repository with apt or yum.
package repo

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"text/template"

	"github.com/Masterminds/semver/v3"

	"github.com/terassyi/fbinstall/internal/installer/command"
	"github.com/terassyi/fbinstall/internal/installer/fsys"
	"github.com/terassyi/fbinstall/internal/plan"
	"github.com/terassyi/fbinstall/internal/resource"
)

const (
	DefaultKeyURL       = "https://artifacts.elastic.co/GPG-KEY-elasticsearch"
	defaultArtifactBase = "https://artifacts.elastic.co/packages"

	aptSourcesDir = "/etc/apt/sources.list.d"
	aptKeyringDir = "/usr/share/keyrings"
	yumReposDir   = "/etc/yum.repos.d"
)

// KeySource fetches signing keys.
type KeySource interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Registrar writes repository definitions for the host package manager.
type Registrar struct {
	files  *fsys.FS
	keys   KeySource
	runner command.Runner
}

// New returns a Registrar.
func New(files *fsys.FS, keys KeySource, runner command.Runner) *Registrar {
	return &Registrar{files: files, keys: keys, runner: runner}
}

// Channel returns the repository channel for opts, e.g. "7.x",
// "oss-7.x" or "7.x-prerelease".
func Channel(opts resource.RepoOptions) (string, error) {
	v, err := semver.NewVersion(opts.Version)
	if err != nil {
		return "", fmt.Errorf("invalid repository version %q: %w", opts.Version, err)
	}
	channel := fmt.Sprintf("%d.x", v.Major())
	if opts.EnableOSS {
		channel = "oss-" + channel
	}
	if opts.Prerelease {
		channel += "-prerelease"
	}
	return channel, nil
}

// Register writes the repository definition. Apt hosts refresh their
// package index when anything changed.
func (r *Registrar) Register(ctx context.Context, p *plan.RepositoryParams) (bool, error) {
	channel, err := Channel(p.Options)
	if err != nil {
		return false, err
	}
	switch p.Manager {
	case "apt":
		return r.registerApt(ctx, channel, p.Options)
	case "yum", "dnf":
		return r.registerYum(channel, p.Options)
	default:
		return false, fmt.Errorf("unsupported repository manager: %s", p.Manager)
	}
}

// Unregister removes the repository definition written by Register.
func (r *Registrar) Unregister(ctx context.Context, p *plan.RepositoryParams) (bool, error) {
	channel, err := Channel(p.Options)
	if err != nil {
		return false, err
	}
	switch p.Manager {
	case "apt":
		listChanged, err := r.files.Remove(aptListPath(channel))
		if err != nil {
			return false, err
		}
		keyChanged, err := r.files.Remove(aptKeyringPath(channel))
		if err != nil {
			return false, err
		}
		if listChanged {
			if _, err := r.runner.Run(ctx, "apt-get", "update", "-q"); err != nil {
				return true, err
			}
		}
		return listChanged || keyChanged, nil
	case "yum", "dnf":
		return r.files.Remove(yumRepoPath(channel))
	default:
		return false, fmt.Errorf("unsupported repository manager: %s", p.Manager)
	}
}

func (r *Registrar) registerApt(ctx context.Context, channel string, opts resource.RepoOptions) (bool, error) {
	keyring := aptKeyringPath(channel)
	keyURL := opts.APTKey
	if keyURL == "" {
		keyURL = DefaultKeyURL
	}

	keyChanged := false
	if current, err := r.files.Read(keyring); err != nil {
		return false, err
	} else if len(current) == 0 {
		key, err := r.keys.Get(ctx, keyURL)
		if err != nil {
			return false, fmt.Errorf("failed to fetch signing key: %w", err)
		}
		if keyChanged, err = r.files.Write(keyring, key, 0o644); err != nil {
			return false, err
		}
	}

	listChanged, err := r.files.Write(aptListPath(channel), []byte(AptSource(channel, keyring, opts)), 0o644)
	if err != nil {
		return false, err
	}

	if listChanged || keyChanged {
		slog.Debug("apt repository changed, refreshing index", "channel", channel)
		if _, err := r.runner.Run(ctx, "apt-get", "update", "-q"); err != nil {
			return true, err
		}
		return true, nil
	}
	return false, nil
}

// AptSource renders the sources.list line for channel.
func AptSource(channel, keyring string, opts resource.RepoOptions) string {
	uri := opts.APTURI
	if uri == "" {
		uri = fmt.Sprintf("%s/%s/apt", defaultArtifactBase, channel)
	}
	dist := opts.APTDistribution
	if dist == "" {
		dist = "stable"
	}
	components := opts.APTComponents
	if len(components) == 0 {
		components = []string{"main"}
	}
	return fmt.Sprintf("deb [signed-by=%s] %s %s %s\n", keyring, uri, dist, strings.Join(components, " "))
}

var yumTemplate = template.Must(template.New("repo").Parse(`[elastic-{{.Channel}}]
name={{.Description}}
baseurl={{.BaseURL}}
gpgcheck={{if .GPGCheck}}1{{else}}0{{end}}
gpgkey={{.GPGKey}}
enabled=1
autorefresh=1
type=rpm-md
`))

func (r *Registrar) registerYum(channel string, opts resource.RepoOptions) (bool, error) {
	content, err := YumRepo(channel, opts)
	if err != nil {
		return false, err
	}
	return r.files.Write(yumRepoPath(channel), content, 0o644)
}

// YumRepo renders the .repo file for channel.
func YumRepo(channel string, opts resource.RepoOptions) ([]byte, error) {
	data := struct {
		Channel     string
		Description string
		BaseURL     string
		GPGCheck    bool
		GPGKey      string
	}{
		Channel:     channel,
		Description: opts.Description,
		BaseURL:     opts.YumBaseURL,
		GPGCheck:    opts.YumGPGCheck == nil || *opts.YumGPGCheck,
		GPGKey:      opts.YumGPGKey,
	}
	if data.Description == "" {
		data.Description = fmt.Sprintf("Elastic repository for %s packages", channel)
	}
	if data.BaseURL == "" {
		data.BaseURL = fmt.Sprintf("%s/%s/yum", defaultArtifactBase, channel)
	}
	if data.GPGKey == "" {
		data.GPGKey = DefaultKeyURL
	}

	var buf bytes.Buffer
	if err := yumTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render repository: %w", err)
	}
	return buf.Bytes(), nil
}

func aptListPath(channel string) string {
	return path.Join(aptSourcesDir, "elastic-"+channel+".list")
}

func aptKeyringPath(channel string) string {
	return path.Join(aptKeyringDir, "elastic-"+channel+".asc")
}

func yumRepoPath(channel string) string {
	return path.Join(yumReposDir, "elastic-"+channel+".repo")
}
