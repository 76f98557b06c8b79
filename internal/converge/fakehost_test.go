package converge

import (
	"context"
	"path"
	"strings"
	"sync"

	"github.com/terassyi/fbinstall/internal/plan"
)

// fakeHost is an in-memory host implementing every provider.
type fakeHost struct {
	mu sync.Mutex

	packages map[string]string // name -> version ("" for unversioned)
	repos    map[string]plan.RepositoryParams
	pins     map[string]string
	running  map[string]bool
	enabled  map[string]bool
	dirs     map[string]bool
	files    map[string]string

	calls []string
	fail  map[string]error // call -> error
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		packages: make(map[string]string),
		repos:    make(map[string]plan.RepositoryParams),
		pins:     make(map[string]string),
		running:  make(map[string]bool),
		enabled:  make(map[string]bool),
		dirs:     make(map[string]bool),
		files:    make(map[string]string),
		fail:     make(map[string]error),
	}
}

func (h *fakeHost) providers() Providers {
	return Providers{
		Packages:              map[string]PackageManager{"apt": h, "yum": h, "dnf": h, "brew": h},
		DefaultPackageManager: "apt",
		Repositories:          h,
		Pinner:                h,
		Services:              h,
		Files:                 h,
		Fetcher:               h,
		Extractor:             h,
		Scripts:               h,
		Bootstrap:             h,
	}
}

func (h *fakeHost) call(name string) error {
	h.calls = append(h.calls, name)
	return h.fail[name]
}

func (h *fakeHost) callsWithPrefix(prefix string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, c := range h.calls {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

func (h *fakeHost) Install(_ context.Context, p *plan.PackageParams) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.call("install " + p.Manager + " " + p.Name); err != nil {
		return false, err
	}
	if v, ok := h.packages[p.Name]; ok && (p.Version == "" || v == p.Version) {
		return false, nil
	}
	h.packages[p.Name] = p.Version
	return true, nil
}

func (h *fakeHost) Remove(_ context.Context, p *plan.PackageParams) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.call("remove " + p.Name); err != nil {
		return false, err
	}
	if _, ok := h.packages[p.Name]; !ok {
		return false, nil
	}
	delete(h.packages, p.Name)
	return true, nil
}

func (h *fakeHost) Register(_ context.Context, p *plan.RepositoryParams) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.call("repo " + p.Manager); err != nil {
		return false, err
	}
	if cur, ok := h.repos[p.Manager]; ok && cur.Options.Version == p.Options.Version {
		return false, nil
	}
	h.repos[p.Manager] = *p
	return true, nil
}

func (h *fakeHost) Unregister(_ context.Context, p *plan.RepositoryParams) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.repos[p.Manager]
	delete(h.repos, p.Manager)
	return ok, h.call("unrepo " + p.Manager)
}

func (h *fakeHost) Pin(_ context.Context, p *plan.VersionLockParams) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.call("pin " + p.Package); err != nil {
		return false, err
	}
	want := p.Version + "-" + p.Release
	if h.pins[p.Package] == want {
		return false, nil
	}
	h.pins[p.Package] = want
	return true, nil
}

func (h *fakeHost) Unpin(_ context.Context, p *plan.VersionLockParams) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.pins[p.Package]
	delete(h.pins, p.Package)
	return ok, h.call("unpin " + p.Package)
}

func (h *fakeHost) toggle(m map[string]bool, name string, want bool, call string) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.call(call + " " + name); err != nil {
		return false, err
	}
	if m[name] == want {
		return false, nil
	}
	m[name] = want
	return true, nil
}

func (h *fakeHost) Start(_ context.Context, name string) (bool, error) {
	return h.toggle(h.running, name, true, "start")
}

func (h *fakeHost) Stop(_ context.Context, name string) (bool, error) {
	return h.toggle(h.running, name, false, "stop")
}

func (h *fakeHost) Enable(_ context.Context, name string) (bool, error) {
	return h.toggle(h.enabled, name, true, "enable")
}

func (h *fakeHost) Disable(_ context.Context, name string) (bool, error) {
	return h.toggle(h.enabled, name, false, "disable")
}

func (h *fakeHost) Restart(_ context.Context, name string) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.call("restart " + name); err != nil {
		return false, err
	}
	h.running[name] = true
	return true, nil
}

func (h *fakeHost) Exists(_ context.Context, p string) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, file := h.files[p]
	return file || h.dirs[p], nil
}

func (h *fakeHost) CreateDirectory(_ context.Context, p *plan.DirectoryParams) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.call("mkdir " + p.Path); err != nil {
		return false, err
	}
	if h.dirs[p.Path] {
		return false, nil
	}
	h.dirs[p.Path] = true
	return true, nil
}

func (h *fakeHost) DeleteDirectory(_ context.Context, p *plan.DirectoryParams) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.call("rmdir " + p.Path); err != nil {
		return false, err
	}
	changed := false
	for d := range h.dirs {
		if d == p.Path || strings.HasPrefix(d, p.Path+"/") {
			delete(h.dirs, d)
			changed = true
		}
	}
	for f := range h.files {
		if strings.HasPrefix(f, p.Path+"/") {
			delete(h.files, f)
			changed = true
		}
	}
	return changed, nil
}

func (h *fakeHost) WriteFile(_ context.Context, p *plan.FileParams) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.call("write " + p.Path); err != nil {
		return false, err
	}
	if h.files[p.Path] == string(p.Content) {
		if _, ok := h.files[p.Path]; ok {
			return false, nil
		}
	}
	h.files[p.Path] = string(p.Content)
	return true, nil
}

func (h *fakeHost) DeleteFile(_ context.Context, p string) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.files[p]
	delete(h.files, p)
	return ok, h.call("rm " + p)
}

func (h *fakeHost) Fetch(_ context.Context, p *plan.RemoteFileParams, progress ProgressFunc) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.call("fetch " + p.URL); err != nil {
		return false, err
	}
	if progress != nil {
		progress(50, 100)
		progress(100, 100)
	}
	h.files[p.Path] = "zip:" + p.URL
	return true, nil
}

// Extract lays down the install script of the archive's single top directory.
func (h *fakeHost) Extract(_ context.Context, p *plan.ArchiveParams) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.call("extract " + p.Source); err != nil {
		return false, err
	}
	stem := strings.TrimSuffix(path.Base(p.Source), ".zip")
	h.files[path.Join(p.Destination, stem, plan.InstallScript)] = "script"
	return true, nil
}

func (h *fakeHost) Run(_ context.Context, p *plan.ScriptParams) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.call("script " + p.Path); err != nil {
		return false, err
	}
	return true, nil
}

func (h *fakeHost) Ensure(_ context.Context, p *plan.BootstrapParams) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.call("bootstrap " + p.Tool); err != nil {
		return false, err
	}
	if h.packages[p.Tool] == "bootstrapped" {
		return false, nil
	}
	h.packages[p.Tool] = "bootstrapped"
	return true, nil
}
