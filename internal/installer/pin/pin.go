// Package pin holds packages at a version through apt preferences or the
// yum/dnf versionlock plugin list.
package pin

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/terassyi/fbinstall/internal/installer/fsys"
	"github.com/terassyi/fbinstall/internal/plan"
)

const (
	aptPreferencesDir  = "/etc/apt/preferences.d"
	yumVersionlockList = "/etc/yum/pluginconf.d/versionlock.list"
	dnfVersionlockList = "/etc/dnf/plugins/versionlock.list"
)

// Pinner implements the version lock provider.
type Pinner struct {
	files *fsys.FS
}

// New returns a Pinner writing through files.
func New(files *fsys.FS) *Pinner {
	return &Pinner{files: files}
}

// Pin locks p.Package to p.Version.
func (n *Pinner) Pin(_ context.Context, p *plan.VersionLockParams) (bool, error) {
	switch p.Manager {
	case "apt":
		return n.files.Write(aptPreferencesPath(p.Package), []byte(AptPreference(p)), 0o644)
	case "yum", "dnf":
		list := versionlockPath(p.Manager)
		current, err := n.files.Read(list)
		if err != nil {
			return false, err
		}
		return n.files.Write(list, []byte(replaceLock(string(current), p.Package, LockEntry(p))), 0o644)
	default:
		return false, fmt.Errorf("unsupported version lock manager: %s", p.Manager)
	}
}

// Unpin drops any lock for p.Package.
func (n *Pinner) Unpin(_ context.Context, p *plan.VersionLockParams) (bool, error) {
	switch p.Manager {
	case "apt":
		return n.files.Remove(aptPreferencesPath(p.Package))
	case "yum", "dnf":
		list := versionlockPath(p.Manager)
		current, err := n.files.Read(list)
		if err != nil || current == nil {
			return false, err
		}
		return n.files.Write(list, []byte(replaceLock(string(current), p.Package, "")), 0o644)
	default:
		return false, fmt.Errorf("unsupported version lock manager: %s", p.Manager)
	}
}

// AptPreference renders an apt pin stanza.
func AptPreference(p *plan.VersionLockParams) string {
	return fmt.Sprintf("Package: %s\nPin: version %s\nPin-Priority: %d\n", p.Package, p.Version, p.Priority)
}

// LockEntry renders a versionlock.list entry such as 0:filebeat-7.6.2-1.*.
func LockEntry(p *plan.VersionLockParams) string {
	if p.Release == "" {
		return fmt.Sprintf("0:%s-%s-*", p.Package, p.Version)
	}
	return fmt.Sprintf("0:%s-%s-%s.*", p.Package, p.Version, p.Release)
}

// replaceLock swaps the entries for pkg in list with entry, keeping the
// position of the first one. An empty entry removes them.
func replaceLock(list, pkg, entry string) string {
	match := regexp.MustCompile(`^(?:\d+:)?` + regexp.QuoteMeta(pkg) + `-\d`)

	var out []string
	placed := false
	for _, line := range strings.Split(strings.TrimRight(list, "\n"), "\n") {
		if line == "" && len(out) == 0 {
			continue
		}
		if match.MatchString(strings.TrimSpace(line)) {
			if !placed && entry != "" {
				out = append(out, entry)
			}
			placed = true
			continue
		}
		out = append(out, line)
	}
	if !placed && entry != "" {
		out = append(out, entry)
	}
	if len(out) == 0 {
		return ""
	}
	return strings.Join(out, "\n") + "\n"
}

func aptPreferencesPath(pkg string) string {
	return path.Join(aptPreferencesDir, pkg+".pref")
}

func versionlockPath(manager string) string {
	if manager == "dnf" {
		return dnfVersionlockList
	}
	return yumVersionlockList
}
