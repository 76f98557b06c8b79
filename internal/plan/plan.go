// Package plan turns a Filebeat desired state and platform facts into an
// ordered list of idempotent convergence actions.
package plan

import (
	"fmt"

	"github.com/terassyi/fbinstall/internal/platform"
	"github.com/terassyi/fbinstall/internal/resource"
)

// Lifecycle is the resource action a plan implements.
type Lifecycle string

const (
	LifecycleCreate Lifecycle = "create"
	LifecycleDelete Lifecycle = "delete"
)

// Strategy is the installation strategy selected for a platform.
type Strategy string

const (
	StrategyMacOS   Strategy = "macos"
	StrategyWindows Strategy = "windows"
	StrategyPackage Strategy = "package"
	StrategyLegacy  Strategy = "legacy"
	StrategyNone    Strategy = "none"
)

// Plan is an ordered list of actions. Execution runs it in order.
type Plan struct {
	Lifecycle Lifecycle          `json:"lifecycle" yaml:"lifecycle"`
	Strategy  Strategy           `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	Platform  platform.Effective `json:"platform" yaml:"platform"`

	// VersionString is the package version requested from the manager.
	VersionString string `json:"versionString,omitempty" yaml:"versionString,omitempty"`

	// Desired is the resolved desired state, paths included.
	Desired *resource.FilebeatSpec `json:"desired" yaml:"desired"`

	Actions []*Action `json:"actions" yaml:"actions"`
}

// Find returns the action with the given ID.
func (p *Plan) Find(id string) (*Action, bool) {
	for _, a := range p.Actions {
		if a.ID == id {
			return a, true
		}
	}
	return nil, false
}

// IDs returns action IDs in plan order.
func (p *Plan) IDs() []string {
	ids := make([]string, len(p.Actions))
	for i, a := range p.Actions {
		ids[i] = a.ID
	}
	return ids
}

// add appends actions. A directory already in the plan absorbs a later
// action for the same path; other duplicates are an error.
func (p *Plan) add(actions ...*Action) error {
	for _, a := range actions {
		if err := a.validate(); err != nil {
			return err
		}
		existing, ok := p.Find(a.ID)
		if !ok {
			p.Actions = append(p.Actions, a)
			continue
		}
		if existing.Kind != KindDirectory {
			return fmt.Errorf("duplicate action %s", a.ID)
		}
		if err := mergeDirectory(existing, a); err != nil {
			return fmt.Errorf("duplicate action %s: %w", a.ID, err)
		}
	}
	return nil
}

// mergeDirectory folds b into a. Unset attributes are filled from b; set
// ones must agree. The longer operation list wins when it contains the
// other in order.
func mergeDirectory(a, b *Action) error {
	if a.Directory == nil || b.Directory == nil {
		return fmt.Errorf("missing directory parameters")
	}
	switch {
	case isSubsequence(a.Operations, b.Operations):
		a.Operations = b.Operations
	case !isSubsequence(b.Operations, a.Operations):
		return fmt.Errorf("operations %v and %v conflict", a.Operations, b.Operations)
	}

	da, db := a.Directory, b.Directory
	if da.Mode == 0 {
		da.Mode = db.Mode
	} else if db.Mode != 0 && db.Mode != da.Mode {
		return fmt.Errorf("mode %o and %o conflict", da.Mode, db.Mode)
	}
	if err := mergeString(&da.Owner, db.Owner, "owner"); err != nil {
		return err
	}
	if err := mergeString(&da.Group, db.Group, "group"); err != nil {
		return err
	}
	da.Recursive = da.Recursive || db.Recursive
	a.Notifications = append(a.Notifications, b.Notifications...)
	return nil
}

func mergeString(dst *string, src, name string) error {
	switch {
	case *dst == "":
		*dst = src
	case src != "" && src != *dst:
		return fmt.Errorf("%s %s and %s conflict", name, *dst, src)
	}
	return nil
}

// isSubsequence reports whether sub appears in ops in order.
func isSubsequence(sub, ops []Operation) bool {
	i := 0
	for _, op := range ops {
		if i < len(sub) && sub[i] == op {
			i++
		}
	}
	return i == len(sub)
}
