package converge

import (
	"github.com/terassyi/fbinstall/internal/plan"
)

// Status is the outcome of one action.
type Status string

const (
	StatusChanged   Status = "changed"
	StatusUnchanged Status = "unchanged"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Result records one executed, skipped or notified action.
type Result struct {
	ID         string           `json:"id" yaml:"id"`
	Operations []plan.Operation `json:"operations" yaml:"operations"`
	Status     Status           `json:"status" yaml:"status"`
	Reason     string           `json:"reason,omitempty" yaml:"reason,omitempty"`

	// NotifiedBy is the action whose notification triggered this run.
	NotifiedBy string `json:"notifiedBy,omitempty" yaml:"notifiedBy,omitempty"`
}

// Report summarizes a run.
type Report struct {
	Lifecycle plan.Lifecycle `json:"lifecycle" yaml:"lifecycle"`
	Strategy  plan.Strategy  `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	Results   []Result       `json:"results" yaml:"results"`
}

// Changed reports whether any action changed host state.
func (r *Report) Changed() bool {
	return r.Count(StatusChanged) > 0
}

// Count returns the number of results with status s.
func (r *Report) Count(s Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == s {
			n++
		}
	}
	return n
}
