// Package state persists the outcome of fbinstall runs.
package state

import (
	"time"

	"github.com/terassyi/fbinstall/internal/converge"
	"github.com/terassyi/fbinstall/internal/plan"
)

// Version is the current state file format version.
const Version = "1"

// State is the content of state.json: the last run per resource name.
type State struct {
	Version   string             `json:"version"`
	Resources map[string]*Record `json:"resources,omitempty"`
}

// NewState creates an empty State.
func NewState() *State {
	return &State{
		Version:   Version,
		Resources: make(map[string]*Record),
	}
}

// Record is the outcome of the most recent run of one resource.
type Record struct {
	Lifecycle plan.Lifecycle `json:"lifecycle"`
	Strategy  plan.Strategy  `json:"strategy"`
	Platform  string         `json:"platform"`

	// FilebeatVersion is the package version string plans were built for.
	FilebeatVersion string `json:"filebeatVersion,omitempty"`
	ServiceName     string `json:"serviceName,omitempty"`

	AppliedAt time.Time      `json:"appliedAt"`
	Results   []ActionRecord `json:"results,omitempty"`

	// Error is set when the run aborted.
	Error string `json:"error,omitempty"`
}

// ActionRecord is the stored result of one action.
type ActionRecord struct {
	ID         string          `json:"id"`
	Operations []string        `json:"operations,omitempty"`
	Status     converge.Status `json:"status"`
	Reason     string          `json:"reason,omitempty"`
	NotifiedBy string          `json:"notifiedBy,omitempty"`
}

// NewRecord builds a Record from a plan and the report of running it.
// report may be partial or nil when the run failed.
func NewRecord(p *plan.Plan, report *converge.Report, runErr error, now time.Time) *Record {
	rec := &Record{
		Lifecycle:       p.Lifecycle,
		Strategy:        p.Strategy,
		Platform:        p.Platform.Info.String(),
		FilebeatVersion: p.VersionString,
		AppliedAt:       now.UTC(),
	}
	if p.Desired != nil {
		rec.ServiceName = p.Desired.ServiceName
	}
	if report != nil {
		for _, r := range report.Results {
			ops := make([]string, 0, len(r.Operations))
			for _, op := range r.Operations {
				ops = append(ops, string(op))
			}
			rec.Results = append(rec.Results, ActionRecord{
				ID:         r.ID,
				Operations: ops,
				Status:     r.Status,
				Reason:     r.Reason,
				NotifiedBy: r.NotifiedBy,
			})
		}
	}
	if runErr != nil {
		rec.Error = runErr.Error()
	}
	return rec
}

// Changed counts the actions that changed the host.
func (r *Record) Changed() int {
	n := 0
	for _, a := range r.Results {
		if a.Status == converge.StatusChanged {
			n++
		}
	}
	return n
}
