package state

import "fmt"

// Issue is a single validation finding.
type Issue struct {
	Field   string // e.g. "version", "resources.default.strategy"
	Message string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s", i.Field, i.Message)
}

// ValidationResult holds the result of state validation.
type ValidationResult struct {
	Warnings []Issue
}

// HasWarnings reports whether any warnings were found.
func (r *ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

func (r *ValidationResult) warn(field, message string) {
	r.Warnings = append(r.Warnings, Issue{Field: field, Message: message})
}

// Validate checks a loaded State for integrity. Findings are warnings;
// a state file is never rejected.
func Validate(st *State) *ValidationResult {
	result := &ValidationResult{}

	switch st.Version {
	case "":
		result.warn("version", "version is empty")
	case Version:
	default:
		result.warn("version", fmt.Sprintf("unknown version %q (expected %q)", st.Version, Version))
	}

	for name, rec := range st.Resources {
		if rec == nil {
			result.warn("resources."+name, "record is empty")
			continue
		}
		if rec.Lifecycle == "" {
			result.warn(fmt.Sprintf("resources.%s.lifecycle", name), "lifecycle is empty")
		}
		if rec.AppliedAt.IsZero() {
			result.warn(fmt.Sprintf("resources.%s.appliedAt", name), "appliedAt is empty")
		}
	}
	return result
}
