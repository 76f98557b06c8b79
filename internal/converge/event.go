package converge

import "github.com/terassyi/fbinstall/internal/plan"

// EventType represents the type of executor event.
type EventType int

const (
	// EventStart is emitted when an action starts.
	EventStart EventType = iota
	// EventProgress is emitted during downloads.
	EventProgress
	// EventSkip is emitted when an action is skipped by a guard or deferral.
	EventSkip
	// EventComplete is emitted when an action completes successfully.
	EventComplete
	// EventError is emitted when an action fails.
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventStart:
		return "start"
	case EventProgress:
		return "progress"
	case EventSkip:
		return "skip"
	case EventComplete:
		return "complete"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event represents an executor event for progress reporting.
type Event struct {
	Type       EventType
	ActionID   string
	Kind       plan.Kind
	Operations []plan.Operation
	Changed    bool
	Reason     string // skip reason or notification source
	Error      error
	Downloaded int64 // for EventProgress
	Total      int64 // -1 if unknown, for EventProgress
}

// EventHandler is a callback for executor events.
type EventHandler func(event Event)
