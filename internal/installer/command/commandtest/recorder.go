// Package commandtest provides a command.Runner that records commands.
package commandtest

import (
	"context"
	"strings"
	"sync"
)

// Response is a canned result for a command line.
type Response struct {
	Output string
	Err    error
}

// Recorder records every command and answers from canned responses keyed
// by the full command line. Unknown commands succeed with empty output.
type Recorder struct {
	mu        sync.Mutex
	responses map[string]Response
	prefixes  map[string]Response
	commands  []string
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		responses: make(map[string]Response),
		prefixes:  make(map[string]Response),
	}
}

// On sets the response for an exact command line.
func (r *Recorder) On(line string, resp Response) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses[line] = resp
	return r
}

// OnPrefix sets the response for command lines starting with prefix.
func (r *Recorder) OnPrefix(prefix string, resp Response) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefixes[prefix] = resp
	return r
}

// Commands returns the recorded command lines.
func (r *Recorder) Commands() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.commands...)
}

// Reset forgets recorded commands.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = nil
}

func (r *Recorder) lookup(name string, args []string) Response {
	line := strings.Join(append([]string{name}, args...), " ")

	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, line)
	if resp, ok := r.responses[line]; ok {
		return resp
	}
	best := ""
	for p := range r.prefixes {
		if strings.HasPrefix(line, p) && len(p) > len(best) {
			best = p
		}
	}
	if best != "" {
		return r.prefixes[best]
	}
	return Response{}
}

// Run implements command.Runner.
func (r *Recorder) Run(_ context.Context, name string, args ...string) (string, error) {
	resp := r.lookup(name, args)
	return resp.Output, resp.Err
}

// Check implements command.Runner.
func (r *Recorder) Check(_ context.Context, name string, args ...string) bool {
	return r.lookup(name, args).Err == nil
}
