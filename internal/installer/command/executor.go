// Package command runs external programs for the host providers.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// Runner runs argv commands. Providers depend on it so tests can record
// commands instead of running them.
type Runner interface {
	// Run runs the command and returns its trimmed stdout.
	Run(ctx context.Context, name string, args ...string) (string, error)
	// Check reports whether the command exits 0.
	Check(ctx context.Context, name string, args ...string) bool
}

// OutputCallback receives each line of command output.
type OutputCallback func(line string)

// Executor runs commands with os/exec.
type Executor struct {
	workDir string
	env     map[string]string
	output  OutputCallback
}

// NewExecutor creates a new Executor.
func NewExecutor(workDir string) *Executor {
	return &Executor{
		workDir: workDir,
	}
}

// WithEnv returns a copy of the executor that adds env to every command.
func (e *Executor) WithEnv(env map[string]string) *Executor {
	c := *e
	c.env = env
	return &c
}

// WithOutput returns a copy of the executor that streams output lines to cb.
func (e *Executor) WithOutput(cb OutputCallback) *Executor {
	c := *e
	c.output = cb
	return &c
}

// Line renders a command for logs.
func Line(name string, args ...string) string {
	return strings.Join(append([]string{name}, args...), " ")
}

func (e *Executor) command(ctx context.Context, name string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	if e.workDir != "" {
		cmd.Dir = e.workDir
	}
	cmd.Env = os.Environ()
	for k, v := range e.env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}
	return cmd
}

// Run runs name with args and returns trimmed stdout. Stderr is included
// in the error on failure.
func (e *Executor) Run(ctx context.Context, name string, args ...string) (string, error) {
	line := Line(name, args...)
	slog.Debug("executing command", "command", line)

	cmd := e.command(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if e.output != nil {
		var mu sync.Mutex
		outLines := &lineWriter{mu: &mu, cb: e.output}
		errLines := &lineWriter{mu: &mu, cb: e.output}
		cmd.Stdout = io.MultiWriter(&stdout, outLines)
		cmd.Stderr = io.MultiWriter(&stderr, errLines)
		defer outLines.flush()
		defer errLines.flush()
	}

	if err := cmd.Run(); err != nil {
		slog.Error("command failed", "command", line, "error", err, "stderr", stderr.String())
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return "", fmt.Errorf("command failed: %s: %w", line, err)
		}
		return "", fmt.Errorf("command failed: %s: %w: %s", line, err, msg)
	}

	slog.Debug("command succeeded", "command", line)
	return strings.TrimSpace(stdout.String()), nil
}

// Check runs a check command and returns true if it succeeds (exit code 0).
func (e *Executor) Check(ctx context.Context, name string, args ...string) bool {
	slog.Debug("checking command", "command", Line(name, args...))
	return e.command(ctx, name, args...).Run() == nil
}

// ExitCode returns the exit code carried by err, or -1.
func ExitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// lineWriter splits written bytes into lines for cb.
type lineWriter struct {
	mu  *sync.Mutex
	buf []byte
	cb  OutputCallback
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.cb(string(w.buf[:i]))
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}

func (w *lineWriter) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.buf) > 0 {
		w.cb(string(w.buf))
		w.buf = nil
	}
}
