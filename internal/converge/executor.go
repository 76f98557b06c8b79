// Package converge runs plans against the host through pluggable providers.
package converge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	fbErrors "github.com/terassyi/fbinstall/internal/errors"
	"github.com/terassyi/fbinstall/internal/plan"
	"github.com/terassyi/fbinstall/internal/registry"
)

// errNoProvider is returned when an action needs a provider that is not configured.
var errNoProvider = fbErrors.New(fbErrors.CategoryInstall, "no provider configured").
	WithHint("Check --platform-family; the host may not support this action.")

// Executor runs a plan in a single pass, in plan order.
type Executor struct {
	providers    Providers
	services     *registry.Services
	eventHandler EventHandler
}

// NewExecutor creates an Executor. services resolves notification
// targets declared outside the plan.
func NewExecutor(providers Providers, services *registry.Services) *Executor {
	if services == nil {
		services = registry.NewServices()
	}
	return &Executor{providers: providers, services: services}
}

// SetEventHandler sets a callback for executor events.
func (e *Executor) SetEventHandler(handler EventHandler) {
	e.eventHandler = handler
}

func (e *Executor) emit(event Event) {
	if e.eventHandler != nil {
		e.eventHandler(event)
	}
}

// run carries the state of one Run call.
type run struct {
	plan    *plan.Plan
	report  *Report
	delayed []pending
	queued  map[string]bool
	// ran holds actions already executed or skipped by their guard.
	ran map[string]bool
}

type pending struct {
	source string
	n      plan.Notification
}

// Run converges p. Deferred actions run only when notified. Immediate
// notifications run right after the notifying action changed something;
// delayed ones are de-duplicated and run after the last action. The first
// failure aborts the run.
func (e *Executor) Run(ctx context.Context, p *plan.Plan) (*Report, error) {
	r := &run{
		plan:   p,
		report: &Report{Lifecycle: p.Lifecycle, Strategy: p.Strategy},
		queued: make(map[string]bool),
		ran:    make(map[string]bool),
	}

	slog.Debug("converging plan", "lifecycle", p.Lifecycle, "strategy", p.Strategy, "actions", len(p.Actions))

	for _, a := range p.Actions {
		if err := ctx.Err(); err != nil {
			return r.report, err
		}
		if a.Deferred {
			if !r.ran[a.ID] {
				r.record(e, a, a.Operations, StatusSkipped, "deferred", "")
			}
			continue
		}
		if err := e.execute(ctx, r, a, a.Operations, ""); err != nil {
			return r.report, err
		}
	}

	// Delayed notifications may queue more; the slice grows while iterating.
	for i := 0; i < len(r.delayed); i++ {
		if err := ctx.Err(); err != nil {
			return r.report, err
		}
		d := r.delayed[i]
		if err := e.notify(ctx, r, d.source, d.n); err != nil {
			return r.report, err
		}
	}

	slog.Debug("plan converged", "changed", r.report.Count(StatusChanged), "skipped", r.report.Count(StatusSkipped))
	return r.report, nil
}

func (e *Executor) execute(ctx context.Context, r *run, a *plan.Action, ops []plan.Operation, source string) error {
	r.ran[a.ID] = true
	if a.Guard != nil && a.Guard.SkipIfExists != "" {
		exists, err := e.exists(ctx, a.Guard.SkipIfExists)
		if err != nil {
			return e.fail(r, a, ops, source, "guard", err)
		}
		if exists {
			slog.Debug("guard satisfied, skipping", "action", a.ID, "path", a.Guard.SkipIfExists)
			r.record(e, a, ops, StatusSkipped, "exists: "+a.Guard.SkipIfExists, source)
			return nil
		}
	}

	e.emit(Event{Type: EventStart, ActionID: a.ID, Kind: a.Kind, Operations: ops, Reason: source})
	slog.Debug("running action", "action", a.ID, "operations", ops, "notifiedBy", source)

	changed := false
	for _, op := range ops {
		c, err := e.apply(ctx, a, op)
		if err != nil {
			return e.fail(r, a, ops, source, string(op), err)
		}
		changed = changed || c
	}

	status := StatusUnchanged
	if changed {
		status = StatusChanged
	}
	r.report.Results = append(r.report.Results, Result{ID: a.ID, Operations: ops, Status: status, NotifiedBy: source})
	e.emit(Event{Type: EventComplete, ActionID: a.ID, Kind: a.Kind, Operations: ops, Changed: changed, Reason: source})

	if !changed {
		return nil
	}
	for _, n := range a.Notifications {
		switch n.Timing {
		case plan.TimingImmediate:
			if err := e.notify(ctx, r, a.ID, n); err != nil {
				return err
			}
		default:
			key := n.Target + "/" + string(n.Operation)
			if r.queued[key] {
				continue
			}
			r.queued[key] = true
			r.delayed = append(r.delayed, pending{source: a.ID, n: n})
		}
	}
	return nil
}

func (e *Executor) notify(ctx context.Context, r *run, source string, n plan.Notification) error {
	target, err := e.resolve(r.plan, source, n.Target)
	if err != nil {
		e.emit(Event{Type: EventError, ActionID: source, Error: err})
		return err
	}
	return e.execute(ctx, r, target, []plan.Operation{n.Operation}, source)
}

// resolve finds a notification target in the plan, falling back to
// services declared in the shared registry.
func (e *Executor) resolve(p *plan.Plan, source, target string) (*plan.Action, error) {
	if a, ok := p.Find(target); ok {
		return a, nil
	}
	kind, name, ok := plan.ParseActionID(target)
	if ok && kind == plan.KindService {
		if _, declared := e.services.Lookup(name); declared {
			return &plan.Action{ID: target, Kind: plan.KindService, Name: name}, nil
		}
	}
	return nil, fbErrors.NewMissingTargetError(source, target)
}

func (e *Executor) fail(r *run, a *plan.Action, ops []plan.Operation, source, op string, cause error) error {
	err := fbErrors.NewInstallError(a.ID, op, cause)
	if a.Package != nil {
		err.WithVersion(a.Package.Version)
	}
	if a.RemoteFile != nil {
		err.WithURL(a.RemoteFile.URL)
	}
	slog.Error("action failed", "action", a.ID, "operation", op, "error", cause)
	r.report.Results = append(r.report.Results, Result{ID: a.ID, Operations: ops, Status: StatusFailed, Reason: cause.Error(), NotifiedBy: source})
	e.emit(Event{Type: EventError, ActionID: a.ID, Kind: a.Kind, Operations: ops, Error: err})
	return err
}

func (r *run) record(e *Executor, a *plan.Action, ops []plan.Operation, status Status, reason, source string) {
	r.report.Results = append(r.report.Results, Result{ID: a.ID, Operations: ops, Status: status, Reason: reason, NotifiedBy: source})
	e.emit(Event{Type: EventSkip, ActionID: a.ID, Kind: a.Kind, Operations: ops, Reason: reason})
}

func (e *Executor) exists(ctx context.Context, path string) (bool, error) {
	if e.providers.Files == nil {
		return false, fmt.Errorf("filesystem: %w", errNoProvider)
	}
	return e.providers.Files.Exists(ctx, path)
}

// apply dispatches one operation to its provider.
func (e *Executor) apply(ctx context.Context, a *plan.Action, op plan.Operation) (bool, error) {
	if op == plan.OpNothing {
		return false, nil
	}

	switch a.Kind {
	case plan.KindPackage:
		m, err := e.packageManager(a.Package)
		if err != nil {
			return false, err
		}
		switch op {
		case plan.OpInstall:
			return m.Install(ctx, a.Package)
		case plan.OpRemove:
			return m.Remove(ctx, a.Package)
		}

	case plan.KindRepository:
		if e.providers.Repositories == nil {
			return false, fmt.Errorf("repository: %w", errNoProvider)
		}
		switch op {
		case plan.OpCreate:
			return e.providers.Repositories.Register(ctx, a.Repository)
		case plan.OpDelete:
			return e.providers.Repositories.Unregister(ctx, a.Repository)
		}

	case plan.KindVersionLock:
		if e.providers.Pinner == nil {
			return false, fmt.Errorf("version lock: %w", errNoProvider)
		}
		switch op {
		case plan.OpUpdate:
			return e.providers.Pinner.Pin(ctx, a.VersionLock)
		case plan.OpDelete:
			return e.providers.Pinner.Unpin(ctx, a.VersionLock)
		}

	case plan.KindService:
		svc := e.providers.Services
		if svc == nil {
			return false, fmt.Errorf("service: %w", errNoProvider)
		}
		switch op {
		case plan.OpStart:
			return svc.Start(ctx, a.Name)
		case plan.OpStop:
			return svc.Stop(ctx, a.Name)
		case plan.OpEnable:
			return svc.Enable(ctx, a.Name)
		case plan.OpDisable:
			return svc.Disable(ctx, a.Name)
		case plan.OpRestart:
			return svc.Restart(ctx, a.Name)
		}

	case plan.KindDirectory:
		if e.providers.Files == nil {
			return false, fmt.Errorf("filesystem: %w", errNoProvider)
		}
		switch op {
		case plan.OpCreate:
			return e.providers.Files.CreateDirectory(ctx, a.Directory)
		case plan.OpDelete:
			return e.providers.Files.DeleteDirectory(ctx, a.Directory)
		}

	case plan.KindFile:
		if e.providers.Files == nil {
			return false, fmt.Errorf("filesystem: %w", errNoProvider)
		}
		switch op {
		case plan.OpCreate:
			return e.providers.Files.WriteFile(ctx, a.File)
		case plan.OpDelete:
			return e.providers.Files.DeleteFile(ctx, a.File.Path)
		}

	case plan.KindRemoteFile:
		if e.providers.Fetcher == nil {
			return false, fmt.Errorf("fetcher: %w", errNoProvider)
		}
		return e.providers.Fetcher.Fetch(ctx, a.RemoteFile, func(downloaded, total int64) {
			e.emit(Event{Type: EventProgress, ActionID: a.ID, Kind: a.Kind, Downloaded: downloaded, Total: total})
		})

	case plan.KindArchive:
		if e.providers.Extractor == nil {
			return false, fmt.Errorf("extractor: %w", errNoProvider)
		}
		return e.providers.Extractor.Extract(ctx, a.Archive)

	case plan.KindScript:
		if e.providers.Scripts == nil {
			return false, fmt.Errorf("script runner: %w", errNoProvider)
		}
		return e.providers.Scripts.Run(ctx, a.Script)

	case plan.KindBootstrap:
		if e.providers.Bootstrap == nil {
			return false, fmt.Errorf("bootstrap: %w", errNoProvider)
		}
		return e.providers.Bootstrap.Ensure(ctx, a.Bootstrap)
	}

	return false, fmt.Errorf("unsupported operation %s for %s", op, a.Kind)
}

// packageManager selects the manager for p. Primitive actions require
// their named manager; others fall back to the host default.
func (e *Executor) packageManager(p *plan.PackageParams) (PackageManager, error) {
	if p == nil {
		return nil, errors.New("package parameters missing")
	}
	if m, ok := e.providers.Packages[p.Manager]; ok && p.Manager != "" {
		return m, nil
	}
	if p.Primitive {
		return nil, fmt.Errorf("package manager %s: %w", p.Manager, errNoProvider)
	}
	if m, ok := e.providers.Packages[e.providers.DefaultPackageManager]; ok {
		return m, nil
	}
	return nil, fmt.Errorf("package manager %q: %w", p.Manager, errNoProvider)
}
