package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/terassyi/fbinstall/internal/converge"
	"github.com/terassyi/fbinstall/internal/plan"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// applyResults tracks converge outcomes across resources.
type applyResults struct {
	changed   int
	unchanged int
	skipped   int
	failed    int
}

// progressManager renders converge events. Downloads get a progress bar
// when stdout is a terminal; everything else is printed as a line.
type progressManager struct {
	mu       sync.Mutex
	w        io.Writer
	quiet    bool
	isTTY    bool
	style    *outputStyle
	progress *mpb.Progress
	bars     map[string]*mpb.Bar
}

func newProgressManager(w io.Writer, quiet bool) *progressManager {
	isTTY := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

	pm := &progressManager{
		w:     w,
		quiet: quiet,
		isTTY: isTTY && !quiet,
		style: newOutputStyle(),
		bars:  make(map[string]*mpb.Bar),
	}
	if pm.isTTY {
		pm.progress = mpb.New(
			mpb.WithOutput(w),
			mpb.WithWidth(40),
		)
	}
	return pm
}

// Wait waits for all bars to finish rendering.
func (pm *progressManager) Wait() {
	if pm.progress != nil {
		pm.progress.Wait()
	}
}

func (pm *progressManager) handleEvent(event converge.Event, results *applyResults) {
	switch event.Type {
	case converge.EventStart:
		pm.handleStart(event)
	case converge.EventProgress:
		pm.handleProgress(event)
	case converge.EventComplete:
		pm.handleComplete(event, results)
	case converge.EventSkip:
		results.skipped++
		pm.line("%s %s %s", pm.style.skipMark, event.ActionID, pm.style.dim.Sprint(event.Reason))
	case converge.EventError:
		pm.handleError(event, results)
	}
}

func (pm *progressManager) handleStart(event converge.Event) {
	if event.Kind == plan.KindRemoteFile && pm.isTTY {
		pm.mu.Lock()
		pm.bars[event.ActionID] = pm.progress.AddBar(0,
			mpb.BarFillerClearOnComplete(),
			mpb.PrependDecorators(
				decor.Name(fmt.Sprintf("  %s ", pm.style.path.Sprint(event.ActionID)),
					decor.WC{W: 40, C: decor.DindentRight}),
			),
			mpb.AppendDecorators(
				decor.CountersKibiByte("% .1f / % .1f"),
				decor.OnComplete(decor.Name(""), " done"),
			),
		)
		pm.mu.Unlock()
		return
	}
	pm.line("%s %s", pm.style.path.Sprint(event.ActionID), pm.style.dim.Sprint(operations(event.Operations, event.Reason)))
}

func (pm *progressManager) handleProgress(event converge.Event) {
	pm.mu.Lock()
	bar, ok := pm.bars[event.ActionID]
	pm.mu.Unlock()
	if !ok {
		return
	}
	if event.Total > 0 {
		bar.SetTotal(event.Total, false)
	}
	bar.SetCurrent(event.Downloaded)
}

func (pm *progressManager) handleComplete(event converge.Event, results *applyResults) {
	pm.mu.Lock()
	bar, ok := pm.bars[event.ActionID]
	if ok {
		bar.SetTotal(bar.Current(), true)
		delete(pm.bars, event.ActionID)
	}
	pm.mu.Unlock()

	if event.Changed {
		results.changed++
		if !ok {
			pm.line("%s %s changed", pm.style.successMark, event.ActionID)
		}
		return
	}
	results.unchanged++
}

func (pm *progressManager) handleError(event converge.Event, results *applyResults) {
	pm.mu.Lock()
	bar, ok := pm.bars[event.ActionID]
	if ok {
		bar.Abort(true)
		delete(pm.bars, event.ActionID)
	}
	pm.mu.Unlock()

	results.failed++
	if pm.quiet {
		return
	}
	fmt.Fprintf(pm.w, "  %s %s failed: %v\n", pm.style.failMark, event.ActionID, event.Error)
}

// line prints one indented event line. Lines are suppressed while bars
// are active so they do not tear the bar rendering.
func (pm *progressManager) line(format string, args ...any) {
	if pm.quiet {
		return
	}
	pm.mu.Lock()
	active := len(pm.bars) > 0
	pm.mu.Unlock()
	if active {
		return
	}
	fmt.Fprintf(pm.w, "  "+format+"\n", args...)
}

func operations(ops []plan.Operation, notifiedBy string) string {
	names := make([]string, len(ops))
	for i, op := range ops {
		names[i] = string(op)
	}
	s := strings.Join(names, ",")
	if notifiedBy != "" {
		s += " (notified by " + notifiedBy + ")"
	}
	return s
}

func printApplySummary(w io.Writer, results *applyResults) {
	style := newOutputStyle()

	fmt.Fprintln(w)
	if results.changed == 0 && results.failed == 0 {
		fmt.Fprintf(w, "%s No changes\n", style.successMark)
		return
	}

	style.header.Fprintln(w, "Summary:")
	fmt.Fprintf(w, "  %s Changed:   %d\n", style.successMark, results.changed)
	fmt.Fprintf(w, "  %s Unchanged: %d\n", style.dim.Sprint("="), results.unchanged)
	if results.skipped > 0 {
		fmt.Fprintf(w, "  %s Skipped:   %d\n", style.skipMark, results.skipped)
	}
	if results.failed > 0 {
		fmt.Fprintf(w, "  %s Failed:    %d\n", style.failMark, results.failed)
	}

	fmt.Fprintln(w)
	if results.failed == 0 {
		style.success.Fprintln(w, "Apply complete!")
	} else {
		color.New(color.FgRed, color.Bold).Fprintln(w, "Apply completed with errors")
	}
}
