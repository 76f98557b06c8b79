// Package printer renders plans, run reports and stored state.
package printer

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/goccy/go-yaml"

	"github.com/terassyi/fbinstall/internal/converge"
	"github.com/terassyi/fbinstall/internal/plan"
	"github.com/terassyi/fbinstall/internal/state"
)

// Format is an output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat resolves an --output flag value.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "text", "table":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown output format %q, valid formats: text, json, yaml", s)
	}
}

// Printer writes to w in one format.
type Printer struct {
	w      io.Writer
	format Format

	add    *color.Color
	remove *color.Color
	dim    *color.Color
	fail   *color.Color
	bold   *color.Color
}

// New creates a Printer.
func New(w io.Writer, format Format, noColor bool) *Printer {
	p := &Printer{
		w:      w,
		format: format,
		add:    color.New(color.FgGreen),
		remove: color.New(color.FgRed),
		dim:    color.New(color.FgHiBlack),
		fail:   color.New(color.FgRed, color.Bold),
		bold:   color.New(color.Bold),
	}
	if noColor {
		for _, c := range []*color.Color{p.add, p.remove, p.dim, p.fail, p.bold} {
			c.DisableColor()
		}
	}
	return p
}

func (p *Printer) structured(v any) (bool, error) {
	switch p.format {
	case FormatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return true, fmt.Errorf("failed to marshal JSON: %w", err)
		}
		_, err = fmt.Fprintln(p.w, string(data))
		return true, err
	case FormatYAML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return true, fmt.Errorf("failed to marshal YAML: %w", err)
		}
		_, err = p.w.Write(data)
		return true, err
	}
	return false, nil
}

// Plan prints a plan.
func (p *Printer) Plan(pl *plan.Plan) error {
	if done, err := p.structured(pl); done {
		return err
	}

	if pl.Strategy == "" {
		fmt.Fprintf(p.w, "%s %s\n", p.bold.Sprint("Plan:"), pl.Lifecycle)
	} else {
		fmt.Fprintf(p.w, "%s %s (%s strategy, %s)\n", p.bold.Sprint("Plan:"), pl.Lifecycle, pl.Strategy, pl.Platform.Info)
	}
	if pl.Platform.Legacy {
		fmt.Fprintf(p.w, "  %s\n", p.dim.Sprintf("compatibility mapping from %s", pl.Platform.Original))
	}
	if pl.VersionString != "" {
		fmt.Fprintf(p.w, "  version %s\n", pl.VersionString)
	}
	if len(pl.Actions) == 0 {
		fmt.Fprintln(p.w, "No actions.")
		return nil
	}

	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tACTION\tOPERATIONS\tNOTIFIES\tDETAIL")
	for i, a := range pl.Actions {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i+1, a.ID, p.operations(a), notifies(a), a.Summary())
	}
	return tw.Flush()
}

func (p *Printer) operations(a *plan.Action) string {
	ops := make([]string, 0, len(a.Operations))
	for _, op := range a.Operations {
		ops = append(ops, string(op))
	}
	s := strings.Join(ops, ",")
	switch {
	case a.Deferred:
		return p.dim.Sprint(s + " (deferred)")
	case len(a.Operations) > 0 && (a.Operations[0] == plan.OpDelete || a.Operations[0] == plan.OpRemove || a.Operations[0] == plan.OpStop):
		return p.remove.Sprint(s)
	case len(a.Operations) == 1 && a.Operations[0] == plan.OpNothing:
		return p.dim.Sprint(s)
	default:
		return p.add.Sprint(s)
	}
}

func notifies(a *plan.Action) string {
	if len(a.Notifications) == 0 {
		return "-"
	}
	out := make([]string, 0, len(a.Notifications))
	for _, n := range a.Notifications {
		out = append(out, fmt.Sprintf("%s %s (%s)", n.Operation, n.Target, n.Timing))
	}
	return strings.Join(out, "; ")
}

// Report prints the result of a run.
func (p *Printer) Report(r *converge.Report) error {
	if done, err := p.structured(r); done {
		return err
	}

	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ACTION\tSTATUS\tDETAIL")
	for _, res := range r.Results {
		detail := res.Reason
		if res.NotifiedBy != "" {
			detail = "notified by " + res.NotifiedBy
		}
		if detail == "" {
			detail = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", res.ID, p.status(res.Status), detail)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(p.w, "\n%d changed, %d unchanged, %d skipped\n",
		r.Count(converge.StatusChanged), r.Count(converge.StatusUnchanged), r.Count(converge.StatusSkipped))
	return nil
}

func (p *Printer) status(s converge.Status) string {
	switch s {
	case converge.StatusChanged:
		return p.add.Sprint(s)
	case converge.StatusFailed:
		return p.fail.Sprint(s)
	default:
		return p.dim.Sprint(s)
	}
}

// State prints stored run records, optionally only the one named name.
func (p *Printer) State(st *state.State, name string, wide bool) error {
	records := filterMap(st.Resources, name)
	if done, err := p.structured(records); done {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(p.w, "No resources found.")
		return nil
	}

	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	headers := []string{"NAME", "LIFECYCLE", "STRATEGY", "VERSION", "CHANGED", "APPLIED", "STATUS"}
	if wide {
		headers = append(headers, "PLATFORM", "SERVICE")
	}
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	for _, n := range sortedKeys(records) {
		rec := records[n]
		status := p.add.Sprint("ok")
		if rec.Error != "" {
			status = p.fail.Sprint("failed")
		}
		row := []string{
			n,
			string(rec.Lifecycle),
			string(rec.Strategy),
			valueOr(rec.FilebeatVersion, "-"),
			fmt.Sprint(rec.Changed()),
			rec.AppliedAt.Local().Format(time.DateTime),
			status,
		}
		if wide {
			row = append(row, rec.Platform, valueOr(rec.ServiceName, "-"))
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// filterMap filters a map by name. An empty name keeps everything.
func filterMap[T any](m map[string]T, name string) map[string]T {
	if name == "" {
		return m
	}
	if v, ok := m[name]; ok {
		return map[string]T{name: v}
	}
	return nil
}

// sortedKeys returns the keys of a map sorted alphabetically.
func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
