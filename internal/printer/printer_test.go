package printer

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terassyi/fbinstall/internal/converge"
	"github.com/terassyi/fbinstall/internal/plan"
	"github.com/terassyi/fbinstall/internal/platform"
	"github.com/terassyi/fbinstall/internal/registry"
	"github.com/terassyi/fbinstall/internal/resource"
	"github.com/terassyi/fbinstall/internal/state"
)

func ubuntuPlan(t *testing.T) *plan.Plan {
	t.Helper()
	p, err := plan.NewPlanner(registry.NewServices(), "/var/cache/fbinstall").
		Create(resource.DefaultFilebeatSpec(), platform.Info{Name: "ubuntu", Family: platform.FamilyDebian, Version: "22.04"})
	require.NoError(t, err)
	return p
}

func TestParseFormat(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatText, false},
		{"table", FormatText, false},
		{"JSON", FormatJSON, false},
		{"yml", FormatYAML, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrinter_Plan_Text(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, New(&buf, FormatText, true).Plan(ubuntuPlan(t)))

	out := buf.String()
	assert.Contains(t, out, "Plan: create (package strategy, ubuntu/debian 22.04)")
	assert.Contains(t, out, "repository[default]")
	assert.Contains(t, out, "version_lock[filebeat]")
	assert.Contains(t, out, "restart service[filebeat] (delayed)")
	assert.Contains(t, out, "directory[/var/log/filebeat]")
	assert.NotContains(t, out, "\x1b[")
}

func TestPrinter_Plan_Delete(t *testing.T) {
	t.Parallel()
	p, err := plan.NewPlanner(registry.NewServices(), "").Delete(resource.DefaultFilebeatSpec())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, New(&buf, FormatText, true).Plan(p))
	assert.Contains(t, buf.String(), "Plan: delete\n")
	assert.Contains(t, buf.String(), "stop,disable")
}

func TestPrinter_Plan_Structured(t *testing.T) {
	t.Parallel()
	pl := ubuntuPlan(t)

	var jsonBuf bytes.Buffer
	require.NoError(t, New(&jsonBuf, FormatJSON, true).Plan(pl))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(jsonBuf.Bytes(), &decoded))
	assert.Equal(t, "create", decoded["lifecycle"])
	assert.Len(t, decoded["actions"], len(pl.Actions))

	var yamlBuf bytes.Buffer
	require.NoError(t, New(&yamlBuf, FormatYAML, true).Plan(pl))
	var fromYAML map[string]any
	require.NoError(t, yaml.Unmarshal(yamlBuf.Bytes(), &fromYAML))
	assert.Equal(t, "package", fromYAML["strategy"])
}

func TestPrinter_Report(t *testing.T) {
	t.Parallel()
	r := &converge.Report{Results: []converge.Result{
		{ID: "package[filebeat]", Status: converge.StatusChanged},
		{ID: "service[filebeat]", Status: converge.StatusChanged, NotifiedBy: "package[filebeat]"},
		{ID: "script[install filebeat as service]", Status: converge.StatusSkipped, Reason: "deferred"},
		{ID: "directory[/var/log/filebeat]", Status: converge.StatusUnchanged},
	}}

	var buf bytes.Buffer
	require.NoError(t, New(&buf, FormatText, true).Report(r))
	out := buf.String()
	assert.Contains(t, out, "notified by package[filebeat]")
	assert.Contains(t, out, "deferred")
	assert.Contains(t, out, "2 changed, 1 unchanged, 1 skipped")
}

func TestPrinter_State(t *testing.T) {
	t.Parallel()
	st := state.NewState()
	st.Resources["default"] = &state.Record{
		Lifecycle:       plan.LifecycleCreate,
		Strategy:        plan.StrategyPackage,
		Platform:        "ubuntu/debian 22.04",
		FilebeatVersion: "7.6.2",
		ServiceName:     "filebeat",
		AppliedAt:       time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		Results:         []state.ActionRecord{{ID: "package[filebeat]", Status: converge.StatusChanged}},
	}
	st.Resources["broken"] = &state.Record{Lifecycle: plan.LifecycleDelete, Error: "boom", AppliedAt: time.Now()}

	var buf bytes.Buffer
	require.NoError(t, New(&buf, FormatText, true).State(st, "", true))
	out := buf.String()
	assert.Contains(t, out, "PLATFORM")
	assert.Contains(t, out, "ubuntu/debian 22.04")
	assert.Contains(t, out, "failed")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("broken")), bytes.Index(buf.Bytes(), []byte("default")))

	buf.Reset()
	require.NoError(t, New(&buf, FormatText, true).State(st, "missing", false))
	assert.Equal(t, "No resources found.\n", buf.String())

	buf.Reset()
	require.NoError(t, New(&buf, FormatJSON, true).State(st, "default", false))
	var decoded map[string]map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "7.6.2", decoded["default"]["filebeatVersion"])
}
