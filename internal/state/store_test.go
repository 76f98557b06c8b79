package state

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terassyi/fbinstall/internal/converge"
	fbErrors "github.com/terassyi/fbinstall/internal/errors"
	"github.com/terassyi/fbinstall/internal/plan"
	"github.com/terassyi/fbinstall/internal/platform"
	"github.com/terassyi/fbinstall/internal/resource"
)

func sampleRecord(t *testing.T) *Record {
	t.Helper()
	spec := resource.DefaultFilebeatSpec()
	p := &plan.Plan{
		Lifecycle:     plan.LifecycleCreate,
		Strategy:      plan.StrategyPackage,
		Platform:      platform.Resolve(platform.Info{Name: "ubuntu", Family: platform.FamilyDebian, Version: "22.04"}),
		VersionString: spec.Version,
		Desired:       spec,
	}
	report := &converge.Report{Results: []converge.Result{
		{ID: "repository[default]", Operations: []plan.Operation{plan.OpCreate}, Status: converge.StatusChanged},
		{ID: "package[filebeat]", Operations: []plan.Operation{plan.OpInstall}, Status: converge.StatusUnchanged},
	}}
	return NewRecord(p, report, nil, time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC))
}

func TestStore_LockUnlock(t *testing.T) {
	t.Parallel()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Lock())
	require.NoError(t, store.Lock(), "locking twice is a no-op")

	data, err := os.ReadFile(store.LockPath())
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	require.NoError(t, store.Unlock())
	require.NoError(t, store.Unlock())
}

func TestStore_LockConflict(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	first, err := NewStore(dir)
	require.NoError(t, err)
	second, err := NewStore(dir)
	require.NoError(t, err)

	require.NoError(t, first.Lock())
	defer func() { _ = first.Unlock() }()

	err = second.Lock()
	require.Error(t, err)
	var stateErr *fbErrors.StateError
	require.True(t, errors.As(err, &stateErr))
	assert.Equal(t, os.Getpid(), stateErr.LockPID)
	assert.Equal(t, first.LockPath(), stateErr.LockFile)
}

func TestStore_LoadSave(t *testing.T) {
	t.Parallel()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Lock())
	defer func() { _ = store.Unlock() }()

	st, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, Version, st.Version)
	assert.Empty(t, st.Resources)

	rec := sampleRecord(t)
	require.NoError(t, store.Put("default", rec))

	loaded, err := store.LoadReadOnly()
	require.NoError(t, err)
	require.Contains(t, loaded.Resources, "default")
	got := loaded.Resources["default"]
	assert.Equal(t, plan.StrategyPackage, got.Strategy)
	assert.Equal(t, "ubuntu/debian 22.04", got.Platform)
	assert.Equal(t, "filebeat", got.ServiceName)
	assert.Equal(t, 1, got.Changed())
	assert.Equal(t, []string{"create"}, got.Results[0].Operations)
	assert.True(t, rec.AppliedAt.Equal(got.AppliedAt))
	assert.NoFileExists(t, store.StatePath()+".tmp")
}

func TestStore_RequiresLock(t *testing.T) {
	t.Parallel()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load()
	assert.Error(t, err)
	assert.Error(t, store.Save(NewState()))
}

func TestStore_CorruptState(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "state.json"), []byte("{"), 0o644))
	store, err := NewStore(dir)
	require.NoError(t, err)

	_, err = store.LoadReadOnly()
	var stateErr *fbErrors.StateError
	assert.True(t, errors.As(err, &stateErr))
}

func TestStore_Backup(t *testing.T) {
	t.Parallel()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Lock())
	defer func() { _ = store.Unlock() }()

	bak, err := LoadBackup(store.StatePath())
	require.NoError(t, err)
	assert.Nil(t, bak)

	first := sampleRecord(t)
	require.NoError(t, store.Put("default", first))
	second := sampleRecord(t)
	second.Lifecycle = plan.LifecycleDelete
	require.NoError(t, store.Put("default", second))

	bak, err = LoadBackup(store.StatePath())
	require.NoError(t, err)
	require.NotNil(t, bak)
	assert.Equal(t, plan.LifecycleCreate, bak.Resources["default"].Lifecycle)
	assert.Equal(t, store.StatePath()+".bak", BackupPath(store.StatePath()))
}

func TestNewStore_CreatesDirectory(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "nested", "state")
	_, err := NewStore(dir)
	require.NoError(t, err)
	assert.DirExists(t, dir)
}

func TestNewRecord_Failure(t *testing.T) {
	t.Parallel()
	p := &plan.Plan{Lifecycle: plan.LifecycleDelete, Strategy: plan.StrategyNone}
	rec := NewRecord(p, nil, errors.New("boom"), time.Now())
	assert.Equal(t, "boom", rec.Error)
	assert.Empty(t, rec.Results)
	assert.Empty(t, rec.ServiceName)
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		st       *State
		warnings []string
	}{
		{name: "clean", st: &State{Version: Version, Resources: map[string]*Record{"default": {Lifecycle: plan.LifecycleCreate, AppliedAt: time.Now()}}}},
		{name: "empty version", st: &State{}, warnings: []string{"version"}},
		{name: "unknown version", st: &State{Version: "9"}, warnings: []string{"version"}},
		{name: "incomplete record", st: &State{Version: Version, Resources: map[string]*Record{"a": {}}}, warnings: []string{"resources.a.lifecycle", "resources.a.appliedAt"}},
		{name: "nil record", st: &State{Version: Version, Resources: map[string]*Record{"a": nil}}, warnings: []string{"resources.a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			result := Validate(tt.st)
			var fields []string
			for _, w := range result.Warnings {
				fields = append(fields, w.Field)
			}
			assert.Equal(t, tt.warnings, fields)
			assert.Equal(t, len(tt.warnings) > 0, result.HasWarnings())
		})
	}
}

func TestIssue_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "version: version is empty", Issue{Field: "version", Message: "version is empty"}.String())
}
