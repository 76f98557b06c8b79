// Package config loads fbinstall configuration and desired-state manifests.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"github.com/goccy/go-yaml"

	"github.com/terassyi/fbinstall/internal/config/schema"
	fbErrors "github.com/terassyi/fbinstall/internal/errors"
	"github.com/terassyi/fbinstall/internal/resource"
)

// Loader loads FilebeatInstall manifests written in CUE or YAML.
type Loader struct {
	ctx *cue.Context
	env *Env
}

// NewLoader creates a Loader. A nil env is detected from the host.
func NewLoader(env *Env) *Loader {
	if env == nil {
		env = DetectEnv()
	}
	return &Loader{ctx: cuecontext.New(), env: env}
}

func definition(ctx *cue.Context, name string) (cue.Value, error) {
	v := ctx.CompileString(schema.SchemaCUE, cue.Filename("schema.cue"))
	if v.Err() != nil {
		return cue.Value{}, fmt.Errorf("failed to compile schema: %w", v.Err())
	}
	def := v.LookupPath(cue.ParsePath(name))
	if !def.Exists() {
		return cue.Value{}, fmt.Errorf("schema has no %s", name)
	}
	return def, nil
}

// detectPackageName returns the package clause of CUE source, if any.
func detectPackageName(source string) string {
	for line := range strings.SplitSeq(source, "\n") {
		line = strings.TrimSpace(line)
		if pkg, found := strings.CutPrefix(line, "package "); found {
			return pkg
		}
		if line != "" && !strings.HasPrefix(line, "//") {
			break
		}
	}
	return ""
}

// LoadPaths loads resources from files and directories in order.
func (l *Loader) LoadPaths(paths []string) ([]*resource.FilebeatInstall, error) {
	var all []*resource.FilebeatInstall
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fbErrors.NewConfigError("failed to access manifest", err).WithFile(p)
		}
		var res []*resource.FilebeatInstall
		if info.IsDir() {
			res, err = l.Load(p)
		} else {
			res, err = l.LoadFile(p)
		}
		if err != nil {
			return nil, err
		}
		all = append(all, res...)
	}
	if err := checkUnique(all); err != nil {
		return nil, err
	}
	return all, nil
}

// Load loads every manifest in dir. CUE files are built as one instance so
// they may refer to each other; YAML files are loaded one by one.
func (l *Loader) Load(dir string) ([]*resource.FilebeatInstall, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fbErrors.NewConfigError("failed to read manifest directory", err).WithFile(dir)
	}

	var cueFiles, yamlFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == ConfigFileName {
			continue
		}
		switch filepath.Ext(name) {
		case ".cue":
			cueFiles = append(cueFiles, name)
		case ".yaml", ".yml":
			yamlFiles = append(yamlFiles, filepath.Join(dir, name))
		}
	}

	var all []*resource.FilebeatInstall
	if len(cueFiles) > 0 {
		res, err := l.loadCUEDir(dir, cueFiles)
		if err != nil {
			return nil, err
		}
		all = append(all, res...)
	}
	for _, f := range yamlFiles {
		res, err := l.LoadFile(f)
		if err != nil {
			return nil, err
		}
		all = append(all, res...)
	}
	return all, nil
}

func (l *Loader) loadCUEDir(dir string, files []string) ([]*resource.FilebeatInstall, error) {
	first, err := os.ReadFile(filepath.Join(dir, files[0]))
	if err != nil {
		return nil, fbErrors.NewConfigError("failed to read manifest", err).WithFile(files[0])
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	envSource := l.env.cue()
	if pkg := detectPackageName(string(first)); pkg != "" {
		envSource = "package " + pkg + "\n" + envSource
	}
	overlay := map[string]load.Source{
		filepath.Join(absDir, "_env.cue"): load.FromString(envSource),
	}

	instances := load.Instances(append([]string{"_env.cue"}, files...), &load.Config{
		Dir:     dir,
		Overlay: overlay,
	})
	if len(instances) == 0 {
		return nil, fbErrors.NewConfigError("no CUE files found", nil).WithFile(dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fbErrors.NewConfigError("failed to load CUE files", inst.Err).WithFile(dir)
	}
	value := l.ctx.BuildInstance(inst)
	if value.Err() != nil {
		return nil, fbErrors.NewConfigError("failed to build CUE value", value.Err()).WithFile(dir)
	}
	return l.parseResources(value, dir)
}

// LoadFile loads one CUE or YAML manifest. config.cue yields nothing.
func (l *Loader) LoadFile(path string) ([]*resource.FilebeatInstall, error) {
	if filepath.Base(path) == ConfigFileName {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fbErrors.NewConfigError("failed to read manifest", err).WithFile(path)
	}

	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return l.LoadYAML(data, path)
	default:
		return l.LoadCUE(data, path)
	}
}

// LoadCUE loads a CUE manifest. _env is available to the source.
func (l *Loader) LoadCUE(data []byte, filename string) ([]*resource.FilebeatInstall, error) {
	// Appended so reported line numbers match the file.
	source := string(data) + "\n" + l.env.cue()

	value := l.ctx.CompileString(source, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, fbErrors.NewConfigError("failed to compile CUE", err).WithFile(filename).WithLine(errorLine(err, filename))
	}
	return l.parseResources(value, filename)
}

// errorLine returns the first line cue reports for err within filename.
func errorLine(err error, filename string) int {
	for _, pos := range cueerrors.Positions(err) {
		if pos.Filename() == filename && pos.Line() > 0 {
			return pos.Line()
		}
	}
	return 0
}

// LoadYAML loads a YAML manifest. Multiple documents are allowed.
func (l *Loader) LoadYAML(data []byte, filename string) ([]*resource.FilebeatInstall, error) {
	var all []*resource.FilebeatInstall
	dec := yaml.NewDecoder(bytes.NewReader(data))
	for {
		var doc any
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fbErrors.NewConfigError("failed to parse YAML", err).WithFile(filename)
		}
		if doc == nil {
			continue
		}
		value := l.ctx.Encode(doc)
		if value.Err() != nil {
			return nil, fbErrors.NewConfigError("failed to encode YAML document", value.Err()).WithFile(filename)
		}
		res, err := l.parseResources(value, filename)
		if err != nil {
			return nil, err
		}
		all = append(all, res...)
	}
	if len(all) == 0 {
		return nil, fbErrors.NewConfigError("no resources found", nil).WithFile(filename)
	}
	return all, nil
}

// parseResources accepts a list of resources, a single resource, or a
// struct whose fields are resources (e.g. a top-level filebeat block).
func (l *Loader) parseResources(value cue.Value, filename string) ([]*resource.FilebeatInstall, error) {
	var found []cue.Value
	switch {
	case value.Kind() == cue.ListKind:
		iter, err := value.List()
		if err != nil {
			return nil, fbErrors.NewConfigError("failed to iterate list", err).WithFile(filename)
		}
		for iter.Next() {
			found = append(found, iter.Value())
		}
	case value.LookupPath(cue.ParsePath("apiVersion")).Exists():
		found = append(found, value)
	default:
		iter, err := value.Fields(cue.Definitions(false), cue.Hidden(false))
		if err != nil {
			return nil, fbErrors.NewConfigError("failed to iterate fields", err).WithFile(filename)
		}
		for iter.Next() {
			if iter.Value().LookupPath(cue.ParsePath("apiVersion")).Exists() {
				found = append(found, iter.Value())
			}
		}
	}
	if len(found) == 0 {
		return nil, fbErrors.NewConfigError("no resources found", nil).WithFile(filename)
	}

	def, err := definition(l.ctx, "#FilebeatInstall")
	if err != nil {
		return nil, err
	}

	out := make([]*resource.FilebeatInstall, 0, len(found))
	for _, v := range found {
		res, err := decodeResource(def, v)
		if err != nil {
			return nil, fbErrors.NewConfigError("invalid manifest", err).WithFile(filename).WithLine(errorLine(err, filename))
		}
		out = append(out, res)
	}
	return out, nil
}

// decodeResource validates v against the schema and decodes it over the
// default spec, so absent fields keep their defaults.
func decodeResource(def, v cue.Value) (*resource.FilebeatInstall, error) {
	unified := def.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("invalid FilebeatInstall: %w", err)
	}
	jsonBytes, err := unified.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource: %w", err)
	}

	res := &resource.FilebeatInstall{FilebeatSpec: resource.DefaultFilebeatSpec()}
	if err := json.Unmarshal(jsonBytes, res); err != nil {
		return nil, fmt.Errorf("failed to decode resource: %w", err)
	}
	if err := res.FilebeatSpec.Validate(); err != nil {
		return nil, fmt.Errorf("resource %s: %w", res.Name(), err)
	}
	return res, nil
}

func checkUnique(res []*resource.FilebeatInstall) error {
	seen := make([]string, 0, len(res))
	for _, r := range res {
		if slices.Contains(seen, r.Name()) {
			return fbErrors.NewConfigError(fmt.Sprintf("duplicate resource %q", r.Name()), nil)
		}
		seen = append(seen, r.Name())
	}
	return nil
}
