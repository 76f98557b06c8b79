package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/format"

	fbErrors "github.com/terassyi/fbinstall/internal/errors"
)

// ConfigFileName is the tool configuration file inside the config directory.
// Manifest loading skips it.
const ConfigFileName = "config.cue"

// Config is fbinstall's own configuration.
type Config struct {
	// StateDir holds state.json and its lock.
	StateDir string `json:"stateDir"`

	// CacheDir holds downloaded archives.
	CacheDir string `json:"cacheDir"`
}

// DefaultConfigDir returns the configuration directory for the running OS.
func DefaultConfigDir() string {
	if runtime.GOOS == "windows" {
		return "C:/ProgramData/fbinstall"
	}
	return "/etc/fbinstall"
}

// DefaultConfig returns the default configuration for the running OS.
func DefaultConfig() *Config {
	if runtime.GOOS == "windows" {
		return &Config{
			StateDir: "C:/ProgramData/fbinstall/state",
			CacheDir: "C:/ProgramData/fbinstall/cache",
		}
	}
	return &Config{
		StateDir: "/var/lib/fbinstall",
		CacheDir: "/var/cache/fbinstall",
	}
}

// LoadConfig reads the config block of config.cue in configDir. A missing
// file or block yields the defaults; fields that are set replace them.
func LoadConfig(configDir string) (*Config, error) {
	configPath := filepath.Join(configDir, ConfigFileName)
	data, err := os.ReadFile(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fbErrors.NewConfigError("failed to read config", err).WithFile(configPath)
	}

	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(configPath))
	if value.Err() != nil {
		return nil, fbErrors.NewConfigError("failed to compile config", value.Err()).WithFile(configPath)
	}

	configValue := value.LookupPath(cue.ParsePath("config"))
	if !configValue.Exists() {
		return DefaultConfig(), nil
	}

	def, err := definition(ctx, "#Config")
	if err != nil {
		return nil, err
	}
	configValue = def.Unify(configValue)
	if err := configValue.Validate(cue.Concrete(true)); err != nil {
		return nil, fbErrors.NewConfigError("invalid config", err).WithFile(configPath)
	}

	jsonBytes, err := configValue.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(jsonBytes, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// ToCue renders the config as a config.cue file.
func (c *Config) ToCue() ([]byte, error) {
	ctx := cuecontext.New()
	v := ctx.Encode(map[string]any{"config": c})
	if v.Err() != nil {
		return nil, fmt.Errorf("failed to encode config: %w", v.Err())
	}
	b, err := format.Node(v.Syntax())
	if err != nil {
		return nil, fmt.Errorf("failed to format config: %w", err)
	}
	return append([]byte("package fbinstall\n\n"), b...), nil
}
