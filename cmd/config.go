package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigFile is looked up in the working directory when no
// --config flag is given.
const DefaultConfigFile = "plume.yaml"

// Config is the tool configuration, merged from defaults, plume.yaml,
// and PLUME_* environment variables, in that order.
type Config struct {
	// SrcDir is the directory compiled when no target argument is given.
	SrcDir string `koanf:"src_dir"`
	// OutDir receives compiled output; empty writes next to sources.
	OutDir string `koanf:"out_dir"`
	// DebounceMs is the watch-mode settle delay in milliseconds.
	DebounceMs int  `koanf:"debounce_ms"`
	Verbose    bool `koanf:"verbose"`
	NoColor    bool `koanf:"no_color"`
}

// LoadConfig reads configuration from path, or from plume.yaml in the
// working directory when path is empty. A missing default file is fine;
// a missing explicit file is an error.
func LoadConfig(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"src_dir":     ".",
		"debounce_ms": 200,
	}
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	explicit := path != ""
	if path == "" {
		path = DefaultConfigFile
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider("PLUME_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "PLUME_"))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.DebounceMs <= 0 {
		cfg.DebounceMs = 200
	}
	return &cfg, nil
}
