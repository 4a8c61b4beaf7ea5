package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// ConfigFileName is looked for in the data directory and the working
// directory.
const ConfigFileName = "pagedb.yaml"

const envPrefix = "PAGEDB_"

// Config collects every tunable of the engine. Sources are layered:
// built-in defaults, then pagedb.yaml, then PAGEDB_* environment
// variables, then explicitly-set command line flags.
type Config struct {
	// DataDir holds the backing file and the WAL.
	DataDir string `koanf:"data_dir"`

	// MaxPages caps backing file growth; 0 means the built-in limit.
	MaxPages uint64 `koanf:"max_pages"`

	Log LogConfig `koanf:"log"`
}

// LogConfig mirrors the logging package's options.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Path   string `koanf:"path"`
}

// DatabasePath returns the backing file location under DataDir.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "pagedb.db")
}

// WALPath returns the write-ahead log location under DataDir.
func (c *Config) WALPath() string {
	return filepath.Join(c.DataDir, "pagedb.wal")
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"data_dir":   ".",
		"max_pages":  uint64(0),
		"log.level":  "info",
		"log.format": "text",
		"log.path":   "",
	}
}

// Load assembles the configuration. cfgFile may be empty, in which case
// pagedb.yaml is looked up in the working directory; a missing file is
// not an error. flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if cfgFile == "" {
		if _, err := os.Stat(ConfigFileName); err == nil {
			cfgFile = ConfigFileName
		}
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	}

	// PAGEDB_LOG_LEVEL -> log.level, PAGEDB_DATA_DIR -> data_dir.
	if err := k.Load(env.Provider(envPrefix, ".", envToKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if flags != nil {
		err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			if strings.HasPrefix(key, "log_") {
				key = "log." + strings.TrimPrefix(key, "log_")
			}
			return key, posflag.FlagVal(flags, f)
		}), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	return &cfg, nil
}

// envToKey maps PAGEDB_LOG_LEVEL to log.level and everything else to a
// flat snake_case key.
func envToKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	if strings.HasPrefix(key, "log_") {
		return "log." + strings.TrimPrefix(key, "log_")
	}
	return key
}
