// Package config loads gosha settings.
//
// Settings come from, in order of precedence: command-line flags, GOSHA_*
// environment variables, the YAML config file, and built-in defaults. The
// config file is the one named by --config (or GOSHA_CONFIG); without it,
// ~/.config/gosha/config.yaml is read when it exists.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to flag names to form environment variable names.
const EnvPrefix = "GOSHA"

const (
	// DefaultChunkSize is the read buffer handed to the engine per update.
	DefaultChunkSize = 1 << 20
	// DefaultCheckpointInterval is how many bytes are hashed between checkpoints.
	DefaultCheckpointInterval = 256 << 20
)

// Config holds settings shared by the gosha commands.
type Config struct {
	// Workers is the number of files hashed concurrently.
	Workers int `yaml:"workers"`

	// ChunkSize is the read buffer size in bytes.
	ChunkSize int `yaml:"chunk_size"`

	// CheckpointDir enables resumable hashing when non-empty.
	CheckpointDir string `yaml:"checkpoint_dir"`

	// CheckpointInterval is the number of bytes between checkpoint writes.
	CheckpointInterval int64 `yaml:"checkpoint_interval"`

	LogLevel string `yaml:"log_level"`
	Progress bool   `yaml:"progress"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Workers:            runtime.NumCPU(),
		ChunkSize:          DefaultChunkSize,
		CheckpointInterval: DefaultCheckpointInterval,
		LogLevel:           "warning",
	}
}

// Load reads the config file at path on top of the defaults. An empty path
// falls back to DefaultPath, and a missing default file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		defaultPath, err := DefaultPath()
		if err != nil {
			return cfg, nil
		}
		path = defaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that numeric settings are usable.
func (c Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.ChunkSize < 1 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize)
	}
	if c.CheckpointInterval < 1 {
		return fmt.Errorf("checkpoint_interval must be positive, got %d", c.CheckpointInterval)
	}
	return nil
}

// DefaultPath returns the per-user config file location.
func DefaultPath() (string, error) {
	if runtime.GOOS == "windows" {
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA is not set")
		}
		return filepath.Join(appData, "gosha", "config.yaml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home dir: %w", err)
	}
	return filepath.Join(home, ".config", "gosha", "config.yaml"), nil
}

// Apply copies config values into every flag of fs that was not set on the
// command line or from the environment. Flags fs does not define are skipped.
func (c Config) Apply(fs *pflag.FlagSet) error {
	values := map[string]string{
		"workers":             strconv.Itoa(c.Workers),
		"chunk-size":          strconv.Itoa(c.ChunkSize),
		"checkpoint-dir":      c.CheckpointDir,
		"checkpoint-interval": strconv.FormatInt(c.CheckpointInterval, 10),
		"log-level":           c.LogLevel,
		"progress":            strconv.FormatBool(c.Progress),
	}
	for name, value := range values {
		flag := fs.Lookup(name)
		if flag == nil || flag.Changed {
			continue
		}
		if err := fs.Set(name, value); err != nil {
			return fmt.Errorf("invalid config value %q for %s: %w", value, name, err)
		}
	}
	return nil
}

// SetFlagsFromEnv sets each flag not given on the command line from the
// environment variable PREFIX_FLAG_NAME, if present.
func SetFlagsFromEnv(fs *pflag.FlagSet, prefix string) (err error) {
	alreadySet := make(map[string]bool)
	fs.Visit(func(f *pflag.Flag) {
		alreadySet[f.Name] = true
	})
	fs.VisitAll(func(f *pflag.Flag) {
		if alreadySet[f.Name] {
			return
		}
		key := prefix + "_" + strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
		val := os.Getenv(key)
		if val == "" {
			return
		}
		if serr := fs.Set(f.Name, val); serr != nil {
			err = fmt.Errorf("invalid value %q for %s: %w", val, key, serr)
		}
	})
	return err
}
