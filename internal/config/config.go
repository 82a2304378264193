// Package config loads gopatch.toml, the optional .env file and GOPATCH_*
// environment overrides into a single validated Config.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// DefaultFileName is looked up in the working directory when no config file
// is named explicitly.
const DefaultFileName = "gopatch.toml"

// Environment variables overriding values from the config file.
const (
	EnvRoot      = "GOPATCH_ROOT"
	EnvStrip     = "GOPATCH_STRIP"
	EnvMaxOffset = "GOPATCH_MAX_OFFSET"
	EnvLogLevel  = "GOPATCH_LOG_LEVEL"
)

// Config holds the settings shared by every gopatch command.
type Config struct {
	// Root is the directory patch paths are resolved against.
	Root string `toml:"root" json:"root,omitempty"`
	// Strip is the number of leading path segments removed from patch paths.
	Strip int `toml:"strip" json:"strip"`
	// MaxOffset bounds the fuzzy hunk search; 0 leaves it unbounded.
	MaxOffset int `toml:"max_offset" json:"max_offset"`
	// Patches lists patch files or doublestar globs applied in order.
	Patches []string `toml:"patches" json:"patches,omitempty"`
	// LogLevel is one of debug, info, warn or error.
	LogLevel string `toml:"log_level" json:"log_level,omitempty"`

	// Dir is the directory relative Root and Patches entries refer to.
	Dir string `toml:"-" json:"-"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Root:     ".",
		Strip:    1,
		LogLevel: "warn",
		Dir:      ".",
	}
}

// Load reads the TOML file at path on top of Default. An empty path means
// DefaultFileName. A missing file yields the defaults unless mustExist is set.
func Load(path string, mustExist bool) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultFileName
	}

	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) && !mustExist {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	var raw map[string]any
	if err := toml.Unmarshal(content, &raw); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := validateDocument(raw); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}

	decoder := toml.NewDecoder(bytes.NewReader(content))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		return Default(), fmt.Errorf("decode config %s: %w", path, err)
	}
	cfg.Dir = filepath.Dir(path)
	return cfg, nil
}

// ReadDotEnv returns the variables defined in the .env file at path. A missing
// file is not an error.
func ReadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		path = ".env"
	}
	values, err := godotenv.Read(path)
	if err != nil {
		var pathErr *os.PathError
		if errors.As(err, &pathErr) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return values, nil
}

// Lookup resolves an environment variable.
type Lookup func(key string) (string, bool)

// EnvLookup prefers the process environment and falls back to dotenv values.
func EnvLookup(dotenv map[string]string) Lookup {
	return func(key string) (string, bool) {
		if value, ok := os.LookupEnv(key); ok {
			return value, true
		}
		value, ok := dotenv[key]
		return value, ok
	}
}

// ApplyEnv overrides fields with the GOPATCH_* variables found by lookup.
func (c *Config) ApplyEnv(lookup Lookup) error {
	if lookup == nil {
		return nil
	}
	if value, ok := lookup(EnvRoot); ok && strings.TrimSpace(value) != "" {
		c.Root = strings.TrimSpace(value)
		// An overriding root is taken relative to the working directory.
		c.Dir = "."
	}
	if value, ok := lookup(EnvStrip); ok && strings.TrimSpace(value) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvStrip, err)
		}
		c.Strip = n
	}
	if value, ok := lookup(EnvMaxOffset); ok && strings.TrimSpace(value) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxOffset, err)
		}
		c.MaxOffset = n
	}
	if value, ok := lookup(EnvLogLevel); ok && strings.TrimSpace(value) != "" {
		c.LogLevel = strings.TrimSpace(value)
	}
	return nil
}

// Validate checks the effective configuration against the config schema.
func (c Config) Validate() error {
	return validateValue(c)
}

// ResolveRoot returns Root joined onto Dir when it is relative.
func (c Config) ResolveRoot() string {
	root := c.Root
	if root == "" {
		root = "."
	}
	if filepath.IsAbs(root) {
		return filepath.Clean(root)
	}
	return filepath.Join(c.Dir, root)
}
