// Package config loads the genloop configuration file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"genloop/internal/session"
)

// Config holds runtime parameters for the service and the CLI.
// Zero values mean "unspecified" and are replaced by defaults in main,
// except Session, which starts from session.DefaultParams.
type Config struct {
	Addr         string `json:"addr" yaml:"addr" toml:"addr"`
	ModelsDir    string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	DefaultModel string `json:"default_model" yaml:"default_model" toml:"default_model"`
	// LibPath points at the directory holding the llama.cpp shared libraries.
	LibPath      string `json:"lib_path" yaml:"lib_path" toml:"lib_path"`
	MaxBodyBytes int64  `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`

	CORS      CORS      `json:"cors" yaml:"cors" toml:"cors"`
	Queue     Queue     `json:"queue" yaml:"queue" toml:"queue"`
	Snapshots Snapshots `json:"snapshots" yaml:"snapshots" toml:"snapshots"`
	Log       Log       `json:"log" yaml:"log" toml:"log"`

	Session session.Params `json:"session" yaml:"session" toml:"session"`
}

// CORS configures cross-origin access to the HTTP API.
type CORS struct {
	Enabled        bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins" toml:"allowed_origins"`
	AllowedMethods []string `json:"allowed_methods" yaml:"allowed_methods" toml:"allowed_methods"`
	AllowedHeaders []string `json:"allowed_headers" yaml:"allowed_headers" toml:"allowed_headers"`
}

// Queue configures request admission in front of the single session.
type Queue struct {
	MaxDepth  int `json:"max_depth" yaml:"max_depth" toml:"max_depth"`
	MaxWaitMS int `json:"max_wait_ms" yaml:"max_wait_ms" toml:"max_wait_ms"`
}

// Snapshots configures the named snapshot store. An empty Dir with
// InMemory false disables it.
type Snapshots struct {
	Dir      string `json:"dir" yaml:"dir" toml:"dir"`
	InMemory bool   `json:"in_memory" yaml:"in_memory" toml:"in_memory"`
}

// Log configures the process logger.
type Log struct {
	Level  string `json:"level" yaml:"level" toml:"level"`
	Format string `json:"format" yaml:"format" toml:"format"`
}

// Default returns a Config with only the session defaults set.
func Default() Config {
	return Config{Session: session.DefaultParams()}
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	case ".json":
		err = json.Unmarshal(b, &cfg)
	case ".toml":
		err = toml.Unmarshal(b, &cfg)
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	if err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every invalid field at once. The session model path is
// not required here since it may come from DefaultModel or a later request.
func (c Config) Validate() error {
	var err error
	if c.MaxBodyBytes < 0 {
		err = multierr.Append(err, fmt.Errorf("max_body_bytes must not be negative"))
	}
	if c.Queue.MaxDepth < 0 || c.Queue.MaxWaitMS < 0 {
		err = multierr.Append(err, fmt.Errorf("queue limits must not be negative"))
	}
	if c.Log.Level != "" {
		if _, lerr := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); lerr != nil {
			err = multierr.Append(err, fmt.Errorf("log.level: %w", lerr))
		}
	}
	switch c.Log.Format {
	case "", "json", "console":
	default:
		err = multierr.Append(err, fmt.Errorf("log.format must be json or console, got %q", c.Log.Format))
	}
	if c.Snapshots.InMemory && c.Snapshots.Dir != "" {
		err = multierr.Append(err, fmt.Errorf("snapshots: dir and in_memory are exclusive"))
	}
	p := c.Session
	if p.ModelPath == "" {
		p.ModelPath = "-"
	}
	p.OnToken = func(session.Event) bool { return false }
	if verr := p.Validate(); verr != nil {
		err = multierr.Append(err, fmt.Errorf("session: %w", verr))
	}
	return err
}
