// Package config loads the memkv process configuration.
//
// Sources are applied in order, later ones overriding earlier ones:
// built-in defaults, a YAML file, MEMKV_* environment variables, then
// explicit overrides (command line flags).
package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the default environment variable prefix
const DefaultEnvPrefix = "MEMKV_"

// ErrInvalid is wrapped by every validation failure
var ErrInvalid = errors.New("invalid configuration")

// Config is the full process configuration
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Protocol ProtocolConfig `koanf:"protocol"`
	Storage  StorageConfig  `koanf:"storage"`
	Log      LogConfig      `koanf:"log"`
	Metrics  MetricsConfig  `koanf:"metrics"`
}

// ServerConfig configures the TCP listener and per-connection limits
type ServerConfig struct {
	Addr         string        `koanf:"addr"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	// RateLimit is commands per second per connection; 0 disables it
	RateLimit float64 `koanf:"rate_limit"`
	RateBurst int     `koanf:"rate_burst"`
}

// ProtocolConfig configures the RESP codec
type ProtocolConfig struct {
	MaxDepth int `koanf:"max_depth"`
}

// StorageConfig configures the in-memory store
type StorageConfig struct {
	Shards int `koanf:"shards"`
}

// LogConfig configures logging
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// MetricsConfig configures the Prometheus endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// Defaults returns the built-in configuration values keyed by koanf path
func Defaults() map[string]any {
	return map[string]any{
		"server.addr":          "127.0.0.1:8080",
		"server.read_timeout":  "0s",
		"server.write_timeout": "30s",
		"server.rate_limit":    0,
		"server.rate_burst":    0,
		"protocol.max_depth":   32,
		"storage.shards":       64,
		"log.level":            "info",
		"log.format":           "text",
		"metrics.addr":         "",
	}
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return fmt.Errorf("%w: server.addr must not be empty", ErrInvalid)
	}
	if c.Server.ReadTimeout < 0 {
		return fmt.Errorf("%w: server.read_timeout must not be negative", ErrInvalid)
	}
	if c.Server.WriteTimeout < 0 {
		return fmt.Errorf("%w: server.write_timeout must not be negative", ErrInvalid)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("%w: server.rate_limit must not be negative", ErrInvalid)
	}
	if c.Server.RateBurst < 0 {
		return fmt.Errorf("%w: server.rate_burst must not be negative", ErrInvalid)
	}
	if c.Protocol.MaxDepth < 1 {
		return fmt.Errorf("%w: protocol.max_depth must be at least 1", ErrInvalid)
	}
	if c.Storage.Shards < 1 {
		return fmt.Errorf("%w: storage.shards must be at least 1", ErrInvalid)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log.format must be text or json, got %q", ErrInvalid, c.Log.Format)
	}
	return nil
}

// Loader loads configuration from multiple sources
type Loader struct {
	envPrefix string
	filePath  string
	overrides map[string]any

	mu      sync.Mutex
	watcher *file.File
}

// Option configures the Loader
type Option func(*Loader)

// WithEnvPrefix sets the environment variable prefix
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithConfigFile sets the YAML configuration file path
func WithConfigFile(path string) Option {
	return func(l *Loader) {
		l.filePath = path
	}
}

// WithOverrides sets values applied after every other source, keyed by
// koanf path (for example "server.addr").
func WithOverrides(values map[string]any) Option {
	return func(l *Loader) {
		l.overrides = values
	}
}

// NewLoader creates a configuration loader
func NewLoader(opts ...Option) *Loader {
	l := &Loader{envPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads every source, unmarshals and validates the result
func (l *Loader) Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(mapProvider(Defaults()), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if l.filePath != "" {
		if err := k.Load(file.Provider(l.filePath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load file %s: %w", l.filePath, err)
		}
	}

	// MEMKV_SERVER_READ_TIMEOUT -> server.read_timeout: only the first
	// underscore separates the section, the rest belong to the key.
	prefix := l.envPrefix
	transform := func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, prefix))
		return strings.Replace(s, "_", ".", 1)
	}
	if err := k.Load(env.Provider(prefix, ".", transform), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	if len(l.overrides) > 0 {
		if err := k.Load(mapProvider(l.overrides), nil); err != nil {
			return nil, fmt.Errorf("load overrides: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Watch reloads the configuration whenever the config file changes and
// passes the result to fn. It is a no-op without a config file.
func (l *Loader) Watch(fn func(*Config, error)) error {
	if l.filePath == "" {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.watcher != nil {
		return errors.New("config: already watching")
	}

	w := file.Provider(l.filePath)
	err := w.Watch(func(_ interface{}, err error) {
		if err != nil {
			fn(nil, fmt.Errorf("watch %s: %w", l.filePath, err))
			return
		}
		fn(l.Load())
	})
	if err != nil {
		return fmt.Errorf("watch %s: %w", l.filePath, err)
	}
	l.watcher = w
	return nil
}

// Close stops watching the config file
func (l *Loader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.watcher == nil {
		return nil
	}
	err := l.watcher.Unwatch()
	l.watcher = nil
	return err
}

// mapProvider is a koanf provider over a flat map keyed by dotted paths
type mapProvider map[string]any

func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("config: map provider does not support ReadBytes")
}

func (m mapProvider) Read() (map[string]any, error) {
	return unflatten(m), nil
}

// unflatten turns {"a.b": 1} into {"a": {"b": 1}} so dotted keys merge with
// nested file values.
func unflatten(flat map[string]any) map[string]any {
	out := make(map[string]any)
	for key, val := range flat {
		parts := strings.Split(key, ".")
		cur := out
		for _, p := range parts[:len(parts)-1] {
			next, ok := cur[p].(map[string]any)
			if !ok {
				next = make(map[string]any)
				cur[p] = next
			}
			cur = next
		}
		cur[parts[len(parts)-1]] = val
	}
	return out
}
