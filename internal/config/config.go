// Package config loads and validates the cmdlens configuration file.
//
// Configuration is TOML, resolved from CMDLENS_CONFIG, then
// $XDG_CONFIG_HOME/cmdlens/config.toml, then ~/.config/cmdlens/config.toml.
// Precedence within a load is Env > TOML > Default.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/Dicklesworthstone/cmdlens/internal/discover"
	"github.com/Dicklesworthstone/cmdlens/internal/helptext"
	"github.com/Dicklesworthstone/cmdlens/internal/introspect"
	"github.com/Dicklesworthstone/cmdlens/internal/util"
)

// Config represents the main configuration.
type Config struct {
	Parser     ParserConfig     `toml:"parser"`
	Introspect IntrospectConfig `toml:"introspect"`
	Discover   DiscoverConfig   `toml:"discover"`
	Serve      ServeConfig      `toml:"serve"`
	Output     OutputConfig     `toml:"output"`
}

// ParserConfig tunes the help-text classifier.
type ParserConfig struct {
	Weights helptext.Weights `toml:"weights"`
}

// IntrospectConfig bounds the recursive structure walk.
type IntrospectConfig struct {
	CacheTTLSeconds     int     `toml:"cache_ttl_seconds"`     // Per-target structure cache lifetime
	MaxSubcommandProbes int     `toml:"max_subcommand_probes"` // Help captures spent below the root
	MaxDepth            int     `toml:"max_depth"`             // 2 = sub-subcommands
	SeedConfidence      float64 `toml:"seed_confidence"`       // Gate for probing root commands
	RequeueConfidence   float64 `toml:"requeue_confidence"`    // Gate for walking deeper
	KeepConfidence      float64 `toml:"keep_confidence"`       // Gate for keeping parsed entries
}

// DiscoverConfig holds search-path discovery settings.
type DiscoverConfig struct {
	SearchPath     string `toml:"search_path"`     // empty means $PATH
	MaxConcurrent  int    `toml:"max_concurrent"`  // parallel candidate tests
	TimeoutSeconds int    `toml:"timeout_seconds"` // per-candidate help timeout
	MinScore       int    `toml:"min_score"`       // filter applied to results
	Limit          int    `toml:"limit"`           // 0 means unlimited
	Cache          bool   `toml:"cache"`           // consult the on-disk cache
	CacheTTLHours  int    `toml:"cache_ttl_hours"`
	CacheDir       string `toml:"cache_dir"` // empty means the user config dir
}

// ServeConfig holds the HTTP API settings.
type ServeConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns the host:port listen address.
func (s ServeConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// OutputConfig holds rendering preferences.
type OutputConfig struct {
	Format string `toml:"format"` // table, json, or yaml
	Color  string `toml:"color"`  // auto, always, or never
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Parser: ParserConfig{
			Weights: helptext.DefaultWeights(),
		},
		Introspect: IntrospectConfig{
			CacheTTLSeconds:     300,
			MaxSubcommandProbes: 14,
			MaxDepth:            2,
			SeedConfidence:      0.45,
			RequeueConfidence:   0.5,
			KeepConfidence:      0.35,
		},
		Discover: DiscoverConfig{
			MaxConcurrent:  8,
			TimeoutSeconds: 3,
			Cache:          true,
			CacheTTLHours:  24,
		},
		Serve: ServeConfig{
			Host: "127.0.0.1",
			Port: 8745,
		},
		Output: OutputConfig{
			Format: "table",
			Color:  "auto",
		},
	}
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	if env := os.Getenv("CMDLENS_CONFIG"); env != "" {
		return ExpandHome(env)
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "cmdlens", "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = os.TempDir()
	}
	return filepath.Join(home, ".config", "cmdlens", "config.toml")
}

// Load loads configuration from a file. A missing file is not an error:
// defaults apply. Environment variables override both.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	cfg := Default()

	if data, err := os.ReadFile(path); err == nil {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	if sp := os.Getenv("CMDLENS_SEARCH_PATH"); sp != "" {
		cfg.Discover.SearchPath = sp
	}
	if dir := os.Getenv("CMDLENS_CACHE_DIR"); dir != "" {
		cfg.Discover.CacheDir = ExpandHome(dir)
	}
	if v := os.Getenv("CMDLENS_NO_CACHE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil && b {
			cfg.Discover.Cache = false
		}
	}
	if host := os.Getenv("CMDLENS_HOST"); host != "" {
		cfg.Serve.Host = host
	}
	if port := os.Getenv("CMDLENS_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Serve.Port = p
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to path atomically, creating parent
// directories as needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	var buf strings.Builder
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return util.AtomicWriteFile(path, []byte(buf.String()), 0644)
}

var validOutputFormats = map[string]bool{"table": true, "json": true, "yaml": true}
var validColorModes = map[string]bool{"auto": true, "always": true, "never": true}

// Validate rejects values that would misbehave at runtime rather than
// letting them fail deep inside a subsystem.
func (c *Config) Validate() error {
	if c.Parser.Weights.RoleThreshold < 0 || c.Parser.Weights.RoleThreshold > 1 {
		return fmt.Errorf("parser.weights.role_threshold %v: must be in [0,1]", c.Parser.Weights.RoleThreshold)
	}
	if c.Introspect.MaxDepth < 0 {
		return fmt.Errorf("introspect.max_depth %d: must be >= 0", c.Introspect.MaxDepth)
	}
	if c.Introspect.MaxSubcommandProbes < 0 {
		return fmt.Errorf("introspect.max_subcommand_probes %d: must be >= 0", c.Introspect.MaxSubcommandProbes)
	}
	for name, v := range map[string]float64{
		"introspect.seed_confidence":    c.Introspect.SeedConfidence,
		"introspect.requeue_confidence": c.Introspect.RequeueConfidence,
		"introspect.keep_confidence":    c.Introspect.KeepConfidence,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s %v: must be in [0,1]", name, v)
		}
	}
	if c.Discover.MaxConcurrent < 0 {
		return fmt.Errorf("discover.max_concurrent %d: must be >= 0", c.Discover.MaxConcurrent)
	}
	if c.Serve.Port < 0 || c.Serve.Port > 65535 {
		return fmt.Errorf("serve.port %d: must be a valid port", c.Serve.Port)
	}
	if c.Output.Format != "" && !validOutputFormats[c.Output.Format] {
		return fmt.Errorf("output.format %q: must be \"table\", \"json\", or \"yaml\"", c.Output.Format)
	}
	if c.Output.Color != "" && !validColorModes[c.Output.Color] {
		return fmt.Errorf("output.color %q: must be \"auto\", \"always\", or \"never\"", c.Output.Color)
	}
	return nil
}

// IntrospectLimits translates the config section into runtime limits.
func (c *Config) IntrospectLimits() introspect.Limits {
	return introspect.Limits{
		CacheTTL:            time.Duration(c.Introspect.CacheTTLSeconds) * time.Second,
		MaxSubcommandProbes: c.Introspect.MaxSubcommandProbes,
		MaxDepth:            c.Introspect.MaxDepth,
		SeedConfidence:      c.Introspect.SeedConfidence,
		RequeueConfidence:   c.Introspect.RequeueConfidence,
		KeepConfidence:      c.Introspect.KeepConfidence,
	}
}

// DiscoverOptions translates the config section into runtime options.
func (c *Config) DiscoverOptions() discover.Options {
	return discover.Options{
		SearchPath:    c.Discover.SearchPath,
		MaxConcurrent: c.Discover.MaxConcurrent,
		Timeout:       time.Duration(c.Discover.TimeoutSeconds) * time.Second,
		MinScore:      c.Discover.MinScore,
		Limit:         c.Discover.Limit,
		UseCache:      c.Discover.Cache,
		CacheTTL:      time.Duration(c.Discover.CacheTTLHours) * time.Hour,
		CacheDir:      ExpandHome(c.Discover.CacheDir),
	}
}

// ExpandHome expands the tilde (~) in a path to the user's home directory.
// Supports "~" and "~/path" formats.
func ExpandHome(path string) string {
	if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			return home
		}
		return path
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
