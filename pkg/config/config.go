package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/panbanda/pqinspect/pkg/parser"
)

// Config holds all configuration options for pqinspect.
type Config struct {
	// Type inference settings
	Inference InferenceConfig `koanf:"inference" toml:"inference"`

	// Completion ranking
	Autocomplete AutocompleteConfig `koanf:"autocomplete" toml:"autocomplete"`

	// Host library definitions
	Library LibraryConfig `koanf:"library" toml:"library"`

	// Per-document session cache
	Cache CacheConfig `koanf:"cache" toml:"cache"`

	// Document discovery for batch checks
	Scan ScanConfig `koanf:"scan" toml:"scan"`

	// Output settings
	Output OutputConfig `koanf:"output" toml:"output"`

	// Logging settings
	Logging LoggingConfig `koanf:"logging" toml:"logging"`
}

// InferenceConfig selects the inference strategy.
type InferenceConfig struct {
	Strategy string `koanf:"strategy" toml:"strategy"` // extended, primitive
}

// AutocompleteConfig tunes Jaro-Winkler ranking.
type AutocompleteConfig struct {
	MaxItems       int     `koanf:"max_items" toml:"max_items"` // 0 keeps everything
	BoostThreshold float64 `koanf:"boost_threshold" toml:"boost_threshold"`
	PrefixSize     int     `koanf:"prefix_size" toml:"prefix_size"`
	IncludeLibrary bool    `koanf:"include_library" toml:"include_library"`
}

// LibraryConfig lists library definition files.
type LibraryConfig struct {
	Standard bool     `koanf:"standard" toml:"standard"` // load the embedded standard subset
	Paths    []string `koanf:"paths" toml:"paths"`
}

// CacheConfig controls the session cache.
type CacheConfig struct {
	Enabled    bool `koanf:"enabled" toml:"enabled"`
	Capacity   int  `koanf:"capacity" toml:"capacity"`       // documents kept
	TTLMinutes int  `koanf:"ttl_minutes" toml:"ttl_minutes"` // 0 disables expiry
}

// ScanConfig defines which files count as documents.
type ScanConfig struct {
	Extensions []string `koanf:"extensions" toml:"extensions"`
	Patterns   []string `koanf:"patterns" toml:"patterns"`
	Dirs       []string `koanf:"dirs" toml:"dirs"`
	Gitignore  bool     `koanf:"gitignore" toml:"gitignore"`
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format string `koanf:"format" toml:"format"` // text, json, markdown, toon, yaml
	Color  bool   `koanf:"color" toml:"color"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level string `koanf:"level" toml:"level"` // debug, info, warn, error
}

var (
	strategies = []string{"extended", "primitive"}
	formats    = []string{"text", "json", "markdown", "toon", "yaml"}
	levels     = []string{"debug", "info", "warn", "error"}
)

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Inference: InferenceConfig{
			Strategy: "extended",
		},
		Autocomplete: AutocompleteConfig{
			MaxItems:       50,
			BoostThreshold: 0.7,
			PrefixSize:     4,
			IncludeLibrary: true,
		},
		Library: LibraryConfig{
			Standard: true,
		},
		Cache: CacheConfig{
			Enabled:    true,
			Capacity:   128,
			TTLMinutes: 30,
		},
		Scan: ScanConfig{
			Extensions: append([]string(nil), parser.SourceExtensions...),
			Patterns: []string{
				"*.min.pq",
			},
			Dirs: []string{
				"vendor",
				"node_modules",
				".git",
				".pqinspect",
				"dist",
				"build",
				"bin",
				"obj",
			},
			Gitignore: true,
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
		},
		Logging: LoggingConfig{
			Level: "warn",
		},
	}
}

// Load loads configuration from a file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	// Determine parser based on extension
	var parser koanf.Parser
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".toml":
		parser = toml.Parser()
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault tries to load config from standard locations or returns defaults.
func LoadOrDefault() *Config {
	configNames := []string{
		"pqinspect.toml",
		"pqinspect.yaml",
		"pqinspect.yml",
		"pqinspect.json",
		".pqinspect.toml",
		".pqinspect.yaml",
		".pqinspect.yml",
		".pqinspect.json",
	}

	// Search in current directory and .pqinspect directory
	searchDirs := []string{".", ".pqinspect"}

	for _, dir := range searchDirs {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				cfg, err := Load(path)
				if err == nil {
					return cfg
				}
			}
		}
	}

	return DefaultConfig()
}

// Validate reports the first out-of-range setting.
func (c *Config) Validate() error {
	if !slices.Contains(strategies, c.Inference.Strategy) {
		return fmt.Errorf("inference.strategy %q: want one of %s", c.Inference.Strategy, strings.Join(strategies, ", "))
	}
	if !slices.Contains(formats, c.Output.Format) {
		return fmt.Errorf("output.format %q: want one of %s", c.Output.Format, strings.Join(formats, ", "))
	}
	if !slices.Contains(levels, c.Logging.Level) {
		return fmt.Errorf("logging.level %q: want one of %s", c.Logging.Level, strings.Join(levels, ", "))
	}
	if c.Autocomplete.MaxItems < 0 {
		return fmt.Errorf("autocomplete.max_items must not be negative")
	}
	if c.Autocomplete.BoostThreshold < 0 || c.Autocomplete.BoostThreshold > 1 {
		return fmt.Errorf("autocomplete.boost_threshold %v: want a value in [0, 1]", c.Autocomplete.BoostThreshold)
	}
	if c.Autocomplete.PrefixSize < 0 {
		return fmt.Errorf("autocomplete.prefix_size must not be negative")
	}
	if c.Cache.Capacity < 0 || c.Cache.TTLMinutes < 0 {
		return fmt.Errorf("cache.capacity and cache.ttl_minutes must not be negative")
	}
	return nil
}

// IsDocument reports whether path has a document extension.
func (c *Config) IsDocument(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range c.Scan.Extensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

// ShouldExclude checks if a path should be excluded from scanning.
func (c *Config) ShouldExclude(path string) bool {
	// Check directory exclusions
	for _, dir := range c.Scan.Dirs {
		if strings.Contains(path, string(filepath.Separator)+dir+string(filepath.Separator)) ||
			strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}

	// Check pattern exclusions
	base := filepath.Base(path)
	for _, pattern := range c.Scan.Patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}

	return false
}
