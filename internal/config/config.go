package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the config file looked up when none is given.
const DefaultFile = "compatlens.yaml"

// Config represents the compatlens configuration.
type Config struct {
	Lists    ListsConfig    `yaml:"lists"`
	Exclude  ExcludeConfig  `yaml:"exclude"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Logging  LoggingConfig  `yaml:"logging"`
	Server   ServerConfig   `yaml:"server"`
}

// ListsConfig selects the incompatibility lists to load.
type ListsConfig struct {
	// Files are list files (plain, .gz or .zst) merged into the index.
	Files []string `yaml:"files"`
	// Store is the SQLite list store, relative to the project directory.
	Store string `yaml:"store"`
	// DisableEmbedded drops the built-in list.
	DisableEmbedded bool `yaml:"disable_embedded"`
}

// ExcludeConfig defines patterns to exclude from analysis.
type ExcludeConfig struct {
	Dirs      []string `yaml:"dirs"`
	FilesGlob []string `yaml:"files_glob"`
}

// AnalysisConfig tunes the project check.
type AnalysisConfig struct {
	// Workers bounds concurrently checked packages; 0 means GOMAXPROCS.
	Workers            int  `yaml:"workers"`
	MaxConstraintDepth int  `yaml:"max_constraint_depth"`
	NoCache            bool `yaml:"no_cache"`
	// IgnoreDeprecated drops findings for deprecated entries.
	IgnoreDeprecated bool `yaml:"ignore_deprecated"`
	// IgnorePackages are package paths whose own code is not reported.
	// A trailing * matches by prefix.
	IgnorePackages []string `yaml:"ignore_packages"`
	Tests          bool     `yaml:"tests"`
}

// LoggingConfig controls the slog logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ServerConfig controls the HTTP lookup API.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Lists: ListsConfig{
			Store: filepath.Join(".compatlens", "lists.db"),
		},
		Exclude: ExcludeConfig{
			Dirs:      []string{"vendor", "third_party", "testdata"},
			FilesGlob: []string{"**/*.pb.go", "**/*_gen.go", "**/*_mock.go"},
		},
		Analysis: AnalysisConfig{
			MaxConstraintDepth: 40,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Port: 8080,
		},
	}
}

// Load reads configuration from file, falling back to defaults.
// If configPath is empty, it looks for compatlens.yaml in the current directory.
// Values set in the file replace the corresponding defaults.
func Load(configPath string) (*Config, error) {
	defaults := Default()

	if configPath == "" {
		configPath = DefaultFile
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaults, nil
		}
		return nil, err
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", configPath, err)
	}

	defaults.Merge(&fileCfg)
	if err := defaults.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", configPath, err)
	}
	return defaults, nil
}

// LoadFromDir loads configuration from the specified directory.
func LoadFromDir(dir string) (*Config, error) {
	return Load(filepath.Join(dir, DefaultFile))
}

// Merge combines another config into this one, with other taking precedence.
// Booleans can only be switched on.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if len(other.Lists.Files) > 0 {
		c.Lists.Files = other.Lists.Files
	}
	if other.Lists.Store != "" {
		c.Lists.Store = other.Lists.Store
	}
	c.Lists.DisableEmbedded = c.Lists.DisableEmbedded || other.Lists.DisableEmbedded

	if len(other.Exclude.Dirs) > 0 {
		c.Exclude.Dirs = other.Exclude.Dirs
	}
	if len(other.Exclude.FilesGlob) > 0 {
		c.Exclude.FilesGlob = other.Exclude.FilesGlob
	}

	if other.Analysis.Workers != 0 {
		c.Analysis.Workers = other.Analysis.Workers
	}
	if other.Analysis.MaxConstraintDepth != 0 {
		c.Analysis.MaxConstraintDepth = other.Analysis.MaxConstraintDepth
	}
	c.Analysis.NoCache = c.Analysis.NoCache || other.Analysis.NoCache
	c.Analysis.IgnoreDeprecated = c.Analysis.IgnoreDeprecated || other.Analysis.IgnoreDeprecated
	c.Analysis.Tests = c.Analysis.Tests || other.Analysis.Tests
	if len(other.Analysis.IgnorePackages) > 0 {
		c.Analysis.IgnorePackages = other.Analysis.IgnorePackages
	}

	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.Format != "" {
		c.Logging.Format = other.Logging.Format
	}

	if other.Server.Port != 0 {
		c.Server.Port = other.Server.Port
	}
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	if c.Analysis.Workers < 0 {
		return fmt.Errorf("analysis.workers must not be negative, got %d", c.Analysis.Workers)
	}
	if c.Analysis.MaxConstraintDepth < 0 {
		return fmt.Errorf("analysis.max_constraint_depth must not be negative, got %d", c.Analysis.MaxConstraintDepth)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	for _, pattern := range c.Exclude.FilesGlob {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("exclude.files_glob: invalid pattern %q", pattern)
		}
	}
	return nil
}

// StorePath resolves the list store path against the project directory.
func (c *Config) StorePath(projectDir string) string {
	if c.Lists.Store == "" || filepath.IsAbs(c.Lists.Store) {
		return c.Lists.Store
	}
	return filepath.Join(projectDir, c.Lists.Store)
}

// IsExcludedDir checks if a directory should be excluded from analysis.
func (c *Config) IsExcludedDir(dir string) bool {
	for _, part := range strings.Split(filepath.ToSlash(dir), "/") {
		for _, excluded := range c.Exclude.Dirs {
			if part == excluded {
				return true
			}
		}
	}
	return false
}

// IsExcludedFile reports whether a file matches one of the exclusion globs.
// Patterns are matched against the slash-separated path relative to root.
func (c *Config) IsExcludedFile(root, file string) bool {
	rel, err := filepath.Rel(root, file)
	if err != nil {
		rel = file
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range c.Exclude.FilesGlob {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// IsIgnoredPackage checks if findings inside a package should be dropped.
func (c *Config) IsIgnoredPackage(pkgPath string) bool {
	for _, pattern := range c.Analysis.IgnorePackages {
		if pattern == pkgPath {
			return true
		}
		if strings.HasSuffix(pattern, "*") && strings.HasPrefix(pkgPath, strings.TrimSuffix(pattern, "*")) {
			return true
		}
	}
	return false
}
