// Package config loads the matching engine configuration from per-environment
// YAML files with ${VAR:-default} expansion.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the matching engine configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Index     IndexConfig     `yaml:"index"`
	Search    SearchConfig    `yaml:"search"`
	Sync      SyncConfig      `yaml:"sync"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds Redis connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds remote embedding backend settings.
type EmbeddingConfig struct {
	Enabled    bool   `yaml:"enabled"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// IndexConfig holds external vector index (Pinecone-style) settings.
type IndexConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Simulate  bool   `yaml:"simulate"`
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"api_key"`
	Namespace string `yaml:"namespace"`
	Dimension int    `yaml:"dimension"`
	Metric    string `yaml:"metric"`
}

// SearchConfig holds hybrid fusion weights and limit bounds.
type SearchConfig struct {
	JobSemanticWeight     float64 `yaml:"job_semantic_weight"`
	ProfileSemanticWeight float64 `yaml:"profile_semantic_weight"`
	MaxResults            int     `yaml:"max_results"`
	MaxSemanticJobs       int     `yaml:"max_semantic_jobs"`
	MaxSemanticProfiles   int     `yaml:"max_semantic_profiles"`
}

// SyncConfig holds embedding sync workflow settings.
type SyncConfig struct {
	ChunkSize int `yaml:"chunk_size"`
	Workers   int `yaml:"workers"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Index.Dimension <= 0 {
		c.Index.Dimension = 1024
	}
	if c.Index.Metric == "" {
		c.Index.Metric = "cosine"
	}
	if c.Index.Namespace == "" {
		c.Index.Namespace = "matching"
	}
	if c.Search.JobSemanticWeight <= 0 {
		c.Search.JobSemanticWeight = 0.65
	}
	if c.Search.ProfileSemanticWeight <= 0 {
		c.Search.ProfileSemanticWeight = 0.7
	}
	if c.Search.MaxResults <= 0 {
		c.Search.MaxResults = 25
	}
	if c.Search.MaxSemanticJobs <= 0 {
		c.Search.MaxSemanticJobs = 50
	}
	if c.Search.MaxSemanticProfiles <= 0 {
		c.Search.MaxSemanticProfiles = 25
	}
	if c.Sync.ChunkSize <= 0 {
		c.Sync.ChunkSize = 100
	}
	if c.Sync.Workers <= 0 {
		c.Sync.Workers = 4
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Embedding.Enabled && c.Embedding.APIKey == "" {
		return fmt.Errorf("embedding.api_key is required when embedding.enabled")
	}
	if c.Index.Enabled && !c.Index.Simulate && c.Index.BaseURL == "" {
		return fmt.Errorf("index.base_url is required when index.enabled")
	}
	if c.Search.JobSemanticWeight > 1 || c.Search.ProfileSemanticWeight > 1 {
		return fmt.Errorf("semantic weights must be in (0, 1]")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
