package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/dshills/coderecall/internal/fusion"
	"github.com/dshills/coderecall/internal/searcher"
)

// EnvPrefix namespaces environment overrides, e.g. CODERECALL_SEARCH_LIMIT
const EnvPrefix = "CODERECALL"

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all configuration settings
type Config struct {
	Storage    StorageConfig    `mapstructure:"storage" yaml:"storage"`
	Embedding  EmbeddingConfig  `mapstructure:"embedding" yaml:"embedding"`
	Indexing   IndexingConfig   `mapstructure:"indexing" yaml:"indexing"`
	Search     SearchConfig     `mapstructure:"search" yaml:"search"`
	Graph      GraphConfig      `mapstructure:"graph" yaml:"graph"`
	Navigation NavigationConfig `mapstructure:"navigation" yaml:"navigation"`
	Rerank     RerankConfig     `mapstructure:"rerank" yaml:"rerank"`
}

type StorageConfig struct {
	DBPath string `mapstructure:"db_path" yaml:"db_path"`
}

type EmbeddingConfig struct {
	Provider          string  `mapstructure:"provider" yaml:"provider"` // "openai", "local", empty auto-detects
	Model             string  `mapstructure:"model" yaml:"model"`
	APIKey            string  `mapstructure:"api_key" yaml:"api_key"`
	BaseURL           string  `mapstructure:"base_url" yaml:"base_url"`
	CacheSize         int     `mapstructure:"cache_size" yaml:"cache_size"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
}

type IndexingConfig struct {
	Workers       int   `mapstructure:"workers" yaml:"workers"`
	BatchSize     int   `mapstructure:"batch_size" yaml:"batch_size"`
	IncludeTests  bool  `mapstructure:"include_tests" yaml:"include_tests"`
	IncludeVendor bool  `mapstructure:"include_vendor" yaml:"include_vendor"`
	MaxFileSize   int64 `mapstructure:"max_file_size" yaml:"max_file_size"` // In bytes
}

type SearchConfig struct {
	Limit          int           `mapstructure:"limit" yaml:"limit"`
	Mode           string        `mapstructure:"mode" yaml:"mode"`
	Preset         string        `mapstructure:"preset" yaml:"preset"`
	K              float64       `mapstructure:"k" yaml:"k"`
	BoostSymbols   bool          `mapstructure:"boost_symbols" yaml:"boost_symbols"`
	BoostFactor    float64       `mapstructure:"boost_factor" yaml:"boost_factor"`
	Adaptive       bool          `mapstructure:"adaptive" yaml:"adaptive"`
	Rerank         bool          `mapstructure:"rerank" yaml:"rerank"`
	RerankTopN     int           `mapstructure:"rerank_top_n" yaml:"rerank_top_n"`
	BackendTimeout time.Duration `mapstructure:"backend_timeout" yaml:"backend_timeout"`
	Deadline       time.Duration `mapstructure:"deadline" yaml:"deadline"` // 0 disables
	CacheSize      int           `mapstructure:"cache_size" yaml:"cache_size"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
}

type GraphConfig struct {
	MaxDepth       int           `mapstructure:"max_depth" yaml:"max_depth"`
	MaxNodes       int           `mapstructure:"max_nodes" yaml:"max_nodes"`
	MaxConcurrent  int           `mapstructure:"max_concurrent" yaml:"max_concurrent"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	CacheSize      int           `mapstructure:"cache_size" yaml:"cache_size"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
}

// NavigationConfig names the language server used by graph search. An
// empty Command disables graph mode.
type NavigationConfig struct {
	Command           string   `mapstructure:"command" yaml:"command"`
	Args              []string `mapstructure:"args" yaml:"args"`
	LanguageID        string   `mapstructure:"language_id" yaml:"language_id"`
	RequestsPerSecond float64  `mapstructure:"requests_per_second" yaml:"requests_per_second"`
}

// RerankConfig points at a /v1/rerank server. An empty Endpoint disables
// re-ranking.
type RerankConfig struct {
	Endpoint string        `mapstructure:"endpoint" yaml:"endpoint"`
	Model    string        `mapstructure:"model" yaml:"model"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// Default returns default configuration
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Storage: StorageConfig{
			DBPath: filepath.Join(homeDir, ".coderecall", "index.db"),
		},
		Embedding: EmbeddingConfig{
			CacheSize:         10000,
			RequestsPerSecond: 5,
		},
		Indexing: IndexingConfig{
			Workers:      4,
			BatchSize:    32,
			IncludeTests: true,
			MaxFileSize:  1 << 20,
		},
		Search: SearchConfig{
			Limit:          searcher.DefaultLimit,
			Mode:           string(searcher.ModeHybrid),
			Preset:         fusion.PresetBalanced,
			K:              fusion.DefaultK,
			BoostSymbols:   true,
			BoostFactor:    fusion.DefaultBoostFactor,
			Adaptive:       true,
			RerankTopN:     fusion.DefaultRerankTopN,
			BackendTimeout: searcher.DefaultBackendTimeout,
			CacheSize:      searcher.DefaultCacheSize,
			CacheTTL:       searcher.DefaultCacheTTL,
		},
		Graph: GraphConfig{
			MaxDepth:       2,
			MaxNodes:       50,
			MaxConcurrent:  8,
			RequestTimeout: 10 * time.Second,
			CacheSize:      1024,
			CacheTTL:       5 * time.Minute,
		},
		Rerank: RerankConfig{
			Timeout: 30 * time.Second,
		},
	}
}

// setDefaults registers every key so environment overrides apply to it
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("storage.db_path", cfg.Storage.DBPath)

	v.SetDefault("embedding.provider", cfg.Embedding.Provider)
	v.SetDefault("embedding.model", cfg.Embedding.Model)
	v.SetDefault("embedding.api_key", cfg.Embedding.APIKey)
	v.SetDefault("embedding.base_url", cfg.Embedding.BaseURL)
	v.SetDefault("embedding.cache_size", cfg.Embedding.CacheSize)
	v.SetDefault("embedding.requests_per_second", cfg.Embedding.RequestsPerSecond)

	v.SetDefault("indexing.workers", cfg.Indexing.Workers)
	v.SetDefault("indexing.batch_size", cfg.Indexing.BatchSize)
	v.SetDefault("indexing.include_tests", cfg.Indexing.IncludeTests)
	v.SetDefault("indexing.include_vendor", cfg.Indexing.IncludeVendor)
	v.SetDefault("indexing.max_file_size", cfg.Indexing.MaxFileSize)

	v.SetDefault("search.limit", cfg.Search.Limit)
	v.SetDefault("search.mode", cfg.Search.Mode)
	v.SetDefault("search.preset", cfg.Search.Preset)
	v.SetDefault("search.k", cfg.Search.K)
	v.SetDefault("search.boost_symbols", cfg.Search.BoostSymbols)
	v.SetDefault("search.boost_factor", cfg.Search.BoostFactor)
	v.SetDefault("search.adaptive", cfg.Search.Adaptive)
	v.SetDefault("search.rerank", cfg.Search.Rerank)
	v.SetDefault("search.rerank_top_n", cfg.Search.RerankTopN)
	v.SetDefault("search.backend_timeout", cfg.Search.BackendTimeout)
	v.SetDefault("search.deadline", cfg.Search.Deadline)
	v.SetDefault("search.cache_size", cfg.Search.CacheSize)
	v.SetDefault("search.cache_ttl", cfg.Search.CacheTTL)

	v.SetDefault("graph.max_depth", cfg.Graph.MaxDepth)
	v.SetDefault("graph.max_nodes", cfg.Graph.MaxNodes)
	v.SetDefault("graph.max_concurrent", cfg.Graph.MaxConcurrent)
	v.SetDefault("graph.request_timeout", cfg.Graph.RequestTimeout)
	v.SetDefault("graph.cache_size", cfg.Graph.CacheSize)
	v.SetDefault("graph.cache_ttl", cfg.Graph.CacheTTL)

	v.SetDefault("navigation.command", cfg.Navigation.Command)
	v.SetDefault("navigation.args", cfg.Navigation.Args)
	v.SetDefault("navigation.language_id", cfg.Navigation.LanguageID)
	v.SetDefault("navigation.requests_per_second", cfg.Navigation.RequestsPerSecond)

	v.SetDefault("rerank.endpoint", cfg.Rerank.Endpoint)
	v.SetDefault("rerank.model", cfg.Rerank.Model)
	v.SetDefault("rerank.timeout", cfg.Rerank.Timeout)
}

// Load reads configuration from path, or from the standard locations when
// path is empty. A missing file is not an error. Environment variables
// prefixed with CODERECALL_ override file values.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()
	setDefaults(v, cfg)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".coderecall")
		v.AddConfigPath(".")
		homeDir, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(homeDir, ".coderecall"))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(cfg)
	cfg.Storage.DBPath = expandPath(cfg.Storage.DBPath)

	return cfg, nil
}

// loadEnvFiles loads .env files without overriding variables already set
func loadEnvFiles() {
	for _, file := range []string{".env.local", ".env"} {
		if _, err := os.Stat(file); err == nil {
			_ = godotenv.Load(file)
		}
	}

	homeDir, _ := os.UserHomeDir()
	homeEnvFile := filepath.Join(homeDir, ".coderecall", ".env")
	if _, err := os.Stat(homeEnvFile); err == nil {
		_ = godotenv.Load(homeEnvFile)
	}
}

// applyEnvOverrides honors the provider's conventional variable when no
// key was configured
func applyEnvOverrides(cfg *Config) {
	if cfg.Embedding.APIKey == "" {
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			cfg.Embedding.APIKey = key
		}
	}
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}
	return path
}

// Validate checks settings that would otherwise fail at first use
func (c *Config) Validate() error {
	var errs []error

	if c.Storage.DBPath == "" {
		errs = append(errs, errors.New("storage.db_path is required"))
	}

	switch strings.ToLower(c.Embedding.Provider) {
	case "", "openai", "local":
	default:
		errs = append(errs, fmt.Errorf("embedding.provider %q is not one of openai, local", c.Embedding.Provider))
	}
	if c.Embedding.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("embedding.requests_per_second must not be negative"))
	}

	if c.Indexing.Workers < 0 {
		errs = append(errs, errors.New("indexing.workers must not be negative"))
	}
	if c.Indexing.MaxFileSize < 0 {
		errs = append(errs, errors.New("indexing.max_file_size must not be negative"))
	}

	if c.Search.Limit < 0 || c.Search.Limit > searcher.MaxLimit {
		errs = append(errs, fmt.Errorf("search.limit must be between 0 and %d", searcher.MaxLimit))
	}
	if _, err := searcher.ParseMode(c.Search.Mode); err != nil {
		errs = append(errs, fmt.Errorf("search.mode: %w", err))
	}
	if c.Search.Preset != "" {
		if _, err := fusion.Preset(c.Search.Preset); err != nil {
			errs = append(errs, fmt.Errorf("search.preset: %w", err))
		}
	}
	if c.Search.K < 0 {
		errs = append(errs, errors.New("search.k must not be negative"))
	}
	if c.Search.BoostFactor < 0 {
		errs = append(errs, errors.New("search.boost_factor must not be negative"))
	}
	if c.Search.BackendTimeout < 0 || c.Search.Deadline < 0 || c.Search.CacheTTL < 0 {
		errs = append(errs, errors.New("search timeouts must not be negative"))
	}
	if c.Search.Rerank && c.Rerank.Endpoint == "" {
		errs = append(errs, errors.New("search.rerank requires rerank.endpoint"))
	}

	if c.Graph.MaxDepth < 0 || c.Graph.MaxNodes < 0 || c.Graph.MaxConcurrent < 0 {
		errs = append(errs, errors.New("graph limits must not be negative"))
	}
	if c.Graph.RequestTimeout < 0 || c.Graph.CacheTTL < 0 {
		errs = append(errs, errors.New("graph timeouts must not be negative"))
	}
	if c.Navigation.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("navigation.requests_per_second must not be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// NavigationCommand returns the server binary followed by its arguments
func (c *Config) NavigationCommand() []string {
	if c.Navigation.Command == "" {
		return nil
	}
	fields := strings.Fields(c.Navigation.Command)
	return append(fields, c.Navigation.Args...)
}

// Save writes configuration to path as YAML
func (c *Config) Save(path string) error {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, c)
	for _, key := range v.AllKeys() {
		value := v.Get(key)
		if d, ok := value.(time.Duration); ok {
			value = d.String()
		}
		v.Set(key, value)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
