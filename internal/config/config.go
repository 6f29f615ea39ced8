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

// Config holds the homematch API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Attention AttentionConfig `yaml:"attention"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Cache     CacheConfig     `yaml:"cache"`
	API       APIConfig       `yaml:"api"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// CatalogConfig holds bin-embedding catalog settings. Bin edges must be
// strictly ascending; values below the first edge or above the last fall
// into the outermost bins.
type CatalogConfig struct {
	Dimensions int       `yaml:"dimensions"`
	PriceBins  []float64 `yaml:"price_bins"`
	AreaBins   []float64 `yaml:"area_bins"`
	RoomsBins  []float64 `yaml:"rooms_bins"`
}

// AttentionConfig holds location attention pooling settings.
type AttentionConfig struct {
	DistanceDecay float64 `yaml:"distance_decay"` // per-km exponent, > 0
}

// ScoringConfig holds score blending weights. Weights must sum to 1.
type ScoringConfig struct {
	PriceWeight    float64 `yaml:"price_weight"`
	AreaWeight     float64 `yaml:"area_weight"`
	RoomsWeight    float64 `yaml:"rooms_weight"`
	LocationWeight float64 `yaml:"location_weight"`
}

// CacheConfig holds recommendation cache settings.
type CacheConfig struct {
	Capacity           int `yaml:"capacity"`
	TTLSec             int `yaml:"ttl_sec"`
	JanitorIntervalSec int `yaml:"janitor_interval_sec"` // 0 disables the background sweep
}

// APIConfig holds request parameter defaults and caps.
type APIConfig struct {
	DefaultMinScore float64 `yaml:"default_min_score"`
	DefaultLimit    int     `yaml:"default_limit"`
	MaxLimit        int     `yaml:"max_limit"`
	MaxBulkSubjects int     `yaml:"max_bulk_subjects"`
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

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
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
	if c.Catalog.Dimensions <= 0 {
		c.Catalog.Dimensions = 32
	}
	if len(c.Catalog.PriceBins) == 0 {
		c.Catalog.PriceBins = []float64{0, 150_000, 250_000, 350_000, 500_000, 750_000, 1_000_000}
	}
	if len(c.Catalog.AreaBins) == 0 {
		c.Catalog.AreaBins = []float64{0, 50, 75, 100, 150, 200, 300}
	}
	if len(c.Catalog.RoomsBins) == 0 {
		c.Catalog.RoomsBins = []float64{0, 1, 2, 3, 4, 5, 6}
	}
	if c.Attention.DistanceDecay <= 0 {
		c.Attention.DistanceDecay = 0.1
	}
	if c.Scoring == (ScoringConfig{}) {
		c.Scoring = ScoringConfig{
			PriceWeight:    0.35,
			AreaWeight:     0.25,
			RoomsWeight:    0.10,
			LocationWeight: 0.30,
		}
	}
	if c.Cache.Capacity <= 0 {
		c.Cache.Capacity = 10000
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 3600
	}
	if c.Cache.JanitorIntervalSec < 0 {
		c.Cache.JanitorIntervalSec = 0
	}
	if c.API.DefaultMinScore <= 0 {
		c.API.DefaultMinScore = 0.3
	}
	if c.API.DefaultLimit <= 0 {
		c.API.DefaultLimit = 10
	}
	if c.API.MaxLimit <= 0 {
		c.API.MaxLimit = 100
	}
	if c.API.MaxBulkSubjects <= 0 {
		c.API.MaxBulkSubjects = 100
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
	for name, bins := range map[string][]float64{
		"catalog.price_bins": c.Catalog.PriceBins,
		"catalog.area_bins":  c.Catalog.AreaBins,
		"catalog.rooms_bins": c.Catalog.RoomsBins,
	} {
		if len(bins) < 2 {
			return fmt.Errorf("%s needs at least 2 edges, got %d", name, len(bins))
		}
		for i := 1; i < len(bins); i++ {
			if bins[i] <= bins[i-1] {
				return fmt.Errorf("%s must be strictly ascending at index %d", name, i)
			}
		}
	}
	sum := c.Scoring.PriceWeight + c.Scoring.AreaWeight + c.Scoring.RoomsWeight + c.Scoring.LocationWeight
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("scoring weights must sum to 1, got %v", sum)
	}
	if c.API.DefaultMinScore < 0 || c.API.DefaultMinScore > 1 {
		return fmt.Errorf("api.default_min_score must be in [0,1], got %v", c.API.DefaultMinScore)
	}
	if c.API.DefaultLimit > c.API.MaxLimit {
		return fmt.Errorf("api.default_limit %d exceeds api.max_limit %d", c.API.DefaultLimit, c.API.MaxLimit)
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
