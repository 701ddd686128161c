package model

import "time"

// Config is the complete reup configuration.
// Values are layered: defaults, then config file, then REUP_* env vars, then CLI flags.
type Config struct {
	HTTP         HTTPConfig         `yaml:"http" mapstructure:"http"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	RateLimiting RateLimitConfig    `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	Storage      StorageConfig      `yaml:"storage" mapstructure:"storage"`
	Weather      WeatherConfig      `yaml:"weather" mapstructure:"weather"`
	Universities UniversitiesConfig `yaml:"universities" mapstructure:"universities"`
	Metrics      MetricsConfig      `yaml:"metrics" mapstructure:"metrics"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
}

// HTTPConfig controls both the single-shot and the streaming fetchers
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`               // single-shot request timeout
	StreamTimeout time.Duration `yaml:"stream_timeout" mapstructure:"stream_timeout"` // fallback stream timeout
	ChunkSize     int           `yaml:"chunk_size" mapstructure:"chunk_size"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	HTTPProxy     string        `yaml:"http_proxy" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy" mapstructure:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy" mapstructure:"no_proxy"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
}

// CacheConfig controls the payload cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// RateLimitConfig controls per-host request pacing
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// ConcurrencyConfig controls how many sources the run command fetches at once
type ConcurrencyConfig struct {
	Sources int `yaml:"sources" mapstructure:"sources"`
}

// StorageConfig controls the SQLite sink
type StorageConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// WeatherConfig parameterizes the Open-Meteo daily forecast request
type WeatherConfig struct {
	BaseURL      string   `yaml:"base_url" mapstructure:"base_url"`
	Latitude     float64  `yaml:"latitude" mapstructure:"latitude"`
	Longitude    float64  `yaml:"longitude" mapstructure:"longitude"`
	Daily        []string `yaml:"daily" mapstructure:"daily"`
	ForecastDays int      `yaml:"forecast_days" mapstructure:"forecast_days"`
	Table        string   `yaml:"table" mapstructure:"table"`
}

// UniversitiesConfig parameterizes the university directory request
type UniversitiesConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Country string `yaml:"country" mapstructure:"country"`
}

// MetricsConfig controls the Prometheus textfile export
type MetricsConfig struct {
	TextfilePath string `yaml:"textfile_path" mapstructure:"textfile_path"`
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Format  string `yaml:"format" mapstructure:"format"` // "ascii" or "markdown"
	Verbose bool   `yaml:"verbose" mapstructure:"verbose"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:       30 * time.Second,
			StreamTimeout: 120 * time.Second,
			ChunkSize:     8192,
			MaxBodyBytes:  64 << 20,
			UserAgent:     "reup/0.1 (+https://github.com/ppiankov/reup)",
		},
		Cache: CacheConfig{
			Enabled:   false,
			Dir:       ".reup/cache",
			MemoryTTL: 10 * time.Minute,
			DiskTTL:   6 * time.Hour,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 2,
			BurstSize:         2,
		},
		Concurrency: ConcurrencyConfig{
			Sources: 1,
		},
		Storage: StorageConfig{
			Path: "reup.db",
		},
		Weather: WeatherConfig{
			BaseURL:      "https://api.open-meteo.com/v1/forecast",
			Latitude:     52.52,
			Longitude:    13.405,
			Daily:        []string{"temperature_2m_max", "precipitation_sum"},
			ForecastDays: 16,
			Table:        "daily_weather",
		},
		Universities: UniversitiesConfig{
			BaseURL: "http://universities.hipolabs.com/search",
			Country: "China",
		},
		Output: OutputConfig{
			Format: "ascii",
		},
	}
}
