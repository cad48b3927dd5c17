package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config represents the runtime configuration for the riftcollect engine.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Assets      AssetConfig       `mapstructure:"assets"`
	Origin      OriginConfig      `mapstructure:"origin"`
	Crawler     CrawlerConfig     `mapstructure:"crawler"`
	Matching    MatchingConfig    `mapstructure:"matching"`
	Translation TranslationConfig `mapstructure:"translation"`
	Jobs        JobsConfig        `mapstructure:"jobs"`
	Monitoring  MonitoringConfig  `mapstructure:"monitoring"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port      int    `mapstructure:"port"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string         `mapstructure:"driver"`
	Path     string         `mapstructure:"path"`
	DSN      string         `mapstructure:"dsn"`
	MySQL    DBAuthConfig   `mapstructure:"mysql"`
	Postgres DBAuthConfig   `mapstructure:"postgres"`
	Fallback FallbackConfig `mapstructure:"fallback"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// FallbackConfig controls the embedded secondary store used when the primary
// database is unreachable at start-up.
type FallbackConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// AssetConfig locates locally mirrored card scans used for fingerprinting.
type AssetConfig struct {
	Root     string `mapstructure:"root"`
	Filename string `mapstructure:"filename"`
}

// OriginConfig points at the upstream catalog origin used by synchronization.
type OriginConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// CrawlerConfig carries defaults for the CDN discovery crawler.
type CrawlerConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	Sets          []string      `mapstructure:"sets"`
	Range         string        `mapstructure:"range"`
	DelayMS       int           `mapstructure:"delay_ms"`
	AssetFilename string        `mapstructure:"asset_filename"`
	Rescan        bool          `mapstructure:"rescan"`
	MaxFound      int           `mapstructure:"max_found"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// MatchingConfig tunes the perceptual hash matcher.
type MatchingConfig struct {
	HashSize             int `mapstructure:"hash_size"`
	ConfidentMaxDistance int `mapstructure:"confident_max_distance"`
}

// TranslationConfig configures the external translation service.
type TranslationConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	BaseURL    string        `mapstructure:"base_url"`
	APIKey     string        `mapstructure:"api_key"`
	Model      string        `mapstructure:"model"`
	TargetLang string        `mapstructure:"target_lang"`
	Timeout    time.Duration `mapstructure:"timeout"`
	CacheTTL   time.Duration `mapstructure:"cache_ttl"`
}

// JobsConfig schedules background maintenance in the server process.
type JobsConfig struct {
	Enabled             bool   `mapstructure:"enabled"`
	SyncSchedule        string `mapstructure:"sync_schedule"`
	HashRefreshSchedule string `mapstructure:"hash_refresh_schedule"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Health     HealthConfig     `mapstructure:"health_check"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// HealthConfig toggles health endpoints.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("RIFTCOLLECT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/riftcollect.sqlite")
	v.SetDefault("database.fallback.enabled", true)
	v.SetDefault("database.fallback.path", "./data/riftcollect-fallback.sqlite")

	v.SetDefault("assets.root", "./data/cards")
	v.SetDefault("assets.filename", "full-desk.jpg")

	v.SetDefault("origin.timeout", "30s")

	v.SetDefault("crawler.range", "1-300")
	v.SetDefault("crawler.delay_ms", 250)
	v.SetDefault("crawler.asset_filename", "full-desk.jpg")
	v.SetDefault("crawler.rescan", false)
	v.SetDefault("crawler.max_found", 0)
	v.SetDefault("crawler.timeout", "15s")

	v.SetDefault("matching.hash_size", 8)
	v.SetDefault("matching.confident_max_distance", 10)

	v.SetDefault("translation.enabled", false)
	v.SetDefault("translation.model", "gpt-4o-mini")
	v.SetDefault("translation.target_lang", "fr")
	v.SetDefault("translation.timeout", "20s")
	v.SetDefault("translation.cache_ttl", "1h")

	v.SetDefault("jobs.enabled", true)
	v.SetDefault("jobs.sync_schedule", "0 4 * * *")
	v.SetDefault("jobs.hash_refresh_schedule", "@hourly")

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
	v.SetDefault("monitoring.health_check.enabled", true)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
