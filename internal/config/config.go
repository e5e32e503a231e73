package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Upstream UpstreamConfig `yaml:"upstream" mapstructure:"upstream"`
	Venue    VenueConfig    `yaml:"venue" mapstructure:"venue"`
	Pool     PoolConfig     `yaml:"pool" mapstructure:"pool"`
	Output   OutputConfig   `yaml:"output" mapstructure:"output"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// UpstreamConfig holds the OpenReview API endpoints. The legacy base serves
// years before the shape boundary, the revised base serves the rest, and the
// web base is used for PDF/forum links and the profile page fallback.
type UpstreamConfig struct {
	LegacyBaseURL  string  `yaml:"legacy_base_url" mapstructure:"legacy_base_url"`
	RevisedBaseURL string  `yaml:"revised_base_url" mapstructure:"revised_base_url"`
	WebBaseURL     string  `yaml:"web_base_url" mapstructure:"web_base_url"`
	RatePerSec     float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	RateBurst      int     `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// VenueConfig selects the conference whose submissions are collected.
type VenueConfig struct {
	Name         string `yaml:"name" mapstructure:"name"`
	RegistryPath string `yaml:"registry_path" mapstructure:"registry_path"`
}

// PoolConfig bounds the concurrent author-profile fetch stage.
type PoolConfig struct {
	MaxConcurrent  int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	MaxRetries     int `yaml:"max_retries" mapstructure:"max_retries"`
	InitialDelayMS int `yaml:"initial_delay_ms" mapstructure:"initial_delay_ms"`
}

// OutputConfig configures table output.
type OutputConfig struct {
	Dir    string `yaml:"dir" mapstructure:"dir"`
	Format string `yaml:"format" mapstructure:"format"` // csv or xlsx
}

// StoreConfig configures the run-history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // sqlite or postgres
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP service shell.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CONFCOLLECT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("upstream.legacy_base_url", "https://api.openreview.net")
	v.SetDefault("upstream.revised_base_url", "https://api2.openreview.net")
	v.SetDefault("upstream.web_base_url", "https://openreview.net")
	v.SetDefault("upstream.rate_per_sec", 10)
	v.SetDefault("upstream.rate_burst", 10)
	v.SetDefault("venue.name", "ICLR")
	v.SetDefault("venue.registry_path", "venues.yaml")
	v.SetDefault("pool.max_concurrent", 50)
	v.SetDefault("pool.max_retries", 4)
	v.SetDefault("pool.initial_delay_ms", 1000)
	v.SetDefault("output.dir", "output")
	v.SetDefault("output.format", "csv")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "confcollect.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
