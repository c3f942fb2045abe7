// Package config loads runtime configuration from file and environment.
package config

import (
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config is the full runtime configuration.
type Config struct {
	Server struct {
		Port      string `mapstructure:"port"`
		StaticDir string `mapstructure:"static_dir"`
	} `mapstructure:"server"`

	Feed struct {
		URL            string `mapstructure:"url"`
		TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	} `mapstructure:"feed"`

	Database struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`

	Capture struct {
		IntervalSeconds int `mapstructure:"interval_seconds"`
	} `mapstructure:"capture"`

	Art struct {
		PoolDir     string `mapstructure:"pool_dir"`
		PoolBaseURL string `mapstructure:"pool_base_url"`
		BundledPath string `mapstructure:"bundled_path"`
		HighDensity bool   `mapstructure:"high_density"`
	} `mapstructure:"art"`

	Display struct {
		MaxExternal int `mapstructure:"max_external"`
	} `mapstructure:"display"`
}

// CaptureInterval returns the scheduled capture interval as a duration.
func (c *Config) CaptureInterval() time.Duration {
	return time.Duration(c.Capture.IntervalSeconds) * time.Second
}

// FeedTimeout returns the feed fetch timeout as a duration.
func (c *Config) FeedTimeout() time.Duration {
	return time.Duration(c.Feed.TimeoutSeconds) * time.Second
}

// Load reads config.yaml (if present) and AIRLOG_* environment variables.
// Environment wins over file, file wins over defaults.
func Load(path string) *Config {
	viper.SetEnvPrefix("AIRLOG")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Register keys
	viper.BindEnv("server.port")
	viper.BindEnv("server.static_dir")
	viper.BindEnv("feed.url")
	viper.BindEnv("feed.timeout_seconds")
	viper.BindEnv("database.path")
	viper.BindEnv("capture.interval_seconds")
	viper.BindEnv("art.pool_dir")
	viper.BindEnv("art.pool_base_url")
	viper.BindEnv("art.bundled_path")
	viper.BindEnv("art.high_density")
	viper.BindEnv("display.max_external")

	// Defaults
	viper.SetDefault("server.port", "3001")
	viper.SetDefault("server.static_dir", "")
	viper.SetDefault("feed.url", "https://feed.lakefm.org/api/playlists/now")
	viper.SetDefault("feed.timeout_seconds", 10)
	viper.SetDefault("database.path", "data/playhistory.db")
	viper.SetDefault("capture.interval_seconds", 30)
	viper.SetDefault("art.pool_dir", "assets/fallback-art")
	viper.SetDefault("art.pool_base_url", "/images/fallback")
	viper.SetDefault("art.bundled_path", "/images/album-art-fallback.png")
	viper.SetDefault("art.high_density", false)
	viper.SetDefault("display.max_external", 4)

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/airlog")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn().Err(err).Msg("Config file error")
		} else {
			log.Info().Msg("No config file found, using defaults and environment")
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		log.Fatal().Err(err).Msg("Unable to decode config")
	}

	return &cfg
}
