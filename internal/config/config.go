// Package config provides configuration management using Viper
package config

import (
	"fmt"
	"log"
	"sync"

	"github.com/spf13/viper"
)

// Environment types
const (
	Development = "development"
	Production  = "production"
	Test        = "test"
)

// LogLevel represents the logging level for the application
type LogLevel string

// Available log levels
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Config holds all configuration parameters for the application
type Config struct {
	// Application settings
	AppName     string   `mapstructure:"appname"`
	AppPort     string   `mapstructure:"appport"`
	Environment string   `mapstructure:"environment"`
	LogLevel    LogLevel `mapstructure:"loglevel"`

	// Analytics store settings. Empty URLs mean the store is not configured
	// in this environment; writes become logged no-ops and queries fail.
	StoreQueryURL string `mapstructure:"storequeryurl"`
	StoreWriteURL string `mapstructure:"storewriteurl"`
	StoreAPIToken string `mapstructure:"storeapitoken"`
	StoreDataset  string `mapstructure:"storedataset"`

	// File paths
	GeoDBPath string `mapstructure:"geodbpath"`

	// Logging settings
	LogsDirectory    string `mapstructure:"logsdir"`
	LogsMaxSizeInMb  int    `mapstructure:"logsmaxsizeinmb"`
	LogsMaxBackups   int    `mapstructure:"logsmaxbackups"`
	LogsMaxAgeInDays int    `mapstructure:"logsmaxageindays"`

	// Query settings
	DefaultInterval string `mapstructure:"defaultinterval"`
	MaxBreakdownRows int   `mapstructure:"maxbreakdownrows"`
}

var (
	cfg  *Config
	once sync.Once
)

// GetConfig returns the application configuration
func GetConfig() *Config {
	once.Do(func() {
		v := viper.New()

		v.SetDefault("appname", "counterscale")
		v.SetDefault("appport", "3000")
		v.SetDefault("environment", Development)
		v.SetDefault("loglevel", string(LogLevelDebug))
		v.SetDefault("storedataset", "counterscale_events")
		v.SetDefault("geodbpath", "")
		v.SetDefault("logsdir", "")
		v.SetDefault("logsmaxsizeinmb", 20)
		v.SetDefault("logsmaxbackups", 10)
		v.SetDefault("logsmaxageindays", 30)
		v.SetDefault("defaultinterval", "7d")
		v.SetDefault("maxbreakdownrows", 10)

		v.BindEnv("appname", "COUNTERSCALE_APP_NAME")
		v.BindEnv("appport", "COUNTERSCALE_APP_PORT")
		v.BindEnv("environment", "COUNTERSCALE_ENV")
		v.BindEnv("loglevel", "COUNTERSCALE_LOG_LEVEL")
		v.BindEnv("storequeryurl", "COUNTERSCALE_STORE_QUERY_URL")
		v.BindEnv("storewriteurl", "COUNTERSCALE_STORE_WRITE_URL")
		v.BindEnv("storeapitoken", "COUNTERSCALE_STORE_API_TOKEN")
		v.BindEnv("storedataset", "COUNTERSCALE_STORE_DATASET")
		v.BindEnv("geodbpath", "COUNTERSCALE_GEO_DB_PATH")
		v.BindEnv("logsdir", "COUNTERSCALE_LOGS_DIR")
		v.BindEnv("logsmaxsizeinmb", "COUNTERSCALE_LOGS_MAX_SIZE_IN_MB")
		v.BindEnv("logsmaxbackups", "COUNTERSCALE_LOGS_MAX_BACKUPS")
		v.BindEnv("logsmaxageindays", "COUNTERSCALE_LOGS_MAX_AGE_IN_DAYS")
		v.BindEnv("defaultinterval", "COUNTERSCALE_DEFAULT_INTERVAL")
		v.BindEnv("maxbreakdownrows", "COUNTERSCALE_MAX_BREAKDOWN_ROWS")

		cfg = &Config{}
		if err := v.Unmarshal(cfg); err != nil {
			log.Fatalf("config: failed to unmarshal configuration: %v", err)
		}

		if err := cfg.validate(); err != nil {
			log.Fatalf("config: invalid configuration: %v", err)
		}
	})
	return cfg
}

// validate checks the configuration for errors
func (c *Config) validate() error {
	validEnvs := map[string]bool{
		Development: true,
		Production:  true,
		Test:        true,
	}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}

	if c.IsProduction() && c.StoreAPIToken == "" && c.StoreQueryURL != "" {
		return fmt.Errorf("production store access requires COUNTERSCALE_STORE_API_TOKEN")
	}
	return nil
}

// IsDevelopment returns true if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// IsTest returns true if the environment is test
func (c *Config) IsTest() bool {
	return c.Environment == Test
}
