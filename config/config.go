package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Glx28/billigst-mat/internal/domain"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Groups       GroupsConfig       `mapstructure:"groups"`
	History      HistoryConfig      `mapstructure:"history"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Log          LogConfig          `mapstructure:"log"`
	Pipeline     PipelineConfig     `mapstructure:"pipeline"`
	Etilbudsavis EtilbudsavisConfig `mapstructure:"etilbudsavis"`
	Webstores    []WebstoreConfig   `mapstructure:"webstores"`
	Fixtures     FixturesConfig     `mapstructure:"fixtures"`
	SMTP         SMTPConfig         `mapstructure:"smtp"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// GroupsConfig points at the group definition file
type GroupsConfig struct {
	File string `mapstructure:"file"`
}

// HistoryConfig holds the SQLite history settings
type HistoryConfig struct {
	Path string `mapstructure:"path"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	TTL           time.Duration `mapstructure:"ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "console" or "json"
}

// PipelineConfig holds pipeline tuning
type PipelineConfig struct {
	DefaultTopN       int      `mapstructure:"default_top_n"`
	ExcludedStores    []string `mapstructure:"excluded_stores"`
	SourceConcurrency int      `mapstructure:"source_concurrency"`
	DedupKey          string   `mapstructure:"dedup_key"` // "canonical", "strict" or "loose"
}

// EtilbudsavisConfig holds flyer API configuration. The source is disabled without an API key.
type EtilbudsavisConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Lat         float64 `mapstructure:"lat"`
	Lng         float64 `mapstructure:"lng"`
	Radius      int     `mapstructure:"radius"`
	PageSize    int     `mapstructure:"page_size"`
	RatePerHour float64 `mapstructure:"rate_per_hour"`
	Debug       bool    `mapstructure:"debug"`
}

// WebstoreConfig describes one scraped store
type WebstoreConfig struct {
	Name            string        `mapstructure:"name"`
	SearchURL       string        `mapstructure:"search_url"`
	ItemSelector    string        `mapstructure:"item_selector"`
	NameSelector    string        `mapstructure:"name_selector"`
	PriceSelector   string        `mapstructure:"price_selector"`
	PackageSelector string        `mapstructure:"package_selector"`
	LinkSelector    string        `mapstructure:"link_selector"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// FixturesConfig lists offer files read as an extra source
type FixturesConfig struct {
	Files []string `mapstructure:"files"`
}

// SMTPConfig holds email notification settings. Email is disabled without a host.
type SMTPConfig struct {
	Host     string   `mapstructure:"host"`
	Port     int      `mapstructure:"port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile loads configuration from path, or searches the default locations when path is empty
func LoadFile(path string) (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/billigst/")
	}

	// BILLIGST_SMTP_PASSWORD overrides smtp.password
	v.SetEnvPrefix("BILLIGST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional unless given explicitly
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: error reading config file: %v", domain.ErrConfig, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("%w: unable to decode config: %v", domain.ErrConfig, err)
	}

	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// loadEnvFile exports variables from ./.env without overriding the environment
func loadEnvFile() error {
	if _, err := os.Stat(".env"); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return gotenv.Load(".env")
}

// setDefaults sets default configuration values.
// Every key overridable from the environment needs a default so viper knows it.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("groups.file", "groups.yaml")
	v.SetDefault("history.path", "billigst.db")

	v.SetDefault("cache.ttl", "6h")
	v.SetDefault("cache.sweep_interval", "10m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Pipeline defaults
	v.SetDefault("pipeline.default_top_n", domain.DefaultTopN)
	v.SetDefault("pipeline.excluded_stores", []string{})
	v.SetDefault("pipeline.source_concurrency", 4)
	v.SetDefault("pipeline.dedup_key", "canonical")

	// eTilbudsavis defaults, centered on Oslo
	v.SetDefault("etilbudsavis.api_key", "")
	v.SetDefault("etilbudsavis.base_url", "https://squid-api.tjek.com/v2")
	v.SetDefault("etilbudsavis.lat", 59.9139)
	v.SetDefault("etilbudsavis.lng", 10.7522)
	v.SetDefault("etilbudsavis.radius", 10000)
	v.SetDefault("etilbudsavis.page_size", 50)
	v.SetDefault("etilbudsavis.rate_per_hour", 1000)
	v.SetDefault("etilbudsavis.debug", false)

	v.SetDefault("fixtures.files", []string{})

	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "")
	v.SetDefault("smtp.to", []string{})
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Server.Port == "" {
		return fmt.Errorf("%w: server port is required", domain.ErrConfig)
	}

	if config.Groups.File == "" {
		return fmt.Errorf("%w: groups file is required (set BILLIGST_GROUPS_FILE)", domain.ErrConfig)
	}

	if config.History.Path == "" {
		return fmt.Errorf("%w: history path is required (set BILLIGST_HISTORY_PATH)", domain.ErrConfig)
	}

	if config.Log.Format != "console" && config.Log.Format != "json" {
		return fmt.Errorf("%w: log format must be 'console' or 'json', got: %s", domain.ErrConfig, config.Log.Format)
	}

	if config.Pipeline.DefaultTopN < 1 {
		return fmt.Errorf("%w: pipeline default_top_n must be at least 1, got: %d", domain.ErrConfig, config.Pipeline.DefaultTopN)
	}

	if config.Pipeline.SourceConcurrency < 0 {
		return fmt.Errorf("%w: pipeline source_concurrency must not be negative", domain.ErrConfig)
	}

	switch config.Pipeline.DedupKey {
	case "canonical", "strict", "loose":
	default:
		return fmt.Errorf("%w: pipeline dedup_key must be 'canonical', 'strict' or 'loose', got: %s", domain.ErrConfig, config.Pipeline.DedupKey)
	}

	if config.Etilbudsavis.APIKey != "" && config.Etilbudsavis.BaseURL == "" {
		return fmt.Errorf("%w: etilbudsavis base_url is required when an api_key is set", domain.ErrConfig)
	}

	if config.SMTP.Host != "" && (config.SMTP.From == "" || len(config.SMTP.To) == 0) {
		return fmt.Errorf("%w: smtp from and to are required when a host is set", domain.ErrConfig)
	}

	return nil
}
