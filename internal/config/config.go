// Package config loads service settings from the environment and the
// optional zones and scoring-rules files.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/slopesignal/slope-signal/internal/domain"
)

// Config holds all settings for both binaries, populated from environment
// variables with defaults applied.
type Config struct {
	Database DatabaseConfig

	APIAddr    string
	IngestAddr string

	LogLevel  string
	LogFormat string

	FetchTimeout   time.Duration
	FetchRetries   int
	IngestInterval time.Duration // 0 = run once and exit

	ShutdownTimeout time.Duration

	ZonesFile string
	RulesFile string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	CORSOrigins string
}

// DatabaseConfig holds the postgres connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN renders the postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "slope")
	v.SetDefault("DB_PASSWORD", "signal")
	v.SetDefault("DB_NAME", "slopesignal")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("API_ADDR", ":8080")
	v.SetDefault("INGEST_ADDR", ":8081")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("FETCH_TIMEOUT", "15s")
	v.SetDefault("FETCH_RETRIES", 2)
	v.SetDefault("INGEST_INTERVAL", "0")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("ZONES_FILE", "")
	v.SetDefault("RULES_FILE", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CORS_ORIGINS", "*")

	v.AutomaticEnv()

	fetchTimeout, err := time.ParseDuration(v.GetString("FETCH_TIMEOUT"))
	if err != nil || fetchTimeout <= 0 {
		return nil, errors.New("invalid FETCH_TIMEOUT")
	}
	ingestInterval, err := time.ParseDuration(v.GetString("INGEST_INTERVAL"))
	if err != nil || ingestInterval < 0 {
		return nil, errors.New("invalid INGEST_INTERVAL")
	}
	shutdownTimeout, err := time.ParseDuration(v.GetString("SHUTDOWN_TIMEOUT"))
	if err != nil || shutdownTimeout <= 0 {
		return nil, errors.New("invalid SHUTDOWN_TIMEOUT")
	}
	retries := v.GetInt("FETCH_RETRIES")
	if retries < 0 {
		return nil, errors.New("invalid FETCH_RETRIES")
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetInt("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Name:     v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		APIAddr:         v.GetString("API_ADDR"),
		IngestAddr:      v.GetString("INGEST_ADDR"),
		LogLevel:        v.GetString("LOG_LEVEL"),
		LogFormat:       v.GetString("LOG_FORMAT"),
		FetchTimeout:    fetchTimeout,
		FetchRetries:    retries,
		IngestInterval:  ingestInterval,
		ShutdownTimeout: shutdownTimeout,
		ZonesFile:       v.GetString("ZONES_FILE"),
		RulesFile:       v.GetString("RULES_FILE"),
		RedisAddr:       v.GetString("REDIS_ADDR"),
		RedisPassword:   v.GetString("REDIS_PASSWORD"),
		RedisDB:         v.GetInt("REDIS_DB"),
		CORSOrigins:     v.GetString("CORS_ORIGINS"),
	}

	return cfg, nil
}

// Zones returns the configured zone descriptors: the YAML file when set,
// otherwise the built-in UAC zones.
func (c *Config) Zones() ([]domain.Zone, error) {
	if c.ZonesFile == "" {
		return DefaultZones(), nil
	}

	data, err := os.ReadFile(c.ZonesFile)
	if err != nil {
		return nil, fmt.Errorf("read zones file: %w", err)
	}
	var zones []domain.Zone
	if err := yaml.Unmarshal(data, &zones); err != nil {
		return nil, fmt.Errorf("parse zones file %s: %w", c.ZonesFile, err)
	}
	if len(zones) == 0 {
		return nil, fmt.Errorf("zones file %s defines no zones", c.ZonesFile)
	}
	for _, z := range zones {
		if z.Slug == "" || z.ForecastURL == "" {
			return nil, fmt.Errorf("zones file %s: every zone needs a slug and forecast_url", c.ZonesFile)
		}
	}
	return zones, nil
}

// Rules returns the scoring rule set: the YAML file when set, otherwise the
// built-in defaults.
func (c *Config) Rules() (*domain.RuleSet, error) {
	if c.RulesFile == "" {
		return domain.DefaultRules(), nil
	}
	return domain.LoadRules(c.RulesFile)
}

// DefaultZones returns the built-in UAC forecast zones.
func DefaultZones() []domain.Zone {
	f := func(v float64) *float64 { return &v }
	return []domain.Zone{
		{
			Slug:        "uac-salt-lake",
			Name:        "UAC Salt Lake",
			Center:      "UAC",
			State:       "UT",
			Lat:         f(40.7608),
			Lon:         f(-111.8910),
			ForecastURL: "https://utahavalanchecenter.org/forecast/salt-lake/json",
		},
		{
			Slug:        "uac-ogden",
			Name:        "UAC Ogden",
			Center:      "UAC",
			State:       "UT",
			Lat:         f(41.2230),
			Lon:         f(-111.9738),
			ForecastURL: "https://utahavalanchecenter.org/forecast/ogden/json",
		},
		{
			Slug:        "uac-provo",
			Name:        "UAC Provo",
			Center:      "UAC",
			State:       "UT",
			Lat:         f(40.2338),
			Lon:         f(-111.6585),
			ForecastURL: "https://utahavalanchecenter.org/forecast/provo/json",
		},
	}
}
