package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slopesignal/slope-signal/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "slopesignal", cfg.Database.Name)
	assert.Equal(t, ":8080", cfg.APIAddr)
	assert.Equal(t, ":8081", cfg.IngestAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 15*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 2, cfg.FetchRetries)
	assert.Equal(t, time.Duration(0), cfg.IngestInterval)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, "*", cfg.CORSOrigins)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("API_ADDR", ":9090")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("FETCH_TIMEOUT", "30s")
	t.Setenv("FETCH_RETRIES", "5")
	t.Setenv("INGEST_INTERVAL", "1h")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, ":9090", cfg.APIAddr)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 5, cfg.FetchRetries)
	assert.Equal(t, time.Hour, cfg.IngestInterval)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
}

func TestLoad_InvalidDurations(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"bad fetch timeout", "FETCH_TIMEOUT", "soon"},
		{"negative fetch timeout", "FETCH_TIMEOUT", "-5s"},
		{"bad ingest interval", "INGEST_INTERVAL", "hourly"},
		{"bad shutdown timeout", "SHUTDOWN_TIMEOUT", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{
		Host: "localhost", Port: 5432, User: "slope",
		Password: "signal", Name: "slopesignal", SSLMode: "disable",
	}
	assert.Equal(t,
		"host=localhost port=5432 user=slope password=signal dbname=slopesignal sslmode=disable",
		d.DSN())
}

func TestZones_Defaults(t *testing.T) {
	cfg := &Config{}
	zones, err := cfg.Zones()
	require.NoError(t, err)

	require.Len(t, zones, 3)
	assert.Equal(t, "uac-salt-lake", zones[0].Slug)
	assert.Equal(t, "UAC", zones[0].Center)
	assert.NotEmpty(t, zones[0].ForecastURL)
}

func TestZones_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zones.yaml")
	content := `
- slug: caic-front-range
  name: CAIC Front Range
  center: CAIC
  state: CO
  lat: 39.9
  lon: -105.6
  forecast_url: https://example.org/front-range/json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg := &Config{ZonesFile: path}
	zones, err := cfg.Zones()
	require.NoError(t, err)

	require.Len(t, zones, 1)
	assert.Equal(t, "caic-front-range", zones[0].Slug)
	assert.Equal(t, "CO", zones[0].State)
	require.NotNil(t, zones[0].Lat)
	assert.Equal(t, 39.9, *zones[0].Lat)
}

func TestZones_FileValidation(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		cfg := &Config{ZonesFile: "/nonexistent/zones.yaml"}
		_, err := cfg.Zones()
		assert.Error(t, err)
	})

	t.Run("zone without url", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "zones.yaml")
		require.NoError(t, os.WriteFile(path, []byte("- slug: incomplete\n"), 0o600))

		cfg := &Config{ZonesFile: path}
		_, err := cfg.Zones()
		assert.ErrorContains(t, err, "forecast_url")
	})
}

func TestRules_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `
wind_slab_keywords:
  - Wind Pillow
danger_scale:
  low: 1
  elevated: 2
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg := &Config{RulesFile: path}
	rules, err := cfg.Rules()
	require.NoError(t, err)

	// Keyword lists replace the defaults; vocabulary maps merge into them;
	// untouched sections keep the defaults.
	assert.Equal(t, []string{"wind pillow"}, rules.WindSlabKeywords)
	assert.Equal(t, domain.DangerModerate, rules.ParseDangerRating("Elevated"))
	assert.Equal(t, domain.DangerConsiderable, rules.ParseDangerRating("considerable"))
	assert.Contains(t, rules.WetSlideKeywords, "isothermal")
	assert.Equal(t, "High", rules.DangerLabel(domain.DangerHigh))
}
