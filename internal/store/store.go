// Package store persists regions, canonical forecasts, and weather snapshots
// behind a small repository surface. Forecast and weather writes are atomic
// upserts keyed by (region_id, forecast_date), so concurrent ingest runs for
// the same zone and date cannot race into duplicate rows.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/slopesignal/slope-signal/internal/domain"
)

// Not-found conditions are distinct so the boundary layer can report "no such
// region" separately from "no forecast for that region/date".
var (
	ErrRegionNotFound   = errors.New("region not found")
	ErrForecastNotFound = errors.New("forecast not found")
)

// Store is the gorm-backed repository.
type Store struct {
	db *gorm.DB
}

// Open connects to postgres, verifies the connection, and returns a Store.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db handle: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return New(db), nil
}

// New wraps an existing gorm handle.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates the three tables.
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(
		&domain.Region{},
		&domain.Forecast{},
		&domain.WeatherSnapshot{},
	)
}

// GetOrCreateRegion looks a region up by slug, creating it from the zone
// descriptor on first sight. Existing rows are returned untouched.
func (s *Store) GetOrCreateRegion(ctx context.Context, zone domain.Zone) (domain.Region, error) {
	region := domain.Region{
		Slug:        zone.Slug,
		Name:        zone.Name,
		Center:      zone.Center,
		State:       zone.State,
		Lat:         zone.Lat,
		Lon:         zone.Lon,
		ForecastURL: zone.ForecastURL,
	}
	err := s.db.WithContext(ctx).
		Where(domain.Region{Slug: zone.Slug}).
		FirstOrCreate(&region).Error
	if err != nil {
		return domain.Region{}, fmt.Errorf("get or create region %s: %w", zone.Slug, err)
	}
	return region, nil
}

// UpsertForecast writes a canonical forecast with last-write-wins semantics:
// a single INSERT ... ON CONFLICT (region_id, forecast_date) DO UPDATE
// replaces every mutable field, including the fetch timestamp. Re-ingesting
// identical input yields one row carrying the second write's timestamp.
// The returned flag reports whether the row existed before the write; it
// feeds logs and metrics only, the write itself does not depend on it.
func (s *Store) UpsertForecast(ctx context.Context, f *domain.Forecast) (created bool, err error) {
	var existing int64
	err = s.db.WithContext(ctx).Model(&domain.Forecast{}).
		Where("region_id = ? AND forecast_date = ?", f.RegionID, f.ForecastDate).
		Count(&existing).Error
	if err != nil {
		return false, fmt.Errorf("check forecast existence: %w", err)
	}

	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "region_id"}, {Name: "forecast_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"danger_alpine", "danger_treeline", "danger_below_treeline",
			"problems_json", "discussion", "fetched_at", "source_url",
		}),
	}).Create(f).Error
	if err != nil {
		return false, fmt.Errorf("upsert forecast region=%d date=%s: %w",
			f.RegionID, f.ForecastDate.Format(time.DateOnly), err)
	}
	return existing == 0, nil
}

// UpsertWeather writes a weather snapshot under the same natural-key upsert
// contract as forecasts. Snapshots come from the external weather collector.
func (s *Store) UpsertWeather(ctx context.Context, w *domain.WeatherSnapshot) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "region_id"}, {Name: "forecast_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"new_snow_24h_in", "new_snow_72h_in",
			"wind_speed_mph", "wind_direction", "wind_gust_mph",
			"temp_high_f", "temp_low_f", "temp_trend", "fetched_at",
		}),
	}).Create(w).Error
	if err != nil {
		return fmt.Errorf("upsert weather region=%d date=%s: %w",
			w.RegionID, w.ForecastDate.Format(time.DateOnly), err)
	}
	return nil
}

// ListRegions returns all regions ordered by display name.
func (s *Store) ListRegions(ctx context.Context) ([]domain.Region, error) {
	var regions []domain.Region
	if err := s.db.WithContext(ctx).Order("name").Find(&regions).Error; err != nil {
		return nil, fmt.Errorf("list regions: %w", err)
	}
	return regions, nil
}

// GetRegionBySlug returns ErrRegionNotFound when no region matches.
func (s *Store) GetRegionBySlug(ctx context.Context, slug string) (domain.Region, error) {
	var region domain.Region
	err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&region).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Region{}, ErrRegionNotFound
	}
	if err != nil {
		return domain.Region{}, fmt.Errorf("get region %s: %w", slug, err)
	}
	return region, nil
}

// LatestForecast returns the region's most recent forecast, or
// ErrForecastNotFound when the region has none.
func (s *Store) LatestForecast(ctx context.Context, regionID uint) (domain.Forecast, error) {
	var f domain.Forecast
	err := s.db.WithContext(ctx).
		Where("region_id = ?", regionID).
		Order("forecast_date DESC").
		First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Forecast{}, ErrForecastNotFound
	}
	if err != nil {
		return domain.Forecast{}, fmt.Errorf("latest forecast region=%d: %w", regionID, err)
	}
	return f, nil
}

// ForecastByDate returns the forecast for an explicit date, or
// ErrForecastNotFound.
func (s *Store) ForecastByDate(ctx context.Context, regionID uint, date time.Time) (domain.Forecast, error) {
	var f domain.Forecast
	err := s.db.WithContext(ctx).
		Where("region_id = ? AND forecast_date = ?", regionID, date).
		First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Forecast{}, ErrForecastNotFound
	}
	if err != nil {
		return domain.Forecast{}, fmt.Errorf("forecast region=%d date=%s: %w",
			regionID, date.Format(time.DateOnly), err)
	}
	return f, nil
}

// WeatherByDate returns the weather snapshot for a region and date, or nil
// when none exists. Missing weather is expected and is not an error.
func (s *Store) WeatherByDate(ctx context.Context, regionID uint, date time.Time) (*domain.WeatherSnapshot, error) {
	var w domain.WeatherSnapshot
	err := s.db.WithContext(ctx).
		Where("region_id = ? AND forecast_date = ?", regionID, date).
		First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("weather region=%d date=%s: %w",
			regionID, date.Format(time.DateOnly), err)
	}
	return &w, nil
}
