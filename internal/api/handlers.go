package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/slopesignal/slope-signal/internal/domain"
	"github.com/slopesignal/slope-signal/internal/store"
)

const briefCacheTTL = 60 * time.Second

// DailyBrief is the brief endpoint's response shape.
type DailyBrief struct {
	Region              domain.Region     `json:"region"`
	ForecastDate        string            `json:"forecast_date"`
	DangerAlpine        int               `json:"danger_alpine"`
	DangerTreeline      int               `json:"danger_treeline"`
	DangerBelowTreeline int               `json:"danger_below_treeline"`
	DangerLabel         string            `json:"danger_label"`
	Discussion          string            `json:"discussion,omitempty"`
	Problems            map[string]string `json:"problems"`
	RiskIndex           domain.RiskIndex  `json:"risk_index"`
	FetchedAt           time.Time         `json:"fetched_at"`
}

func (s *Server) handleListRegions(c *gin.Context) {
	regions, err := s.store.ListRegions(c.Request.Context())
	if err != nil {
		s.logger.Error("list regions failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database query failed"})
		return
	}
	c.JSON(http.StatusOK, regions)
}

// handleBrief returns the canonical forecast and computed risk index for a
// region. Without an explicit date it serves the most recent forecast rather
// than strictly today's. "Region not found" and "no forecast found" are
// reported as distinct not-found conditions.
func (s *Server) handleBrief(c *gin.Context) {
	ctx := c.Request.Context()
	slug := c.Param("slug")
	dateParam := c.Query("date")

	cacheKey := fmt.Sprintf("brief:%s:%s", slug, dateParam)
	var cached DailyBrief
	if s.cache.Get(ctx, cacheKey, &cached) {
		c.JSON(http.StatusOK, cached)
		return
	}

	region, err := s.store.GetRegionBySlug(ctx, slug)
	if errors.Is(err, store.ErrRegionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Region not found"})
		return
	}
	if err != nil {
		s.logger.Error("region lookup failed", "slug", slug, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database query failed"})
		return
	}

	var forecast domain.Forecast
	if dateParam == "" {
		forecast, err = s.store.LatestForecast(ctx, region.ID)
		if errors.Is(err, store.ErrForecastNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("No forecast found for %s", slug)})
			return
		}
	} else {
		date, parseErr := time.Parse(time.DateOnly, dateParam)
		if parseErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected YYYY-MM-DD"})
			return
		}
		forecast, err = s.store.ForecastByDate(ctx, region.ID, date)
		if errors.Is(err, store.ErrForecastNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("No forecast found for %s on %s", slug, dateParam)})
			return
		}
	}
	if err != nil {
		s.logger.Error("forecast lookup failed", "slug", slug, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database query failed"})
		return
	}

	weather, err := s.store.WeatherByDate(ctx, region.ID, forecast.ForecastDate)
	if err != nil {
		s.logger.Error("weather lookup failed", "slug", slug, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database query failed"})
		return
	}

	brief := DailyBrief{
		Region:              region,
		ForecastDate:        forecast.ForecastDate.Format(time.DateOnly),
		DangerAlpine:        int(forecast.DangerAlpine),
		DangerTreeline:      int(forecast.DangerTreeline),
		DangerBelowTreeline: int(forecast.DangerBelowTreeline),
		DangerLabel:         s.scorer.Rules().DangerLabel(forecast.DangerAlpine),
		Discussion:          forecast.Discussion,
		Problems:            forecast.Problems(),
		RiskIndex:           s.scorer.ComputeRiskIndex(&forecast, weather),
		FetchedAt:           forecast.FetchedAt,
	}

	s.cache.Set(ctx, cacheKey, brief, briefCacheTTL)
	c.JSON(http.StatusOK, brief)
}
