// Package api serves the public query interface: the region list and the
// daily brief (canonical forecast plus computed risk index) per region.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/slopesignal/slope-signal/internal/domain"
)

// BriefStore is the read surface the API needs from the repository.
type BriefStore interface {
	ListRegions(ctx context.Context) ([]domain.Region, error)
	GetRegionBySlug(ctx context.Context, slug string) (domain.Region, error)
	LatestForecast(ctx context.Context, regionID uint) (domain.Forecast, error)
	ForecastByDate(ctx context.Context, regionID uint, date time.Time) (domain.Forecast, error)
	WeatherByDate(ctx context.Context, regionID uint, date time.Time) (*domain.WeatherSnapshot, error)
}

// Server holds the API's dependencies.
type Server struct {
	store  BriefStore
	scorer *domain.Scorer
	cache  *Cache
	logger *slog.Logger
}

// NewServer wires the API handlers. Pass a disabled cache (NewCache with an
// empty addr) when redis is not configured.
func NewServer(store BriefStore, scorer *domain.Scorer, cache *Cache, logger *slog.Logger) *Server {
	return &Server{
		store:  store,
		scorer: scorer,
		cache:  cache,
		logger: logger,
	}
}

// Router builds the gin engine with CORS and all routes registered.
// corsOrigins is a comma-separated origin list; "*" allows all.
func (s *Server) Router(corsOrigins string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(corsOrigins))

	router.GET("/health", s.handleHealth)

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/regions", s.handleListRegions)
		apiGroup.GET("/brief/:slug", s.handleBrief)
	}

	return router
}

func corsMiddleware(origins string) gin.HandlerFunc {
	allowed := strings.Split(origins, ",")

	if len(allowed) == 1 && allowed[0] == "*" {
		return cors.New(cors.Config{
			AllowAllOrigins: true,
			AllowMethods:    []string{"GET", "OPTIONS"},
			AllowHeaders:    []string{"Origin", "Content-Type"},
			MaxAge:          12 * time.Hour,
		})
	}
	return cors.New(cors.Config{
		AllowOrigins: allowed,
		AllowMethods: []string{"GET", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "slope-signal-api",
	})
}
