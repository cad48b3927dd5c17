package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/EvoluTechs/riftcollect/internal/app"
	"github.com/EvoluTechs/riftcollect/internal/catalog"
	"github.com/EvoluTechs/riftcollect/internal/handlers"
	"github.com/EvoluTechs/riftcollect/internal/match"
	"github.com/EvoluTechs/riftcollect/internal/middleware"
)

// NewRouter builds the Gin engine, wires middleware and registers the
// catalog, identification and collection routes.
func NewRouter(db *gorm.DB, cat *catalog.Service, matcher *match.Service, cfg *app.Config) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if cat == nil {
		return nil, fmt.Errorf("catalog service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	if cfg.Monitoring.Prometheus.Enabled {
		r.Use(middleware.Metrics())
	}

	// Health endpoint (public)
	if cfg.Monitoring.Health.Enabled {
		r.GET("/health", handlers.Health(db))
	}

	cardHandler, err := handlers.NewCardHandler(cat, matcher)
	if err != nil {
		return nil, err
	}

	api := r.Group("/api")
	{
		api.GET("/cards", cardHandler.List)
		api.GET("/cards/:id", cardHandler.Get)
		api.POST("/cards/identify", cardHandler.Identify)
		api.GET("/expansions", cardHandler.Expansions)
		api.PUT("/collection/:userID", cardHandler.UpdateCollection)
	}

	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
