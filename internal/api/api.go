package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/pawonlab/stockwise/internal/api/handlers"
	"github.com/pawonlab/stockwise/internal/api/middleware"
	"github.com/pawonlab/stockwise/internal/config"
	"github.com/pawonlab/stockwise/internal/service"
)

func NewRouter(inventory *service.InventoryService, cfg *config.Config) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())

	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.Server.AllowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(cfg.Server.AllowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if inventory != nil {
		h := handlers.NewInventoryHandler(inventory, cfg.Engine)

		ingredientGroup := apiGroup.Group("/ingredients")
		{
			ingredientGroup.GET("", h.ListIngredients)
			ingredientGroup.GET("/:id", h.GetIngredient)
			ingredientGroup.GET("/:id/transactions", h.ListTransactions)
			ingredientGroup.POST("/:id/transactions", h.RecordTransaction)
			ingredientGroup.GET("/:id/analysis", h.GetAnalysis)
			ingredientGroup.GET("/:id/insights", h.GetInsights)
			ingredientGroup.GET("/:id/cost", h.GetCostBasis)
			ingredientGroup.GET("/:id/forecast", h.GetForecast)
			ingredientGroup.GET("/:id/eoq", h.GetEOQ)
			ingredientGroup.POST("/:id/apply_price", h.ApplyRecommendedPrice)
		}

		analyticsGroup := apiGroup.Group("/analytics")
		{
			analyticsGroup.GET("/analysis", h.AnalyzeAll)
			analyticsGroup.GET("/alerts", h.GetAlerts)
			analyticsGroup.GET("/reorder_plan", h.GetReorderPlan)
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
