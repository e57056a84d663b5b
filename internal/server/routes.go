package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// RegisterRoutes configures all API routes, middleware, and error handlers
func RegisterRoutes(e *echo.Echo, h *Handlers, cfg ServerConfig) {
	e.HTTPErrorHandler = jsonErrorHandler(h.logger())

	e.Use(SetJSONContentType)
	e.Use(SetNoCacheHeaders)

	// Webhook ingestion, authenticated by the provider's Authorization header.
	// The bare root path mirrors the route providers were first pointed at.
	webhookAuth := WebhookAuth(cfg.WebhookToken)
	e.POST("/", h.Webhook, webhookAuth)

	v1 := e.Group("/v1")
	v1.GET("/health", h.Health)
	v1.POST("/webhook", h.Webhook, webhookAuth)

	// Query API, optionally behind an API key
	api := v1.Group("")
	if cfg.APIKey != "" {
		api.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			KeyLookup: "header:X-API-Key",
			Validator: func(key string, c echo.Context) (bool, error) {
				return key == cfg.APIKey, nil
			},
		}))
	}
	api.GET("/wallets/:address", h.Wallet)
	api.GET("/history/:wallet/:mint", h.TokenHistory)
	api.GET("/trades/recent", h.RecentTrades)

	// AI endpoints with rate limiting
	aigroup := api.Group("/ai")
	aigroup.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(0.2), // 1 request every 5 seconds
		Burst:     2,
		ExpiresIn: 2 * time.Minute,
	})))
	aigroup.POST("/ask", h.AIAsk)

	// Feature flags CRUD endpoints
	flagGroup := api.Group("/flags")
	flagGroup.GET("", h.FlagsList)
	flagGroup.POST("", h.FlagsUpsert)
	flagGroup.GET("/:key", h.FlagsGet)
	flagGroup.PUT("/:key", h.FlagsUpdate)
	flagGroup.DELETE("/:key", h.FlagsDelete)

	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Code: http.StatusNotFound})
	})
}
