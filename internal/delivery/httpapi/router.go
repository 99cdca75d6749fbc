package httpapi

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter assembles the public surface: the JSON API, the metrics
// endpoint, and the websocket price stream.
func NewRouter(handlers *Handlers, hub *PriceStreamHub, limiter *IPRateLimiter, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(logger))

	api := router.Group("/api")
	api.Use(RateLimitMiddleware(limiter))
	{
		api.GET("/health", handlers.Health)
		api.GET("/cryptos", handlers.ListCryptos)
		api.GET("/prices", handlers.GetPrices)
		api.GET("/alerts", handlers.ListAlerts)
		api.POST("/alerts", handlers.CreateAlert)
		api.DELETE("/alerts/:id", handlers.DeleteAlert)
		api.POST("/telegram/setup", handlers.SetupTelegram)
	}

	router.GET("/ws/prices", hub.Serve)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}
