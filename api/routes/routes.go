package routes

import (
	"net/http"

	"github.com/ArowuTest/rifamania-backend/internal/config"
	"github.com/ArowuTest/rifamania-backend/internal/handlers"
	"github.com/ArowuTest/rifamania-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

// HandlerDependencies holds the handlers mounted by SetupRouter
type HandlerDependencies struct {
	PurchaseHandler    *handlers.PurchaseHandler
	PublicationHandler *handlers.PublicationHandler
	WebhookHandler     *handlers.WebhookHandler
	// Limiter rate limits buyer routes; nil disables limiting
	Limiter *middleware.LimiterStore
}

// SetupRouter sets up the router
func SetupRouter(cfg *config.Config, deps HandlerDependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware())
	router.Use(middleware.CORSMiddleware(cfg))

	// Public routes
	public := router.Group("/api/v1")
	{
		public.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Provider callbacks are never rate limited
		webhooks := public.Group("/webhooks/payments")
		{
			webhooks.POST("", deps.WebhookHandler.HandlePayment)
			webhooks.POST("/:gateway", deps.WebhookHandler.HandlePayment)
		}

		buyers := public.Group("")
		if deps.Limiter != nil {
			buyers.Use(middleware.RateLimitMiddleware(deps.Limiter))
		}
		{
			buyers.GET("/raffles/:id/availability", deps.PurchaseHandler.GetAvailability)
			buyers.POST("/raffles/:id/reservations", deps.PurchaseHandler.ReserveNumbers)
			buyers.POST("/raffles/:id/purchases", deps.PurchaseHandler.Purchase)
			buyers.POST("/reservations/:id/charge", deps.PurchaseHandler.CreateCharge)
			buyers.GET("/reservations/:id", deps.PurchaseHandler.GetPurchaseStatus)
		}
	}

	// Seller routes
	protected := router.Group("/api/v1")
	protected.Use(middleware.JWTAuthMiddleware(cfg.JWT.Secret))
	{
		publication := protected.Group("/raffles/:id/publication")
		{
			publication.GET("/quote", deps.PublicationHandler.GetQuote)
			publication.POST("/charge", deps.PublicationHandler.CreateCharge)
			publication.GET("/status", deps.PublicationHandler.GetStatus)
		}
	}

	return router
}
