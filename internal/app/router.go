package app

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"cab/internal/handler"
	"cab/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
// RedisClient and NewRelicApp are optional.
type RouterDeps struct {
	BookingHandler *handler.BookingHandler
	RedisClient    redis.UniversalClient
	NewRelicApp    *newrelic.Application
	AllowedOrigins []string
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(cors.New(corsConfig(deps.AllowedOrigins)))

	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
		router.Use(middleware.NewRelicAttributes())
	}

	if deps.RedisClient != nil {
		router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h := deps.BookingHandler
	v1 := router.Group("/v1")
	{
		v1.GET("/cars", h.ListCars)
		v1.GET("/drivers/:id/visibility", h.DriverVisibility)

		// Back-office views, not scoped to a customer.
		v1.GET("/bookings", h.GetAll)
		v1.GET("/bookings/available", h.GetAvailable)
		v1.POST("/bookings/:id/confirm", h.ConfirmBooking)

		customer := v1.Group("", middleware.RequireCustomer())
		{
			customer.GET("/customers/me/bookings", h.GetCustomerBookings)
			customer.POST("/bookings", h.CreateBooking)
			customer.GET("/bookings/:id", h.GetBooking)
			customer.POST("/bookings/:id/cancel", h.CancelBooking)
			customer.DELETE("/bookings/:id", h.DeleteBooking)
		}
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "Idempotency-Key", middleware.CustomerIDHeader},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
