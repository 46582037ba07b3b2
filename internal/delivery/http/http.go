package http

import (
	"log/slog"

	"gomarketplace/internal/usecase"
	"gomarketplace/pkg/prometheus"

	"github.com/gin-gonic/gin"
)

func SetupRouter(store *usecase.CartStore, log *slog.Logger) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(prometheus.Middleware())
	router.Use(StoreMiddleware(store))

	cartHandler := NewCartHandler(log)

	router.GET("/health", cartHandler.HealthCheck)

	cart := router.Group("/cart")
	{
		cart.GET("/products", cartHandler.GetProducts)
		cart.POST("/items", cartHandler.AddToCart)
		cart.POST("/items/:id/increment", cartHandler.Increment)
		cart.POST("/items/:id/decrement", cartHandler.Decrement)
	}

	return router
}

// StoreMiddleware makes the cart store reachable through the request context.
func StoreMiddleware(store *usecase.CartStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(usecase.WithStore(c.Request.Context(), store))
		c.Next()
	}
}
