package router

import (
	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-cart/config"
	"github.com/ikkim/storefront-cart/internal/app/controller"
	"github.com/ikkim/storefront-cart/internal/middleware"
)

type Router struct {
	cartController     *controller.CartController
	cartFeedController *controller.CartFeedController
	sessionMiddleware  *middleware.SessionMiddleware
	config             *config.Config
}

func NewRouter(
	cartController *controller.CartController,
	cartFeedController *controller.CartFeedController,
	sessionMiddleware *middleware.SessionMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		cartController:     cartController,
		cartFeedController: cartFeedController,
		sessionMiddleware:  sessionMiddleware,
		config:             cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"message": "Storefront cart API is running",
			"storage": r.config.Cart.StorageBackend,
		})
	})

	v1 := router.Group("/api/v1")
	{
		cart := v1.Group("/cart")
		cart.Use(r.sessionMiddleware.Resolve())
		{
			cart.GET("", r.cartController.GetCart)
			cart.DELETE("", r.cartController.ClearCart)
			cart.POST("/items", r.cartController.AddItem)
			cart.PATCH("/items/:productId", r.cartController.UpdateItem)
			cart.DELETE("/items/:productId", r.cartController.RemoveItem)
			cart.GET("/ws", r.cartFeedController.Subscribe)
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, accept, origin, Cache-Control, X-Requested-With, "+middleware.SessionHeader+", "+middleware.RequestIDHeader)
		c.Writer.Header().Set("Access-Control-Expose-Headers", middleware.SessionHeader+", "+middleware.RequestIDHeader+", X-Cart-Persist")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
