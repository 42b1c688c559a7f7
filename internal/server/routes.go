package server

import (
	"github.com/labstack/echo/v4"

	"github.com/tubemap/backend/internal/server/routes"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api")

	// Subscription routes
	apiRoutes.GET("/subscriptions", routes.GetSubscriptionsHandler)
	apiRoutes.PUT("/subscriptions", routes.PutSubscriptionsHandler)

	// Cluster result routes
	apiRoutes.GET("/clusters", routes.GetClustersHandler)
	apiRoutes.GET("/clusters/names", routes.GetClusterNamesHandler)

	// Run routes
	apiRoutes.POST("/runs", routes.CreateRunHandler)
}
