package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SetupRoutes registers the read-only inspection API. An empty jwtSecret
// leaves the API group unauthenticated.
func SetupRoutes(router *gin.Engine, jwtSecret string, exerciseHandler *ExerciseHandler) {
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	if jwtSecret != "" {
		apiV1.Use(AuthMiddleware(jwtSecret))
	}
	{
		apiV1.GET("/report", exerciseHandler.GetReport)

		exerciseGroup := apiV1.Group("/exercises")
		{
			exerciseGroup.GET("", exerciseHandler.ListExercises)
			exerciseGroup.GET("/:id", exerciseHandler.GetExercise)
			exerciseGroup.GET("/:id/media", exerciseHandler.GetExerciseMedia)
		}
	}
}
