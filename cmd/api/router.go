package api

import (
	"net/http"

	"github.com/jxuanl/spm-g2-little-farms-sub000/internal/auth/delivery"
	authUsecase "github.com/jxuanl/spm-g2-little-farms-sub000/internal/auth/usecase"
	taskDelivery "github.com/jxuanl/spm-g2-little-farms-sub000/internal/task/delivery"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, authUsecase authUsecase.AuthUsecase, taskHandler *taskDelivery.TaskHandler) {
	authHandler := delivery.NewAuthHandler(authUsecase)

	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		auth := api.Group("/auth")
		{
			auth.GET("/me", delivery.AuthMiddleware(authUsecase), authHandler.Me)
		}

		// FCM routes (protected)
		fcm := api.Group("/fcm")
		fcm.Use(delivery.AuthMiddleware(authUsecase))
		{
			fcm.POST("/register", authHandler.RegisterFCMToken)
			fcm.DELETE("/:token", authHandler.UnregisterFCMToken)
		}

		// Task routes (protected)
		protected := api.Group("")
		protected.Use(delivery.AuthMiddleware(authUsecase))
		taskHandler.RegisterRoutes(protected)
	}
}
