// Package router builds the gin engine and registers the /api routes.
package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"resource-portal-go/internal/config"
	"resource-portal-go/internal/handler"
	"resource-portal-go/internal/middleware"
	"resource-portal-go/internal/model"
	"resource-portal-go/internal/service"
)

// Services are the dependencies the HTTP layer is built on.
type Services struct {
	Users         service.UserService
	Resources     service.ResourceService
	Ratings       service.RatingService
	Favorites     service.FavoriteService
	Notifications service.NotificationService
	Tags          service.TagService
	Admin         service.AdminService
}

func corsConfig(origins []string) cors.Config {
	cc := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cc.AllowAllOrigins = true
			cc.AllowCredentials = false
			return cc
		}
	}
	cc.AllowOrigins = origins
	return cc
}

// New returns an engine with logging, recovery, CORS and every API route.
func New(cfg *config.Config, svc Services) *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = cfg.Server.MaxMultipartMemoryMB << 20
	r.Use(middleware.RequestLogger(), gin.Recovery(), cors.New(corsConfig(cfg.CORS.AllowedOrigins)))

	authed := middleware.AuthMiddleware(svc.Users)
	studentOnly := middleware.RequireRole(model.RoleStudent)
	adminOnly := middleware.RequireRole(model.RoleAdmin)

	authHandler := handler.NewAuthHandler(svc.Users)
	userHandler := handler.NewUserHandler(svc.Users)
	resourceHandler := handler.NewResourceHandler(svc.Resources)
	engagementHandler := handler.NewEngagementHandler(svc.Ratings, svc.Favorites)
	notificationHandler := handler.NewNotificationHandler(svc.Notifications)
	tagHandler := handler.NewTagHandler(svc.Tags)
	adminHandler := handler.NewAdminHandler(svc.Admin)

	api := r.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh-token", authHandler.RefreshToken)
		auth.POST("/logout", authed, authHandler.Logout)
		auth.GET("/profile", authed, userHandler.GetProfile)
		auth.PUT("/profile", authed, userHandler.UpdateProfile)
	}

	resources := api.Group("/resources")
	{
		// Public: the redirect target is opened directly by browsers.
		resources.GET("/:id/view", resourceHandler.View)
		resources.POST("/:id/download", middleware.OptionalAuth(svc.Users), resourceHandler.Download)

		resources.POST("/upload", authed, studentOnly, resourceHandler.Upload)
		resources.GET("/approved", authed, resourceHandler.ListApproved)
		resources.GET("/search", authed, resourceHandler.Search)
		resources.GET("/my-resources", authed, studentOnly, resourceHandler.ListMine)
		resources.GET("/all", authed, adminOnly, resourceHandler.ListAll)

		resources.GET("/favorites/my-favorites", authed, engagementHandler.MyFavorites)

		notifications := resources.Group("/notifications", authed)
		{
			notifications.GET("/all", notificationHandler.List)
			notifications.GET("/unread-count", notificationHandler.UnreadCount)
			notifications.PUT("/mark-all-read", notificationHandler.MarkAllRead)
			notifications.PUT("/:id/read", notificationHandler.MarkRead)
		}

		resources.GET("/:id", authed, resourceHandler.Get)
		resources.PUT("/:id", authed, studentOnly, resourceHandler.Update)
		resources.DELETE("/:id", authed, resourceHandler.Delete)
		resources.PUT("/:id/tags", authed, resourceHandler.SetTags)
		resources.PUT("/:id/approve", authed, adminOnly, resourceHandler.Approve)
		resources.PUT("/:id/reject", authed, adminOnly, resourceHandler.Reject)

		resources.POST("/:id/rate", authed, engagementHandler.Rate)
		resources.GET("/:id/ratings", authed, engagementHandler.ListRatings)
		resources.GET("/:id/my-rating", authed, engagementHandler.MyRating)
		resources.POST("/:id/favorite", authed, engagementHandler.ToggleFavorite)
		resources.GET("/:id/is-favorite", authed, engagementHandler.IsFavorite)
	}

	tags := api.Group("/tags")
	{
		tags.GET("", tagHandler.List)
		tags.POST("", authed, adminOnly, tagHandler.Create)
		tags.DELETE("/:id", authed, adminOnly, tagHandler.Delete)
	}

	admin := api.Group("/admin", authed, adminOnly)
	{
		admin.GET("/users", adminHandler.ListUsers)
		admin.DELETE("/users/:id", adminHandler.DeleteUser)
		admin.GET("/stats", adminHandler.Stats)
	}

	return r
}
