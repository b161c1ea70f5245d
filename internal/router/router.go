// Package router assembles the gin engine: global middleware, public routes
// and the bearer-protected task API.
package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/todoapp/todo-reminder-api/internal/config"
	"github.com/todoapp/todo-reminder-api/internal/constants"
	"github.com/todoapp/todo-reminder-api/internal/handlers"
	"github.com/todoapp/todo-reminder-api/internal/middleware"
	"go.uber.org/zap"
)

// Handlers groups the HTTP handlers mounted by New.
type Handlers struct {
	Auth     *handlers.AuthHandler
	Task     *handlers.TaskHandler
	Reminder *handlers.ReminderHandler
	Health   *handlers.HealthHandler
}

func New(cfg *config.Config, log *zap.Logger, tokens middleware.TokenVerifier, h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.RecoveryWithLog(log))
	r.Use(cors.New(corsConfig(cfg.Server.AllowedOrigins)))

	r.NoRoute(routeNotFound)
	r.NoMethod(routeNotFound)

	r.GET("/", h.Health.Root)
	r.GET("/health", h.Health.Health)

	users := r.Group("/users")
	{
		users.POST("/signup", h.Auth.Signup)
		if cfg.RateLimit.Enabled {
			limiter := middleware.NewIPRateLimiter(cfg.RateLimit.RequestsPerMin, cfg.RateLimit.BurstSize)
			users.POST("/login", middleware.RateLimit(limiter), h.Auth.Login)
		} else {
			users.POST("/login", h.Auth.Login)
		}
		users.GET("/me", middleware.RequireAuth(tokens), h.Auth.GetCurrentUser)
	}

	tasks := r.Group("/api/tasks")
	tasks.Use(middleware.RequireAuth(tokens))
	{
		tasks.GET("", h.Task.ListTasks)
		tasks.POST("", h.Task.CreateTask)
		tasks.GET("/search", h.Task.SearchTasks)
		tasks.POST("/send-reminder", h.Reminder.SendReminder)
		tasks.GET("/:id", middleware.RequireTaskID(), h.Task.GetTask)
		tasks.PATCH("/:id", middleware.RequireTaskID(), h.Task.UpdateTask)
		tasks.PUT("/:id", middleware.RequireTaskID(), h.Task.UpdateTask)
		tasks.PATCH("/:id/toggle", middleware.RequireTaskID(), h.Task.ToggleTask)
		tasks.DELETE("/:id", middleware.RequireTaskID(), h.Task.DeleteTask)
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", constants.RequestIDHeader},
		ExposeHeaders: []string{constants.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}

	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}

// Unknown paths and unsupported methods both answer 404.
func routeNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
}
